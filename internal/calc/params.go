// Package calc derives financial and production projections from editable
// parameter sets. Every function is pure: no I/O, no shared state.
package calc

import (
	"math"
	"reflect"
)

const (
	daysPerYear   = 365
	weeksPerYear  = 52
	monthsPerYear = 12
)

// Float returns a pointer to v. Parameter sets use pointers so that an absent
// field can be told apart from an explicit zero.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// withDefaults returns p with every nil pointer field replaced by the same
// field of defaults.
func withDefaults[T any](p, defaults T) T {
	pv := reflect.ValueOf(&p).Elem()
	dv := reflect.ValueOf(defaults)
	for i := 0; i < pv.NumField(); i++ {
		field := pv.Field(i)
		if field.Kind() == reflect.Pointer && field.IsNil() && field.CanSet() {
			field.Set(dv.Field(i))
		}
	}
	return p
}

func num(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// safeDiv returns n/d, or 0 when the quotient would not be a finite number.
func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	q := n / d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func percentOf(part, whole float64) float64 {
	return safeDiv(part, whole) * 100
}

// finite returns r with every NaN or infinite float replaced by 0. Large
// inputs can overflow even when each division is guarded.
func finite[T any](r T) T {
	zeroNonFinite(reflect.ValueOf(&r).Elem())
	return r
}

func zeroNonFinite(v reflect.Value) {
	switch v.Kind() {
	case reflect.Float64:
		if f := v.Float(); (math.IsNaN(f) || math.IsInf(f, 0)) && v.CanSet() {
			v.SetFloat(0)
		}
	case reflect.Pointer:
		if !v.IsNil() {
			zeroNonFinite(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			zeroNonFinite(v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			zeroNonFinite(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Elem().Kind() != reflect.Float64 {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			if f := iter.Value().Float(); math.IsNaN(f) || math.IsInf(f, 0) {
				v.SetMapIndex(iter.Key(), reflect.Zero(v.Type().Elem()))
			}
		}
	}
}

// Resolved returns p with every unset field filled from the defaults. Two
// parameter sets with equal resolved forms produce equal results.
func (p DashboardParams) Resolved() DashboardParams {
	return withDefaults(p, DefaultDashboardParams())
}

func (m Multipliers) Resolved() Multipliers { return withDefaults(m, DefaultMultipliers()) }

func (p GarmentParams) Resolved() GarmentParams { return withDefaults(p, DefaultGarmentParams()) }

func (p CapacityParams) Resolved() CapacityParams { return withDefaults(p, DefaultCapacityParams()) }

func (p PricingParams) Resolved() PricingParams { return withDefaults(p, DefaultPricingParams()) }

func (p ROIParams) Resolved() ROIParams { return withDefaults(p, DefaultROIParams()) }
