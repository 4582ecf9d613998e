package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/maeknit/dashboard/internal/calc"
)

// ErrDecode is returned when a stored document cannot be read as the
// variant's parameter set.
var ErrDecode = errors.New("settings document does not match parameter set")

// Migration upgrades a decoded document by one schema version in place.
type Migration func(doc map[string]any)

// Variant describes one persisted calculator configuration.
type Variant struct {
	Name       string
	Label      string // user-facing name in messages
	Key        string
	Path       string
	Version    int
	Migrations map[int]Migration // keyed by the version each one upgrades from
	Defaults   func() any

	decode func(Variant, Document) error
}

var (
	Dashboard = Variant{
		Name:     "dashboard",
		Label:    "Settings",
		Key:      "maeknit_dashboard_settings",
		Path:     "/api/settings",
		Version:  1,
		Defaults: func() any { return calc.DefaultDashboardParams() },

		decode: decodes[calc.DashboardParams],
	}
	Garment = Variant{
		Name:     "garment",
		Label:    "Garment calculator settings",
		Key:      "garment_calculator_settings",
		Path:     "/api/garment-calculator-settings",
		Version:  1,
		Defaults: func() any { return calc.DefaultGarmentParams() },

		decode: decodes[calc.GarmentParams],
	}
	Capacity = Variant{
		Name:    "capacity",
		Label:   "Capacity planning settings",
		Key:     "capacity_planning_settings",
		Path:    "/api/capacity-planning-settings",
		Version: 2,
		Migrations: map[int]Migration{
			1: numericShifts,
		},
		Defaults: func() any { return calc.DefaultCapacityParams() },

		decode: decodes[calc.CapacityParams],
	}
	Pricing = Variant{
		Name:     "pricing",
		Label:    "Pricing settings",
		Key:      "pricing_settings",
		Path:     "/api/pricing-settings",
		Version:  1,
		Defaults: func() any { return calc.DefaultPricingParams() },

		decode: decodes[calc.PricingParams],
	}
	ROI = Variant{
		Name:     "roi",
		Label:    "Machine ROI settings",
		Key:      "machine_roi_settings",
		Path:     "/api/machine-roi-settings",
		Version:  1,
		Defaults: func() any { return calc.DefaultROIParams() },

		decode: decodes[calc.ROIParams],
	}
)

// Variants lists every persisted variant in display order.
func Variants() []Variant {
	return []Variant{Dashboard, Garment, Capacity, Pricing, ROI}
}

// Lookup returns the variant with the given name.
func Lookup(name string) (Variant, bool) {
	for _, v := range Variants() {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// DefaultDocument returns the variant's defaults as a JSON object.
func (v Variant) DefaultDocument() (json.RawMessage, error) {
	b, err := json.Marshal(v.Defaults())
	if err != nil {
		return nil, fmt.Errorf("marshal %s defaults: %w", v.Name, err)
	}
	return b, nil
}

// Validate reports whether data, saved at the variant's current version,
// decodes as its parameter set. The error wraps ErrDecode.
func (v Variant) Validate(data json.RawMessage) error {
	if v.decode == nil {
		return nil
	}
	return v.decode(v, Document{Data: data, SchemaVersion: v.Version})
}

func decodes[T any](v Variant, doc Document) error {
	_, err := Decode[T](v, doc)
	return err
}

// Decode reads doc into a parameter set of type T after upgrading it to the
// variant's current version. Unknown fields are ignored.
func Decode[T any](v Variant, doc Document) (T, error) {
	var out T

	var fields map[string]any
	if err := json.Unmarshal(doc.Data, &fields); err != nil {
		return out, fmt.Errorf("decode %s: %w: %w", v.Key, ErrDecode, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}

	from := doc.SchemaVersion
	if from < 1 {
		from = 1
	}
	for ver := from; ver < v.Version; ver++ {
		if m, ok := v.Migrations[ver]; ok {
			m(fields)
		}
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("decode %s: %w: %w", v.Key, ErrDecode, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w: %w", v.Key, ErrDecode, err)
	}
	return out, nil
}

// numericShifts converts the shift selector, which older capacity documents
// stored as a string, to a number. Values that do not parse are dropped so
// the default applies.
func numericShifts(doc map[string]any) {
	s, ok := doc["numShifts"].(string)
	if !ok {
		return
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		delete(doc, "numShifts")
		return
	}
	doc["numShifts"] = n
}
