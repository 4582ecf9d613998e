// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	SettingsOps     *prometheus.CounterVec
	Calculations    *prometheus.CounterVec
	AccessDenied    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		SettingsOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_settings_operations_total",
				Help: "Settings loads and saves by variant, operation and result",
			},
			[]string{"variant", "op", "result"},
		),
		Calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_calculations_total",
				Help: "Calculations served by calculator and memo cache outcome",
			},
			[]string{"calculator", "cache"},
		),
		AccessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_access_denied_total",
				Help: "Requests rejected by the access gate by surface",
			},
			[]string{"surface"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request duration by route pattern, method and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	r.reg.MustRegister(
		r.SettingsOps,
		r.Calculations,
		r.AccessDenied,
		r.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// SettingsOp counts one settings load or save.
func (r *Registry) SettingsOp(variant, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.SettingsOps.WithLabelValues(variant, op, result).Inc()
}

// Calculation counts one calculator call.
func (r *Registry) Calculation(calculator string, hit bool) {
	cache := "miss"
	if hit {
		cache = "hit"
	}
	r.Calculations.WithLabelValues(calculator, cache).Inc()
}

// Denied counts one rejected request. surface names where it was rejected:
// api, page, login or oauth.
func (r *Registry) Denied(surface string) {
	r.AccessDenied.WithLabelValues(surface).Inc()
}

// ObserveRequest records a finished HTTP request.
func (r *Registry) ObserveRequest(route, method string, status int, d time.Duration) {
	r.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
