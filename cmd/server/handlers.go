package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/maeknit/dashboard/internal/access"
	"github.com/maeknit/dashboard/internal/calc"
	"github.com/maeknit/dashboard/internal/export"
	"github.com/maeknit/dashboard/internal/memo"
	"github.com/maeknit/dashboard/internal/settings"
)

var errUnknownCalculator = errors.New("unknown calculator")

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func (s *server) handleLoadSettings(v settings.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.store.Load(r.Context(), v.Key)
		s.metrics.SettingsOp(v.Name, "load", err)
		if err != nil {
			log.Error().Err(err).Str("key", v.Key).Str("op", "load").Msg("settings storage error")
			writeError(w, http.StatusInternalServerError, "Failed to fetch "+lowerFirst(v.Label))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Data)
	}
}

func (s *server) handleSaveSettings(v settings.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := settings.CheckObject(body); err != nil {
			writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
			return
		}
		if err := v.Validate(body); err != nil {
			writeError(w, http.StatusBadRequest, "Parameters must be numbers or null")
			return
		}

		err = s.store.Save(r.Context(), v.Key, body, v.Version)
		s.metrics.SettingsOp(v.Name, "save", err)
		if err != nil {
			log.Error().Err(err).Str("key", v.Key).Str("op", "save").Msg("settings storage error")
			writeError(w, http.StatusInternalServerError, "Failed to save "+lowerFirst(v.Label))
			return
		}

		email, _ := access.Principal(r.Context())
		log.Info().Str("key", v.Key).Str("email", email).Msg("settings saved")
		writeJSON(w, http.StatusOK, map[string]string{"message": v.Label + " saved successfully"})
	}
}

// calculateRequest is the body of POST /api/calculate/{calculator}. When
// params is absent the saved document for the calculator is used.
type calculateRequest struct {
	Params      json.RawMessage       `json:"params"`
	Multipliers calc.Multipliers      `json:"multipliers"`
	Overrides   calc.GarmentOverrides `json:"overrides"`
	Seasonality []float64             `json:"seasonality"`
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "calculator")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var req calculateRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, hit, err := s.calculate(r.Context(), name, req)
	switch {
	case errors.Is(err, errUnknownCalculator):
		writeError(w, http.StatusNotFound, "Unknown calculator")
		return
	case errors.Is(err, settings.ErrDecode):
		writeError(w, http.StatusBadRequest, "Parameters must be numbers or null")
		return
	case err != nil:
		log.Error().Err(err).Str("calculator", name).Msg("calculation failed")
		writeError(w, http.StatusInternalServerError, "Failed to calculate")
		return
	}

	s.metrics.Calculation(name, hit)
	writeJSON(w, http.StatusOK, result)
}

type dashboardInput struct {
	Params      calc.DashboardParams
	Multipliers calc.Multipliers
	Tables      calc.Tables
	Seasonality []float64
}

func (s *server) calculate(ctx context.Context, name string, req calculateRequest) (any, bool, error) {
	switch name {
	case "dashboard", "scenarios", "sensitivity", "cashflow":
		p, err := paramsFor[calc.DashboardParams](ctx, s, settings.Dashboard, req.Params)
		if err != nil {
			return nil, false, err
		}
		in := dashboardInput{Params: p.Resolved(), Multipliers: req.Multipliers.Resolved(), Tables: s.tables}
		switch name {
		case "dashboard":
			return memoized(ctx, s, name, in, func() calc.DashboardResult {
				return calc.Dashboard(in.Params, in.Multipliers, in.Tables)
			})
		case "scenarios":
			return memoized(ctx, s, name, in, func() []calc.Scenario {
				return calc.Scenarios(in.Params, in.Multipliers, in.Tables)
			})
		case "sensitivity":
			return memoized(ctx, s, name, in, func() calc.SensitivityResult {
				return calc.Sensitivity(in.Params, in.Multipliers, in.Tables)
			})
		default:
			in.Seasonality = req.Seasonality
			return memoized(ctx, s, name, in, func() []calc.CashFlowMonth {
				return calc.DashboardCashFlow(calc.Dashboard(in.Params, in.Multipliers, in.Tables), in.Seasonality)
			})
		}

	case "garment":
		p, err := paramsFor[calc.GarmentParams](ctx, s, settings.Garment, req.Params)
		if err != nil {
			return nil, false, err
		}
		in := struct {
			Params    calc.GarmentParams
			Overrides calc.GarmentOverrides
		}{p.Resolved(), req.Overrides.ResolvedFor(p)}
		return memoized(ctx, s, name, in, func() calc.GarmentResult {
			return calc.Garment(in.Params, in.Overrides)
		})

	case "capacity":
		p, err := paramsFor[calc.CapacityParams](ctx, s, settings.Capacity, req.Params)
		if err != nil {
			return nil, false, err
		}
		p = p.Resolved()
		return memoized(ctx, s, name, p, func() calc.CapacityResult { return calc.Capacity(p) })

	case "pricing":
		p, err := paramsFor[calc.PricingParams](ctx, s, settings.Pricing, req.Params)
		if err != nil {
			return nil, false, err
		}
		p = p.Resolved()
		return memoized(ctx, s, name, p, func() calc.PricingResult { return calc.Pricing(p) })

	case "roi":
		p, err := paramsFor[calc.ROIParams](ctx, s, settings.ROI, req.Params)
		if err != nil {
			return nil, false, err
		}
		p = p.Resolved()
		return memoized(ctx, s, name, p, func() calc.ROIResult { return calc.ROI(p) })
	}

	return nil, false, fmt.Errorf("%w: %s", errUnknownCalculator, name)
}

// paramsFor decodes raw as the variant's parameter set, or the saved document
// when raw is empty.
func paramsFor[T any](ctx context.Context, s *server, v settings.Variant, raw json.RawMessage) (T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		doc, err := s.store.Load(ctx, v.Key)
		s.metrics.SettingsOp(v.Name, "load", err)
		if err != nil {
			var zero T
			return zero, err
		}
		return settings.Decode[T](v, doc)
	}
	if err := settings.CheckObject(raw); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", settings.ErrDecode, err)
	}
	return settings.Decode[T](v, settings.Document{Data: raw, SchemaVersion: v.Version})
}

func memoized[T any](ctx context.Context, s *server, name string, input any, compute func() T) (any, bool, error) {
	key, err := memo.Key(name, input)
	if err != nil {
		log.Warn().Err(err).Str("calculator", name).Msg("memo key failed")
		return compute(), false, nil
	}
	result, hit := memo.Do(ctx, s.cache, key, memoTTL, compute)
	return result, hit, nil
}

// savedDashboard computes the dashboard from the saved document. A document
// that no longer decodes is logged and replaced by the defaults; only storage
// failures are returned.
func (s *server) savedDashboard(ctx context.Context) (export.Report, error) {
	doc, err := s.store.Load(ctx, settings.Dashboard.Key)
	s.metrics.SettingsOp(settings.Dashboard.Name, "load", err)
	if err != nil {
		return dashboardReport(calc.DashboardParams{}, s.tables), err
	}
	p, err := settings.Decode[calc.DashboardParams](settings.Dashboard, doc)
	if err != nil {
		log.Warn().Err(err).Str("key", settings.Dashboard.Key).Msg("saved settings unreadable, using defaults")
		p = calc.DashboardParams{}
	}
	return dashboardReport(p, s.tables), nil
}

func dashboardReport(p calc.DashboardParams, tables calc.Tables) export.Report {
	mult := calc.DefaultMultipliers()
	d := calc.Dashboard(p, mult, tables)
	return export.Report{
		Dashboard: d,
		Scenarios: calc.Scenarios(p, mult, tables),
		CashFlow:  calc.DashboardCashFlow(d, nil),
	}
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	report, err := s.savedDashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Str("key", settings.Dashboard.Key).Str("op", "export").Msg("settings storage error")
		writeError(w, http.StatusInternalServerError, "Failed to export dashboard")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report); err != nil {
		log.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "Failed to export dashboard")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="maeknit-dashboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type dashboardViewData struct {
	Email     string
	Result    calc.DashboardResult
	Scenarios []calc.Scenario
	CashFlow  []calc.CashFlowMonth
	Notice    string
}

// handleDashboardPage always renders figures. When the saved settings cannot
// be read the defaults are shown with a notice.
func (s *server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	email, _ := access.Principal(r.Context())
	view := dashboardViewData{Email: strings.TrimSpace(email)}

	report, err := s.savedDashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Str("key", settings.Dashboard.Key).Str("op", "page").Msg("settings storage error")
		view.Notice = "Saved settings could not be loaded. Showing defaults."
	}
	view.Result = report.Dashboard
	view.Scenarios = report.Scenarios
	view.CashFlow = report.CashFlow

	s.renderTemplate(w, "dashboard.html", view)
}
