package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maeknit/dashboard/internal/access"
	"github.com/maeknit/dashboard/internal/calc"
	"github.com/maeknit/dashboard/internal/memo"
	"github.com/maeknit/dashboard/internal/metrics"
	"github.com/maeknit/dashboard/internal/settings"
)

const (
	testEmail  = "owner@maeknit.com"
	testSecret = "test-secret"
)

// memStore is an in-memory settingsStore that counts every call.
type memStore struct {
	mu    sync.Mutex
	docs  map[string]settings.Document
	calls int
	err   error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]settings.Document{}}
}

func (m *memStore) Load(_ context.Context, key string) (settings.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return settings.Document{}, fmt.Errorf("load %s: %w: %w", key, settings.ErrStorage, m.err)
	}
	if doc, ok := m.docs[key]; ok {
		return doc, nil
	}
	return settings.Document{Key: key, Data: json.RawMessage(`{}`)}, nil
}

func (m *memStore) Save(_ context.Context, key string, data json.RawMessage, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return fmt.Errorf("save %s: %w: %w", key, settings.ErrStorage, m.err)
	}
	m.docs[key] = settings.Document{Key: key, Data: data, SchemaVersion: version, UpdatedAt: time.Now()}
	return nil
}

func (m *memStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func newTestServer(t *testing.T, store *memStore, policy access.Policy) *server {
	t.Helper()

	templates, err := parseTemplates()
	require.NoError(t, err)

	return &server{
		store:     store,
		db:        stubPinger{},
		gate:      access.NewGate(policy),
		sessions:  newSessionManager(testSecret, time.Hour, false),
		cache:     memo.NewMemory(64),
		metrics:   metrics.New(),
		tables:    calc.DefaultTables(),
		templates: templates,
	}
}

func defaultPolicy() access.Policy {
	return access.Policy{Version: 1, Emails: []string{testEmail}}
}

func sessionCookie(s *server, email string) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: s.sessions.createSessionValue(email)}
}

func do(t *testing.T, s *server, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestSettingsAPI_RejectsWithoutSessionBeforeStorage(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())

	for _, v := range settings.Variants() {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			rec := do(t, srv, method, v.Path, `{"a":1}`)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s: expected 401, got %d", method, v.Path, rec.Code)
			}
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		}
	}

	assert.Zero(t, store.Calls(), "store must not be touched by unauthenticated requests")
	assert.Equal(t, float64(2*len(settings.Variants())), testutil.ToFloat64(srv.metrics.AccessDenied.WithLabelValues("api")))
}

func TestSettingsAPI_RejectsSessionNotOnAllowlist(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/api/settings", "", sessionCookie(srv, "Owner@maeknit.com"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, store.Calls())
}

func TestSettingsAPI_RejectsTamperedSession(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())

	cookie := sessionCookie(srv, testEmail)
	flipped := "a"
	if strings.HasSuffix(cookie.Value, "a") {
		flipped = "b"
	}
	cookie.Value = cookie.Value[:len(cookie.Value)-1] + flipped

	rec := do(t, srv, http.MethodGet, "/api/settings", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSettingsAPI_LoadMissingReturnsEmptyObject(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/api/machine-roi-settings", "", sessionCookie(srv, testEmail))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSettingsAPI_SaveThenLoad(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	body := `{"numShifts":2,"productMix":"Mixed","rent":null,"notes":"anything goes"}`
	rec := do(t, srv, http.MethodPost, "/api/settings", body, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Settings saved successfully"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/settings", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	assert.Equal(t, settings.Dashboard.Version, store.docs[settings.Dashboard.Key].SchemaVersion)
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.SettingsOps.WithLabelValues("dashboard", "save", "ok")))
}

func TestSettingsAPI_VariantsAreIndependent(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/pricing-settings", `{"swatchPrice":300}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Pricing settings saved successfully"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/garment-calculator-settings", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSettingsAPI_SaveRejectsNonObject(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	for _, body := range []string{`[1,2]`, `"text"`, `42`, `null`, `{broken`, ``} {
		rec := do(t, srv, http.MethodPost, "/api/capacity-planning-settings", body, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
	assert.Zero(t, store.Calls())
}

func TestSettingsAPI_StorageFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk on fire")
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodGet, "/api/capacity-planning-settings", "", cookie)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch capacity planning settings"}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/machine-roi-settings", `{"machineCost":1}`, cookie)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to save machine ROI settings"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	srv.db = stubPinger{err: errors.New("gone")}
	rec = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	srv.metrics.Denied("api")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_access_denied_total")
}

func TestCalculate_ROIUsesBodyParamsAndMemoizes(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodPost, "/api/calculate/roi", `{"params":{"machineCost":null}}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var got calc.ROIResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		if got.AnnualProfit != 487500 {
			t.Fatalf("expected annual profit 487500, got %v", got.AnnualProfit)
		}
		assert.Equal(t, "0.2 years", got.PaybackLabel)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Calculations.WithLabelValues("roi", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Calculations.WithLabelValues("roi", "hit")))
}

func TestCalculate_ExplicitDefaultsShareCacheEntryWithNull(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/calculate/capacity", `{"params":{}}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/calculate/capacity", `{"params":{"numShifts":1}}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Calculations.WithLabelValues("capacity", "hit")))
}

func TestCalculate_FallsBackToSavedDocument(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/machine-roi-settings", `{"operatingCostPerMonth":50000}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/calculate/roi", ``, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var got calc.ROIResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Nil(t, got.PaybackYears)
	assert.Equal(t, calc.PaybackNotApplicable, got.PaybackLabel)
}

func TestCalculate_Dashboard(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/calculate/dashboard", `{"params":{},"multipliers":{"laborCostMultiplier":1}}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var got calc.DashboardResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	want := calc.Dashboard(calc.DashboardParams{}, calc.Multipliers{}, calc.DefaultTables())
	assert.InDelta(t, want.Profit, got.Profit, 1e-6)
	assert.InDelta(t, want.MonthlyExpenses, got.MonthlyExpenses, 1e-6)
}

func TestCalculate_OtherCalculators(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	for _, name := range []string{"scenarios", "sensitivity", "cashflow", "garment", "pricing"} {
		rec := do(t, srv, http.MethodPost, "/api/calculate/"+name, `{}`, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", name, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, srv, http.MethodPost, "/api/calculate/cashflow", `{"seasonality":[1,1,1,1,1,1,1,1,1,1,1,1]}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var months []calc.CashFlowMonth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &months))
	require.Len(t, months, 12)
	assert.Equal(t, months[0].Revenue, months[11].Revenue)
}

func TestCalculate_BadRequests(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/calculate/horoscope", `{}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/calculate/roi", `{"params":{"machineCost":"lots"}}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/calculate/roi", `{"params":[1]}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/calculate/roi", `not json`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_ReturnsWorkbook(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/api/dashboard/export.xlsx", "", sessionCookie(srv, testEmail))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "maeknit-dashboard.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestExport_RequiresSession(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/api/dashboard/export.xlsx", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardPage(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())

	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = do(t, srv, http.MethodGet, "/", "", sessionCookie(srv, testEmail))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Finance dashboard")
	assert.Contains(t, body, testEmail)
	assert.Contains(t, body, "Current Scenario")
}

func TestSettingsAPI_SaveRejectsNonNumericParameter(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodPost, "/api/settings", `{"teamLabor":"abc"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Parameters must be numbers or null"}`, rec.Body.String())
	assert.Empty(t, store.docs)

	rec = do(t, srv, http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/dashboard/export.xlsx", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardPage_UnreadableSavedSettingsUseDefaults(t *testing.T) {
	store := newMemStore()
	store.docs[settings.Dashboard.Key] = settings.Document{
		Key:           settings.Dashboard.Key,
		Data:          json.RawMessage(`{"teamLabor":"abc"}`),
		SchemaVersion: settings.Dashboard.Version,
	}
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Current Scenario")
	assert.NotContains(t, body, "could not be loaded")

	rec = do(t, srv, http.MethodGet, "/api/dashboard/export.xlsx", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestDashboardPage_StorageFailureShowsDefaultsWithNotice(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk on fire")
	srv := newTestServer(t, store, defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	rec := do(t, srv, http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Saved settings could not be loaded. Showing defaults.")
	assert.Contains(t, body, "Current Scenario")
	assert.Contains(t, body, "Download workbook")
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.SettingsOps.WithLabelValues("dashboard", "load", "error")))

	rec = do(t, srv, http.MethodGet, "/api/dashboard/export.xlsx", "", cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCalculate_OverflowStaysValidJSON(t *testing.T) {
	srv := newTestServer(t, newMemStore(), defaultPolicy())
	cookie := sessionCookie(srv, testEmail)

	for _, name := range []string{"dashboard", "scenarios", "sensitivity", "cashflow"} {
		rec := do(t, srv, http.MethodPost, "/api/calculate/"+name, `{"params":{"teamLabor":1e308}}`, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", name, rec.Code, rec.Body.String())
		}
		if !json.Valid(rec.Body.Bytes()) {
			t.Fatalf("%s: response is not valid JSON: %q", name, rec.Body.String())
		}
	}
}

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"profit": math.Inf(1)})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rec.Body.String())
}
