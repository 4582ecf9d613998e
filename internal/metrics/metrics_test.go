package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := New()

	r.SettingsOp("dashboard", "load", nil)
	r.SettingsOp("dashboard", "save", errors.New("boom"))
	r.Calculation("roi", true)
	r.Calculation("roi", false)
	r.Calculation("roi", false)
	r.Denied("api")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SettingsOps.WithLabelValues("dashboard", "load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SettingsOps.WithLabelValues("dashboard", "save", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Calculations.WithLabelValues("roi", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AccessDenied.WithLabelValues("api")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveRequest("/api/settings", "GET", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `dashboard_http_request_duration_seconds_count{method="GET",route="/api/settings",status="200"} 1`)
}
