package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrder(t *testing.T) {
	before := testutil.ToFloat64(bottles)
	placed := testutil.ToFloat64(orders.WithLabelValues(OutcomePlaced))

	RecordOrder(OutcomePlaced, 3)
	RecordOrder(OutcomeInsufficient, 5)

	assert.Equal(t, before+3, testutil.ToFloat64(bottles))
	assert.Equal(t, placed+1, testutil.ToFloat64(orders.WithLabelValues(OutcomePlaced)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordUpdate("text")
	RecordStepError("validation")
	RecordGeocode(true, 120*time.Millisecond)
	RecordHTTP(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
	SetSessions(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"lavita_bot_updates_total",
		"lavita_bot_step_errors_total",
		"lavita_geocode_duration_seconds",
		"lavita_http_requests_total",
		"lavita_bot_sessions_active 2",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
