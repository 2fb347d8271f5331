package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthEvent(t *testing.T) {
	m := New()
	m.AuthEvent(EventRedirect)
	m.AuthEvent(EventRedirect)
	m.AuthEvent(EventLogin)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues(EventRedirect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues(EventLogin)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues(EventDenied)))
}

func TestStaticResponse(t *testing.T) {
	m := New()
	m.StaticResponse(http.StatusOK)
	m.StaticResponse(http.StatusNotFound)
	m.StaticResponse(http.StatusNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaticResponses.WithLabelValues("404")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthEvent(EventLogin)
		m.StaticResponse(http.StatusOK)
		m.ObserveExchange(time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.AuthEvent(EventLogout)
	m.ObserveExchange(300 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sitegate_auth_events_total{event="logout"} 1`)
	assert.Contains(t, string(body), "sitegate_oauth_exchange_seconds_count 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.AuthEvent(EventError)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuthEvents.WithLabelValues(EventError)))
}
