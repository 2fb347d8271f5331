// Package metrics exposes prometheus counters for the gate and the static responder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event labels
const (
	EventRedirect = "redirect"
	EventLogin    = "login"
	EventDenied   = "denied"
	EventError    = "error"
	EventLogout   = "logout"
)

// Metrics holds all Prometheus metrics for sitegate
type Metrics struct {
	registry *prometheus.Registry

	AuthEvents      *prometheus.CounterVec
	StaticResponses *prometheus.CounterVec
	OAuthExchange   prometheus.Histogram
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AuthEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegate_auth_events_total",
				Help: "Authentication events by outcome",
			},
			[]string{"event"},
		),
		StaticResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegate_static_responses_total",
				Help: "Static responder results by status code",
			},
			[]string{"code"},
		),
		OAuthExchange: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitegate_oauth_exchange_seconds",
				Help:    "Duration of the OAuth code exchange with GitHub",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

// AuthEvent counts one auth event. Safe on a nil receiver.
func (m *Metrics) AuthEvent(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

// StaticResponse counts one static response. Safe on a nil receiver.
func (m *Metrics) StaticResponse(code int) {
	if m == nil {
		return
	}
	m.StaticResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveExchange records how long a code exchange took. Safe on a nil receiver.
func (m *Metrics) ObserveExchange(d time.Duration) {
	if m == nil {
		return
	}
	m.OAuthExchange.Observe(d.Seconds())
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
