// Package metrics provides Prometheus metrics for the assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	TurnsTotal         *prometheus.CounterVec
	TurnDuration       prometheus.Histogram
	ModelCallDuration  *prometheus.HistogramVec
	DirectivesTotal    *prometheus.CounterVec
	DirectivesSkipped  *prometheus.CounterVec
	ConversationErrors prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	DBSizeBytes        prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeos_turns_total",
				Help: "Total number of chat turns by outcome.",
			},
			[]string{"outcome"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lifeos_turn_duration_seconds",
				Help:    "End-to-end chat turn duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
		ModelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifeos_model_call_duration_seconds",
				Help:    "Model call duration by model and result.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"model", "result"},
		),
		DirectivesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeos_directives_total",
				Help: "Dispatched directives by type and result kind.",
			},
			[]string{"type", "result"},
		),
		DirectivesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeos_directives_skipped_total",
				Help: "Markers dropped by the parser, by directive type.",
			},
			[]string{"type"},
		),
		ConversationErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lifeos_conversation_log_errors_total",
				Help: "Conversation log writes that failed after a successful turn.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeos_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		DBSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lifeos_db_size_bytes",
				Help: "Size of the sqlite database file.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.TurnsTotal)
	reg.MustRegister(m.TurnDuration)
	reg.MustRegister(m.ModelCallDuration)
	reg.MustRegister(m.DirectivesTotal)
	reg.MustRegister(m.DirectivesSkipped)
	reg.MustRegister(m.ConversationErrors)
	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.DBSizeBytes)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn counts a finished turn and observes its duration.
func (m *Metrics) RecordTurn(outcome string, seconds float64) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(seconds)
}

// ObserveModelCall records model call latency.
func (m *Metrics) ObserveModelCall(model, result string, seconds float64) {
	m.ModelCallDuration.WithLabelValues(model, result).Observe(seconds)
}

// RecordDirective increments the directive counter.
func (m *Metrics) RecordDirective(typ, result string) {
	m.DirectivesTotal.WithLabelValues(typ, result).Inc()
}

// RecordSkipped increments the skipped-marker counter.
func (m *Metrics) RecordSkipped(typ string) {
	m.DirectivesSkipped.WithLabelValues(typ).Inc()
}

// RecordConversationError increments the conversation log failure counter.
func (m *Metrics) RecordConversationError() {
	m.ConversationErrors.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func (m *Metrics) RecordHTTPRequest(method, route, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// SetDBSize sets the database size gauge.
func (m *Metrics) SetDBSize(bytes float64) {
	m.DBSizeBytes.Set(bytes)
}
