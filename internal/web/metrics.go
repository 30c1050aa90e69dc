package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/service/brain"
)

// Metrics owns its registry so tests can run many instances without
// duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	decisions *prometheus.CounterVec
	replies   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ryosa",
			Name:      "decisions_total",
			Help:      "Handled chat events by platform and outcome.",
		}, []string{"platform", "outcome"}),
		replies: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ryosa",
			Name:      "reply_length_chars",
			Help:      "Length of sent replies in characters.",
			Buckets:   []float64{20, 50, 100, 200, 400},
		}, []string{"platform"}),
	}
}

// RecordOutcome implements brain.OutcomeRecorder.
func (m *Metrics) RecordOutcome(platform core.Platform, outcome brain.Outcome) {
	m.decisions.WithLabelValues(string(platform), string(outcome)).Inc()
}

func (m *Metrics) ObserveReply(platform core.Platform, reply string) {
	m.replies.WithLabelValues(string(platform)).Observe(float64(len(reply)))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
