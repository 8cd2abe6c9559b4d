package triage

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	DecisionConfidence *prometheus.HistogramVec
	TriageDuration     prometheus.Histogram
	InferenceDuration  prometheus.Histogram
	FailuresTotal      *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_decisions_total",
			Help: "Total persisted triage decisions by class and review flag.",
		}, []string{"class", "flagged"}),
		DecisionConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediguard_decision_confidence",
			Help:    "Confidence score of persisted triage decisions.",
			Buckets: prometheus.LinearBuckets(0.3, 0.05, 15), // 0.30 .. 1.00
		}, []string{"class"}),
		TriageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediguard_triage_duration_seconds",
			Help:    "End-to-end duration of successful triage calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediguard_inference_duration_seconds",
			Help:    "Duration of model inference calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms .. ~0.8s
		}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_triage_failures_total",
			Help: "Total failed triage calls by pipeline stage.",
		}, []string{"stage"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_review_notifications_total",
			Help: "Total review notifications for flagged decisions by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.DecisionConfidence,
		m.TriageDuration,
		m.InferenceDuration,
		m.FailuresTotal,
		m.NotificationsTotal,
	)

	return m
}

// Hooks returns ServiceHooks that update the corresponding metrics.
func (m *Metrics) Hooks() ServiceHooks {
	return ServiceHooks{
		OnInference: func(duration float64) {
			m.InferenceDuration.Observe(duration)
		},
		OnDecision: func(d *Decision, duration float64) {
			m.DecisionsTotal.WithLabelValues(string(d.Class), strconv.FormatBool(d.Flagged)).Inc()
			m.DecisionConfidence.WithLabelValues(string(d.Class)).Observe(d.Confidence)
			m.TriageDuration.Observe(duration)
		},
		OnFailure: func(stage string) {
			m.FailuresTotal.WithLabelValues(stage).Inc()
		},
		OnNotify: func(err error) {
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			m.NotificationsTotal.WithLabelValues(outcome).Inc()
		},
	}
}
