// Package metrics registers the quality gate's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Evaluations completed evaluations by decision
	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitygate_evaluations_total",
			Help: "Total number of completed quality evaluations",
		},
		[]string{"decision"},
	)

	// EvaluationDuration wall time of one evaluation including persistence
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qualitygate_evaluation_duration_seconds",
			Help:    "Quality evaluation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// AnalyzerFailures analyzer timeouts and errors by analyzer and code
	AnalyzerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitygate_analyzer_failures_total",
			Help: "Analyzer runs that degraded to a failed score",
		},
		[]string{"analyzer", "code"},
	)

	// PersistRetries evaluation commits that were retried
	PersistRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualitygate_persist_retries_total",
			Help: "Number of evaluation commits retried after a persistence failure",
		},
	)

	// LifecycleEvents post lifecycle events by type
	LifecycleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualitygate_lifecycle_events_total",
			Help: "Post lifecycle events published on the event bus",
		},
		[]string{"type"},
	)

	// ExpiredReviews review entries closed by the expiry sweeper
	ExpiredReviews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualitygate_expired_reviews_total",
			Help: "Approval queue entries expired without a reviewer decision",
		},
	)
)
