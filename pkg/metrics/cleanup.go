package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/everkeep/everkeep/pkg/gc"
)

// cleanupMetrics is the Prometheus implementation of gc.CleanupMetrics.
//
// It tracks the media cleanup pipeline: outbox tasks by outcome and
// object-store deletions by result, so dashboards can spot a stuck outbox
// (growing retried/dropped counts) or a misbehaving bucket (growing failed
// deletions).
type cleanupMetrics struct {
	tasksTotal     *prometheus.CounterVec
	objectsDeleted prometheus.Counter
	objectsFailed  prometheus.Counter
	runDuration    prometheus.Histogram
}

// NewCleanupMetrics creates a new Prometheus-backed gc.CleanupMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the cleanup worker to use its built-in no-op implementation.
func NewCleanupMetrics() gc.CleanupMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &cleanupMetrics{
		tasksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "everkeep_cleanup_tasks_total",
				Help: "Total number of cleanup outbox tasks processed by outcome",
			},
			[]string{"outcome"}, // completed, retried, dropped
		),
		objectsDeleted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "everkeep_cleanup_objects_deleted_total",
				Help: "Total number of media objects deleted by the cleanup pipeline",
			},
		),
		objectsFailed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "everkeep_cleanup_objects_failed_total",
				Help: "Total number of media object deletions refused by the object store",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "everkeep_cleanup_run_duration_seconds",
				Help:    "Duration of cleanup outbox drains",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms .. ~164s
			},
		),
	}
}

func (m *cleanupMetrics) RecordTaskProcessed(outcome string) {
	m.tasksTotal.WithLabelValues(outcome).Inc()
}

func (m *cleanupMetrics) RecordObjectsDeleted(count int) {
	m.objectsDeleted.Add(float64(count))
}

func (m *cleanupMetrics) RecordObjectsFailed(count int) {
	m.objectsFailed.Add(float64(count))
}

func (m *cleanupMetrics) RecordRunDuration(seconds float64) {
	m.runDuration.Observe(seconds)
}
