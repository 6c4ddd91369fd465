package gc

// CleanupMetrics receives counters from cleanup runs. A nil recorder is
// replaced with a no-op, so callers wire metrics only when they want them.
type CleanupMetrics interface {
	// RecordTaskProcessed counts one drained outbox task and its outcome.
	RecordTaskProcessed(outcome string)

	// RecordObjectsDeleted counts objects confirmed deleted.
	RecordObjectsDeleted(count int)

	// RecordObjectsFailed counts objects the store refused to delete.
	RecordObjectsFailed(count int)

	// RecordRunDuration observes how long one drain took, in seconds.
	RecordRunDuration(seconds float64)
}

// Task outcomes reported to CleanupMetrics.
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeDropped   = "dropped"
)

type noopMetrics struct{}

func (noopMetrics) RecordTaskProcessed(string) {}
func (noopMetrics) RecordObjectsDeleted(int)   {}
func (noopMetrics) RecordObjectsFailed(int)    {}
func (noopMetrics) RecordRunDuration(float64)  {}
