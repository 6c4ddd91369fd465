package gc

import (
	"fmt"
	"time"
)

// Stats contains statistics from one cleanup drain.
type Stats struct {
	StartTime      time.Time // When the drain started
	EndTime        time.Time // When the drain ended
	TaskCount      uint64    // Number of outbox tasks seen
	CompletedCount uint64    // Number of tasks fully processed and removed
	RetriedCount   uint64    // Number of tasks re-queued for another attempt
	DroppedCount   uint64    // Number of tasks dropped after exhausting attempts
	DeletedCount   uint64    // Number of objects successfully deleted
	FailedCount    uint64    // Number of objects that failed to delete
}

// Duration returns the total drain duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the drain.
func (s *Stats) Summary() string {
	return fmt.Sprintf("tasks=%d completed=%d retried=%d dropped=%d deleted=%d failed=%d duration=%s",
		s.TaskCount, s.CompletedCount, s.RetriedCount, s.DroppedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
