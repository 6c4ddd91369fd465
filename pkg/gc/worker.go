package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/record"
)

// WorkerConfig contains configuration for the cleanup worker.
type WorkerConfig struct {
	// Enabled controls whether background cleanup is active (default: true)
	Enabled bool

	// Interval is how often to drain the cleanup outbox (default: 1m)
	Interval time.Duration

	// BatchSize is the per-request object deletion ceiling (default: 1000)
	// S3 supports up to 1000 objects per DeleteObjects call
	BatchSize int

	// MaxAttempts is how many drains a task survives before it is dropped
	// with an error log (default: 5)
	MaxAttempts int

	// DryRun mode logs what would be deleted without actually deleting
	// (default: false)
	DryRun bool
}

// Worker drains the cleanup outbox in the background.
//
// Each drain lists the pending cleanup tasks, deletes the media each task
// references, and removes fully processed tasks. A task with remaining
// failures is re-queued with an incremented attempt count; after MaxAttempts
// it is dropped and the leftover objects become candidates for the orphan
// sweep.
//
// Thread Safety: Safe for concurrent use.
type Worker struct {
	store   record.Store
	deleter *Deleter
	metrics CleanupMetrics
	config  WorkerConfig
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWorker creates a cleanup worker.
//
// The worker is initialized but not started. Call Start() to begin
// background draining.
//
// Parameters:
//   - store: Record store holding the cleanup_tasks outbox
//   - deleter: Batch deleter used against the object store
//   - metrics: Cleanup metrics recorder (nil for no-op)
//   - config: Worker configuration
func NewWorker(store record.Store, deleter *Deleter, metrics CleanupMetrics, config WorkerConfig) *Worker {
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Worker{
		store:   store,
		deleter: deleter,
		metrics: metrics,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins background outbox draining.
//
// This starts a goroutine that drains the outbox at the configured interval
// until Stop() is called.
func (w *Worker) Start() {
	if !w.config.Enabled {
		logger.Info("Media cleanup disabled")
		return
	}

	logger.Info("Starting cleanup worker: interval=%s batch_size=%d max_attempts=%d dry_run=%v",
		w.config.Interval, w.config.BatchSize, w.config.MaxAttempts, w.config.DryRun)

	go w.run()
}

// Stop stops the worker and waits for an in-progress drain to finish.
//
// Parameters:
//   - ctx: Context for timeout (the drain is abandoned if the context expires)
//
// Returns:
//   - error: Returns error if context expires before shutdown completes
func (w *Worker) Stop(ctx context.Context) error {
	if !w.config.Enabled {
		return nil
	}

	logger.Info("Stopping cleanup worker...")

	close(w.stopCh)

	select {
	case <-w.doneCh:
		logger.Info("Cleanup worker stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Cleanup worker shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate drain of the cleanup outbox.
//
// Useful for tests, admin triggers and initial cleanup on startup. The
// method blocks until the drain completes or the context is cancelled.
//
// Returns:
//   - *Stats: Drain statistics
//   - error: Returns error if listing the outbox fails or the context is
//     cancelled
func (w *Worker) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Draining cleanup outbox (manual trigger)...")
	return w.drain(ctx)
}

// run is the background goroutine that periodically drains the outbox.
func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	logger.Info("Cleanup worker started")

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := w.drain(ctx)
			cancel()

			if err != nil {
				logger.Error("Cleanup drain failed: %v", err)
			} else if stats.TaskCount > 0 {
				logger.Info("Cleanup drain completed: %s", stats.Summary())
			}

		case <-w.stopCh:
			logger.Info("Cleanup worker stopping...")
			return
		}
	}
}

// drain performs a single pass over the cleanup outbox.
func (w *Worker) drain(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	var tasks []memorial.CleanupTask
	if err := w.store.List(ctx, memorial.CollectionCleanupTasks, nil, &tasks); err != nil {
		return stats, fmt.Errorf("failed to list cleanup tasks: %w", err)
	}
	stats.TaskCount = uint64(len(tasks))

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}
		w.processTask(ctx, &tasks[i], stats)
	}

	stats.EndTime = time.Now()
	w.metrics.RecordRunDuration(stats.Duration().Seconds())
	return stats, nil
}

// processTask attempts one outbox task and updates or removes its row.
//
// Row management failures are logged and left for the next drain; the drain
// itself never fails because of a single task.
func (w *Worker) processTask(ctx context.Context, task *memorial.CleanupTask, stats *Stats) {
	if w.config.DryRun {
		logger.Info("Cleanup: DRY RUN - would delete %d URLs for profile %s (task %s)",
			len(task.URLs), task.ProfileID, task.ID)
		return
	}

	report := w.deleter.DeleteAll(ctx, task.URLs)
	stats.DeletedCount += uint64(len(report.Succeeded))
	stats.FailedCount += uint64(len(report.Failed))
	w.metrics.RecordObjectsDeleted(len(report.Succeeded))
	w.metrics.RecordObjectsFailed(len(report.Failed))

	if report.AllSucceeded() {
		if err := w.store.Delete(ctx, memorial.CollectionCleanupTasks, task.ID); err != nil && !record.IsNotFound(err) {
			logger.Warn("Cleanup: failed to remove completed task %s: %v", task.ID, err)
			return
		}
		stats.CompletedCount++
		w.metrics.RecordTaskProcessed(OutcomeCompleted)
		logger.Debug("Cleanup: task %s completed: %d objects deleted, %d skipped",
			task.ID, len(report.Succeeded), len(report.Skipped))
		return
	}

	task.Attempts++
	if task.Attempts >= w.config.MaxAttempts {
		logger.Error("Cleanup: dropping task %s after %d attempts: %d objects still undeleted (profile %s)",
			task.ID, task.Attempts, len(report.Failed), task.ProfileID)
		if err := w.store.Delete(ctx, memorial.CollectionCleanupTasks, task.ID); err != nil && !record.IsNotFound(err) {
			logger.Warn("Cleanup: failed to remove dropped task %s: %v", task.ID, err)
			return
		}
		stats.DroppedCount++
		w.metrics.RecordTaskProcessed(OutcomeDropped)
		return
	}

	task.LastError = fmt.Sprintf("%d of %d objects failed", len(report.Failed), len(report.Failed)+len(report.Succeeded))
	if err := w.store.Update(ctx, memorial.CollectionCleanupTasks, task.ID, task); err != nil {
		logger.Warn("Cleanup: failed to re-queue task %s: %v", task.ID, err)
		return
	}
	stats.RetriedCount++
	w.metrics.RecordTaskProcessed(OutcomeRetried)
	logger.Warn("Cleanup: task %s re-queued: attempt %d/%d, %d objects failed",
		task.ID, task.Attempts, w.config.MaxAttempts, len(report.Failed))
}
