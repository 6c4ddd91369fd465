// Package gc removes media objects that stopped being referenced when a
// memorial or a visitor memory was deleted.
//
// Cleanup is decoupled from the user-visible delete: the delete transaction
// writes an outbox row (see memorial.CleanupTask), and the worker in this
// package drains the outbox against the object store with bounded retries.
// Object-store failures are logged and retried; they are never surfaced to
// the user, because the relational delete is the source of truth for "this
// memorial is gone".
package gc

import (
	"context"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/media"
	"github.com/everkeep/everkeep/pkg/objectstore"
)

// DefaultBatchSize is the object-store per-request object-count ceiling.
const DefaultBatchSize = 1000

// Deleter turns a set of media URLs into batched object-store deletions.
//
// Thread Safety: safe for concurrent use.
type Deleter struct {
	objects   objectstore.ObjectStore
	extractor media.Extractor
	batchSize int
}

// NewDeleter creates a deleter. A batchSize of 0 uses DefaultBatchSize.
func NewDeleter(objects objectstore.ObjectStore, extractor media.Extractor, batchSize int) *Deleter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Deleter{
		objects:   objects,
		extractor: extractor,
		batchSize: batchSize,
	}
}

// Report is the partial-success outcome of a DeleteAll run. Every extracted
// key lands in exactly one of the two lists.
type Report struct {
	// Succeeded lists keys confirmed deleted (or already absent).
	Succeeded []string

	// Failed lists keys the object store could not delete this run.
	Failed []string

	// Skipped lists URLs that do not belong to our object store and were
	// not attempted (third-party hosts, malformed values).
	Skipped []string
}

// AllSucceeded reports whether no attempted deletion failed.
func (r *Report) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// DeleteAll deletes every deletable URL in the set.
//
// URLs are mapped through the key extractor; unrecognized ones are skipped.
// The remaining keys are deduplicated, partitioned into batches of at most
// the configured size, and one batch-delete call is issued per partition.
// A partition whose call fails outright has all its keys marked failed and
// the run continues with the next partition, so deletion is always attempted
// to completion.
//
// DeleteAll never returns an error: the outcome is the Report, and failures
// are the caller's to log or retry.
func (d *Deleter) DeleteAll(ctx context.Context, urls []string) *Report {
	report := &Report{}

	seen := make(map[string]struct{}, len(urls))
	var keys []string
	for _, url := range urls {
		key, ok := d.extractor.ExtractKey(url)
		if !ok {
			logger.Debug("GC: skipping foreign media URL: %s", url)
			report.Skipped = append(report.Skipped, url)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for i := 0; i < len(keys); i += d.batchSize {
		end := i + d.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		failures, err := d.objects.DeleteBatch(ctx, batch)
		if err != nil {
			// Cancellation mid-run: everything not confirmed is failed.
			logger.Warn("GC: batch delete aborted: %v", err)
			if failures == nil {
				failures = make(map[string]error, len(batch))
			}
			for _, key := range batch {
				if _, failed := failures[key]; !failed {
					failures[key] = err
				}
			}
		}

		for _, key := range batch {
			if ferr, failed := failures[key]; failed {
				logger.Warn("GC: failed to delete object: key=%s error=%v", key, ferr)
				report.Failed = append(report.Failed, key)
			} else {
				report.Succeeded = append(report.Succeeded, key)
			}
		}

		if err != nil {
			// Mark the untried remainder failed and stop; the outbox will
			// re-drive them.
			for _, key := range keys[end:] {
				report.Failed = append(report.Failed, key)
			}
			break
		}
	}

	return report
}
