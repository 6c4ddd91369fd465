package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/media"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/objectstore"
	"github.com/everkeep/everkeep/pkg/record"
)

// Sweeper finds and removes orphaned objects the outbox path missed.
//
// Orphans accumulate when a cleanup task is dropped after exhausting its
// retry budget, or when an upload grant is used but the resulting URL is
// never attached to a profile. The sweep is the safety net behind the
// outbox: it computes referenced = media of all live records, existing =
// every key in the bucket, and deletes the difference.
//
// Thread Safety: Safe for concurrent use.
type Sweeper struct {
	store     record.Store
	objects   objectstore.ObjectStore
	deleter   *Deleter
	extractor media.Extractor
	dryRun    bool
}

// NewSweeper creates an orphan sweeper.
//
// Returns an error if the object store cannot enumerate its keys, since the
// sweep is impossible without a full listing.
func NewSweeper(store record.Store, objects objectstore.ObjectStore, extractor media.Extractor, batchSize int, dryRun bool) (*Sweeper, error) {
	if _, ok := objects.(objectstore.Lister); !ok {
		return nil, fmt.Errorf("object store does not support key listing")
	}

	return &Sweeper{
		store:     store,
		objects:   objects,
		deleter:   NewDeleter(objects, extractor, batchSize),
		extractor: extractor,
		dryRun:    dryRun,
	}, nil
}

// SweepStats contains statistics from one orphan sweep.
type SweepStats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount uint64 // Keys referenced by live records
	ExistingCount   uint64 // Keys present in the object store
	OrphanedCount   uint64 // Keys existing but unreferenced
	DeletedCount    uint64 // Orphans successfully deleted
	FailedCount     uint64 // Orphans that failed to delete
}

// Duration returns the total sweep duration.
func (s *SweepStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *SweepStats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}

// Sweep performs a single orphan sweep.
//
// The algorithm:
//  1. Collect every media key referenced by active profiles and their
//     memories, plus URLs sitting in pending cleanup tasks (the outbox owns
//     those; deleting them early is harmless but confuses its accounting).
//  2. List every key in the object store.
//  3. Delete existing keys that no record references.
//
// Media of soft-deleted profiles is intentionally NOT referenced: that is
// exactly the residue the sweep exists to catch when the outbox gave up.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{StartTime: time.Now()}

	logger.Info("Sweep: phase 1 - collecting referenced media keys...")

	referenced, err := s.referencedKeys(ctx)
	if err != nil {
		return stats, err
	}
	stats.ReferencedCount = uint64(len(referenced))

	logger.Info("Sweep: found %d referenced keys", stats.ReferencedCount)
	logger.Info("Sweep: phase 2 - listing object store keys...")

	lister := s.objects.(objectstore.Lister)
	existing, err := lister.ListKeys(ctx, "")
	if err != nil {
		return stats, fmt.Errorf("failed to list object store keys: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	logger.Info("Sweep: found %d existing keys", stats.ExistingCount)

	var orphaned []string
	for _, key := range existing {
		if _, isReferenced := referenced[key]; !isReferenced {
			orphaned = append(orphaned, key)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		logger.Info("Sweep: no orphaned objects found")
		stats.EndTime = time.Now()
		return stats, nil
	}

	if s.dryRun {
		logger.Info("Sweep: DRY RUN - would delete %d objects:", stats.OrphanedCount)
		for i, key := range orphaned {
			if i < 10 {
				logger.Info("  - %s", key)
			}
		}
		if len(orphaned) > 10 {
			logger.Info("  ... and %d more", len(orphaned)-10)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	logger.Info("Sweep: phase 3 - deleting %d orphaned objects...", stats.OrphanedCount)

	// The deleter consumes URLs; reconstruct them so the sweep exercises
	// the same extraction and batching path as the outbox.
	urls := make([]string, len(orphaned))
	for i, key := range orphaned {
		urls[i] = s.objects.PublicURL(key)
	}

	report := s.deleter.DeleteAll(ctx, urls)
	stats.DeletedCount = uint64(len(report.Succeeded))
	stats.FailedCount = uint64(len(report.Failed))
	stats.EndTime = time.Now()

	logger.Info("Sweep: completed - %s", stats.Summary())
	return stats, nil
}

// referencedKeys builds the set of keys that must survive the sweep.
func (s *Sweeper) referencedKeys(ctx context.Context) (map[string]struct{}, error) {
	referenced := make(map[string]struct{})

	addURL := func(url string) {
		if key, ok := s.extractor.ExtractKey(url); ok {
			referenced[key] = struct{}{}
		}
	}

	var profiles []memorial.MemorialProfile
	if err := s.store.List(ctx, memorial.CollectionProfiles, record.Filter{"deleted_at": nil}, &profiles); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	for i := range profiles {
		profile := &profiles[i]

		var memories []memorial.Memory
		filter := record.Filter{"profile_id": profile.ID, "deleted_at": nil}
		if err := s.store.List(ctx, memorial.CollectionMemories, filter, &memories); err != nil {
			return nil, fmt.Errorf("failed to list memories for profile %s: %w", profile.ID, err)
		}

		for _, url := range media.Collect(profile, memories) {
			addURL(url)
		}
	}

	// Pending outbox tasks still own their URLs.
	var tasks []memorial.CleanupTask
	if err := s.store.List(ctx, memorial.CollectionCleanupTasks, nil, &tasks); err != nil {
		return nil, fmt.Errorf("failed to list cleanup tasks: %w", err)
	}
	for _, task := range tasks {
		for _, url := range task.URLs {
			addURL(url)
		}
	}

	return referenced, nil
}
