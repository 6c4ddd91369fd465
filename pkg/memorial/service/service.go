// Package service implements the memorial lifecycle operations: create,
// edit, delete, the visitor memory wall, the cached public profile view,
// and upload grant requests.
//
// The package composes the domain building blocks (guard, ledger,
// repository, media collection, upload authorization) into the operations a
// transport layer would expose. All lifecycle writes go through one record
// store transaction each, so the ledger, the profile row, and the cleanup
// outbox can never disagree.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/cache"
	"github.com/everkeep/everkeep/pkg/media"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/record"
	"github.com/everkeep/everkeep/pkg/upload"
)

// slugAttempts bounds regeneration when a generated slug collides. With a
// random suffix per attempt, exhausting this means something else is wrong.
const slugAttempts = 5

// Service exposes the memorial lifecycle operations.
//
// Thread Safety: safe for concurrent use. Concurrent creates for the same
// user are serialized by the storage-layer active-owner constraint, not by
// the service.
type Service struct {
	store      record.Store
	repo       *memorial.ProfileRepository
	guard      *memorial.LifecycleGuard
	ledger     *memorial.HistoryLedger
	authorizer *upload.Authorizer

	// slugCache caches the public slug lookup; writers invalidate it.
	slugCache *cache.Cache[string, *ProfileView]
}

// New creates the service.
//
// Parameters:
//   - store: Record store holding all memorial collections
//   - authorizer: Upload grant authorizer (nil disables RequestUploadGrant)
//   - cacheConfig: Tuning for the public profile cache
func New(store record.Store, authorizer *upload.Authorizer, cacheConfig cache.Config) *Service {
	return &Service{
		store:      store,
		repo:       memorial.NewProfileRepository(store),
		guard:      memorial.NewLifecycleGuard(store),
		ledger:     memorial.NewHistoryLedger(store),
		authorizer: authorizer,
		slugCache:  cache.New[string, *ProfileView](cacheConfig),
	}
}

// CreateProfile creates the user's one memorial.
//
// The eligibility fast path (completed order, no active profile, no
// lifetime ban) produces friendly errors before any write; the storage
// constraint behind it makes the decision stick under concurrency. The
// profile insert and its "created" ledger entry commit in one transaction.
//
// Returns:
//   - *memorial.MemorialProfile: The created profile with its slug
//   - error: Validation, Conflict, or Authorization domain error, or a
//     wrapped store error
func (s *Service) CreateProfile(ctx context.Context, userID string, input CreateInput) (*memorial.MemorialProfile, error) {
	if userID == "" {
		return nil, memorial.NewValidationError("user_id", "user id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	completed, err := s.guard.HasCompletedOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check order status: %w", err)
	}
	if !completed {
		return nil, memorial.NewAuthorizationError("a completed package order is required to create a memorial")
	}

	if err := s.guard.CanCreate(ctx, userID); err != nil {
		return nil, err
	}

	profile := input.toProfile(userID)

	for attempt := 0; attempt < slugAttempts; attempt++ {
		profile.Slug = memorial.NewSlug(input.DisplayName)

		err = s.store.Tx(ctx, func(tx record.Tx) error {
			if err := tx.Insert(memorial.CollectionProfiles, profile.ID, profile); err != nil {
				return err
			}
			return s.ledger.AppendTx(tx, userID, profile.ID, memorial.ActionCreated)
		})
		if err == nil {
			logger.Info("Memorial created: id=%s owner=%s slug=%s kind=%s",
				profile.ID, userID, profile.Slug, profile.Kind)
			return profile, nil
		}

		if isIndexViolation(err, "profiles_slug") {
			// Another memorial drew the same suffix; regenerate and retry.
			continue
		}
		if isIndexViolation(err, "profiles_active_owner") {
			// A concurrent create won the race after the guard fast path.
			return nil, memorial.NewConflictError("an active memorial already exists for this account")
		}
		return nil, fmt.Errorf("failed to create memorial: %w", err)
	}

	return nil, fmt.Errorf("failed to allocate a unique slug after %d attempts", slugAttempts)
}

// EditProfile applies a revision to the caller's memorial.
//
// The revision counts against the edit limit; the check, the field updates,
// and the counter increment happen in one transaction, so a request
// arriving at the limit is rejected without consuming anything.
func (s *Service) EditProfile(ctx context.Context, profileID, userID string, input EditInput) (*memorial.MemorialProfile, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Ownership first: foreign ids read as not found.
	if _, err := s.repo.GetOwned(ctx, profileID, userID); err != nil {
		return nil, err
	}

	// Guard fast path for friendly errors; the transaction below re-checks
	// at the moment of the write.
	if err := s.guard.CanEdit(ctx, profileID); err != nil {
		return nil, err
	}

	var updated memorial.MemorialProfile
	err := s.store.Tx(ctx, func(tx record.Tx) error {
		var profile memorial.MemorialProfile
		if err := tx.Get(memorial.CollectionProfiles, profileID, &profile); err != nil {
			return err
		}

		if !profile.Active() {
			return memorial.NewConflictError("memorial has been deleted and can no longer be edited")
		}
		if profile.EditCount >= profile.MaxEdits {
			return memorial.NewConflictError("edit limit reached for this memorial")
		}

		input.apply(&profile)
		profile.EditCount++

		if err := tx.Update(memorial.CollectionProfiles, profileID, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		if _, ok := err.(*memorial.Error); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to edit memorial: %w", err)
	}

	s.slugCache.Invalidate(updated.Slug)
	logger.Info("Memorial edited: id=%s owner=%s edits=%d/%d",
		profileID, userID, updated.EditCount, updated.MaxEdits)
	return &updated, nil
}

// DeleteProfile performs the one-time, irreversible memorial deletion.
//
// One transaction re-reads the profile, writes the "deleted" ledger entry
// (the lifetime ban), flips the soft-delete flag, and enqueues the profile's
// media for cleanup. The already-deleted check and the media collection both
// run inside that transaction: of two concurrent deletes exactly one
// commits, and an edit racing the delete cannot attach media that never
// reaches the outbox. The object store is never contacted here: the delete
// acknowledges even when the store is unreachable, and the cleanup worker
// deletes the media afterwards. A ledger write failure aborts the whole
// delete.
func (s *Service) DeleteProfile(ctx context.Context, profileID, userID string) error {
	// Ownership first: foreign ids read as not found.
	if _, err := s.repo.GetOwned(ctx, profileID, userID); err != nil {
		return err
	}

	var slug string
	var enqueued int
	err := s.store.Tx(ctx, func(tx record.Tx) error {
		var profile memorial.MemorialProfile
		if err := tx.Get(memorial.CollectionProfiles, profileID, &profile); err != nil {
			return err
		}
		if !profile.Active() {
			return memorial.NewConflictError("memorial has already been deleted")
		}

		// Collect at delete time, while the rows still reference their
		// media. Unapproved and already-hidden memories are included: their
		// photos become unreachable the moment the profile is gone.
		var memories []memorial.Memory
		if err := tx.List(memorial.CollectionMemories, record.Filter{
			"profile_id": profileID,
			"deleted_at": nil,
		}, &memories); err != nil {
			return err
		}
		urls := media.Collect(&profile, memories)

		if err := s.ledger.AppendTx(tx, userID, profileID, memorial.ActionDeleted); err != nil {
			return err
		}

		now := time.Now()
		profile.DeletedAt = &now
		if err := tx.Update(memorial.CollectionProfiles, profileID, profile); err != nil {
			return err
		}

		slug = profile.Slug
		enqueued = len(urls)
		if len(urls) == 0 {
			return nil
		}
		task := memorial.CleanupTask{
			ID:         uuid.NewString(),
			ProfileID:  profileID,
			URLs:       urls,
			EnqueuedAt: now,
		}
		return tx.Insert(memorial.CollectionCleanupTasks, task.ID, task)
	})
	if err != nil {
		if _, ok := err.(*memorial.Error); ok {
			return err
		}
		return fmt.Errorf("failed to delete memorial: %w", err)
	}

	s.slugCache.Invalidate(slug)
	logger.Info("Memorial deleted: id=%s owner=%s media_enqueued=%d",
		profileID, userID, enqueued)
	return nil
}

// RequestUploadGrant delegates to the upload authorizer.
func (s *Service) RequestUploadGrant(ctx context.Context, req upload.Request) (*upload.Authorization, error) {
	if s.authorizer == nil {
		return nil, memorial.NewAuthorizationError("uploads are not enabled")
	}
	return s.authorizer.Authorize(ctx, req)
}

// isIndexViolation reports whether err is a unique violation on the named
// index. The store names the violated index in its message.
func isIndexViolation(err error, index string) bool {
	if !record.IsUniqueViolation(err) {
		return false
	}
	return strings.Contains(err.Error(), index)
}
