package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/record"
)

// SubmitMemory attaches a visitor-submitted memory to an active memorial.
//
// Submissions start unapproved and stay invisible on the public page until
// the owner approves them. The visitor needs no account relationship with
// the memorial, so no ownership check applies.
func (s *Service) SubmitMemory(ctx context.Context, profileID string, input MemoryInput) (*memorial.Memory, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.repo.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.Active() {
		return nil, memorial.NewNotFoundError("memorial not found")
	}

	mem := &memorial.Memory{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		AuthorName: input.AuthorName,
		Text:       input.Text,
		PhotoURL:   input.PhotoURL,
		CreatedAt:  time.Now(),
	}

	if err := s.store.Insert(ctx, memorial.CollectionMemories, mem.ID, mem); err != nil {
		return nil, fmt.Errorf("failed to submit memory: %w", err)
	}

	logger.Info("Memory submitted: id=%s profile=%s author=%s", mem.ID, profileID, input.AuthorName)
	return mem, nil
}

// ApproveMemory makes a submitted memory publicly visible. Only the
// memorial owner may approve.
func (s *Service) ApproveMemory(ctx context.Context, memoryID, userID string) (*memorial.Memory, error) {
	mem, err := s.ownedMemory(ctx, memoryID, userID)
	if err != nil {
		return nil, err
	}
	if mem.Approved {
		return mem, nil
	}

	mem.Approved = true
	if err := s.store.Update(ctx, memorial.CollectionMemories, mem.ID, mem); err != nil {
		return nil, fmt.Errorf("failed to approve memory: %w", err)
	}

	s.invalidateProfileCache(ctx, mem.ProfileID)
	logger.Info("Memory approved: id=%s profile=%s", mem.ID, mem.ProfileID)
	return mem, nil
}

// DeleteMemory removes a memory from the wall. Only the memorial owner may
// delete. The row is soft-deleted and its photo, if any, is enqueued for
// cleanup through the same outbox as profile deletion.
func (s *Service) DeleteMemory(ctx context.Context, memoryID, userID string) error {
	mem, err := s.ownedMemory(ctx, memoryID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	mem.DeletedAt = &now

	task := memorial.CleanupTask{
		ID:         uuid.NewString(),
		ProfileID:  mem.ProfileID,
		URLs:       []string{mem.PhotoURL},
		EnqueuedAt: now,
	}

	err = s.store.Tx(ctx, func(tx record.Tx) error {
		if err := tx.Update(memorial.CollectionMemories, mem.ID, mem); err != nil {
			return err
		}
		if mem.PhotoURL == "" {
			return nil
		}
		return tx.Insert(memorial.CollectionCleanupTasks, task.ID, task)
	})
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	s.invalidateProfileCache(ctx, mem.ProfileID)
	logger.Info("Memory deleted: id=%s profile=%s", mem.ID, mem.ProfileID)
	return nil
}

// ownedMemory loads a live memory and verifies the caller owns its
// memorial. Foreign and soft-deleted memories read as not found.
func (s *Service) ownedMemory(ctx context.Context, memoryID, userID string) (*memorial.Memory, error) {
	var mem memorial.Memory
	if err := s.store.Get(ctx, memorial.CollectionMemories, memoryID, &mem); err != nil {
		if record.IsNotFound(err) {
			return nil, memorial.NewNotFoundError("memory not found")
		}
		return nil, err
	}
	if mem.DeletedAt != nil {
		return nil, memorial.NewNotFoundError("memory not found")
	}

	if _, err := s.repo.GetOwned(ctx, mem.ProfileID, userID); err != nil {
		if memorial.IsNotFound(err) {
			return nil, memorial.NewNotFoundError("memory not found")
		}
		return nil, err
	}

	return &mem, nil
}

// invalidateProfileCache drops the cached public view for the memory's
// profile. Best effort: a failed profile read just leaves the entry to
// expire via TTL.
func (s *Service) invalidateProfileCache(ctx context.Context, profileID string) {
	profile, err := s.repo.Get(ctx, profileID)
	if err != nil {
		return
	}
	s.slugCache.Invalidate(profile.Slug)
}
