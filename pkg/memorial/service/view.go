package service

import (
	"context"
	"fmt"

	"github.com/everkeep/everkeep/pkg/memorial"
)

// ProfileView is the public read model for a memorial page: the profile
// plus its approved memories.
type ProfileView struct {
	Profile  *memorial.MemorialProfile `json:"profile"`
	Memories []memorial.Memory         `json:"memories"`
}

// GetProfileBySlug resolves a public memorial page.
//
// The result is cached per slug with the configured TTL, so a popular page
// costs one record-store read per TTL window instead of one per visitor.
// Only approved, live memories appear; soft-deleted profiles read as not
// found. Writers invalidate the slug entry, so after an edit the page is at
// most one TTL stale and usually fresh.
func (s *Service) GetProfileBySlug(ctx context.Context, slug string) (*ProfileView, error) {
	if view, ok := s.slugCache.Get(slug); ok {
		return view, nil
	}

	profile, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	memories, err := s.repo.Memories(ctx, profile.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	view := &ProfileView{Profile: profile, Memories: memories}
	s.slugCache.Put(slug, view)
	return view, nil
}

// GetOwnedProfile returns the caller's view of their memorial: the profile
// regardless of publication state, with every live memory including
// unapproved submissions awaiting moderation.
func (s *Service) GetOwnedProfile(ctx context.Context, profileID, userID string) (*ProfileView, error) {
	profile, err := s.repo.GetOwned(ctx, profileID, userID)
	if err != nil {
		return nil, err
	}

	memories, err := s.repo.Memories(ctx, profile.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	return &ProfileView{Profile: profile, Memories: memories}, nil
}

// GetActiveProfile returns the caller's active memorial without requiring
// its id, for the owner dashboard entry point. Soft-deleted profiles do not
// count; a user with none gets a NotFoundError.
func (s *Service) GetActiveProfile(ctx context.Context, userID string) (*ProfileView, error) {
	profile, err := s.repo.FindActiveByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active memorial: %w", err)
	}
	if profile == nil {
		return nil, memorial.NewNotFoundError("no active memorial for this account")
	}

	memories, err := s.repo.Memories(ctx, profile.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	return &ProfileView{Profile: profile, Memories: memories}, nil
}

// CacheStats exposes the public-view cache counters for observability.
func (s *Service) CacheStats() (hits, misses uint64, size int) {
	return s.slugCache.Stats()
}
