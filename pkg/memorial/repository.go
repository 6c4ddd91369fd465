package memorial

import (
	"context"

	"github.com/everkeep/everkeep/pkg/record"
)

// ProfileRepository owns the relational record for memorial profiles and
// their soft-delete flag. It translates record-store errors into domain
// errors; lifecycle rules live in LifecycleGuard and the service layer.
type ProfileRepository struct {
	store record.Store
}

// NewProfileRepository creates a repository over the given store.
func NewProfileRepository(store record.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Get loads a profile by id, soft-deleted or not.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*MemorialProfile, error) {
	var profile MemorialProfile
	if err := r.store.Get(ctx, CollectionProfiles, id, &profile); err != nil {
		if record.IsNotFound(err) {
			return nil, NewNotFoundError("memorial not found")
		}
		return nil, err
	}
	return &profile, nil
}

// GetOwned loads a profile by id and verifies ownership. A profile owned by
// someone else is reported as not found, not as forbidden, so ids cannot be
// probed.
func (r *ProfileRepository) GetOwned(ctx context.Context, id, ownerID string) (*MemorialProfile, error) {
	profile, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.OwnerID != ownerID {
		return nil, NewNotFoundError("memorial not found")
	}
	return profile, nil
}

// FindBySlug returns the active profile with the given slug, or a not-found
// error. Soft-deleted profiles are invisible here.
func (r *ProfileRepository) FindBySlug(ctx context.Context, slug string) (*MemorialProfile, error) {
	var profiles []MemorialProfile
	err := r.store.List(ctx, CollectionProfiles, record.Filter{
		"slug":       slug,
		"deleted_at": nil,
	}, &profiles)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, NewNotFoundError("memorial not found")
	}
	return &profiles[0], nil
}

// FindActiveByOwner returns the user's active profile, or nil if none.
func (r *ProfileRepository) FindActiveByOwner(ctx context.Context, ownerID string) (*MemorialProfile, error) {
	var profiles []MemorialProfile
	err := r.store.List(ctx, CollectionProfiles, record.Filter{
		"owner_id":   ownerID,
		"deleted_at": nil,
	}, &profiles)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// Memories returns the memories attached to a profile. When approvedOnly is
// set, unapproved and soft-deleted entries are filtered out (the public
// view); otherwise only soft-deleted entries are excluded (the owner and
// cleanup view).
func (r *ProfileRepository) Memories(ctx context.Context, profileID string, approvedOnly bool) ([]Memory, error) {
	filter := record.Filter{
		"profile_id": profileID,
		"deleted_at": nil,
	}
	if approvedOnly {
		filter["approved"] = true
	}

	var memories []Memory
	if err := r.store.List(ctx, CollectionMemories, filter, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}
