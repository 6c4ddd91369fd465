package memorial

import (
	"context"

	"github.com/everkeep/everkeep/pkg/record"
)

// LifecycleGuard answers create/edit/delete eligibility questions.
//
// The guard only reads; it never writes and holds no locks. Its answers are
// therefore advisory under concurrency: the storage-layer unique index on
// active owners (see Schema) is what actually prevents two concurrent
// creates from both succeeding. Callers re-evaluate the guard at the moment
// of the write to produce accurate error messages, then rely on the
// constraint for enforcement.
type LifecycleGuard struct {
	store  record.Store
	ledger *HistoryLedger
}

// NewLifecycleGuard creates a guard over the given store.
func NewLifecycleGuard(store record.Store) *LifecycleGuard {
	return &LifecycleGuard{
		store:  store,
		ledger: NewHistoryLedger(store),
	}
}

// CanCreate reports whether a user may create a memorial right now.
//
// Returns a ConflictError when an active profile already exists or the user
// has ever deleted a memorial (the lifetime ban). The ban holds even if the
// deleted profile's row was later physically removed, because it is decided
// by the history ledger alone.
func (g *LifecycleGuard) CanCreate(ctx context.Context, userID string) error {
	var active []MemorialProfile
	err := g.store.List(ctx, CollectionProfiles, record.Filter{
		"owner_id":   userID,
		"deleted_at": nil,
	}, &active)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return NewConflictError("an active memorial already exists for this account")
	}

	banned, err := g.ledger.HasDeleted(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return NewConflictError("memorial deletion is permanent: this account can no longer create a memorial")
	}

	return nil
}

// CanEdit reports whether a profile may be edited right now.
//
// A missing profile is reported as not found, not folded into "cannot edit".
// Soft-deleted profiles and profiles at their edit limit return a
// ConflictError naming the violated rule.
func (g *LifecycleGuard) CanEdit(ctx context.Context, profileID string) error {
	var profile MemorialProfile
	if err := g.store.Get(ctx, CollectionProfiles, profileID, &profile); err != nil {
		if record.IsNotFound(err) {
			return NewNotFoundError("memorial not found")
		}
		return err
	}

	if !profile.Active() {
		return NewConflictError("memorial has been deleted and can no longer be edited")
	}
	if profile.EditCount >= profile.MaxEdits {
		return NewConflictError("edit limit reached for this memorial")
	}

	return nil
}

// HasCompletedOrder reports whether the user has a completed package
// purchase. Required for creation and for profile-scoped upload grants.
func (g *LifecycleGuard) HasCompletedOrder(ctx context.Context, userID string) (bool, error) {
	var orders []Order
	err := g.store.List(ctx, CollectionOrders, record.Filter{
		"user_id": userID,
		"status":  string(OrderCompleted),
	}, &orders)
	if err != nil {
		return false, err
	}
	return len(orders) > 0, nil
}
