package memorial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everkeep/everkeep/pkg/record"
	recordmemory "github.com/everkeep/everkeep/pkg/record/memory"
)

func newGuardStore(t *testing.T) record.Store {
	t.Helper()

	store := recordmemory.NewMemoryStore(Schema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertProfile(t *testing.T, store record.Store, p MemorialProfile) {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), CollectionProfiles, p.ID, p))
}

func activeProfile(id, owner string) MemorialProfile {
	return MemorialProfile{
		ID:          id,
		OwnerID:     owner,
		Kind:        ProfileKindIndividual,
		DisplayName: "Eleanor Vance",
		Slug:        "eleanor-vance-" + id,
		CreatedAt:   time.Now(),
		MaxEdits:    DefaultMaxEdits,
	}
}

func TestCanCreate_AllowsFreshUser(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)

	assert.NoError(t, guard.CanCreate(context.Background(), "user-1"))
}

func TestCanCreate_ActiveProfileConflicts(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)
	insertProfile(t, store, activeProfile("p1", "user-1"))

	err := guard.CanCreate(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCanCreate_LifetimeBanHoldsWithoutProfileRow(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)

	// Only the ledger entry exists; the profile row was purged long ago.
	ledger := NewHistoryLedger(store)
	require.NoError(t, ledger.RecordDeleted(context.Background(), "user-1", "p-gone"))

	err := guard.CanCreate(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCanEdit_ActiveProfileWithBudget(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)
	insertProfile(t, store, activeProfile("p1", "user-1"))

	assert.NoError(t, guard.CanEdit(context.Background(), "p1"))
}

func TestCanEdit_MissingProfileIsNotFound(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)

	err := guard.CanEdit(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "missing profile must read as not found, not conflict")
}

func TestCanEdit_SoftDeletedProfileConflicts(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)

	p := activeProfile("p1", "user-1")
	now := time.Now()
	p.DeletedAt = &now
	insertProfile(t, store, p)

	err := guard.CanEdit(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCanEdit_EditLimitConflicts(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)

	p := activeProfile("p1", "user-1")
	p.EditCount = p.MaxEdits
	insertProfile(t, store, p)

	err := guard.CanEdit(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestHasCompletedOrder(t *testing.T) {
	store := newGuardStore(t)
	guard := NewLifecycleGuard(store)
	ctx := context.Background()

	completed, err := guard.HasCompletedOrder(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, completed)

	pending := Order{ID: "o1", UserID: "user-1", Status: OrderPending, PlacedAt: time.Now()}
	require.NoError(t, store.Insert(ctx, CollectionOrders, pending.ID, pending))

	completed, err = guard.HasCompletedOrder(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, completed, "a pending order is not enough")

	done := Order{ID: "o2", UserID: "user-1", Status: OrderCompleted, PlacedAt: time.Now()}
	require.NoError(t, store.Insert(ctx, CollectionOrders, done.ID, done))

	completed, err = guard.HasCompletedOrder(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, completed)
}
