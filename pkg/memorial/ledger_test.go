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

func newLedger(t *testing.T) (*HistoryLedger, record.Store) {
	t.Helper()

	store := recordmemory.NewMemoryStore(Schema())
	t.Cleanup(func() { _ = store.Close() })
	return NewHistoryLedger(store), store
}

func TestHasDeleted(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	banned, err := ledger.HasDeleted(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, banned)

	// A created entry alone does not ban.
	require.NoError(t, ledger.RecordCreated(ctx, "user-1", "p1"))
	banned, err = ledger.HasDeleted(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, ledger.RecordDeleted(ctx, "user-1", "p1"))
	banned, err = ledger.HasDeleted(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestEntries_ScopedToUser(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordCreated(ctx, "user-1", "p1"))
	require.NoError(t, ledger.RecordDeleted(ctx, "user-1", "p1"))
	require.NoError(t, ledger.RecordCreated(ctx, "user-2", "p2"))

	entries, err := ledger.Entries(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "user-1", e.UserID)
	}
}

func TestLedgerIsAppendOnly(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordDeleted(ctx, "user-1", "p1"))

	entries, err := ledger.Entries(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	entry.Action = ActionCreated
	err = store.Update(ctx, CollectionHistory, entry.ID, entry)
	assert.True(t, record.IsAppendOnly(err), "rewriting history must be rejected")

	err = store.Delete(ctx, CollectionHistory, entry.ID)
	assert.True(t, record.IsAppendOnly(err), "erasing history must be rejected")
}

func TestAuditBanConsistency_ConsistentStates(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	// No profiles, no entries.
	ok, err := ledger.AuditBanConsistency(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Soft-deleted profile with its matching ledger entry.
	p := activeProfile("p1", "user-1")
	now := time.Now()
	p.DeletedAt = &now
	require.NoError(t, store.Insert(ctx, CollectionProfiles, p.ID, p))
	require.NoError(t, ledger.RecordDeleted(ctx, "user-1", "p1"))

	ok, err = ledger.AuditBanConsistency(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuditBanConsistency_BanWithoutProfileRowIsLegitimate(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	// Profile rows may be purged long after deletion; the ledger is forever.
	require.NoError(t, ledger.RecordDeleted(ctx, "user-1", "p-gone"))

	ok, err := ledger.AuditBanConsistency(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuditBanConsistency_DetectsMissingLedgerEntry(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	// A soft-deleted profile with no deleted entry means the delete path
	// skipped the ledger write.
	p := activeProfile("p1", "user-1")
	now := time.Now()
	p.DeletedAt = &now
	require.NoError(t, store.Insert(ctx, CollectionProfiles, p.ID, p))

	ok, err := ledger.AuditBanConsistency(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
