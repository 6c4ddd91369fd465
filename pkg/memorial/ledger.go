package memorial

import (
	"context"
	"time"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/record"
	"github.com/google/uuid"
)

// HistoryLedger is the append-only record of lifecycle events.
//
// The ledger is the single source of truth for the lifetime ban: a user with
// any "deleted" entry can never create another memorial. Entries are never
// updated or deleted; the record store rejects mutation of the history
// collection at the storage layer.
//
// Ordering contract for deletion: the "deleted" entry must be durably
// written before (or atomically with) the profile's soft-delete flag. The
// service achieves this by writing both in one store transaction, ledger
// first. If the ledger write fails, the whole delete fails and the profile
// stays active, so the ban can never be silently skipped.
type HistoryLedger struct {
	store record.Store
}

// NewHistoryLedger creates a ledger over the given store.
func NewHistoryLedger(store record.Store) *HistoryLedger {
	return &HistoryLedger{store: store}
}

// RecordCreated appends a "created" entry.
func (l *HistoryLedger) RecordCreated(ctx context.Context, userID, profileID string) error {
	entry := newEntry(userID, profileID, ActionCreated)
	return l.store.Insert(ctx, CollectionHistory, entry.ID, entry)
}

// RecordDeleted appends a "deleted" entry. From this point on the user is
// permanently banned from creating memorials.
func (l *HistoryLedger) RecordDeleted(ctx context.Context, userID, profileID string) error {
	entry := newEntry(userID, profileID, ActionDeleted)
	return l.store.Insert(ctx, CollectionHistory, entry.ID, entry)
}

// AppendTx writes an entry inside an existing transaction. Used by the
// delete path so the ledger write and the soft-delete commit together.
func (l *HistoryLedger) AppendTx(tx record.Tx, userID, profileID string, action HistoryAction) error {
	entry := newEntry(userID, profileID, action)
	return tx.Insert(CollectionHistory, entry.ID, entry)
}

// HasDeleted reports whether the user has ever produced a "deleted" entry.
func (l *HistoryLedger) HasDeleted(ctx context.Context, userID string) (bool, error) {
	var entries []LifecycleHistoryEntry
	err := l.store.List(ctx, CollectionHistory, record.Filter{
		"user_id": userID,
		"action":  string(ActionDeleted),
	}, &entries)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Entries returns every ledger entry for a user, unordered.
func (l *HistoryLedger) Entries(ctx context.Context, userID string) ([]LifecycleHistoryEntry, error) {
	var entries []LifecycleHistoryEntry
	err := l.store.List(ctx, CollectionHistory, record.Filter{"user_id": userID}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AuditBanConsistency cross-checks the ledger against profile soft-delete
// timestamps for one user.
//
// The timestamp scan is a derived projection, never a second authority: a
// soft-deleted profile without a matching "deleted" entry indicates a bug in
// the delete path (the ledger write is supposed to be atomic with the flag)
// and is logged. The reverse case is legitimate, since profile rows may be
// physically purged long after deletion while the ledger is kept forever.
func (l *HistoryLedger) AuditBanConsistency(ctx context.Context, userID string) (bool, error) {
	banned, err := l.HasDeleted(ctx, userID)
	if err != nil {
		return false, err
	}

	var profiles []MemorialProfile
	if err := l.store.List(ctx, CollectionProfiles, record.Filter{"owner_id": userID}, &profiles); err != nil {
		return false, err
	}

	softDeleted := false
	for _, p := range profiles {
		if !p.Active() {
			softDeleted = true
			break
		}
	}

	if softDeleted && !banned {
		logger.Error("History ledger missing deleted entry: user_id=%s has a soft-deleted profile but no ban", userID)
		return false, nil
	}

	return true, nil
}

func newEntry(userID, profileID string, action HistoryAction) LifecycleHistoryEntry {
	return LifecycleHistoryEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProfileID:  profileID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}
