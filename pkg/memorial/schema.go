package memorial

import "github.com/everkeep/everkeep/pkg/record"

// Schema returns the storage-layer rules for the memorial collections.
//
// The partial unique index on profiles is the actual enforcement mechanism
// for the "one active memorial per user" invariant: two concurrent create
// requests may both pass the LifecycleGuard fast path, but only one insert
// can claim the active-owner slot. The guard check exists solely to produce
// a friendly error before the write is attempted.
//
// The history collection is append-only: the lifetime ban rests on "deleted"
// entries never disappearing, so the store rejects Update and Delete on it
// outright.
func Schema() record.Schema {
	return record.Schema{
		{
			Name: CollectionProfiles,
			UniqueIndexes: []record.UniqueIndex{
				{Name: "profiles_slug", Fields: []string{"slug"}},
				{Name: "profiles_active_owner", Fields: []string{"owner_id"}, PartialOnNull: "deleted_at"},
			},
		},
		{
			Name:       CollectionHistory,
			AppendOnly: true,
		},
		{Name: CollectionMemories},
		{Name: CollectionOrders},
		{Name: CollectionCleanupTasks},
	}
}
