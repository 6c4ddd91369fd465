// Package testing provides a contract test suite for record.Store
// implementations.
//
// The suite tests the interface contract, not implementation details, making
// it reusable across implementations (memory, badger).
package testing

import (
	"context"
	"testing"

	"github.com/everkeep/everkeep/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Schema is the collection set used by the suite. Implementations under test
// must be constructed with it.
func Schema() record.Schema {
	return record.Schema{
		{
			Name: "items",
			UniqueIndexes: []record.UniqueIndex{
				{Name: "items_slug", Fields: []string{"slug"}},
				{Name: "items_active_owner", Fields: []string{"owner_id"}, PartialOnNull: "deleted_at"},
			},
		},
		{
			Name:       "events",
			AppendOnly: true,
		},
	}
}

// StoreTestSuite is a contract test suite for record.Store implementations.
type StoreTestSuite struct {
	// NewStore is a factory that creates a fresh store for each test,
	// constructed with Schema(). Ensures test isolation.
	NewStore func(t *testing.T) record.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("CRUD", suite.RunCRUDTests)
	test.Run("Filter", suite.RunFilterTests)
	test.Run("UniqueIndex", suite.RunUniqueIndexTests)
	test.Run("AppendOnly", suite.RunAppendOnlyTests)
	test.Run("Tx", suite.RunTxTests)
}

type item struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	Slug      string  `json:"slug"`
	Count     int     `json:"count"`
	DeletedAt *string `json:"deleted_at"`
}

// RunCRUDTests verifies basic Get/Insert/Update/Delete behavior.
func (suite *StoreTestSuite) RunCRUDTests(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)
	defer store.Close()

	it := item{ID: "a1", OwnerID: "u1", Slug: "first", Count: 1}
	require.NoError(t, store.Insert(ctx, "items", it.ID, it))

	var got item
	require.NoError(t, store.Get(ctx, "items", "a1", &got))
	assert.Equal(t, it, got)

	// Get on a missing id is ErrNotFound, not an empty record.
	err := store.Get(ctx, "items", "missing", &got)
	assert.True(t, record.IsNotFound(err), "expected not-found, got %v", err)

	// Duplicate id is rejected.
	err = store.Insert(ctx, "items", "a1", it)
	assert.True(t, record.IsAlreadyExists(err), "expected already-exists, got %v", err)

	it.Count = 2
	require.NoError(t, store.Update(ctx, "items", "a1", it))
	require.NoError(t, store.Get(ctx, "items", "a1", &got))
	assert.Equal(t, 2, got.Count)

	require.NoError(t, store.Delete(ctx, "items", "a1"))
	err = store.Get(ctx, "items", "a1", &got)
	assert.True(t, record.IsNotFound(err))

	err = store.Delete(ctx, "items", "a1")
	assert.True(t, record.IsNotFound(err))
}

// RunFilterTests verifies List filter semantics including null matching.
func (suite *StoreTestSuite) RunFilterTests(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)
	defer store.Close()

	deleted := "2024-01-01T00:00:00Z"
	fixtures := []item{
		{ID: "a1", OwnerID: "u1", Slug: "one", Count: 1},
		{ID: "a2", OwnerID: "u1", Slug: "two", Count: 2, DeletedAt: &deleted},
		{ID: "a3", OwnerID: "u2", Slug: "three", Count: 2},
	}
	for _, it := range fixtures {
		require.NoError(t, store.Insert(ctx, "items", it.ID, it))
	}

	var out []item

	// Nil filter returns everything.
	require.NoError(t, store.List(ctx, "items", nil, &out))
	assert.Len(t, out, 3)

	// Field equality.
	require.NoError(t, store.List(ctx, "items", record.Filter{"owner_id": "u1"}, &out))
	assert.Len(t, out, 2)

	// Numeric values survive JSON normalization.
	require.NoError(t, store.List(ctx, "items", record.Filter{"count": 2}, &out))
	assert.Len(t, out, 2)

	// Nil matches JSON null: the active-rows query.
	require.NoError(t, store.List(ctx, "items", record.Filter{"owner_id": "u1", "deleted_at": nil}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "a1", out[0].ID)

	// No matches yields an empty slice, not an error.
	require.NoError(t, store.List(ctx, "items", record.Filter{"owner_id": "nobody"}, &out))
	assert.Empty(t, out)
}

// RunUniqueIndexTests verifies unique and partial-unique constraint
// enforcement at the storage layer.
func (suite *StoreTestSuite) RunUniqueIndexTests(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)
	defer store.Close()

	require.NoError(t, store.Insert(ctx, "items", "a1", item{ID: "a1", OwnerID: "u1", Slug: "taken"}))

	// Same slug, different record: rejected.
	err := store.Insert(ctx, "items", "a2", item{ID: "a2", OwnerID: "u2", Slug: "taken"})
	assert.True(t, record.IsUniqueViolation(err), "expected unique violation, got %v", err)

	// Second active record for the same owner: rejected even though the
	// caller never consulted any guard first.
	err = store.Insert(ctx, "items", "a3", item{ID: "a3", OwnerID: "u1", Slug: "other"})
	assert.True(t, record.IsUniqueViolation(err), "expected unique violation, got %v", err)

	// Soft-deleting the first record frees the partial index slot but not
	// the slug index.
	deleted := "2024-01-01T00:00:00Z"
	require.NoError(t, store.Update(ctx, "items", "a1", item{ID: "a1", OwnerID: "u1", Slug: "taken", DeletedAt: &deleted}))

	require.NoError(t, store.Insert(ctx, "items", "a4", item{ID: "a4", OwnerID: "u1", Slug: "fresh"}))

	err = store.Insert(ctx, "items", "a5", item{ID: "a5", OwnerID: "u3", Slug: "taken"})
	assert.True(t, record.IsUniqueViolation(err))
}

// RunAppendOnlyTests verifies append-only collections reject mutation.
func (suite *StoreTestSuite) RunAppendOnlyTests(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)
	defer store.Close()

	type event struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}

	require.NoError(t, store.Insert(ctx, "events", "e1", event{ID: "e1", Action: "created"}))

	err := store.Update(ctx, "events", "e1", event{ID: "e1", Action: "tampered"})
	assert.True(t, record.IsAppendOnly(err), "expected append-only rejection, got %v", err)

	err = store.Delete(ctx, "events", "e1")
	assert.True(t, record.IsAppendOnly(err), "expected append-only rejection, got %v", err)

	var got event
	require.NoError(t, store.Get(ctx, "events", "e1", &got))
	assert.Equal(t, "created", got.Action)
}

// RunTxTests verifies transactional atomicity.
func (suite *StoreTestSuite) RunTxTests(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)
	defer store.Close()

	// A failing transaction leaves no trace.
	err := store.Tx(ctx, func(tx record.Tx) error {
		if err := tx.Insert("items", "t1", item{ID: "t1", OwnerID: "u9", Slug: "tx-one"}); err != nil {
			return err
		}
		// Second insert violates the active-owner index, failing the tx.
		return tx.Insert("items", "t2", item{ID: "t2", OwnerID: "u9", Slug: "tx-two"})
	})
	require.Error(t, err)
	assert.True(t, record.IsUniqueViolation(err))

	var got item
	err = store.Get(ctx, "items", "t1", &got)
	assert.True(t, record.IsNotFound(err), "rolled-back insert should not be visible, got %v", err)

	// A successful transaction commits every write together.
	err = store.Tx(ctx, func(tx record.Tx) error {
		if err := tx.Insert("items", "t3", item{ID: "t3", OwnerID: "u9", Slug: "tx-three"}); err != nil {
			return err
		}
		return tx.Insert("events", "e9", map[string]any{"id": "e9", "action": "created"})
	})
	require.NoError(t, err)

	require.NoError(t, store.Get(ctx, "items", "t3", &got))
	assert.Equal(t, "u9", got.OwnerID)
}
