package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/everkeep/everkeep/pkg/record"
	recordtesting "github.com/everkeep/everkeep/pkg/record/testing"
	"github.com/stretchr/testify/require"
)

// TestBadgerStore_Contract runs the shared record.Store contract suite
// against a disk-backed database in a temporary directory.
func TestBadgerStore_Contract(t *testing.T) {
	suite := &recordtesting.StoreTestSuite{
		NewStore: func(t *testing.T) record.Store {
			store, err := NewBadgerStore(context.Background(), BadgerStoreConfig{
				Path: t.TempDir(),
			}, recordtesting.Schema())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

// TestBadgerStore_Reopen verifies records survive a close/reopen cycle.
func TestBadgerStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schema := recordtesting.Schema()

	store, err := NewBadgerStore(ctx, BadgerStoreConfig{Path: dir}, schema)
	require.NoError(t, err)

	type item struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}

	require.NoError(t, store.Insert(ctx, "items", "a1", item{ID: "a1", Slug: "persist"}))
	require.NoError(t, store.Close())

	store, err = NewBadgerStore(ctx, BadgerStoreConfig{Path: dir}, schema)
	require.NoError(t, err)
	defer store.Close()

	var got item
	require.NoError(t, store.Get(ctx, "items", "a1", &got))
	require.Equal(t, "persist", got.Slug)

	// Unique indexes are persisted too: the slug is still taken.
	err = store.Insert(ctx, "items", "a2", item{ID: "a2", Slug: "persist"})
	require.True(t, record.IsUniqueViolation(err))
}

// TestBadgerStore_ConcurrentInsertsYieldUniqueViolation drives pairs of
// racing inserts against the same partial unique index. Whichever commit
// loses the optimistic-concurrency race must be re-run and come back as a
// regular unique violation, never as a raw conflict error.
func TestBadgerStore_ConcurrentInsertsYieldUniqueViolation(t *testing.T) {
	ctx := context.Background()
	store, err := NewBadgerStore(ctx, BadgerStoreConfig{InMemory: true}, recordtesting.Schema())
	require.NoError(t, err)
	defer store.Close()

	type owned struct {
		ID      string `json:"id"`
		Slug    string `json:"slug"`
		OwnerID string `json:"owner_id"`
	}

	const rounds = 25
	for i := 0; i < rounds; i++ {
		owner := fmt.Sprintf("owner-%d", i)
		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				id := fmt.Sprintf("r%d-%d", i, j)
				errs <- store.Insert(ctx, "items", id, owned{ID: id, Slug: id, OwnerID: owner})
			}(j)
		}
		wg.Wait()
		close(errs)

		failures := 0
		for err := range errs {
			if err == nil {
				continue
			}
			failures++
			require.True(t, record.IsUniqueViolation(err), "round %d: want unique violation, got %v", i, err)
		}
		require.Equal(t, 1, failures, "round %d: exactly one insert must lose", i)
	}
}

// TestBadgerStore_MissingPath verifies configuration validation.
func TestBadgerStore_MissingPath(t *testing.T) {
	_, err := NewBadgerStore(context.Background(), BadgerStoreConfig{}, nil)
	require.Error(t, err)
}
