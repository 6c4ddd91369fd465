// Package badger provides a BadgerDB-backed record store implementation.
//
// This implementation persists records across restarts and relies on
// BadgerDB's ACID transactions for the multi-record atomicity the memorial
// delete path requires (ledger entry + soft-delete + cleanup task in one
// commit). Records are stored as JSON under prefixed keys (see keys.go).
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/record"
)

// BadgerStore implements record.Store using BadgerDB for persistence.
//
// Thread Safety: BadgerDB transactions provide isolation; the store itself
// holds no additional locks and is safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	schema record.Schema
}

// BadgerStoreConfig contains configuration for the BadgerDB record store.
type BadgerStoreConfig struct {
	// Path is the directory for the BadgerDB database files.
	Path string `mapstructure:"path"`

	// InMemory runs BadgerDB without touching disk. Used by tests.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites forces an fsync on every commit. Slower but survives
	// power loss; defaults to true because the history ledger must be
	// durable before a delete proceeds.
	SyncWrites *bool `mapstructure:"sync_writes"`
}

// NewBadgerStore opens (or creates) a BadgerDB-backed record store.
//
// Parameters:
//   - ctx: Context checked before opening the database
//   - cfg: BadgerDB configuration
//   - schema: Collection rules to enforce
//
// Returns:
//   - *BadgerStore: Opened store (caller must Close)
//   - error: Returns error if the database cannot be opened
func NewBadgerStore(ctx context.Context, cfg BadgerStoreConfig, schema record.Schema) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger path is required")
	}

	syncWrites := true
	if cfg.SyncWrites != nil {
		syncWrites = *cfg.SyncWrites
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(syncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger record store opened: path=%s in_memory=%v sync_writes=%v",
		cfg.Path, cfg.InMemory, syncWrites)

	return &BadgerStore{db: db, schema: schema}, nil
}

// Get implements record.Store.
func (s *BadgerStore) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		return s.get(txn, collection, id, out)
	})
}

// List implements record.Store.
func (s *BadgerStore) List(ctx context.Context, collection string, filter record.Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		return s.list(txn, collection, filter, out)
	})
}

// Insert implements record.Store.
func (s *BadgerStore) Insert(ctx context.Context, collection, id string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.runUpdate(func(txn *badger.Txn) error {
		return s.insert(txn, collection, id, value)
	})
}

// Update implements record.Store.
func (s *BadgerStore) Update(ctx context.Context, collection, id string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.runUpdate(func(txn *badger.Txn) error {
		return s.update(txn, collection, id, value)
	})
}

// Delete implements record.Store.
func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.runUpdate(func(txn *badger.Txn) error {
		return s.delete(txn, collection, id)
	})
}

// Tx implements record.Store.
//
// The callback runs inside a single BadgerDB update transaction. Any error
// from fn aborts the transaction and none of its writes become visible. On
// an optimistic-concurrency conflict the whole callback is re-run, so fn
// must be safe to execute more than once.
func (s *BadgerStore) Tx(ctx context.Context, fn func(tx record.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.runUpdate(func(txn *badger.Txn) error {
		return fn(&badgerTx{store: s, txn: txn})
	})
}

// txRetries bounds how often a conflicting update transaction is re-run.
const txRetries = 3

// runUpdate executes fn in a BadgerDB update transaction, re-running it when
// the commit loses an optimistic-concurrency race. The retry observes the
// rival's committed writes, so constraint checks report their usual
// StoreError (unique violation, already exists) instead of a bare conflict.
func (s *BadgerStore) runUpdate(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		logger.Debug("Badger transaction conflicted, retrying: attempt=%d", attempt+1)
	}
	return fmt.Errorf("transaction conflicted %d times: %w", txRetries, err)
}

// Close closes the underlying BadgerDB database.
func (s *BadgerStore) Close() error {
	logger.Info("Badger record store closing")
	return s.db.Close()
}

// badgerTx adapts a live badger transaction to record.Tx.
type badgerTx struct {
	store *BadgerStore
	txn   *badger.Txn
}

func (t *badgerTx) Get(collection, id string, out any) error {
	return t.store.get(t.txn, collection, id, out)
}

func (t *badgerTx) List(collection string, filter record.Filter, out any) error {
	return t.store.list(t.txn, collection, filter, out)
}

func (t *badgerTx) Insert(collection, id string, value any) error {
	return t.store.insert(t.txn, collection, id, value)
}

func (t *badgerTx) Update(collection, id string, value any) error {
	return t.store.update(t.txn, collection, id, value)
}

func (t *badgerTx) Delete(collection, id string) error {
	return t.store.delete(t.txn, collection, id)
}

// ============================================================================
// Internal operations (run inside a badger transaction)
// ============================================================================

func (s *BadgerStore) get(txn *badger.Txn, collection, id string, out any) error {
	item, err := txn.Get(recordKey(collection, id))
	if err == badger.ErrKeyNotFound {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func (s *BadgerStore) list(txn *badger.Txn, collection string, filter record.Filter, out any) error {
	prefix := collectionPrefix(collection)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var matches []json.RawMessage

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			if filter != nil {
				doc, err := record.DecodeDocument(val)
				if err != nil {
					return err
				}
				if !filter.Matches(doc) {
					return nil
				}
			}
			matches = append(matches, append(json.RawMessage(nil), val...))
			return nil
		})
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range matches {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')

	return json.Unmarshal(buf.Bytes(), out)
}

func (s *BadgerStore) insert(txn *badger.Txn, collection, id string, value any) error {
	if id == "" {
		return &record.StoreError{
			Code:       record.ErrInvalidArgument,
			Message:    "record id must not be empty",
			Collection: collection,
		}
	}

	key := recordKey(collection, id)
	if _, err := txn.Get(key); err == nil {
		return &record.StoreError{
			Code:       record.ErrAlreadyExists,
			Message:    "record already exists",
			Collection: collection,
			ID:         id,
		}
	} else if err != badger.ErrKeyNotFound {
		return fmt.Errorf("failed to check record existence: %w", err)
	}

	raw, doc, err := record.EncodeDocument(value)
	if err != nil {
		return err
	}

	decl := s.schema.Lookup(collection)
	if err := s.checkIndexes(txn, decl, id, doc); err != nil {
		return err
	}

	if err := txn.Set(key, raw); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return s.reindex(txn, decl, id, nil, doc)
}

func (s *BadgerStore) update(txn *badger.Txn, collection, id string, value any) error {
	decl := s.schema.Lookup(collection)
	if decl.AppendOnly {
		return &record.StoreError{
			Code:       record.ErrAppendOnly,
			Message:    "collection is append-only",
			Collection: collection,
			ID:         id,
		}
	}

	key := recordKey(collection, id)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	var oldDoc map[string]any
	if err := item.Value(func(val []byte) error {
		var derr error
		oldDoc, derr = record.DecodeDocument(val)
		return derr
	}); err != nil {
		return err
	}

	raw, doc, err := record.EncodeDocument(value)
	if err != nil {
		return err
	}

	if err := s.checkIndexes(txn, decl, id, doc); err != nil {
		return err
	}

	if err := txn.Set(key, raw); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return s.reindex(txn, decl, id, oldDoc, doc)
}

func (s *BadgerStore) delete(txn *badger.Txn, collection, id string) error {
	decl := s.schema.Lookup(collection)
	if decl.AppendOnly {
		return &record.StoreError{
			Code:       record.ErrAppendOnly,
			Message:    "collection is append-only",
			Collection: collection,
			ID:         id,
		}
	}

	key := recordKey(collection, id)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	var oldDoc map[string]any
	if err := item.Value(func(val []byte) error {
		var derr error
		oldDoc, derr = record.DecodeDocument(val)
		return derr
	}); err != nil {
		return err
	}

	if err := txn.Delete(key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return s.reindex(txn, decl, id, oldDoc, nil)
}

// checkIndexes verifies unique constraints inside the transaction.
func (s *BadgerStore) checkIndexes(txn *badger.Txn, decl record.Collection, id string, doc map[string]any) error {
	for _, ix := range decl.UniqueIndexes {
		key, participates := ix.Key(doc)
		if !participates {
			continue
		}

		item, err := txn.Get(indexKey(decl.Name, ix.Name, key))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read index: %w", err)
		}

		var owner string
		if err := item.Value(func(val []byte) error {
			owner = string(val)
			return nil
		}); err != nil {
			return err
		}

		if owner != id {
			return &record.StoreError{
				Code:       record.ErrUniqueViolation,
				Message:    "unique index " + ix.Name + " violated",
				Collection: decl.Name,
				ID:         id,
			}
		}
	}
	return nil
}

// reindex maintains index entries for a record transition oldDoc -> newDoc.
// Either document may be nil (insert or delete).
func (s *BadgerStore) reindex(txn *badger.Txn, decl record.Collection, id string, oldDoc, newDoc map[string]any) error {
	for _, ix := range decl.UniqueIndexes {
		if oldDoc != nil {
			if key, ok := ix.Key(oldDoc); ok {
				if err := txn.Delete(indexKey(decl.Name, ix.Name, key)); err != nil {
					return fmt.Errorf("failed to drop index entry: %w", err)
				}
			}
		}
		if newDoc != nil {
			if key, ok := ix.Key(newDoc); ok {
				if err := txn.Set(indexKey(decl.Name, ix.Name, key), []byte(id)); err != nil {
					return fmt.Errorf("failed to write index entry: %w", err)
				}
			}
		}
	}
	return nil
}
