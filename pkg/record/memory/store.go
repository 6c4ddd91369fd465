// Package memory provides an in-memory record store implementation.
//
// The store keeps records as raw JSON in nested maps guarded by a single
// read-write mutex. It honors the same schema rules (append-only collections,
// unique indexes) as the persistent implementation, which makes it suitable
// for tests and local development where durability does not matter.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/everkeep/everkeep/pkg/record"
)

// MemoryStore implements record.Store with mutex-protected maps.
//
// Thread Safety: all operations take the store mutex; transactions hold it
// for their whole duration, so a transaction observes and produces a
// consistent snapshot.
type MemoryStore struct {
	mu     sync.RWMutex
	schema record.Schema

	// records maps collection -> id -> raw JSON document.
	records map[string]map[string]json.RawMessage

	// indexes maps collection -> index name -> index key -> record id.
	indexes map[string]map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store with the given schema.
func NewMemoryStore(schema record.Schema) *MemoryStore {
	return &MemoryStore{
		schema:  schema,
		records: make(map[string]map[string]json.RawMessage),
		indexes: make(map[string]map[string]map[string]string),
	}
}

// Get implements record.Store.
func (s *MemoryStore) Get(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(collection, id, out)
}

// List implements record.Store.
func (s *MemoryStore) List(ctx context.Context, collection string, filter record.Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(collection, filter, out)
}

// Insert implements record.Store.
func (s *MemoryStore) Insert(ctx context.Context, collection, id string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(collection, id, value)
}

// Update implements record.Store.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(collection, id, value)
}

// Delete implements record.Store.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delete(collection, id)
}

// Tx implements record.Store.
//
// The transaction holds the write lock for its duration. A snapshot of the
// store is taken first and restored if fn returns an error, so partial writes
// never become visible.
func (s *MemoryStore) Tx(ctx context.Context, fn func(tx record.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, indexes := s.snapshot()

	if err := fn(&memoryTx{store: s}); err != nil {
		s.records = records
		s.indexes = indexes
		return err
	}

	return nil
}

// Close implements record.Store. It is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// memoryTx exposes the unlocked internals as a record.Tx. The store mutex is
// held by Tx for the lifetime of this value.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Get(collection, id string, out any) error {
	return t.store.get(collection, id, out)
}

func (t *memoryTx) List(collection string, filter record.Filter, out any) error {
	return t.store.list(collection, filter, out)
}

func (t *memoryTx) Insert(collection, id string, value any) error {
	return t.store.insert(collection, id, value)
}

func (t *memoryTx) Update(collection, id string, value any) error {
	return t.store.update(collection, id, value)
}

func (t *memoryTx) Delete(collection, id string) error {
	return t.store.delete(collection, id)
}

// ============================================================================
// Internal operations (callers hold the appropriate lock)
// ============================================================================

func (s *MemoryStore) get(collection, id string, out any) error {
	raw, ok := s.records[collection][id]
	if !ok {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}
	return json.Unmarshal(raw, out)
}

func (s *MemoryStore) list(collection string, filter record.Filter, out any) error {
	var matches []json.RawMessage

	for _, raw := range s.records[collection] {
		if filter != nil {
			doc, err := record.DecodeDocument(raw)
			if err != nil {
				return err
			}
			if !filter.Matches(doc) {
				continue
			}
		}
		matches = append(matches, raw)
	}

	// Decode through a single JSON array so out can be any slice type.
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

func (s *MemoryStore) insert(collection, id string, value any) error {
	if id == "" {
		return &record.StoreError{
			Code:       record.ErrInvalidArgument,
			Message:    "record id must not be empty",
			Collection: collection,
		}
	}

	if _, exists := s.records[collection][id]; exists {
		return &record.StoreError{
			Code:       record.ErrAlreadyExists,
			Message:    "record already exists",
			Collection: collection,
			ID:         id,
		}
	}

	raw, doc, err := record.EncodeDocument(value)
	if err != nil {
		return err
	}

	decl := s.schema.Lookup(collection)
	if err := s.checkIndexes(decl, id, doc); err != nil {
		return err
	}

	if s.records[collection] == nil {
		s.records[collection] = make(map[string]json.RawMessage)
	}
	s.records[collection][id] = raw
	s.reindex(decl, id, nil, doc)

	return nil
}

func (s *MemoryStore) update(collection, id string, value any) error {
	decl := s.schema.Lookup(collection)
	if decl.AppendOnly {
		return &record.StoreError{
			Code:       record.ErrAppendOnly,
			Message:    "collection is append-only",
			Collection: collection,
			ID:         id,
		}
	}

	old, exists := s.records[collection][id]
	if !exists {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}

	raw, doc, err := record.EncodeDocument(value)
	if err != nil {
		return err
	}

	oldDoc, err := record.DecodeDocument(old)
	if err != nil {
		return err
	}

	if err := s.checkIndexes(decl, id, doc); err != nil {
		return err
	}

	s.records[collection][id] = raw
	s.reindex(decl, id, oldDoc, doc)

	return nil
}

func (s *MemoryStore) delete(collection, id string) error {
	decl := s.schema.Lookup(collection)
	if decl.AppendOnly {
		return &record.StoreError{
			Code:       record.ErrAppendOnly,
			Message:    "collection is append-only",
			Collection: collection,
			ID:         id,
		}
	}

	old, exists := s.records[collection][id]
	if !exists {
		return &record.StoreError{
			Code:       record.ErrNotFound,
			Message:    "record not found",
			Collection: collection,
			ID:         id,
		}
	}

	oldDoc, err := record.DecodeDocument(old)
	if err != nil {
		return err
	}

	delete(s.records[collection], id)
	s.reindex(decl, id, oldDoc, nil)

	return nil
}

// checkIndexes verifies that storing doc under id would not violate any
// unique index declared for the collection.
func (s *MemoryStore) checkIndexes(decl record.Collection, id string, doc map[string]any) error {
	for _, ix := range decl.UniqueIndexes {
		key, participates := ix.Key(doc)
		if !participates {
			continue
		}
		if owner, taken := s.indexes[decl.Name][ix.Name][key]; taken && owner != id {
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

// reindex updates index entries for a record transition oldDoc -> newDoc.
// Either document may be nil (insert or delete).
func (s *MemoryStore) reindex(decl record.Collection, id string, oldDoc, newDoc map[string]any) {
	for _, ix := range decl.UniqueIndexes {
		if oldDoc != nil {
			if key, ok := ix.Key(oldDoc); ok {
				if owner := s.indexes[decl.Name][ix.Name][key]; owner == id {
					delete(s.indexes[decl.Name][ix.Name], key)
				}
			}
		}
		if newDoc != nil {
			if key, ok := ix.Key(newDoc); ok {
				if s.indexes[decl.Name] == nil {
					s.indexes[decl.Name] = make(map[string]map[string]string)
				}
				if s.indexes[decl.Name][ix.Name] == nil {
					s.indexes[decl.Name][ix.Name] = make(map[string]string)
				}
				s.indexes[decl.Name][ix.Name][key] = id
			}
		}
	}
}

// snapshot copies the record and index maps for transaction rollback.
// RawMessage values are immutable once stored, so a per-map copy suffices.
func (s *MemoryStore) snapshot() (map[string]map[string]json.RawMessage, map[string]map[string]map[string]string) {
	records := make(map[string]map[string]json.RawMessage, len(s.records))
	for coll, byID := range s.records {
		clone := make(map[string]json.RawMessage, len(byID))
		for id, raw := range byID {
			clone[id] = raw
		}
		records[coll] = clone
	}

	indexes := make(map[string]map[string]map[string]string, len(s.indexes))
	for coll, byIndex := range s.indexes {
		cloneIx := make(map[string]map[string]string, len(byIndex))
		for name, byKey := range byIndex {
			clone := make(map[string]string, len(byKey))
			for key, id := range byKey {
				clone[key] = id
			}
			cloneIx[name] = clone
		}
		indexes[coll] = cloneIx
	}

	return records, indexes
}
