// Package record defines a generic transactional record store addressed by
// collection name and filter.
//
// The store persists JSON-serializable records and knows nothing about the
// memorial domain. Domain rules that must hold at the storage layer (unique
// constraints, append-only collections) are declared per collection in a
// Schema passed to the implementation at construction time. This keeps
// enforcement in one place regardless of how many code paths write to a
// collection.
//
// Two implementations exist:
//   - memory: mutex-protected maps, for tests and development
//   - badger: BadgerDB-backed persistence with ACID transactions
package record

import "context"

// Store is a transactional record store.
//
// Records are identified by (collection, id) and stored as JSON documents.
// Get and List decode into caller-provided destinations the same way
// encoding/json does.
//
// Thread Safety: implementations are safe for concurrent use.
type Store interface {
	// Get loads the record with the given id into out (a pointer to a struct).
	// Returns ErrNotFound if the record does not exist.
	Get(ctx context.Context, collection, id string, out any) error

	// List loads every record in the collection matching the filter into out
	// (a pointer to a slice). A nil filter matches all records. Order is not
	// specified.
	List(ctx context.Context, collection string, filter Filter, out any) error

	// Insert stores a new record. Returns ErrAlreadyExists if the id is taken
	// and ErrUniqueViolation if a declared unique index would be violated.
	Insert(ctx context.Context, collection, id string, value any) error

	// Update replaces an existing record. Returns ErrNotFound if the record
	// does not exist, ErrAppendOnly for append-only collections, and
	// ErrUniqueViolation if the new value would violate a unique index.
	Update(ctx context.Context, collection, id string, value any) error

	// Delete physically removes a record. Returns ErrNotFound if absent and
	// ErrAppendOnly for append-only collections.
	Delete(ctx context.Context, collection, id string) error

	// Tx runs fn inside a single atomic transaction. All writes made through
	// the Tx become visible together on commit; any error from fn discards
	// them all.
	Tx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error
}

// Tx exposes store operations inside a transaction.
//
// The same constraint and append-only rules apply as on Store.
type Tx interface {
	Get(collection, id string, out any) error
	List(collection string, filter Filter, out any) error
	Insert(collection, id string, value any) error
	Update(collection, id string, value any) error
	Delete(collection, id string) error
}

// Filter selects records by field equality.
//
// Keys are JSON field names of the stored document. Values are compared after
// JSON normalization, so a Filter{"edit_count": 3} matches a document whose
// edit_count unmarshals to 3 regardless of the Go type it was written with.
// A nil filter value matches both JSON null and an absent field, which is how
// callers select "active" rows by deleted_at.
type Filter map[string]any

// Collection declares storage-layer rules for one collection.
type Collection struct {
	// Name is the collection name.
	Name string

	// AppendOnly rejects Update and Delete on this collection. Used for the
	// lifecycle history ledger, whose entries must never be mutated.
	AppendOnly bool

	// UniqueIndexes lists unique constraints enforced on Insert and Update.
	UniqueIndexes []UniqueIndex
}

// UniqueIndex declares a unique constraint over one or more document fields.
//
// When PartialOnNull is set, only documents where that field is JSON null (or
// absent) participate in the index. This expresses "at most one active row
// per key" constraints such as one non-deleted profile per owner.
type UniqueIndex struct {
	// Name identifies the index in error messages and key encoding.
	Name string

	// Fields are the JSON field names whose values compose the index key.
	Fields []string

	// PartialOnNull, if non-empty, names a field that must be null/absent for
	// the document to be indexed.
	PartialOnNull string
}

// Schema is the set of collection declarations handed to a store at
// construction. Collections not listed carry no special rules.
type Schema []Collection

// Lookup returns the declaration for a collection, or a zero Collection if
// none was declared.
func (s Schema) Lookup(name string) Collection {
	for _, c := range s {
		if c.Name == name {
			return c
		}
	}
	return Collection{Name: name}
}
