package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so records and index entries are organized
// with prefixed keys. This design:
//   - Prevents collisions between collections and index entries
//   - Enables efficient range scans over one collection
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Data Type       Prefix  Key Format                           Value
// =========================================================================
// Record          "r:"    r:<collection>:<id>                  document (JSON)
// Unique Index    "i:"    i:<collection>:<index>:<indexKey>    record id (bytes)
//
// Record ids are UUIDs, so they never contain ":" and the key format is
// unambiguous. Index keys are JSON-encoded field values joined with a unit
// separator (see record.UniqueIndex.Key), which likewise cannot contain ":"
// in a position that would break prefix scans because scans always use the
// full "i:<collection>:<index>:" prefix.

const (
	recordPrefix = "r:"
	indexPrefix  = "i:"
)

// recordKey builds the key for a record.
func recordKey(collection, id string) []byte {
	return []byte(recordPrefix + collection + ":" + id)
}

// collectionPrefix builds the scan prefix covering every record in a
// collection.
func collectionPrefix(collection string) []byte {
	return []byte(recordPrefix + collection + ":")
}

// indexKey builds the key for a unique index entry.
func indexKey(collection, index, key string) []byte {
	return []byte(indexPrefix + collection + ":" + index + ":" + key)
}
