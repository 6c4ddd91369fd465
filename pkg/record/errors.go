package record

// StoreError represents a rule violation or lookup failure from the record
// store, as opposed to an infrastructure failure (disk error, serialization
// bug) which is returned as a wrapped error.
type StoreError struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Collection and ID locate the record involved, when known.
	Collection string
	ID         string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Collection != "" {
		msg += ": " + e.Collection
		if e.ID != "" {
			msg += "/" + e.ID
		}
	}
	return msg
}

// ErrorCode categorizes store errors.
type ErrorCode int

const (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates an Insert with an id already in use.
	ErrAlreadyExists

	// ErrUniqueViolation indicates a declared unique index would be violated.
	ErrUniqueViolation

	// ErrAppendOnly indicates an Update or Delete on an append-only collection.
	ErrAppendOnly

	// ErrInvalidArgument indicates a malformed call (empty id, non-pointer
	// destination, unserializable value).
	ErrInvalidArgument
)

// code extracts the ErrorCode from an error, returning ok=false for
// non-StoreError values.
func code(err error) (ErrorCode, bool) {
	if se, ok := err.(*StoreError); ok {
		return se.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is a StoreError with ErrNotFound.
func IsNotFound(err error) bool {
	c, ok := code(err)
	return ok && c == ErrNotFound
}

// IsAlreadyExists reports whether err is a StoreError with ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	c, ok := code(err)
	return ok && c == ErrAlreadyExists
}

// IsUniqueViolation reports whether err is a StoreError with ErrUniqueViolation.
func IsUniqueViolation(err error) bool {
	c, ok := code(err)
	return ok && c == ErrUniqueViolation
}

// IsAppendOnly reports whether err is a StoreError with ErrAppendOnly.
func IsAppendOnly(err error) bool {
	c, ok := code(err)
	return ok && c == ErrAppendOnly
}
