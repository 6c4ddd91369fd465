package memorial

// Error represents a domain error from memorial operations.
//
// These are business rule violations (ineligible create, edit limit reached,
// upload grant refused) as opposed to infrastructure errors, which are
// returned wrapped. The HTTP layer maps ErrorCode to status codes.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message explains which rule was violated.
	Message string

	// Field names the offending input field for validation errors.
	Field string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ErrorCode categorizes domain errors.
type ErrorCode int

const (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation ErrorCode = iota

	// ErrConflict indicates a lifecycle-rule violation: create when
	// ineligible, edit past the limit, delete an already-deleted profile.
	ErrConflict

	// ErrNotFound indicates the referenced id does not resolve to a record
	// owned by the caller.
	ErrNotFound

	// ErrAuthorization indicates an upload grant was requested without
	// satisfying eligibility.
	ErrAuthorization

	// ErrStorage indicates an object-store call failed. Never surfaced from
	// cleanup paths; see the error policy in pkg/gc.
	ErrStorage
)

// NewValidationError builds a validation error for one input field.
func NewValidationError(field, message string) *Error {
	return &Error{Code: ErrValidation, Message: message, Field: field}
}

// NewConflictError builds a lifecycle-rule violation error.
func NewConflictError(message string) *Error {
	return &Error{Code: ErrConflict, Message: message}
}

// NewNotFoundError builds a missing-record error.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrNotFound, Message: message}
}

// NewAuthorizationError builds an upload-eligibility error.
func NewAuthorizationError(message string) *Error {
	return &Error{Code: ErrAuthorization, Message: message}
}

func is(err error, code ErrorCode) bool {
	de, ok := err.(*Error)
	return ok && de.Code == code
}

// IsValidation reports whether err is a domain validation error.
func IsValidation(err error) bool { return is(err, ErrValidation) }

// IsConflict reports whether err is a lifecycle-rule violation.
func IsConflict(err error) bool { return is(err, ErrConflict) }

// IsNotFound reports whether err is a domain not-found error.
func IsNotFound(err error) bool { return is(err, ErrNotFound) }

// IsAuthorization reports whether err is an upload-eligibility error.
func IsAuthorization(err error) bool { return is(err, ErrAuthorization) }
