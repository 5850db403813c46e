// Package errors provides the structured failure taxonomy shared by every
// service. All failures raised inside a handler are normalized to an *Error
// before they leave the service boundary; no raw internal error crosses the
// bus.
package errors

import "errors"

// Kind classifies a failure for callers and for the gateway's status mapping.
type Kind string

const (
	// KindNotFound means a required remote or local resource does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict means a uniqueness or overlap invariant was violated.
	KindConflict Kind = "CONFLICT"
	// KindForbidden means the authorization gate rejected the call.
	KindForbidden Kind = "FORBIDDEN"
	// KindInvalid means structurally valid but semantically out-of-range input.
	KindInvalid Kind = "INVALID"
	// KindTimeout means a remote call exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"
	// KindFatal means an unrecoverable partial-state condition that needs
	// manual remediation, such as an orphaned blob.
	KindFatal Kind = "FATAL"
	// KindUnknown is the fallback for errors that were never classified.
	KindUnknown Kind = "UNKNOWN"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Kind     Kind              // Failure classification
	Code     Code              // Machine-readable error code
	Message  string            // Message surfaced to callers and logs
	Metadata map[string]string // Additional context (ids, names)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message. The kind is derived
// from the code's registration.
func New(code Code, message string) *Error {
	return &Error{
		Kind:    code.Kind(),
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying extra context values.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	err := New(code, message)
	err.Metadata = metadata
	return err
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	err := New(code, message)
	err.Cause = cause
	return err
}

// GetKind extracts the failure kind from any error.
// Returns KindUnknown when the error is not a domain error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown when the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks whether the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsKind checks whether the error has the specified kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetMetadata extracts metadata from an error if present.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
