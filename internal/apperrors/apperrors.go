// Package apperrors defines the domain error taxonomy shared by the services
// and the HTTP layer. Machine-readable codes follow the
// {"error": {"code", "message"}} response contract.
package apperrors

import (
	"errors"
	"fmt"
)

// Error codes exposed to API clients.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeGone            = "GONE"
	CodeConflict        = "CONFLICT"
	CodeStorageError    = "STORAGE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrNotFound covers both genuinely absent resources and resources the caller
// is not allowed to see. The two cases are deliberately indistinguishable so
// document ids cannot be probed.
var ErrNotFound = errors.New("resource not found")

// ErrForbidden means the resource is visible but the action is not permitted,
// e.g. downloading a document that is not clean.
var ErrForbidden = errors.New("action not permitted")

// ErrConflict rejects a scan verdict reported against a document that is not
// currently scanning (duplicate or late callback).
var ErrConflict = errors.New("conflicting state transition")

// ValidationError carries a user-correctable input problem.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// GoneReason distinguishes why a structurally valid sharing link is no longer
// usable. Each reason has its own public message; this does not leak existence
// information the way ownership errors would.
type GoneReason string

const (
	GoneDeactivated GoneReason = "deactivated"
	GoneExpired     GoneReason = "expired"
	GoneExhausted   GoneReason = "exhausted"
)

var goneMessages = map[GoneReason]string{
	GoneDeactivated: "this sharing link has been deactivated",
	GoneExpired:     "this sharing link has expired",
	GoneExhausted:   "the maximum number of downloads has been reached",
}

// GoneError rejects access through a dead sharing link.
type GoneError struct {
	Reason GoneReason
}

func (e *GoneError) Error() string { return goneMessages[e.Reason] }

// Gone builds a GoneError for the given reason.
func Gone(reason GoneReason) error { return &GoneError{Reason: reason} }

// StorageError wraps a content-store I/O failure. The underlying cause is for
// logs only and must never reach API clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for the given operation.
func Storage(op string, err error) error { return &StorageError{Op: op, Err: err} }

// Code maps an error to its machine-readable API code.
func Code(err error) string {
	var ve *ValidationError
	var ge *GoneError
	var se *StorageError
	switch {
	case errors.As(err, &ve):
		return CodeValidationError
	case errors.As(err, &ge):
		return CodeGone
	case errors.As(err, &se):
		return CodeStorageError
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrConflict):
		return CodeConflict
	}
	return CodeInternalError
}
