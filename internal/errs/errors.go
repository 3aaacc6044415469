// Package errs provides the unified error type used across all of DatAct.
//
// Every subsystem (schema, sqlgen, pool, database adapters, dispatch) returns
// *errs.Error. Callers use the Is* predicates to tell a setup mismatch from an
// engine failure or from the expected end of rows, without importing any
// driver package.
//
// Usage:
//
//	err := h.Perform(action.Step, db, "")
//	switch {
//	case errs.IsNoData(err):
//	    // end of rows, not a failure
//	case err != nil:
//	    return err
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing engine-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no eligible table, alias, or column
	ErrKindBufferOverflow           // generated script exceeds its buffer
	ErrKindPoolExhausted            // no free handle pool slot
	ErrKindDuplicateOpen            // path already open; existing slot reused
	ErrKindNoData                   // step reached the end of the rows
	ErrKindConnectionFailed         // engine could not open the database
	ErrKindTimeout                  // engine busy / deadline
	ErrKindQueryFailed              // engine rejected or failed a statement
	ErrKindInvalidInput             // bad action code or arguments from the caller
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindBufferOverflow:
		return "buffer_overflow"
	case ErrKindPoolExhausted:
		return "pool_exhausted"
	case ErrKindDuplicateOpen:
		return "duplicate_open"
	case ErrKindNoData:
		return "no_data"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all DatAct subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // engine-level error, keeps the engine's diagnostic text
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err is a schema lookup failure.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsBufferOverflow reports whether a generated script did not fit its buffer.
func IsBufferOverflow(err error) bool {
	return KindOf(err) == ErrKindBufferOverflow
}

// IsPoolExhausted reports whether the handle pool had no free slot.
func IsPoolExhausted(err error) bool {
	return KindOf(err) == ErrKindPoolExhausted
}

// IsDuplicateOpen reports whether an open reused an already open slot.
// It is informational: the action itself succeeded.
func IsDuplicateOpen(err error) bool {
	return KindOf(err) == ErrKindDuplicateOpen
}

// IsNoData reports whether a step ran past the last row.
func IsNoData(err error) bool {
	return KindOf(err) == ErrKindNoData
}

// IsConnectionFailed reports whether the engine could not open the database.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsTimeout reports whether the engine gave up waiting (busy, locked, deadline).
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsQueryFailed reports whether the engine rejected or failed a statement.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
