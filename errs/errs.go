// Package errs defines the engine's error taxonomy. Every operation
// returns one of these kinds through its result type rather than
// panicking; Internal is the sole kind permitted to abort an operation
// without the caller having a chance to recover cleanly.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

const (
	// NotFound means an identifier or packed reference resolves to no
	// live row.
	NotFound Kind = iota
	// SchemaMismatch means a column type code does not match the
	// requested read/write type, or an index declaration names an
	// unknown or unsupported field.
	SchemaMismatch
	// InvalidArgument means a caller-supplied argument is malformed:
	// a negative row index, an out-of-range argument index, a BETWEEN
	// with lo > hi after normalization, an IN list over a non-iterable,
	// or a composite index declared with fewer than two columns.
	InvalidArgument
	// LifecycleClosed means the operation was attempted against a
	// closed arena.
	LifecycleClosed
	// Internal means an invariant was violated. Non-recoverable; the
	// current operation aborts.
	Internal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case SchemaMismatch:
		return "schema_mismatch"
	case InvalidArgument:
		return "invalid_argument"
	case LifecycleClosed:
		return "lifecycle_closed"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every engine operation returns.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op with the given kind and optional wrapped
// cause.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Newf is New with a formatted cause.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
