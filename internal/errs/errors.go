// Package errs defines the error kinds raised across the compiler core.
//
// Every error kind named here unwinds to the module boundary (see
// internal/pass): transformations communicate modified/unmodified as
// their normal return value, never through this channel.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind string

const (
	// IRInvariant means a mutation would violate a well-formedness
	// invariant of the IR model: using a destroyed value, inserting
	// after a terminator, constructing a mismatched phi, or destroying
	// a value with a non-empty use-list.
	IRInvariant Kind = "IRInvariant"

	// AnalysisUnavailable means a pass requires an analysis that has no
	// registered provider. pass.Manager raises it when that pass is about
	// to run, not at pipeline assembly; circular requirements are not
	// detected.
	AnalysisUnavailable Kind = "AnalysisUnavailable"

	// TargetCapability means the machine IR asks for an operation the
	// target does not implement.
	TargetCapability Kind = "TargetCapability"

	// RegisterAllocationExhausted is an internal error: linear scan
	// always spills rather than failing, so this should not happen by
	// construction.
	RegisterAllocationExhausted Kind = "RegisterAllocationExhausted"

	// PassFatal covers any other internal inconsistency.
	PassFatal Kind = "PassFatal"
)

// Error is the error type returned by every fallible operation in the
// core. It carries a Kind for programmatic dispatch and wraps the
// underlying cause (if any) with a stack trace via github.com/pkg/errors.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As keep working
// through this type.
func (e *Error) Unwrap() error { return e.cause }

// StackTrace exposes the pkg/errors-captured stack of the wrapped
// cause, if any, for diagnostics at the module boundary.
func (e *Error) StackTrace() errors.StackTrace {
	type stackTracer interface{ StackTrace() errors.StackTrace }
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// New creates a fresh Error of the given kind, capturing a stack trace
// at the call site.
func New(kind Kind, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.New(msg)}
}

// Wrap attaches a Kind and message to an existing cause, preserving (or
// creating) its stack trace.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.Wrap(cause, msg)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
