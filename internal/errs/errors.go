// Package errs provides the error type shared by every dbmarkdown subsystem.
//
// Connection, introspection and generation code wrap their native errors
// into *errs.Error so callers can tell failure kinds apart without
// importing driver or transport packages:
//
//	if errs.IsGeneration(err) {
//	    // the LLM endpoint failed or answered with something unusable
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error.
type Kind int

const (
	KindUnknown       Kind = iota
	KindConnection         // unreachable or misconfigured database
	KindIntrospection      // catalog query failure
	KindGeneration         // retries exhausted, bad response, non-retryable HTTP failure
	KindNoSelection        // generation requested with zero selected tables
	KindInvalidInput       // bad arguments from the caller
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindIntrospection:
		return "introspection"
	case KindGeneration:
		return "generation"
	case KindNoSelection:
		return "no_selection"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the core packages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // original error, kept for diagnostics
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

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsConnection reports whether err is a database connection failure.
func IsConnection(err error) bool {
	return KindOf(err) == KindConnection
}

// IsIntrospection reports whether err is a catalog query failure.
func IsIntrospection(err error) bool {
	return KindOf(err) == KindIntrospection
}

// IsGeneration reports whether err is a documentation generation failure.
func IsGeneration(err error) bool {
	return KindOf(err) == KindGeneration
}

// IsNoSelection reports whether err was caused by an empty table selection.
func IsNoSelection(err error) bool {
	return KindOf(err) == KindNoSelection
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// KindOf extracts the Kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
