// Package errors defines the small set of error kinds the engine surfaces
// to its callers. Every fallible operation in vaultfm wraps its cause with
// one of these kinds so callers can branch with errors.Is / errors.As
// instead of string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// Kind enumerates the observable failure classes the engine produces.
type Kind int

const (
	// NotFound means a block, file, track, or release id has no corresponding row or object.
	NotFound Kind = iota
	// CorruptBlock means envelope parsing, key-id resolution, or AEAD authentication failed.
	CorruptBlock
	// TransientIO means an object-store or network call failed or timed out.
	TransientIO
	// LayoutInvalid means the album layout planner rejected a release's file set.
	LayoutInvalid
	// PipelineCancelled means the caller cancelled an in-flight import.
	PipelineCancelled
	// Internal means an invariant the engine depends on was violated.
	Internal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case CorruptBlock:
		return "corrupt_block"
	case TransientIO:
		return "transient_io"
	case LayoutInvalid:
		return "layout_invalid"
	case PipelineCancelled:
		return "pipeline_cancelled"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind so callers can classify failures.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping cause. If cause is
// nil, Wrap returns nil, mirroring fmt.Errorf's nil-preserving idiom.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Is reports whether err was constructed with the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or Internal if err was not produced by
// this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
