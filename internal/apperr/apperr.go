// Package apperr classifies failures into the handful of kinds the
// pipeline and executor branch on, so callers never need to inspect a
// broker SDK's own error types to decide whether to retry, skip, or
// block a candidate.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories the error-handling design
// distinguishes. It is deliberately coarse: callers branch on Kind,
// never on the wrapped message text.
type Kind int

const (
	// KindUnknown is what KindOf reports for an error no stage has
	// classified. Nothing in this module retries on any kind.
	KindUnknown Kind = iota
	KindTransient
	KindPermanent
	KindDataShape
	KindResourceExhausted
	KindStorage
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindDataShape:
		return "data_shape"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindStorage:
		return "storage"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type appError struct {
	kind Kind
	msg  string
	err  error
}

func (e *appError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *appError) Unwrap() error { return e.err }

// New creates a classified error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &appError{kind: kind, msg: msg}
}

// Wrap classifies an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &appError{kind: kind, msg: msg, err: cause}
}

// KindOf returns the classification attached to err, or KindUnknown if
// err was never classified through New/Wrap.
func KindOf(err error) Kind {
	var ae *appError
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnknown
}

// Is reports whether err (or any error it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
