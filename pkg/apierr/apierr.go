// Package apierr defines the error kinds shared across the store, upload,
// and API layers, and the status code each maps to at the HTTP boundary.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of HTTP status mapping and
// logging/metrics treatment. It says nothing about the underlying cause.
type Kind int

const (
	// Durable is the zero value so a bare `return err` never accidentally
	// produces a kind that skips logging.
	Durable Kind = iota
	NotFound
	Forbidden
	BadRequest
	Cancelled
	Transient
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case BadRequest:
		return "bad_request"
	case Cancelled:
		return "cancelled"
	case Transient:
		return "transient"
	default:
		return "durable"
	}
}

// Status returns the HTTP status code this kind is surfaced as.
func (k Kind) Status() int {
	switch k {
	case NotFound:
		return 404
	case Forbidden:
		return 403
	case BadRequest:
		return 400
	case Cancelled:
		return 504
	case Transient:
		// Transient errors never reach the HTTP boundary; a caller that
		// surfaces one anyway gets treated as a durable failure.
		return 500
	default:
		return 500
	}
}

// Error is a kinded error. Transient errors are swallowed by cache callers
// and never wrapped this way; this type is for errors that do propagate.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and the operation name that produced it.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Durable for plain errors
// (e.g. one that escaped a database driver without being wrapped).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Durable
}
