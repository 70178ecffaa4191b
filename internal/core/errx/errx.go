package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it came from.
type Kind string

const (
	KindConfig   Kind = "config"
	KindUpstream Kind = "upstream"
	KindState    Kind = "state"
	KindDelivery Kind = "delivery"
)

// Error wraps an underlying error with its kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Config(op string, err error) error   { return wrap(KindConfig, op, err) }
func Upstream(op string, err error) error { return wrap(KindUpstream, op, err) }
func State(op string, err error) error    { return wrap(KindState, op, err) }
func Delivery(op string, err error) error { return wrap(KindDelivery, op, err) }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
