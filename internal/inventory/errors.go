package inventory

import (
	"errors"
	"fmt"
)

// ErrSoldOut is returned when a reservation would exceed the departure's capacity
var ErrSoldOut = errors.New("not enough seats available")

// ErrDepartureClosed is returned when a payment completes after the departure
// was cancelled or completed
var ErrDepartureClosed = errors.New("departure is no longer open for booking")

type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ForbiddenError means the actor does not own the resource
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

// PreconditionError means the request is well formed but the resource is in
// the wrong state (or the input is invalid). Nothing was mutated.
type PreconditionError struct {
	Msg string
}

func (e PreconditionError) Error() string { return e.Msg }

func preconditionf(format string, args ...interface{}) error {
	return PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsPrecondition(err error) bool {
	var target PreconditionError
	return errors.As(err, &target)
}
