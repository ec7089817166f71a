package domain

import (
	"errors"
	"fmt"
)

// Authentication and authorization failures. Each maps to a fixed HTTP
// status in the handlers package.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrSessionExpired  = errors.New("session expired")
	ErrForbidden       = errors.New("access denied")

	ErrInvalidCredentials = errors.New("invalid email or password")
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// InsufficientSeatsError is returned when a schedule cannot cover the
// requested seat count, including when a concurrent booking won the race.
type InsufficientSeatsError struct {
	Requested int
	Available int
}

func (e InsufficientSeatsError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("not enough seats available for %d seat(s)", e.Requested)
	}
	return fmt.Sprintf("only %d seat(s) available, %d requested", e.Available, e.Requested)
}

type CancellationWindowClosedError struct {
	Msg string
}

func (e CancellationWindowClosedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "booking can no longer be cancelled"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsInsufficientSeats(err error) bool {
	var target InsufficientSeatsError
	return errors.As(err, &target)
}

func IsCancellationWindowClosed(err error) bool {
	var target CancellationWindowClosedError
	return errors.As(err, &target)
}

// ScheduleNotFound is returned for missing and non-bookable schedules alike.
func ScheduleNotFound(err error) NotFoundError {
	return NotFoundError{Resource: "schedule", Err: err}
}

// Internal wraps a storage failure with a short operation label.
func Internal(op string, err error) InternalError {
	return InternalError{Msg: op, Err: err}
}
