package exceptions

import (
	"errors"
	"fmt"
)

type Exception interface {
	error
	Cause() error
}

type exception struct {
	message string
	cause   error
}

func (e *exception) Error() string {
	if e.cause == nil {
		return e.message
	}
	if e.message == "" {
		return e.cause.Error()
	}
	return e.message + ": " + e.cause.Error()
}

func (e *exception) Cause() error {
	return e.cause
}

func (e *exception) Unwrap() error {
	return e.cause
}

func New(message ...any) error {
	return errors.New(fmt.Sprint(message...))
}

func Cause(cause error, message ...any) error {
	if cause == nil {
		panic("cause on an nil error")
	}
	return &exception{fmt.Sprint(message...), cause}
}

// Extend attaches a sentinel to an error chain so both match errors.Is.
func Extend(sentinel error, cause error, message ...any) error {
	if cause == nil {
		return Cause(sentinel, message...)
	}
	return &extendedError{Cause(cause, message...), sentinel}
}

type extendedError struct {
	error
	sentinel error
}

func (e *extendedError) Unwrap() []error {
	return []error{e.error, e.sentinel}
}
