package rules

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why an engine operation was rejected.
type ErrorKind string

const (
	KindAuth         ErrorKind = "AuthError"
	KindRole         ErrorKind = "RoleError"
	KindPhase        ErrorKind = "PhaseError"
	KindTiming       ErrorKind = "TimingError"
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFoundError"
	KindPrecondition ErrorKind = "PreconditionError"
	KindPersistence  ErrorKind = "PersistenceError"
)

// Error is the error type returned by every engine operation.
type Error struct {
	Kind    ErrorKind
	Message string
	// Remaining is set on timing errors to the time left before the gate opens.
	Remaining time.Duration
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &Error{Kind: KindPhase}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of err, or "" if err is nil or not an engine error.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Authf reports a call without an authenticated actor.
func Authf(format string, args ...interface{}) *Error {
	return newError(KindAuth, format, args...)
}

// Rolef reports an actor holding the wrong role for the action.
func Rolef(format string, args ...interface{}) *Error {
	return newError(KindRole, format, args...)
}

// Phasef reports an action not allowed in the current phase.
func Phasef(format string, args ...interface{}) *Error {
	return newError(KindPhase, format, args...)
}

// Validationf reports a bad or missing argument.
func Validationf(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NotFoundf reports a missing game, card or obstacle.
func NotFoundf(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// Preconditionf reports that a required effect or resource is absent.
func Preconditionf(format string, args ...interface{}) *Error {
	return newError(KindPrecondition, format, args...)
}

// Timing reports that an action is gated for another remaining duration.
func Timing(remaining time.Duration, format string, args ...interface{}) *Error {
	e := newError(KindTiming, format, args...)
	e.Remaining = remaining
	return e
}

// Persistence wraps a storage failure. Engine errors pass through unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}
