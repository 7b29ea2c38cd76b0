package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a request that is invalid, incomplete, or arrives
// while the store is in the wrong state. Messages are surfaced to the user
// verbatim, so they are written as sentences.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a referenced session, attempt, or route that does
// not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// States checked across modules.
var (
	ErrNoActiveSession     = &ValidationError{Message: "No active session"}
	ErrActiveSessionExists = &ValidationError{Message: "A session is already active"}
)
