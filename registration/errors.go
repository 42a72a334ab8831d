package registration

import (
	"errors"
	"fmt"
)

// Error classes. Use errors.Is to classify an error returned by Register.
var (
	ErrValidation       = errors.New("validation error")
	ErrIncompleteEntry  = errors.New("incomplete schedule entry")
	ErrInvalidClinic    = errors.New("invalid clinic")
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrScheduleConflict = errors.New("schedule conflict")
	ErrPersistence      = errors.New("persistence error")
	ErrEmailTaken       = errors.New("email already registered")
)

// Error carries a user-facing message and optional diagnostics on top of
// one of the error classes above.
type Error struct {
	Err     error
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap exposes both the class and, for persistence errors, the driver
// error underneath.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

func newError(class error, details map[string]any, format string, args ...any) *Error {
	return &Error{
		Err:     class,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

func persistenceError(step string, err error) *Error {
	return &Error{
		Err:     ErrPersistence,
		Message: fmt.Sprintf("%s: %v", step, err),
		cause:   err,
	}
}

// Class returns the sentinel class of err, or nil when err was not produced
// by this package.
func Class(err error) error {
	for _, class := range []error{
		ErrValidation, ErrIncompleteEntry, ErrInvalidClinic, ErrInvalidWeekday,
		ErrScheduleConflict, ErrEmailTaken, ErrPersistence,
	} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}
