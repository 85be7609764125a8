// Package businessflow contains the core business logic for the lead funnel bot
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Funnel errors
	ErrUnknownOption  = errors.New("unknown survey option")
	ErrPollRowMissing = errors.New("poll response row missing")

	// Note errors
	ErrNoteNotFound   = errors.New("note not found")
	ErrNoteTitleEmpty = errors.New("note title is empty")
	ErrInvalidNoteURL = errors.New("note url is invalid")

	// Capture / session errors
	ErrNoActiveCapture = errors.New("no active input capture")

	// Group errors
	ErrGroupNotFound = errors.New("group not found")

	// Settings errors
	ErrReminderTextEmpty = errors.New("reminder text is empty")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUnknownOption(err error) bool {
	return errors.Is(err, ErrUnknownOption)
}

func IsNoteNotFound(err error) bool {
	return errors.Is(err, ErrNoteNotFound)
}

func IsNoActiveCapture(err error) bool {
	return errors.Is(err, ErrNoActiveCapture)
}

func IsGroupNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound)
}
