package command

import (
	"errors"
	"fmt"
)

const (
	ErrorDuplicateCommand = "duplicate_command"
	ErrorInvalidCommand   = "invalid_command"
	ErrorUnknownCommand   = "unknown_command"
	ErrorCommandFailed    = "command_failed"
)

// Error represents a categorized command table failure.
type Error struct {
	Category string
	Keyword  string
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Category
	if e.Keyword != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Keyword)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}

	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ""
}

// IsConfigError reports whether err means the command table could not be built.
func IsConfigError(err error) bool {
	switch CategoryFromError(err) {
	case ErrorDuplicateCommand, ErrorInvalidCommand:
		return true
	default:
		return false
	}
}
