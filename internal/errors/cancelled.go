package errors

import "errors"

// CancelledError is returned when the user dismisses an interactive prompt
// (e.g., the spreadsheet file picker) instead of choosing something.
type CancelledError struct {
	Prompt string
}

func (e *CancelledError) Error() string {
	if e.Prompt == "" {
		return "cancelled by user"
	}
	return e.Prompt + ": cancelled by user"
}

// NewCancelledError creates a CancelledError for the named prompt.
func NewCancelledError(prompt string) *CancelledError {
	return &CancelledError{Prompt: prompt}
}

// IsCancelledError reports whether err is a CancelledError (even when wrapped).
func IsCancelledError(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}
