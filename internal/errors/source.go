package errors

import (
	"errors"
	"strings"
)

// Attempt records one failed step of the spreadsheet source fallback chain.
type Attempt struct {
	Kind     string
	Location string
	Err      error
}

func (a Attempt) String() string {
	return a.Kind + " " + a.Location + ": " + a.Err.Error()
}

// SourceError is returned when every spreadsheet source failed.
type SourceError struct {
	Attempts []Attempt
}

func (e *SourceError) Error() string {
	if len(e.Attempts) == 0 {
		return "no spreadsheet source configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return "could not load spreadsheet: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual attempt errors to errors.Is / errors.As.
func (e *SourceError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// LastLocation returns the location of the final attempt, which is the most
// specific thing to show a spreadsheet maintainer.
func (e *SourceError) LastLocation() string {
	if len(e.Attempts) == 0 {
		return ""
	}
	return e.Attempts[len(e.Attempts)-1].Location
}

// IsSourceError reports whether err is a SourceError (even when wrapped).
func IsSourceError(err error) bool {
	var srcErr *SourceError
	return errors.As(err, &srcErr)
}
