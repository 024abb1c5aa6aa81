package errors

import (
	"errors"
	"fmt"
)

// HTTPStatusError represents a non-2xx answer from a remote server.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %s from %s", status, e.URL)
}

// NewHTTPStatusError creates an HTTPStatusError.
func NewHTTPStatusError(url string, statusCode int, status string) *HTTPStatusError {
	return &HTTPStatusError{URL: url, StatusCode: statusCode, Status: status}
}

// StatusCode extracts the HTTP status code from err, or 0 when err does not
// wrap an HTTPStatusError.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
