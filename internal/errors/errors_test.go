package errors

import (
	stdErrors "errors"
	"fmt"
	"io"
	"testing"
)

func TestCancelledError(t *testing.T) {
	err := NewCancelledError("select spreadsheet")
	if err.Error() != "select spreadsheet: cancelled by user" {
		t.Fatalf("Error message = %q", err.Error())
	}

	if !IsCancelledError(err) {
		t.Fatalf("IsCancelledError returned false for CancelledError")
	}

	wrapped := fmt.Errorf("render: %w", err)
	if !IsCancelledError(wrapped) {
		t.Fatalf("IsCancelledError returned false for wrapped CancelledError")
	}

	if IsCancelledError(io.EOF) {
		t.Fatalf("IsCancelledError returned true for unrelated error")
	}
}

func TestCancelledError_NoPrompt(t *testing.T) {
	err := NewCancelledError("")
	if err.Error() != "cancelled by user" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "cancelled by user")
	}
}

func TestHTTPStatusError(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPStatusError
		expected string
	}{
		{
			name:     "with status text",
			err:      NewHTTPStatusError("https://x/sheet.xlsx", 404, "404 Not Found"),
			expected: "unexpected status 404 Not Found from https://x/sheet.xlsx",
		},
		{
			name:     "code only",
			err:      NewHTTPStatusError("https://x/sheet.xlsx", 500, ""),
			expected: "unexpected status 500 from https://x/sheet.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Fatalf("Error message = %q, want %q", tt.err.Error(), tt.expected)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	err := fmt.Errorf("fetch: %w", NewHTTPStatusError("https://x", 503, ""))
	if got := StatusCode(err); got != 503 {
		t.Fatalf("StatusCode = %d, want 503", got)
	}
	if got := StatusCode(io.EOF); got != 0 {
		t.Fatalf("StatusCode = %d, want 0", got)
	}
}

func TestSourceError(t *testing.T) {
	err := &SourceError{Attempts: []Attempt{
		{Kind: "local", Location: "listagem.xlsx", Err: stdErrors.New("file not found")},
		{Kind: "remote", Location: "https://x/listagem.xlsx", Err: io.ErrUnexpectedEOF},
	}}

	expected := "could not load spreadsheet: local listagem.xlsx: file not found; remote https://x/listagem.xlsx: unexpected EOF"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !stdErrors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("errors.Is did not see the wrapped attempt error")
	}

	if err.LastLocation() != "https://x/listagem.xlsx" {
		t.Fatalf("LastLocation = %q", err.LastLocation())
	}

	if !IsSourceError(fmt.Errorf("load: %w", err)) {
		t.Fatalf("IsSourceError returned false for wrapped SourceError")
	}
}

func TestSourceError_Empty(t *testing.T) {
	err := &SourceError{}
	if err.Error() != "no spreadsheet source configured" {
		t.Fatalf("Error message = %q", err.Error())
	}
	if err.LastLocation() != "" {
		t.Fatalf("LastLocation = %q, want empty", err.LastLocation())
	}
}
