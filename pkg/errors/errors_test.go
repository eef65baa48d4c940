package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapError(cause, ErrHTTPRequest, "request failed")

	if !Is(err, ErrHTTPRequest) {
		t.Errorf("expected wrapped error to match ErrHTTPRequest")
	}
	if !Is(err, cause) {
		t.Errorf("expected wrapped error to match its cause")
	}
	if Is(err, ErrConfiguration) {
		t.Errorf("wrapped error should not match an unrelated kind")
	}

	msg := err.Error()
	for _, want := range []string{"HTTP request error", "request failed", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error message, got %q", want, msg)
		}
	}
}

func TestWrapError_Nil(t *testing.T) {
	if err := WrapError(nil, ErrInput, "nothing"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWrapError_KeepsHints(t *testing.T) {
	err := WithHint(New("column not found"), "available columns: a, b")
	err = WrapError(err, ErrInput, "read identifiers")

	if got := FlattenHints(err); got != "available columns: a, b" {
		t.Errorf("expected hint to survive wrapping, got %q", got)
	}
}
