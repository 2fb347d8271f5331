package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrapConfigError(t *testing.T) {
	tests := []struct {
		name              string
		field             string
		cause             error
		expectedPublicMsg string
	}{
		{
			name:              "with cause error",
			field:             "GITHUB_CLIENT_ID",
			cause:             errors.New("is required"),
			expectedPublicMsg: "invalid configuration: GITHUB_CLIENT_ID: is required",
		},
		{
			name:              "with nil cause",
			field:             "STATIC_ROOT",
			cause:             nil,
			expectedPublicMsg: "invalid configuration: STATIC_ROOT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapConfigError(tt.field, tt.cause)
			if err == nil {
				t.Fatal("expected error but got nil")
			}

			if !IsConfigError(err) {
				t.Error("expected IsConfigError to be true")
			}

			if !strings.Contains(err.Error(), CodeConfigInvalid) {
				t.Errorf("expected error message to contain code %s, but got: %q", CodeConfigInvalid, err.Error())
			}

			if msg := PublicMessage(err); msg != tt.expectedPublicMsg {
				t.Errorf("expected public message:\n  %q\nbut got:\n  %q", tt.expectedPublicMsg, msg)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"auth denied", WrapAuthDenied("not a member", nil), http.StatusForbidden},
		{"auth failed", WrapAuthFailed("bad code", nil), http.StatusUnauthorized},
		{"network failure", WrapNetworkOperation("token exchange", errors.New("timeout")), http.StatusUnauthorized},
		{"not found", WrapNotFound("/missing.html", nil), http.StatusNotFound},
		{"forbidden", WrapForbidden("/../etc/passwd", nil), http.StatusForbidden},
		{"method", ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"wrapped with fmt", fmt.Errorf("serve: %w", WrapNotFound("/x", nil)), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "domain error with message",
			err:         &DomainError{Code: "TEST_ERROR", Message: "test message"},
			expectedMsg: "test message",
		},
		{
			name:        "network error hides upstream detail",
			err:         WrapNetworkOperation("token exchange", errors.New("dial tcp 10.0.0.1:443: i/o timeout")),
			expectedMsg: "authentication with GitHub failed",
		},
		{
			name:        "non-domain error",
			err:         errors.New("some random error"),
			expectedMsg: "An error occurred",
		},
		{
			name:        "nil error returns generic message",
			err:         nil,
			expectedMsg: "An error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := PublicMessage(tt.err)
			if msg != tt.expectedMsg {
				t.Errorf("expected message %q, but got %q", tt.expectedMsg, msg)
			}
		})
	}
}

func TestIsAuthDenied(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"auth denied", WrapAuthDenied("nope", nil), true},
		{"network failure fails closed", WrapNetworkOperation("token exchange", errors.New("eof")), true},
		{"not found", WrapNotFound("/x", nil), false},
		{"nil error", nil, false},
		{"random error", errors.New("random error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsAuthDenied(tt.err); result != tt.expected {
				t.Errorf("expected %v but got %v", tt.expected, result)
			}
		})
	}
}

func TestSentinelsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("resolve: %w", WrapForbidden("/../secret", nil))
	if !errors.Is(err, ErrForbidden) {
		t.Error("expected errors.Is to match ErrForbidden")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
	if !IsForbidden(err) || IsNotFound(err) {
		t.Error("predicate mismatch for forbidden error")
	}
}
