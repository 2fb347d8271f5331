package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Status  int // HTTP status the error is surfaced with; 0 means derive from Code
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code, so the sentinels below
// work with errors.Is regardless of message or cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Error Codes
// ============================================================================

const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeAuthDenied       = "AUTH_DENIED"
	CodeNetworkOperation = "NETWORK_OPERATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Startup Errors
	ErrConfigInvalid = &DomainError{
		Code:    CodeConfigInvalid,
		Message: "configuration is invalid",
	}

	// Request Errors
	ErrAuthDenied = &DomainError{
		Code:    CodeAuthDenied,
		Message: "authorization denied",
		Status:  http.StatusForbidden,
	}
	ErrNetworkOperation = &DomainError{
		Code:    CodeNetworkOperation,
		Message: "network operation failed",
	}
	ErrNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "not found",
	}
	ErrForbidden = &DomainError{
		Code:    CodeForbidden,
		Message: "forbidden",
	}
	ErrMethodNotAllowed = &DomainError{
		Code:    CodeMethodNotAllowed,
		Message: "method not allowed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapConfigError wraps an error as a fatal configuration error
func WrapConfigError(field string, cause error) error {
	msg := fmt.Sprintf("invalid configuration: %s", field)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &DomainError{
		Code:    CodeConfigInvalid,
		Message: msg,
		Cause:   cause,
	}
}

// WrapAuthDenied wraps an error as an authorization failure (403). The reason
// is shown to the user, the cause is only logged.
func WrapAuthDenied(reason string, cause error) error {
	return &DomainError{
		Code:    CodeAuthDenied,
		Message: reason,
		Status:  http.StatusForbidden,
		Cause:   cause,
	}
}

// WrapAuthFailed wraps an error as an authentication failure (401): the user
// could not be identified at all, e.g. the OAuth code was rejected.
func WrapAuthFailed(reason string, cause error) error {
	return &DomainError{
		Code:    CodeAuthDenied,
		Message: reason,
		Status:  http.StatusUnauthorized,
		Cause:   cause,
	}
}

// WrapNetworkOperation wraps an error as a failed call to an external service
func WrapNetworkOperation(operation string, cause error) error {
	return &DomainError{
		Code:    CodeNetworkOperation,
		Message: fmt.Sprintf("network operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapNotFound wraps an error as a missing static file
func WrapNotFound(path string, cause error) error {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("not found: %s", path),
		Cause:   cause,
	}
}

// WrapForbidden wraps an error as a path that must not be served
func WrapForbidden(path string, cause error) error {
	return &DomainError{
		Code:    CodeForbidden,
		Message: fmt.Sprintf("forbidden: %s", path),
		Cause:   cause,
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsConfigError checks if an error is a fatal configuration error
func IsConfigError(err error) bool {
	return hasCode(err, CodeConfigInvalid)
}

// IsAuthDenied checks if an error denies access. Network failures count as
// denials: the gate fails closed.
func IsAuthDenied(err error) bool {
	return hasCode(err, CodeAuthDenied) || hasCode(err, CodeNetworkOperation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsForbidden checks if an error is a path traversal rejection
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// HTTPStatus maps an error to the status code it is surfaced with
func HTTPStatus(err error) int {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if domainErr.Status != 0 {
		return domainErr.Status
	}
	switch domainErr.Code {
	case CodeAuthDenied:
		return http.StatusForbidden
	case CodeNetworkOperation:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to a client
func PublicMessage(err error) string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return "An error occurred"
	}
	if domainErr.Code == CodeNetworkOperation {
		// upstream details stay in the logs
		return "authentication with GitHub failed"
	}
	return domainErr.Message
}
