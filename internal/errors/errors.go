// Package errors provides structured error types for the annotation engine.
//
// Engine errors carry a category and a stable code so hosts can react to
// classes of failure (network fetch failed, display unavailable) without
// string matching. Errors wrap their cause and participate in errors.Is /
// errors.As chains.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeDisplay    ErrorType = "display"
	ErrorTypeInternal   ErrorType = "internal"
)

// Stable error codes.
const (
	CodeFetchFailed        = "FETCH_FAILED"
	CodeDisplayUnsupported = "DISPLAY_UNSUPPORTED"
	CodeInvalidConfig      = "INVALID_CONFIG"
)

// InlayError is a structured error type with context.
type InlayError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *InlayError) Error() string {
	var parts []string
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *InlayError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *InlayError) Is(target error) bool {
	var t *InlayError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context information to the error.
func (e *InlayError) WithContext(key string, value interface{}) *InlayError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewFetchError creates a network error for a failed remote asset fetch.
// The URL is recorded in the error context.
func NewFetchError(url string, cause error) *InlayError {
	e := &InlayError{
		Type:    ErrorTypeNetwork,
		Code:    CodeFetchFailed,
		Message: "remote asset fetch failed",
		Cause:   cause,
	}
	return e.WithContext("url", url)
}

// NewDisplayUnsupported creates a display error indicating the annotation
// surface cannot render at all.
func NewDisplayUnsupported(reason string) *InlayError {
	return &InlayError{
		Type:    ErrorTypeDisplay,
		Code:    CodeDisplayUnsupported,
		Message: reason,
	}
}

// NewConfigError creates a configuration validation error.
func NewConfigError(message string, cause error) *InlayError {
	return &InlayError{
		Type:    ErrorTypeConfig,
		Code:    CodeInvalidConfig,
		Message: message,
		Cause:   cause,
	}
}

// IsFetchError reports whether err is (or wraps) a fetch failure.
func IsFetchError(err error) bool {
	var e *InlayError
	return errors.As(err, &e) && e.Code == CodeFetchFailed
}

// IsDisplayUnsupported reports whether err is (or wraps) a display-unsupported
// condition.
func IsDisplayUnsupported(err error) bool {
	var e *InlayError
	return errors.As(err, &e) && e.Code == CodeDisplayUnsupported
}

// FetchURL extracts the URL recorded on a fetch error, if any.
func FetchURL(err error) string {
	var e *InlayError
	if errors.As(err, &e) && e.Context != nil {
		if url, ok := e.Context["url"].(string); ok {
			return url
		}
	}
	return ""
}
