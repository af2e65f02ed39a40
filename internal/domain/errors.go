// Package domain provides the data model and canonical error types shared by
// the search and LLM clients.
package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrorType represents the category of a failure.
type ErrorType string

const (
	// ErrorTypeAuth indicates a missing credential. Never retried.
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeConfig indicates an unrecognized or malformed setting.
	ErrorTypeConfig ErrorType = "config"

	// ErrorTypeTransport indicates the LLM HTTP call failed.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeSearch indicates the search call failed after retries or on a
	// non-retryable status.
	ErrorTypeSearch ErrorType = "search"

	// ErrorTypeFallbackExhausted indicates both native endpoints failed.
	ErrorTypeFallbackExhausted ErrorType = "fallback_exhausted"
)

// Error is the canonical error surfaced by the clients.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the upstream HTTP status, when one was observed
	StatusCode int `json:"status_code,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error of the given type.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WithStatusCode records the upstream HTTP status.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithCause attaches the underlying error. A StatusError cause also fills in
// the status code.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	var se *StatusError
	if e.StatusCode == 0 && errors.As(err, &se) {
		e.StatusCode = se.StatusCode
	}
	return e
}

// ErrAuth creates an auth error.
func ErrAuth(message string) *Error {
	return NewError(ErrorTypeAuth, message)
}

// ErrConfig creates a config error.
func ErrConfig(message string) *Error {
	return NewError(ErrorTypeConfig, message)
}

// ErrTransport creates a transport error.
func ErrTransport(message string) *Error {
	return NewError(ErrorTypeTransport, message)
}

// ErrSearch creates a search error.
func ErrSearch(message string) *Error {
	return NewError(ErrorTypeSearch, message)
}

// ErrFallbackExhausted creates an error for a failed native fallback.
func ErrFallbackExhausted(message string) *Error {
	return NewError(ErrorTypeFallbackExhausted, message)
}

// IsType reports whether err is (or wraps) an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// StatusError is returned by the wire clients for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

// maxErrorBody bounds the response body kept on a StatusError.
const maxErrorBody = 300

// NewStatusError builds a StatusError, truncating the body to maxErrorBody
// runes.
func NewStatusError(code int, url string, body []byte) *StatusError {
	b := string(body)
	if utf8.RuneCountInString(b) > maxErrorBody {
		b = string([]rune(b)[:maxErrorBody])
	}
	return &StatusError{StatusCode: code, URL: url, Body: b}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// HTTPStatus extracts the status code from a StatusError anywhere in err's
// chain. It returns 0 when there is none.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
