package common

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched with errors.Is by lookups that found nothing
var ErrNotFound = errors.New("not found")

// WrapError prefixes err with message, keeping it matchable. A nil err stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ValidationError rejects a single input field
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NetworkError is a request that never produced an HTTP response
type NetworkError struct {
	URL string
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.URL)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func NewNetworkError(url, op string, err error) *NetworkError {
	return &NetworkError{URL: url, Op: op, Err: err}
}

// HTTPError is a response with an unexpected status
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("status %d", e.StatusCode)
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func NewHTTPErrorWithURL(statusCode int, message, url string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message, URL: url}
}
