package http

import (
	"errors"
	"fmt"
	"time"
)

// ClientError is returned by every Client failure.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType is the category of a client error.
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
)

// clientError carries every error category; unused fields stay zero.
type clientError struct {
	kind       ErrorType
	message    string
	wrapped    error
	statusCode int
	body       []byte
	timeout    time.Duration
	detail     string // field for validation errors, stage for interceptor errors
}

func (e *clientError) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.kind, e.message)
	switch e.kind {
	case HTTPError:
		msg += fmt.Sprintf(" (status: %d)", e.statusCode)
	case TimeoutError:
		msg += fmt.Sprintf(" (timeout: %v)", e.timeout)
	case ValidationError:
		if e.detail != "" {
			msg += " (field: " + e.detail + ")"
		}
	case InterceptorError:
		msg += " (stage: " + e.detail + ")"
	}
	if e.wrapped != nil {
		msg += ": " + e.wrapped.Error()
	}
	return msg
}

func (e *clientError) Type() ErrorType { return e.kind }

func (e *clientError) Unwrap() error { return e.wrapped }

// StatusCode returns the response status of an HTTP error.
func (e *clientError) StatusCode() int { return e.statusCode }

// Body returns the response body of an HTTP error.
func (e *clientError) Body() []byte { return e.body }

// NewNetworkError creates a transport level error.
func NewNetworkError(message string, wrapped error) ClientError {
	return &clientError{kind: NetworkError, message: message, wrapped: wrapped}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &clientError{kind: TimeoutError, message: message, timeout: timeout}
}

// NewHTTPError creates an error for a non-2xx response.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &clientError{kind: HTTPError, message: message, statusCode: statusCode, body: body}
}

// NewValidationError creates an error for a request that cannot be sent.
func NewValidationError(message, field string) ClientError {
	return &clientError{kind: ValidationError, message: message, detail: field}
}

// NewInterceptorError creates an error for a failing interceptor.
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &clientError{kind: InterceptorError, message: message, detail: stage, wrapped: wrapped}
}

// IsErrorType reports whether err is a ClientError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var clientErr ClientError
	return errors.As(err, &clientErr) && clientErr.Type() == errorType
}

// StatusCode returns the response status carried by an HTTP error, or 0.
func StatusCode(err error) int {
	var ce *clientError
	if errors.As(err, &ce) && ce.kind == HTTPError {
		return ce.statusCode
	}
	return 0
}

// IsSuccessStatus reports whether statusCode is 2xx.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
