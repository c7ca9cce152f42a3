package server

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/trace"
)

// IAPIError is an error rendered as the standard error envelope.
type IAPIError interface {
	error
	ErrorCode() string
	Message() string
	HTTPStatus() int
	Details() map[string]any
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error ErrorBody      `json:"error"`
	Meta  map[string]any `json:"meta"`
}

// ErrorBody describes what went wrong.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// BaseAPIError provides a basic implementation of IAPIError.
type BaseAPIError struct {
	code       string
	message    string
	httpStatus int
	details    map[string]any
}

// NewBaseAPIError creates a new base API error.
func NewBaseAPIError(code, message string, httpStatus int) *BaseAPIError {
	return &BaseAPIError{
		code:       code,
		message:    message,
		httpStatus: httpStatus,
		details:    make(map[string]any),
	}
}

// ErrorCode returns the error code.
func (e *BaseAPIError) ErrorCode() string { return e.code }

// Message returns the error message.
func (e *BaseAPIError) Message() string { return e.message }

// HTTPStatus returns the HTTP status code.
func (e *BaseAPIError) HTTPStatus() int { return e.httpStatus }

// Details returns a copy of the error details.
func (e *BaseAPIError) Details() map[string]any {
	if len(e.details) == 0 {
		return nil
	}
	return maps.Clone(e.details)
}

// WithDetails adds details to the error.
func (e *BaseAPIError) WithDetails(key string, value any) *BaseAPIError {
	e.details[key] = value
	return e
}

func (e *BaseAPIError) Error() string {
	if e == nil {
		return ""
	}
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}

// NewNotFoundError reports a missing resource, e.g. an unknown service ID.
func NewNotFoundError(resource string) *BaseAPIError {
	return NewBaseAPIError("NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// NewBadRequestError reports a request that could not be bound.
func NewBadRequestError(message string) *BaseAPIError {
	return NewBaseAPIError("BAD_REQUEST", message, http.StatusBadRequest)
}

// NewBadGatewayError reports a downstream service that failed to answer.
func NewBadGatewayError(message string) *BaseAPIError {
	if message == "" {
		message = "Downstream service unavailable"
	}
	return NewBaseAPIError("BAD_GATEWAY", message, http.StatusBadGateway)
}

// NewServiceUnavailableError reports a service that is not ready.
func NewServiceUnavailableError(message string) *BaseAPIError {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return NewBaseAPIError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable)
}

// NewTooManyRequestsError reports a rate limited client.
func NewTooManyRequestsError(message string) *BaseAPIError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return NewBaseAPIError("TOO_MANY_REQUESTS", message, http.StatusTooManyRequests)
}

// NewInternalServerError reports an unexpected failure.
func NewInternalServerError(message string) *BaseAPIError {
	if message == "" {
		message = "An internal error occurred"
	}
	return NewBaseAPIError("INTERNAL_ERROR", message, http.StatusInternalServerError)
}

// handleError renders err as an ErrorResponse. Details are only exposed in
// development, and 5xx messages are replaced outside debug mode.
func handleError(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err)
	status := apiErr.HTTPStatus()
	msg := apiErr.Message()

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Request failed")
		if !cfg.App.Debug && status == http.StatusInternalServerError {
			msg = "An error occurred while processing your request"
		}
	}

	body := ErrorResponse{
		Error: ErrorBody{Code: apiErr.ErrorCode(), Message: msg},
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": trace.EnsureRequestID(c.Request().Context()),
		},
	}
	if cfg.App.Env == config.EnvDevelopment {
		body.Error.Details = apiErr.Details()
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		log.Warn().Err(writeErr).Msg("Failed to write error response")
	}
}

func toAPIError(err error) IAPIError {
	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewBadRequestError(ve.Error()).WithDetails("errors", slices.Clone(ve.Errors))
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		}
		return NewBaseAPIError(statusToErrorCode(he.Code), msg, he.Code)
	}

	return NewInternalServerError(err.Error())
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

var _ IAPIError = (*BaseAPIError)(nil)
