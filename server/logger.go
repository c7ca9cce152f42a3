package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/trace"
)

// RequestLogger logs one summary line per request. Severity follows the final
// status: 5xx at error, 4xx at warn, everything else at info. Requests matched
// by skip are not logged.
func RequestLogger(log logger.Logger, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}

			event := eventForStatus(log, status).
				Str("method", req.Method).
				Str("route", route).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			if traceID := trace.SpanTraceID(req.Context()); traceID != "" {
				event = event.Str("trace_id", traceID)
			}
			if err != nil && !isClientError(err) {
				event = event.Err(err)
			}
			event.Msg(req.Method + " " + route)

			return nil
		}
	}
}

func eventForStatus(log logger.Logger, status int) logger.LogEvent {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}

func isClientError(err error) bool {
	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus() < http.StatusInternalServerError
	}
	var he *echo.HTTPError
	return errors.As(err, &he) && he.Code < http.StatusInternalServerError
}
