package observability

import "errors"

// ErrInvalidProtocol is returned when the export protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")

// ErrMissingEndpoint is returned when an enabled signal has no endpoint.
var ErrMissingEndpoint = errors.New("observability: endpoint is required for an enabled signal")
