package http

import (
	"context"
	nethttp "net/http"
	"time"
)

// Client performs outbound HTTP requests.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request is an outbound request.
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats describes how a response was obtained.
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// RequestInterceptor is called before each attempt is sent.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called for each received response before its body is read.
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the client configuration.
type Config struct {
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
	Transport            nethttp.RoundTripper
}
