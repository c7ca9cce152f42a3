package http

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/trace"
)

const (
	// DefaultTimeout is the default per-attempt timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries after the first attempt.
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the base delay between retries.
	DefaultRetryDelay = 200 * time.Millisecond

	maxBackoff = 30 * time.Second
)

type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     Config
}

// NewClient creates a client with the default configuration.
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder configures a Client.
type Builder struct {
	config Config
	logger logger.Logger
}

// NewBuilder creates a new client builder.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		config: Config{
			Timeout:        DefaultTimeout,
			MaxRetries:     DefaultMaxRetries,
			RetryDelay:     DefaultRetryDelay,
			DefaultHeaders: make(map[string]string),
		},
		logger: log,
	}
}

// WithTimeout sets the per-attempt timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets how many times a failed request is retried and the base delay.
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = max(0, maxRetries)
	b.config.RetryDelay = retryDelay
	return b
}

// WithDefaultHeader adds a header sent with every request.
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor.
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor.
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTransport replaces the HTTP transport, e.g. with an instrumented one.
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// Build creates the client.
func (b *Builder) Build() Client {
	return &client{
		httpClient: &nethttp.Client{
			Timeout:   b.config.Timeout,
			Transport: b.config.Transport,
		},
		logger: b.logger,
		config: b.config,
	}
}

// Get performs a GET request.
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Do performs req, retrying according to the configuration. Non-2xx responses
// are returned together with an HTTP error.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return nil, NewValidationError("URL cannot be empty", "url")
	}

	start := time.Now()
	for attempt := 0; ; attempt++ {
		resp, retry, err := c.attempt(ctx, method, req, start, attempt)
		if !retry || attempt >= c.config.MaxRetries {
			c.logResult(method, req.URL, resp, err, attempt)
			return resp, err
		}

		c.logger.Debug().
			Str("method", method).
			Str("url", req.URL).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Retrying outbound request")

		if waitErr := c.wait(ctx, attempt); waitErr != nil {
			return nil, NewNetworkError("request cancelled while waiting to retry", waitErr)
		}
	}
}

// attempt sends req once. retry reports whether the failure is worth retrying.
func (c *client) attempt(ctx context.Context, method string, req *Request, start time.Time, attempt int) (resp *Response, retry bool, err error) {
	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		return nil, false, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, NewNetworkError("request cancelled", ctx.Err())
		}
		if isTimeout(err) {
			return nil, true, NewTimeoutError("request timeout", c.config.Timeout)
		}
		return nil, true, NewNetworkError("request execution failed", err)
	}

	resp, err = c.readResponse(ctx, httpReq, httpResp)
	if err != nil {
		return nil, IsErrorType(err, NetworkError), err
	}
	resp.Stats = Stats{ElapsedTime: time.Since(start), Attempts: attempt + 1}

	if IsSuccessStatus(resp.StatusCode) {
		return resp, false, nil
	}
	httpErr := NewHTTPError(fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode), resp.StatusCode, resp.Body)
	return resp, resp.StatusCode >= nethttp.StatusInternalServerError, httpErr
}

func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader = nethttp.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid request: %v", err), "url")
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	trace.Inject(ctx, httpReq.Header)

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return httpReq, nil
}

func (c *client) readResponse(ctx context.Context, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, httpReq, httpResp); err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

// wait sleeps for the backoff delay of attempt or until ctx is done.
func (c *client) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.backoffDelay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay is RetryDelay * 2^attempt, capped, with full jitter.
func (c *client) backoffDelay(attempt int) time.Duration {
	base := c.config.RetryDelay
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	d := base << min(attempt, 20)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(d)))
	if err != nil {
		return d
	}
	return time.Duration(n.Int64())
}

func (c *client) logResult(method, url string, resp *Response, err error, attempt int) {
	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event = event.
		Str("direction", "outbound").
		Str("method", method).
		Str("url", url).
		Int("attempts", attempt+1)
	if resp != nil {
		event = event.
			Int("status", resp.StatusCode).
			Dur("elapsed", resp.Stats.ElapsedTime)
	}
	event.Msg("Outbound request completed")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
