package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/trace"
)

const testDocsPath = "/v3/api-docs"

type roundTripperFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripperFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

func TestGetSuccess(t *testing.T) {
	var seen nethttp.Header
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		seen = r.Header.Clone()
		assert.Equal(t, testDocsPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"openapi":"3.0.1"}`))
	}))
	defer srv.Close()

	client := NewBuilder(logger.Nop()).
		WithDefaultHeader("Accept", "application/json").
		WithDefaultHeader("X-Caller", "default").
		Build()

	ctx := trace.WithRequestID(context.Background(), "req-9")
	resp, err := client.Get(ctx, &Request{
		URL:     srv.URL + testDocsPath,
		Headers: map[string]string{"X-Caller": "explicit"},
	})
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"openapi":"3.0.1"}`, string(resp.Body))
	assert.Equal(t, 1, resp.Stats.Attempts)

	assert.Equal(t, "application/json", seen.Get("Accept"))
	assert.Equal(t, "explicit", seen.Get("X-Caller"))
	assert.Equal(t, "req-9", seen.Get(trace.HeaderXRequestID))
}

func TestRequestValidation(t *testing.T) {
	client := NewClient(logger.Nop())

	_, err := client.Get(context.Background(), nil)
	assert.True(t, IsErrorType(err, ValidationError))

	_, err = client.Get(context.Background(), &Request{})
	assert.True(t, IsErrorType(err, ValidationError))
	assert.EqualError(t, err, "validation error: URL cannot be empty (field: url)")

	_, err = client.Get(context.Background(), &Request{URL: "://bad"})
	assert.True(t, IsErrorType(err, ValidationError))
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(nethttp.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewBuilder(logger.Nop()).WithRetries(2, time.Millisecond).Build()
	resp, err := client.Get(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, 3, resp.Stats.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewBuilder(logger.Nop()).WithRetries(1, time.Millisecond).Build()
	resp, err := client.Get(context.Background(), &Request{URL: srv.URL})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.True(t, IsErrorType(err, HTTPError))
	assert.Equal(t, nethttp.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusNotFound)
	}))
	defer srv.Close()

	client := NewBuilder(logger.Nop()).WithRetries(3, time.Millisecond).Build()
	_, err := client.Get(context.Background(), &Request{URL: srv.URL})
	assert.Equal(t, nethttp.StatusNotFound, StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNetworkErrorRetried(t *testing.T) {
	var calls atomic.Int32
	client := NewBuilder(logger.Nop()).
		WithRetries(2, time.Millisecond).
		WithTransport(roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		})).
		Build()

	_, err := client.Get(context.Background(), &Request{URL: "http://users.internal/v3/api-docs"})
	assert.True(t, IsErrorType(err, NetworkError))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	client := NewBuilder(logger.Nop()).
		WithRetries(5, time.Hour).
		WithTransport(roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			calls.Add(1)
			cancel()
			return nil, errors.New("connection reset")
		})).
		Build()

	_, err := client.Get(ctx, &Request{URL: "http://users.internal"})
	assert.True(t, IsErrorType(err, NetworkError))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInterceptors(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("X-Seen", r.Header.Get("X-Intercepted"))
	}))
	defer srv.Close()

	var seen string
	client := NewBuilder(logger.Nop()).
		WithRequestInterceptor(func(_ context.Context, req *nethttp.Request) error {
			req.Header.Set("X-Intercepted", "yes")
			return nil
		}).
		WithResponseInterceptor(func(_ context.Context, _ *nethttp.Request, resp *nethttp.Response) error {
			seen = resp.Header.Get("X-Seen")
			return nil
		}).
		Build()

	_, err := client.Get(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "yes", seen)
}

func TestInterceptorFailure(t *testing.T) {
	boom := errors.New("denied")
	client := NewBuilder(logger.Nop()).
		WithRetries(3, time.Millisecond).
		WithRequestInterceptor(func(context.Context, *nethttp.Request) error { return boom }).
		Build()

	_, err := client.Get(context.Background(), &Request{URL: "http://users.internal"})
	assert.True(t, IsErrorType(err, InterceptorError))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage: request")
}

func TestBackoffDelayBounds(t *testing.T) {
	c := &client{config: Config{RetryDelay: 10 * time.Millisecond}}
	for attempt := range 5 {
		d := c.backoffDelay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond<<attempt)
	}
	assert.LessOrEqual(t, c.backoffDelay(64), maxBackoff)
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewNetworkError("dial failed", errors.New("refused")), "network error: dial failed: refused"},
		{NewTimeoutError("request timeout", time.Second), "timeout error: request timeout (timeout: 1s)"},
		{NewHTTPError("bad", 502, nil), "http error: bad (status: 502)"},
		{NewValidationError("missing", ""), "validation error: missing"},
	}
	for _, tt := range tests {
		assert.EqualError(t, tt.err, tt.want)
	}
	assert.Zero(t, StatusCode(errors.New("plain")))
	assert.False(t, IsErrorType(nil, NetworkError))
}
