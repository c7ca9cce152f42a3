package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/logger"
)

const testUsersPath = "/users/:id"

func newTestConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, yaml string) *Server {
	t.Helper()
	return New(newTestConfig(t, yaml), logger.Nop())
}

func serve(s *Server, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

type userRequest struct {
	ID      string `param:"id" validate:"required"`
	Verbose bool   `query:"verbose"`
	Tenant  string `header:"X-Tenant"`
	Limit   int    `query:"limit" validate:"omitempty,max=100"`
}

func getUser(c echo.Context, req userRequest) error {
	return c.JSON(http.StatusOK, req)
}

type createUserRequest struct {
	Name  string `form:"name" validate:"required"`
	Email string `form:"email" validate:"omitempty,email"`
}

func createUser(c echo.Context, req createUserRequest) error {
	return c.JSON(http.StatusCreated, req)
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, "")

	rec := serve(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestReadinessCheckFailure(t *testing.T) {
	s := newTestServer(t, "")
	s.SetReadinessCheck(func(context.Context) error {
		return errors.New("document not built")
	})

	rec := serve(s, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, "document not built", resp.Error.Message)
}

func TestBasePathAppliesToProbesAndModules(t *testing.T) {
	s := newTestServer(t, "server:\n  path:\n    base: api/\n")
	assert.Equal(t, "/api", s.BasePath())

	rec := serve(s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	group := s.ModuleGroup()
	assert.Equal(t, "/api/users", group.FullPath("/users"))
	assert.Equal(t, "/api/users", group.FullPath("/api/users"))
	assert.Equal(t, "/api", group.FullPath("/"))
	assert.Equal(t, "/api/v1/items", group.Group("v1").FullPath("items"))
}

func TestRouteBindsAndRegisters(t *testing.T) {
	s := newTestServer(t, "")
	reg := NewRouteRegistry()

	GET(reg, s.ModuleGroup(), testUsersPath, getUser,
		WithModule("users"), WithTags("users"), WithSummary("Get a user"))

	routes := reg.Routes()
	require.Len(t, routes, 1)
	d := routes[0]
	assert.Equal(t, http.MethodGet, d.Method)
	assert.Equal(t, testUsersPath, d.Path)
	assert.Equal(t, "getUser", d.HandlerName)
	assert.Equal(t, "getUser", d.OperationID)
	assert.Equal(t, "users", d.Module)
	assert.Equal(t, []string{"users"}, d.Tags)
	assert.Equal(t, "Get a user", d.Summary)
	assert.Contains(t, d.Package, "server")
	assert.Equal(t, "userRequest", d.RequestType.Name())

	rec := serve(s, http.MethodGet, "/users/42?verbose=true&limit=5", "", map[string]string{"X-Tenant": "acme"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got userRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, userRequest{ID: "42", Verbose: true, Tenant: "acme", Limit: 5}, got)
}

func TestRouteValidationFailure(t *testing.T) {
	s := newTestServer(t, "")
	GET(nil, s.ModuleGroup(), testUsersPath, getUser)

	rec := serve(s, http.MethodGet, "/users/42?limit=500", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	assert.Equal(t, "validation failed: limit must be at most 100", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details["errors"])
	assert.NotEmpty(t, resp.Meta["requestId"])
}

func TestRouteBodylessRequestOfUnknownLength(t *testing.T) {
	s := newTestServer(t, "")
	GET(nil, s.ModuleGroup(), testUsersPath, getUser)

	tests := []struct {
		name    string
		prepare func(*http.Request)
	}{
		{name: "no body", prepare: func(*http.Request) {}},
		{name: "unknown length", prepare: func(r *http.Request) { r.ContentLength = -1 }},
		{name: "chunked", prepare: func(r *http.Request) {
			r.ContentLength = -1
			r.TransferEncoding = []string{"chunked"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/7?limit=3", http.NoBody)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			s.Echo().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got userRequest
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, userRequest{ID: "7", Limit: 3}, got)
		})
	}
}

func TestRouteBindFailure(t *testing.T) {
	s := newTestServer(t, "")
	GET(nil, s.ModuleGroup(), testUsersPath, getUser)

	rec := serve(s, http.MethodGet, "/users/42?limit=many", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Error.Code)
}

func TestPostFormRoute(t *testing.T) {
	s := newTestServer(t, "")
	reg := NewRouteRegistry()
	POST(reg, s.ModuleGroup(), "/users", createUser,
		WithConsumes(echo.MIMEApplicationForm), WithOperationID("registerUser"))

	d := reg.Routes()[0]
	assert.Equal(t, []string{echo.MIMEApplicationForm}, d.Consumes)
	assert.Equal(t, "registerUser", d.OperationID)

	rec := serve(s, http.MethodPost, "/users", "name=Ada&email=ada%40example.com",
		map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"Name":"Ada","Email":"ada@example.com"}`, rec.Body.String())

	rec = serve(s, http.MethodPost, "/users", "email=ada%40example.com",
		map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed: name is required", decodeError(t, rec).Error.Message)
}

func TestNonStructRequestIsNotBound(t *testing.T) {
	s := newTestServer(t, "")
	reg := NewRouteRegistry()
	GET(reg, s.ModuleGroup(), "/ping", func(c echo.Context, _ any) error {
		return c.String(http.StatusOK, "pong")
	}, WithHidden(), WithPublic())

	d := reg.Routes()[0]
	assert.True(t, d.Hidden)
	assert.True(t, d.Public)

	rec := serve(s, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		err     error
		status  int
		code    string
		message string
		details bool
	}{
		{
			name:    "api error",
			err:     NewNotFoundError("service users"),
			status:  http.StatusNotFound,
			code:    "NOT_FOUND",
			message: "service users not found",
		},
		{
			name:    "echo http error",
			err:     echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"),
			status:  http.StatusMethodNotAllowed,
			code:    "METHOD_NOT_ALLOWED",
			message: "nope",
		},
		{
			name:    "untyped error hidden outside debug",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_ERROR",
			message: "An error occurred while processing your request",
		},
		{
			name:    "untyped error shown in debug",
			yaml:    "app:\n  debug: true\n",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_ERROR",
			message: "boom",
		},
		{
			name:    "details only in development",
			yaml:    "app:\n  env: production\n",
			err:     NewBadGatewayError("").WithDetails("service", "users"),
			status:  http.StatusBadGateway,
			code:    "BAD_GATEWAY",
			message: "Downstream service unavailable",
		},
		{
			name:    "details in development",
			err:     NewBadGatewayError("down").WithDetails("service", "users"),
			status:  http.StatusBadGateway,
			code:    "BAD_GATEWAY",
			message: "down",
			details: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.yaml)
			s.Echo().GET("/fail", func(echo.Context) error { return tt.err })

			rec := serve(s, http.MethodGet, "/fail", "", nil)
			require.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			if tt.details {
				assert.Equal(t, "users", resp.Error.Details["service"])
			} else {
				assert.Empty(t, resp.Error.Details)
			}
		})
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t, "")
	rec := serve(s, http.MethodGet, "/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, "")
	rec := serve(s, http.MethodGet, "/health", "", map[string]string{echo.HeaderXRequestID: "req-123"})
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(s, http.MethodGet, "/health", "", nil)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestPanicRecovered(t *testing.T) {
	s := newTestServer(t, "")
	s.Echo().GET("/panic", func(echo.Context) error { panic("kaboom") })

	rec := serve(s, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Error.Code)
}

func TestTracingSkipsProbes(t *testing.T) {
	originalTP := otel.GetTracerProvider()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalTP)
	})

	s := newTestServer(t, "")
	s.Echo().GET("/docs", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	serve(s, http.MethodGet, "/health", "", nil)
	assert.Empty(t, exporter.GetSpans())

	serve(s, http.MethodGet, "/docs", "", nil)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /docs", spans[0].Name)
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	cfg := newTestConfig(t, "")
	e.HTTPErrorHandler = func(err error, c echo.Context) { handleError(err, c, cfg, logger.Nop()) }
	e.Use(RateLimit(config.RateLimitConfig{Rate: 1, Burst: 1}))
	e.GET("/limited", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/limited", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}

func TestRateLimitDisabled(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{})
	called := false
	h := mw(func(echo.Context) error {
		called = true
		return nil
	})
	require.NoError(t, h(nil))
	assert.True(t, called)
}

func TestRouteRegistryAssignModule(t *testing.T) {
	s := newTestServer(t, "")
	reg := NewRouteRegistry()
	GET(reg, s.ModuleGroup(), "/a", getUser)
	mark := reg.Count()
	GET(reg, s.ModuleGroup(), "/b", getUser)
	GET(reg, s.ModuleGroup(), "/c", getUser, WithModule("admin"), WithTags("ops"))

	reg.AssignModule(mark, "users", "users")

	routes := reg.Routes()
	require.Len(t, routes, 3)
	assert.Empty(t, routes[0].Module)
	assert.Empty(t, routes[0].Tags)
	assert.Equal(t, "users", routes[1].Module)
	assert.Equal(t, []string{"users"}, routes[1].Tags)
	assert.Equal(t, "admin", routes[2].Module)
	assert.Equal(t, []string{"ops"}, routes[2].Tags)

	assert.Len(t, reg.ByModule("users"), 1)
	reg.Clear()
	assert.Zero(t, reg.Count())
}
