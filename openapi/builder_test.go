package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/paging"
	"github.com/gaborage/go-bricks-apidoc/server"
)

const (
	testPackage   = "example.com/shop/users"
	usersPath     = "/orgs/:org/users"
	usersTemplate = "/orgs/{org}/users"
)

type address struct {
	City string `query:"city"`
	Zip  string `query:"zip" validate:"len=5"`
}

type listUsersRequest struct {
	Org     string   `param:"org" doc:"Organization slug" example:"acme"`
	Tenant  string   `header:"X-Tenant" validate:"required"`
	Name    string   `query:"name" validate:"min=2,max=50" example:"Ada"`
	Limit   int      `query:"limit" validate:"min=1,max=100" default:"10"`
	Status  string   `query:"status" validate:"omitempty,oneof=active blocked"`
	Address address  `query:"address"`
	Tags    []string `query:"tags"`
	Secret  string   `query:"secret" doc:"-"`
	paging.PageRequest
}

type createUserRequest struct {
	Name    string  `form:"name" validate:"required"`
	Age     int     `form:"age"`
	Address address `form:"address"`
}

type chain struct {
	Next *link `query:"next"`
}

type link struct {
	Value string `query:"value"`
}

func newConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func route(method, path string, req any, opts ...server.RouteOption) server.RouteDescriptor {
	d := server.RouteDescriptor{
		Method:      method,
		Path:        path,
		OperationID: "op" + method,
		Package:     testPackage,
		RequestType: reflect.TypeOf(req),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func build(t *testing.T, cfg *config.Config, routes ...server.RouteDescriptor) *Document {
	t.Helper()
	doc, err := NewBuilder(cfg, logger.Nop()).Build(context.Background(), routes)
	require.NoError(t, err)
	return doc
}

func paramNames(params []*Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		if p.Ref != "" {
			out = append(out, p.Ref)
			continue
		}
		out = append(out, p.In+":"+p.Name)
	}
	return out
}

func param(t *testing.T, params []*Parameter, name string) *Parameter {
	t.Helper()
	for _, p := range params {
		if p.Name == name {
			return p
		}
	}
	require.Failf(t, "parameter not found", "%q in %v", name, paramNames(params))
	return nil
}

func TestBuildDocumentsQueryOperation(t *testing.T) {
	doc := build(t, newConfig(t, ""), route(http.MethodGet, usersPath, listUsersRequest{},
		server.WithTags("users"), server.WithSummary("List users")))

	assert.Equal(t, Version, doc.OpenAPI)
	require.Contains(t, doc.Paths, usersTemplate)
	op := doc.Paths[usersTemplate].Get
	require.NotNil(t, op)

	assert.Equal(t, "opGET", op.OperationID)
	assert.Equal(t, "List users", op.Summary)
	assert.Equal(t, []string{"users"}, op.Tags)
	assert.Equal(t, []Tag{{Name: "users"}}, doc.Tags)
	assert.Equal(t, "OK", op.Responses["200"].Description)
	assert.Nil(t, op.RequestBody)
	assert.Empty(t, op.Security)

	assert.Equal(t, []string{
		"path:org",
		"header:X-Tenant",
		"query:page",
		"query:size",
		"query:sort",
		"query:address.city",
		"query:address.zip",
		"query:tags",
		"query:name",
		"query:limit",
		"query:status",
	}, paramNames(op.Parameters))

	org := param(t, op.Parameters, "org")
	assert.True(t, org.Required)
	assert.Equal(t, "Organization slug", org.Description)
	assert.Equal(t, "acme", org.Example)

	assert.True(t, param(t, op.Parameters, "X-Tenant").Required)

	name := param(t, op.Parameters, "name").Schema
	assert.Equal(t, 2, *name.MinLength)
	assert.Equal(t, 50, *name.MaxLength)
	assert.Equal(t, "Ada", param(t, op.Parameters, "name").Example)

	limit := param(t, op.Parameters, "limit").Schema
	assert.Equal(t, "integer", limit.Type)
	assert.Equal(t, "int64", limit.Format)
	assert.Equal(t, int64(10), limit.Default)
	assert.InDelta(t, 1, *limit.Minimum, 0)
	assert.InDelta(t, 100, *limit.Maximum, 0)

	assert.Equal(t, []string{"active", "blocked"}, param(t, op.Parameters, "status").Schema.Enum)

	zip := param(t, op.Parameters, "address.zip").Schema
	assert.Equal(t, 5, *zip.MinLength)
	assert.Equal(t, 5, *zip.MaxLength)

	tags := param(t, op.Parameters, "tags").Schema
	assert.Equal(t, "array", tags.Type)
	assert.Equal(t, "string", tags.Items.Type)

	size := param(t, op.Parameters, "size").Schema
	assert.Equal(t, paging.DefaultLimit, size.Default)
	assert.InDelta(t, float64(paging.MaxLimit), *size.Maximum, 0)
}

func TestBuildFormOperations(t *testing.T) {
	tests := []struct {
		name      string
		consumes  string
		mediaType string
	}{
		{name: "url encoded", consumes: echo.MIMEApplicationForm, mediaType: echo.MIMEApplicationForm},
		{name: "multipart", consumes: echo.MIMEMultipartForm, mediaType: echo.MIMEMultipartForm},
		{name: "url encoded with charset", consumes: "application/x-www-form-urlencoded; charset=UTF-8", mediaType: echo.MIMEApplicationForm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := build(t, newConfig(t, ""),
				route(http.MethodPost, "/users", createUserRequest{}, server.WithConsumes(tt.consumes)))

			op := doc.Paths["/users"].Post
			require.NotNil(t, op)
			assert.Empty(t, op.Parameters)
			require.NotNil(t, op.RequestBody)
			assert.True(t, op.RequestBody.Required)

			require.Contains(t, op.RequestBody.Content, tt.mediaType)
			schema := op.RequestBody.Content[tt.mediaType].Schema
			assert.Equal(t, "object", schema.Type)
			assert.Equal(t, []string{"name"}, schema.Required)
			assert.Len(t, schema.Properties, 4)
			assert.Equal(t, "integer", schema.Properties["age"].Type)
			assert.Contains(t, schema.Properties, "address.city")
			assert.Contains(t, schema.Properties, "address.zip")
		})
	}
}

func TestBuildPostWithoutFormUsesQuery(t *testing.T) {
	doc := build(t, newConfig(t, ""),
		route(http.MethodPost, "/users", createUserRequest{}, server.WithConsumes(echo.MIMEApplicationJSON)))

	op := doc.Paths["/users"].Post
	assert.Nil(t, op.RequestBody)
	assert.Equal(t, []string{"query:address.city", "query:address.zip", "query:name", "query:age"}, paramNames(op.Parameters))
}

func TestBuildSelectsRoutes(t *testing.T) {
	cfg := newConfig(t, "docs:\n  basepackage: example.com/shop/\n")
	other := route(http.MethodGet, "/other", struct{}{})
	other.Package = "example.com/shopping"
	nested := route(http.MethodGet, "/nested", struct{}{})
	nested.Package = testPackage + "/internal"

	doc := build(t, cfg,
		route(http.MethodGet, "/visible", struct{}{}),
		route(http.MethodGet, "/hidden", struct{}{}, server.WithHidden()),
		other,
		nested,
	)

	assert.Contains(t, doc.Paths, "/visible")
	assert.Contains(t, doc.Paths, "/nested")
	assert.NotContains(t, doc.Paths, "/hidden")
	assert.NotContains(t, doc.Paths, "/other")
}

func TestBuildOAuthPasswordFlow(t *testing.T) {
	cfg := newConfig(t, `
docs:
  oauth:
    enabled: true
    tokenurl: https://auth.example.com/token
`)
	doc := build(t, cfg,
		route(http.MethodGet, "/secured", struct{}{}),
		route(http.MethodGet, "/public", struct{}{}, server.WithPublic()),
	)

	require.NotNil(t, doc.Components)
	scheme := doc.Components.SecuritySchemes[OAuthSchemeName]
	require.NotNil(t, scheme)
	assert.Equal(t, "oauth2", scheme.Type)
	require.NotNil(t, scheme.Flows.Password)
	assert.Nil(t, scheme.Flows.AuthorizationCode)
	assert.Equal(t, "https://auth.example.com/token", scheme.Flows.Password.TokenURL)
	assert.Equal(t, map[string]string{"all": "all"}, scheme.Flows.Password.Scopes)

	assert.Equal(t, []SecurityRequirement{{OAuthSchemeName: {"all"}}}, doc.Paths["/secured"].Get.Security)
	assert.Empty(t, doc.Paths["/public"].Get.Security)
}

func TestBuildOAuthAuthorizationCodeWithSelector(t *testing.T) {
	cfg := newConfig(t, `
docs:
  oauth:
    enabled: true
    granttype: authorization_code
    tokenurl: https://auth.example.com/token
    authorizationurl: https://auth.example.com/authorize
    scopes: [read, write]
`)
	onlyWrites := func(r server.RouteDescriptor) bool { return r.Method != http.MethodGet }

	doc, err := NewBuilder(cfg, logger.Nop(), WithOperationSelector(onlyWrites)).Build(context.Background(),
		[]server.RouteDescriptor{
			route(http.MethodGet, "/items", struct{}{}),
			route(http.MethodDelete, "/items", struct{}{}),
		})
	require.NoError(t, err)

	flow := doc.Components.SecuritySchemes[OAuthSchemeName].Flows.AuthorizationCode
	require.NotNil(t, flow)
	assert.Equal(t, "https://auth.example.com/authorize", flow.AuthorizationURL)
	assert.Equal(t, map[string]string{"read": "read", "write": "write"}, flow.Scopes)

	item := doc.Paths["/items"]
	assert.Empty(t, item.Get.Security)
	assert.Equal(t, []SecurityRequirement{{OAuthSchemeName: {"read", "write"}}}, item.Delete.Security)
}

func TestBuildRefererComponent(t *testing.T) {
	cfg := newConfig(t, "docs:\n  referer: https://portal.example.com\n  referername: X-Portal\n")
	doc := build(t, cfg, route(http.MethodGet, "/items", struct{}{}))

	require.NotNil(t, doc.Components)
	referer := doc.Components.Parameters["X-Portal"]
	require.NotNil(t, referer)
	assert.Equal(t, "header", referer.In)
	assert.True(t, referer.Required)
	assert.Equal(t, "https://portal.example.com", referer.Schema.Default)

	assert.Equal(t, []string{"#/components/parameters/X-Portal"}, paramNames(doc.Paths["/items"].Get.Parameters))
}

func TestBuildWithoutComponents(t *testing.T) {
	doc := build(t, newConfig(t, ""), route(http.MethodGet, "/items", struct{}{}))
	assert.Nil(t, doc.Components)
	assert.Nil(t, doc.ExternalDocs)
}

func TestBuildInfo(t *testing.T) {
	cfg := newConfig(t, `
app:
  name: shop
  version: v2.1.0
docs:
  info:
    title: ""
    version: ""
    description: Shop API
    contact:
      email: api@example.com
    license:
      name: Apache-2.0
    extensions:
      x-audience: internal
      audience: dropped
  externaldocs:
    description: Guides
    url: https://docs.example.com
`)
	doc := build(t, cfg)

	assert.Equal(t, "shop", doc.Info.Title)
	assert.Equal(t, "v2.1.0", doc.Info.Version)
	assert.Equal(t, "Shop API", doc.Info.Description)
	assert.Equal(t, &Contact{Email: "api@example.com"}, doc.Info.Contact)
	assert.Equal(t, "Apache-2.0", doc.Info.License.Name)
	assert.Equal(t, map[string]any{"x-audience": "internal"}, doc.Info.Extensions)
	assert.Equal(t, &ExternalDocs{Description: "Guides", URL: "https://docs.example.com"}, doc.ExternalDocs)
	assert.Empty(t, doc.Paths)
}

func TestBuildContinuesAfterExpansionFailure(t *testing.T) {
	cfg := newConfig(t, "docs:\n  expansion:\n    maxdepth: 1\n")
	doc := build(t, cfg,
		route(http.MethodGet, "/chain", chain{}),
		route(http.MethodGet, "/users/:id", struct{}{}),
	)

	op := doc.Paths["/chain"].Get
	require.NotNil(t, op)
	assert.Empty(t, op.Parameters)
	assert.Equal(t, []string{"path:id"}, paramNames(doc.Paths["/users/{id}"].Get.Parameters))
}

func TestBuildSkipsDuplicates(t *testing.T) {
	first := route(http.MethodGet, "/items", struct{}{})
	second := route(http.MethodGet, "/items", struct{}{}, server.WithOperationID("second"))

	doc := build(t, newConfig(t, ""), first, second)
	assert.Equal(t, "opGET", doc.Paths["/items"].Get.OperationID)
}

func TestBuildIgnoredTypesAndTags(t *testing.T) {
	type request struct {
		Address address `query:"address"`
		Note    string  `query:"note" internal:"true"`
		Q       string  `query:"q"`
	}
	cfg := newConfig(t, "docs:\n  expansion:\n    ignoredtags: [internal]\n")

	doc, err := NewBuilder(cfg, logger.Nop(), WithIgnoredTypes(reflect.TypeFor[address]())).
		Build(context.Background(), []server.RouteDescriptor{route(http.MethodGet, "/search", request{})})
	require.NoError(t, err)
	assert.Equal(t, []string{"query:q"}, paramNames(doc.Paths["/search"].Get.Parameters))
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(newConfig(t, ""), logger.Nop()).
		Build(ctx, []server.RouteDescriptor{route(http.MethodGet, "/items", struct{}{})})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err := NewBuilder(newConfig(t, ""), logger.Nop(), WithTracerProvider(tp), WithConcurrency(2)).
		Build(context.Background(), []server.RouteDescriptor{
			route(http.MethodGet, "/a", struct{}{}),
			route(http.MethodGet, "/b", struct{}{}),
			route(http.MethodGet, "/c", struct{}{}),
		})
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	assert.Equal(t, map[string]int{"openapi.Build": 1, "openapi.Operation": 3}, counts)
}

func TestBuildRegisteredRoutes(t *testing.T) {
	reg := server.NewRouteRegistry()
	srv := server.New(newConfig(t, "server:\n  path:\n    base: /api\n"), logger.Nop())
	server.GET(reg, srv.ModuleGroup(), usersPath, func(c echo.Context, _ listUsersRequest) error {
		return c.NoContent(http.StatusOK)
	})

	doc := build(t, newConfig(t, ""), reg.Routes()...)
	require.Contains(t, doc.Paths, "/api"+usersTemplate)
}

func TestRender(t *testing.T) {
	cfg := newConfig(t, "docs:\n  info:\n    title: Shop\n    extensions:\n      x-audience: internal\n")
	doc := build(t, cfg, route(http.MethodGet, usersPath, listUsersRequest{}))

	raw, err := doc.Render(FormatJSON)
	require.NoError(t, err)
	var asJSON map[string]any
	require.NoError(t, json.Unmarshal(raw, &asJSON))
	assert.Equal(t, "3.0.1", asJSON["openapi"])
	info := asJSON["info"].(map[string]any)
	assert.Equal(t, "Shop", info["title"])
	assert.Equal(t, "internal", info["x-audience"])
	assert.Contains(t, asJSON["paths"], usersTemplate)

	raw, err = doc.Render(FormatYAML)
	require.NoError(t, err)
	var asYAML map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &asYAML))
	assert.Equal(t, "3.0.1", asYAML["openapi"])
	info = asYAML["info"].(map[string]any)
	assert.Equal(t, "internal", info["x-audience"])

	_, err = doc.Render("xml")
	assert.Error(t, err)
}

func TestOpenAPIPath(t *testing.T) {
	tests := map[string]string{
		"/":                     "/",
		"/users":                "/users",
		"/users/:id":            "/users/{id}",
		"/orgs/:org/users/:id":  "/orgs/{org}/users/{id}",
		"/files/*":              "/files/{wildcard}",
		"/users/:id/avatar.png": "/users/{id}/avatar.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, openAPIPath(in), in)
	}
}
