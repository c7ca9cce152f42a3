package gateway

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-bricks-apidoc/config"
)

func loadConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func gatewayYAML(indexRedirect bool, regex string, uris ...string) string {
	routes := ""
	ids := []string{"users", "ReactiveCompositeDiscoveryClient_orders", "billing-internal"}
	for i, uri := range uris {
		routes += fmt.Sprintf("    - id: %s\n      path: /api/%s/**\n      uri: %s\n", ids[i], serviceID(ids[i]), uri)
	}
	return fmt.Sprintf(`docs:
  indexredirect: %t
gateway:
  enabled: true
  prefix: /api
  serviceidregex: %q
  routes:
%s`, indexRedirect, regex, routes)
}

func TestSwaggerPatterns(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected []string
	}{
		{
			name: "index redirect and every route",
			yaml: gatewayYAML(true, "", "http://users:8080", "http://orders:8080"),
			expected: []string{
				"/api", "/api/", "/api/index", "/api/swagger-ui/**", "/v3/api-docs/**", "/webjars/**",
				"/api/users", "/api/users/", "/api/users/swagger-ui/**", "/api/users/v3/api-docs/**", "/users/v3/api-docs",
				"/api/orders", "/api/orders/", "/api/orders/swagger-ui/**", "/api/orders/v3/api-docs/**",
				"/ReactiveCompositeDiscoveryClient_orders/v3/api-docs",
			},
		},
		{
			name: "routes filtered by regex",
			yaml: gatewayYAML(false, "user.*", "http://users:8080", "http://orders:8080"),
			expected: []string{
				"/api/users", "/api/users/", "/api/users/swagger-ui/**", "/api/users/v3/api-docs/**", "/users/v3/api-docs",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns, err := SwaggerPatterns(loadConfig(t, tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, patterns)
		})
	}
}

func TestSwaggerURLs(t *testing.T) {
	tests := []struct {
		name     string
		regex    string
		expected []SwaggerURL
	}{
		{
			name:  "all routes",
			regex: "",
			expected: []SwaggerURL{
				{Name: "users", URL: "/users/v3/api-docs"},
				{Name: "orders", URL: "/orders/v3/api-docs"},
				{Name: "billing-internal", URL: "/billing-internal/v3/api-docs"},
			},
		},
		{
			name:  "regex matches the whole id",
			regex: "users|billing",
			expected: []SwaggerURL{
				{Name: "users", URL: "/users/v3/api-docs"},
			},
		},
		{
			name:  "regex sees the discovery prefix",
			regex: "Reactive.*",
			expected: []SwaggerURL{
				{Name: "orders", URL: "/orders/v3/api-docs"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t, gatewayYAML(false, tt.regex, "http://a:1", "http://b:1", "http://c:1"))
			urls, err := SwaggerURLs(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, urls)
		})
	}
}

func TestSwaggerURLsInvalidRegex(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Gateway.ServiceIDRegex = "("

	_, err := SwaggerURLs(cfg)
	assert.ErrorContains(t, err, "invalid service id regex")
	_, err = SwaggerPatterns(cfg)
	assert.Error(t, err)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher("/api", "/api/swagger-ui/**", "/webjars/**", "/*/v3/api-docs", "/**/health", "")
	require.NoError(t, err)

	tests := map[string]bool{
		"/api":                          true,
		"/api/":                         false,
		"/api/swagger-ui":               true,
		"/api/swagger-ui/index.html":    true,
		"/api/swagger-ui/css/app.css":   true,
		"/api/swagger-uix":              false,
		"/webjars/swagger-ui/index.htm": true,
		"/users/v3/api-docs":            true,
		"/users/v3/api-docs/extra":      false,
		"/api/users":                    false,
		"/health":                       true,
		"/api/v1/health":                true,
		"/api/healthz":                  false,
	}
	for p, want := range tests {
		assert.Equal(t, want, m.Match(p), p)
	}

	_, err = NewMatcher("/api/[")
	assert.Error(t, err)
}

func TestRewriteDocument(t *testing.T) {
	raw := []byte(`{
  "openapi": "3.0.1",
  "servers": [{"url": "http://users:8080"}, {"url": "http://users:9090", "description": "admin"}],
  "paths": {
    "/users/{id}": {"get": {"operationId": "getUser"}},
    "/users": {"get": {"parameters": [{"name": "size", "schema": {"maximum": 9007199254740993}}]}}
  }
}`)

	out, err := RewriteDocument(raw, "/api", "https://gateway.example.com")
	require.NoError(t, err)

	assert.Contains(t, string(out), "9007199254740993")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	paths := doc["paths"].(map[string]any)
	assert.Len(t, paths, 2)
	assert.Contains(t, paths, "/api/users/{id}")
	assert.Contains(t, paths, "/api/users")

	servers := doc["servers"].([]any)
	require.Len(t, servers, 2)
	for _, s := range servers {
		assert.Equal(t, "https://gateway.example.com", s.(map[string]any)["url"])
	}
	assert.Equal(t, "admin", servers[1].(map[string]any)["description"])
}

func TestRewriteDocumentEdgeCases(t *testing.T) {
	out, err := RewriteDocument([]byte("  \n"), "/api", "http://gw")
	require.NoError(t, err)
	assert.Equal(t, "  \n", string(out))

	out, err = RewriteDocument([]byte(`{"paths":{"/a":{}}}`), "", "http://gw")
	require.NoError(t, err)
	assert.JSONEq(t, `{"paths":{"/a":{}}}`, string(out))

	_, err = RewriteDocument([]byte("<html>"), "/api", "http://gw")
	assert.ErrorContains(t, err, "decode document")
}
