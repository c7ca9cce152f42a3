package openapi

import (
	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/server"
)

// OAuthSchemeName is the security scheme key of the OAuth2 scheme.
const OAuthSchemeName = "oauth2"

// OperationSelector decides whether the OAuth2 requirement applies to a route.
type OperationSelector func(route server.RouteDescriptor) bool

// SecuredUnlessPublic applies the requirement to every route not marked public.
func SecuredUnlessPublic(route server.RouteDescriptor) bool {
	return !route.Public
}

// securityScheme builds the OAuth2 scheme of cfg, or nil when OAuth is disabled.
func securityScheme(cfg config.OAuthConfig) *SecurityScheme {
	if !cfg.Enabled {
		return nil
	}

	scopes := make(map[string]string, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		scopes[s] = s
	}

	flow := &OAuthFlow{TokenURL: cfg.TokenURL, Scopes: scopes}
	flows := &OAuthFlows{}
	if cfg.GrantType == config.GrantAuthorizationCode {
		flow.AuthorizationURL = cfg.AuthorizationURL
		flows.AuthorizationCode = flow
	} else {
		flows.Password = flow
	}

	return &SecurityScheme{Type: "oauth2", Flows: flows}
}

// securityRequirement requires every configured scope of the OAuth2 scheme.
func securityRequirement(cfg config.OAuthConfig) SecurityRequirement {
	scopes := append([]string{}, cfg.Scopes...)
	return SecurityRequirement{OAuthSchemeName: scopes}
}

// refererParameter is the shared header parameter announcing the calling portal.
func refererParameter(cfg config.DocsConfig) (string, *Parameter) {
	if cfg.Referer == "" {
		return "", nil
	}
	name := cfg.RefererName
	if name == "" {
		name = "Referer"
	}
	return name, &Parameter{
		Name:     name,
		In:       "header",
		Required: true,
		Schema:   &Schema{Type: "string", Default: cfg.Referer},
	}
}
