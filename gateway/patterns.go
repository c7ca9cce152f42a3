package gateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gaborage/go-bricks-apidoc/config"
)

const (
	apiDocsPath   = "/v3/api-docs"
	swaggerUIPath = "/swagger-ui"
	webjarsPath   = "/webjars"
	swaggerIndex  = swaggerUIPath + "/index.html"

	// discoveryPrefix is prepended to route IDs created from service discovery.
	discoveryPrefix = "ReactiveCompositeDiscoveryClient_"
)

// SwaggerPatterns lists the request paths that belong to the documentation surface
// of the gateway, e.g. to exempt them from authentication. The prefix patterns are
// only included with docs.indexredirect.
func SwaggerPatterns(cfg *config.Config) ([]string, error) {
	selected, err := routeFilter(cfg.Gateway.ServiceIDRegex)
	if err != nil {
		return nil, err
	}

	var patterns []string
	if cfg.Docs.IndexRedirect {
		prefix := cfg.Gateway.Prefix
		patterns = append(patterns,
			prefix,
			prefix+"/",
			prefix+"/index",
			prefix+swaggerUIPath+"/**",
			apiDocsPath+"/**",
			webjarsPath+"/**",
		)
	}

	for _, r := range cfg.Gateway.Routes {
		if !selected(r.ID) {
			continue
		}
		p := strings.TrimSuffix(r.Path, "/**")
		patterns = append(patterns,
			p,
			p+"/",
			p+swaggerUIPath+"/**",
			p+apiDocsPath+"/**",
			"/"+r.ID+apiDocsPath,
		)
	}
	return patterns, nil
}

// routeFilter matches route IDs against the whole of expr. An empty expression selects every route.
func routeFilter(expr string) (func(id string) bool, error) {
	if expr == "" {
		return func(string) bool { return true }, nil
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid service id regex %q: %w", expr, err)
	}
	return re.MatchString, nil
}

// Matcher reports whether a request path matches any of a list of patterns.
// A pattern segment of ** matches any number of segments, other segments use
// path.Match syntax.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles patterns. Blank patterns are skipped.
func NewMatcher(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("gateway: invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether p matches one of the patterns.
func (m *Matcher) Match(p string) bool {
	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// SwaggerURL is one entry of the swagger-ui document selector.
type SwaggerURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SwaggerURLs lists the documents of the selected routes, one per service ID.
func SwaggerURLs(cfg *config.Config) ([]SwaggerURL, error) {
	selected, err := routeFilter(cfg.Gateway.ServiceIDRegex)
	if err != nil {
		return nil, err
	}

	var urls []SwaggerURL
	seen := make(map[string]struct{})
	for _, r := range cfg.Gateway.Routes {
		if !selected(r.ID) {
			continue
		}
		id := serviceID(r.ID)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		urls = append(urls, SwaggerURL{Name: id, URL: "/" + id + apiDocsPath})
	}
	return urls, nil
}

func serviceID(routeID string) string {
	return strings.TrimPrefix(routeID, discoveryPrefix)
}
