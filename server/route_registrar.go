package server

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// RouteRegistrar is the subset of Echo routing that modules use. Implementations
// keep track of the prefix so documented paths match what clients call.
type RouteRegistrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
	Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar
	Use(middleware ...echo.MiddlewareFunc)
	FullPath(path string) string
}

type routeGroup struct {
	group  *echo.Group
	prefix string
}

func newRouteGroup(group *echo.Group, prefix string) RouteRegistrar {
	return &routeGroup{
		group:  group,
		prefix: normalizePrefix(prefix),
	}
}

func (rg *routeGroup) Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route {
	return rg.group.Add(method, rg.relativePath(path), handler, middleware...)
}

func (rg *routeGroup) Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar {
	normalized := normalizePrefix(prefix)
	return &routeGroup{
		group:  rg.group.Group(normalized, middleware...),
		prefix: rg.prefix + normalized,
	}
}

func (rg *routeGroup) Use(middleware ...echo.MiddlewareFunc) {
	rg.group.Use(middleware...)
}

// FullPath returns the absolute path a route registered with path is served at.
func (rg *routeGroup) FullPath(path string) string {
	full := joinPath(rg.prefix, rg.relativePath(path))
	if full == "" {
		return "/"
	}
	return full
}

// relativePath makes path relative to the group. Paths that already carry the
// group prefix are accepted as-is.
func (rg *routeGroup) relativePath(path string) string {
	normalized := ensureLeadingSlash(path)
	if normalized == "/" {
		return ""
	}
	if rest, ok := stripPathPrefix(normalized, rg.prefix); ok {
		return rest
	}
	return normalized
}

func joinPath(prefix, path string) string {
	if path == "/" && prefix != "" {
		return prefix
	}
	return prefix + path
}

func ensureLeadingSlash(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return ""
	}
	return strings.TrimRight(ensureLeadingSlash(prefix), "/")
}

// stripPathPrefix removes prefix from path on a segment boundary.
func stripPathPrefix(path, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path, false
	}
	rest := path[len(prefix):]
	if rest == "" || strings.HasPrefix(rest, "/") {
		return rest, true
	}
	return path, false
}
