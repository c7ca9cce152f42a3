package server

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/internal/reflection"
)

// HandlerFunc handles a request whose parameters were bound into req.
type HandlerFunc[T any] func(c echo.Context, req T) error

// Route registers handler for method and path and records T as the documented
// request type. Path, query, header and form values are bound into T and
// validated before the handler runs.
func Route[T any](reg *RouteRegistry, r RouteRegistrar, method, path string, handler HandlerFunc[T], opts ...RouteOption) *echo.Route {
	descriptor := &RouteDescriptor{
		Method:      method,
		Path:        r.FullPath(path),
		HandlerName: reflection.HandlerName(handler),
		Package:     reflection.HandlerPackage(handler),
		RequestType: reflect.TypeFor[T](),
	}
	for _, opt := range opts {
		opt(descriptor)
	}
	if descriptor.OperationID == "" {
		descriptor.OperationID = descriptor.HandlerName
	}
	if reg != nil {
		reg.Register(descriptor)
	}

	return r.Add(method, path, bindHandler(handler))
}

// GET registers a GET route, see Route.
func GET[T any](reg *RouteRegistry, r RouteRegistrar, path string, handler HandlerFunc[T], opts ...RouteOption) *echo.Route {
	return Route(reg, r, http.MethodGet, path, handler, opts...)
}

// POST registers a POST route, see Route.
func POST[T any](reg *RouteRegistry, r RouteRegistrar, path string, handler HandlerFunc[T], opts ...RouteOption) *echo.Route {
	return Route(reg, r, http.MethodPost, path, handler, opts...)
}

// PUT registers a PUT route, see Route.
func PUT[T any](reg *RouteRegistry, r RouteRegistrar, path string, handler HandlerFunc[T], opts ...RouteOption) *echo.Route {
	return Route(reg, r, http.MethodPut, path, handler, opts...)
}

// DELETE registers a DELETE route, see Route.
func DELETE[T any](reg *RouteRegistry, r RouteRegistrar, path string, handler HandlerFunc[T], opts ...RouteOption) *echo.Route {
	return Route(reg, r, http.MethodDelete, path, handler, opts...)
}

func bindHandler[T any](handler HandlerFunc[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req T
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		return handler(c, req)
	}
}

// bindRequest fills target from path, query, body and header values, in that
// order. Query values are bound for every method since POST routes that do not
// consume forms document their attributes as query parameters. Non-struct
// request types, such as Route[any], are passed through unbound. The body is
// only bound when the request declares a content type.
func bindRequest(c echo.Context, target any) error {
	if reflection.Indirect(reflect.TypeOf(target)).Kind() != reflect.Struct {
		return nil
	}

	binder := &echo.DefaultBinder{}
	steps := []func() error{
		func() error { return binder.BindPathParams(c, target) },
		func() error { return binder.BindQueryParams(c, target) },
		func() error {
			if c.Request().Header.Get(echo.HeaderContentType) == "" {
				return nil
			}
			return binder.BindBody(c, target)
		},
		func() error { return binder.BindHeaders(c, target) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return NewBadRequestError(bindMessage(err))
		}
	}

	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(target)
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
