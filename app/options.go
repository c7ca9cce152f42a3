package app

import (
	"io/fs"

	"github.com/labstack/echo/v4"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-apidoc/config"
	apihttp "github.com/gaborage/go-bricks-apidoc/http"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/observability"
	"github.com/gaborage/go-bricks-apidoc/openapi"
)

// Options contains optional dependencies for creating an App instance
type Options struct {
	Logger          logger.Logger
	SignalHandler   SignalHandler
	TimeoutProvider TimeoutProvider
	Server          ServerRunner
	ConfigLoader    func() (*config.Config, error)
	// HTTPClient is shared by modules and the gateway document proxy.
	HTTPClient apihttp.Client
	// Observability replaces the provider created from the observability config.
	Observability  observability.Provider
	TracerProvider oteltrace.TracerProvider
	// BuilderOptions are passed to the OpenAPI builder after the ones derived from Options.
	BuilderOptions []openapi.Option
	// Middlewares guard module routes. With the gateway enabled, documentation paths bypass them.
	Middlewares []echo.MiddlewareFunc
	// SwaggerUI holds the swagger-ui assets served under /swagger-ui and /webjars/swagger-ui.
	SwaggerUI fs.FS
}
