// Package app wires configuration, logging, the HTTP server, application modules,
// the generated API document and the optional documentation gateway into one
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/gateway"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/observability"
	"github.com/gaborage/go-bricks-apidoc/openapi"
	"github.com/gaborage/go-bricks-apidoc/server"
)

const serverErrorMsg = "server: %w"

// ErrDocsDisabled is returned by Document when docs.enabled is false.
var ErrDocsDisabled = errors.New("api documentation is disabled")

// App represents the main application instance.
// It manages the lifecycle and coordination of all application components.
type App struct {
	cfg             *config.Config
	server          ServerRunner
	logger          logger.Logger
	registry        *ModuleRegistry
	routes          *server.RouteRegistry
	docs            *docsHandler
	gateway         *gateway.Gateway
	observability   observability.Provider
	signalHandler   SignalHandler
	timeoutProvider TimeoutProvider
	prepared        bool
}

// New creates a new application instance from config.yaml, config.<env>.yaml and
// the environment.
func New() (*App, error) {
	return NewWithOptions(nil)
}

// NewWithOptions creates a new application instance, loading the configuration
// with opts.ConfigLoader when set.
func NewWithOptions(opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	loader := opts.ConfigLoader
	if loader == nil {
		loader = config.Load
	}

	cfg, err := loader()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates a new application instance from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts *Options) (*App, error) {
	return NewAppBuilder().
		WithConfig(cfg, opts).
		CreateLogger().
		CreateObservability().
		CreateServer().
		CreateRegistry().
		CreateDocs().
		CreateGateway().
		ApplyMiddlewares().
		Build()
}

// RegisterModule registers a new module with the application.
// It initializes the module; its routes are registered when the app is prepared.
func (a *App) RegisterModule(module Module) error {
	if a.prepared {
		return fmt.Errorf("cannot register module %s after the app was prepared", module.Name())
	}
	return a.registry.Register(module)
}

// Prepare registers the routes of every module. Run calls it; commands that only
// need the document call it directly.
func (a *App) Prepare() error {
	if a.prepared {
		return nil
	}
	a.registry.RegisterRoutes(a.server.ModuleGroup())
	a.prepared = true

	a.logger.Info().
		Int("modules", len(a.registry.Modules())).
		Int("routes", a.routes.Count()).
		Msg("Application prepared")

	if a.docs != nil {
		a.docs.reset()
	}
	return nil
}

// Document returns the API document of the registered routes.
func (a *App) Document(ctx context.Context) (*openapi.Document, error) {
	if a.docs == nil {
		return nil, ErrDocsDisabled
	}
	if err := a.Prepare(); err != nil {
		return nil, err
	}
	return a.docs.document(ctx)
}

// Routes returns the documented routes registered so far.
func (a *App) Routes() []server.RouteDescriptor {
	return a.routes.Routes()
}

// Modules returns the registered modules.
func (a *App) Modules() []ModuleInfo {
	return a.registry.Modules()
}

// Gateway returns the documentation gateway, or nil when it is disabled.
func (a *App) Gateway() *gateway.Gateway {
	return a.gateway
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Observability returns the telemetry provider.
func (a *App) Observability() observability.Provider {
	return a.observability
}

// Server returns the HTTP server.
func (a *App) Server() ServerRunner {
	return a.server
}
