package app

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/gateway"
	apihttp "github.com/gaborage/go-bricks-apidoc/http"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/observability"
	"github.com/gaborage/go-bricks-apidoc/openapi"
	"github.com/gaborage/go-bricks-apidoc/server"
)

// Builder orchestrates the step-by-step construction of an App instance
// using a fluent interface pattern. Each step is responsible for a single
// aspect of initialization, making the process clear and testable.
type Builder struct {
	// Configuration
	cfg  *config.Config
	opts *Options

	// Core components
	logger    logger.Logger
	telemetry observability.Provider
	server    ServerRunner
	client    apihttp.Client
	routes    *server.RouteRegistry
	app       *App

	// State tracking
	err error
}

// NewAppBuilder creates a new app builder instance.
func NewAppBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the configuration and options for the app.
func (b *Builder) WithConfig(cfg *config.Config, opts *Options) *Builder {
	if b.err != nil {
		return b
	}
	if cfg == nil {
		b.err = errors.New("configuration cannot be nil")
		return b
	}
	if opts == nil {
		opts = &Options{}
	}

	b.cfg = cfg
	b.opts = opts
	return b
}

// CreateLogger creates and configures the application logger.
func (b *Builder) CreateLogger() *Builder {
	if b.err != nil {
		return b
	}

	if b.cfg == nil {
		b.err = fmt.Errorf("configuration required before creating logger")
		return b
	}

	b.logger = b.opts.Logger
	if b.logger == nil {
		b.logger = logger.New(b.cfg.Log.Level, b.cfg.Log.Pretty)
	}
	b.logger.Info().
		Str("app", b.cfg.App.Name).
		Str("env", b.cfg.App.Env).
		Str("version", b.cfg.App.Version).
		Msg("Starting application")

	return b
}

// CreateObservability creates the telemetry provider. It runs before the server so
// that the echo tracing middleware picks up the installed global providers.
func (b *Builder) CreateObservability() *Builder {
	if b.err != nil {
		return b
	}

	if b.logger == nil {
		b.err = fmt.Errorf("logger required before creating observability")
		return b
	}

	b.telemetry = b.opts.Observability
	if b.telemetry == nil {
		provider, err := observability.NewProvider(b.cfg)
		if err != nil {
			b.err = fmt.Errorf("failed to create observability provider: %w", err)
			return b
		}
		b.telemetry = provider
	}

	if b.cfg.Observability.Enabled {
		b.logger.Info().
			Bool("traces", b.cfg.Observability.Trace.Enabled).
			Bool("metrics", b.cfg.Observability.Metrics.Enabled).
			Msg("Observability enabled")
	}
	return b
}

// CreateServer creates the HTTP server and the client shared by modules and the gateway.
func (b *Builder) CreateServer() *Builder {
	if b.err != nil {
		return b
	}

	if b.logger == nil {
		b.err = fmt.Errorf("logger required before creating server")
		return b
	}

	b.server = b.opts.Server
	if b.server == nil {
		b.server = server.New(b.cfg, b.logger)
	}

	b.client = b.opts.HTTPClient
	if b.client == nil {
		b.client = apihttp.NewBuilder(b.logger).
			WithTimeout(b.cfg.Gateway.Timeout).
			WithRetries(b.cfg.Gateway.Retries, apihttp.DefaultRetryDelay).
			WithDefaultHeader(echo.HeaderAccept, echo.MIMEApplicationJSON).
			Build()
	}

	signalHandler := b.opts.SignalHandler
	if signalHandler == nil {
		signalHandler = osSignalHandler{}
	}
	timeoutProvider := b.opts.TimeoutProvider
	if timeoutProvider == nil {
		timeoutProvider = standardTimeoutProvider{}
	}

	b.app = &App{
		cfg:             b.cfg,
		server:          b.server,
		logger:          b.logger,
		observability:   b.telemetry,
		signalHandler:   signalHandler,
		timeoutProvider: timeoutProvider,
	}
	return b
}

// CreateRegistry creates the module and route registries.
func (b *Builder) CreateRegistry() *Builder {
	if b.err != nil {
		return b
	}

	if b.app == nil {
		b.err = fmt.Errorf("server required before creating registry")
		return b
	}

	b.routes = server.NewRouteRegistry()
	deps := &ModuleDeps{
		Logger:     b.logger,
		Config:     b.cfg,
		HTTPClient: b.client,
	}
	b.app.routes = b.routes
	b.app.registry = NewModuleRegistry(deps, b.routes)
	return b
}

// CreateDocs mounts the API document endpoints and the readiness probes.
func (b *Builder) CreateDocs() *Builder {
	if b.err != nil {
		return b
	}

	if b.routes == nil {
		b.err = fmt.Errorf("registry required before creating docs")
		return b
	}

	e := b.server.Echo()
	if ui := b.opts.SwaggerUI; ui != nil {
		e.StaticFS(swaggerUIPath, ui)
		e.StaticFS(webjarsUIPath, ui)
	}

	if !b.cfg.Docs.Enabled {
		b.logger.Info().Msg("API documentation disabled")
		b.server.SetReadinessCheck(readinessCheck([]HealthProbe{documentHealthProbe(nil)}, b.logger))
		return b
	}

	tp := b.opts.TracerProvider
	if tp == nil && b.telemetry != nil {
		tp = b.telemetry.TracerProvider()
	}
	opts := []openapi.Option{openapi.WithTracerProvider(tp)}
	opts = append(opts, b.opts.BuilderOptions...)
	builder := openapi.NewBuilder(b.cfg, b.logger, opts...)

	b.app.docs = newDocsHandler(b.cfg.Docs, builder, b.routes, b.logger)
	b.app.docs.register(e)
	b.server.SetReadinessCheck(readinessCheck([]HealthProbe{documentHealthProbe(b.app.docs)}, b.logger))
	return b
}

// CreateGateway mounts the documentation gateway when gateway.enabled is set.
func (b *Builder) CreateGateway() *Builder {
	if b.err != nil {
		return b
	}

	if b.app == nil {
		b.err = fmt.Errorf("server required before creating gateway")
		return b
	}
	if !b.cfg.Gateway.Enabled {
		return b
	}

	gwOpts := []gateway.Option{gateway.WithClient(b.client)}
	if b.telemetry != nil {
		gwOpts = append(gwOpts, gateway.WithMeterProvider(b.telemetry.MeterProvider()))
	}
	g, err := gateway.New(b.cfg, b.logger, gwOpts...)
	if err != nil {
		b.err = fmt.Errorf("failed to create gateway: %w", err)
		return b
	}
	g.Register(b.server.Echo())
	b.app.gateway = g
	return b
}

// ApplyMiddlewares installs Options.Middlewares. Probes, documents and swagger-ui
// assets bypass them, and so do the gateway documentation paths.
func (b *Builder) ApplyMiddlewares() *Builder {
	if b.err != nil || len(b.opts.Middlewares) == 0 {
		return b
	}

	if b.app == nil {
		b.err = fmt.Errorf("server required before applying middlewares")
		return b
	}

	exempt, err := gateway.NewMatcher(
		"/**"+b.cfg.Server.Path.Health,
		"/**"+b.cfg.Server.Path.Ready,
		b.cfg.Docs.Path,
		b.cfg.Docs.Path+yamlSuffix,
		swaggerUIPath+"/**",
		webjarsUIPath+"/**",
	)
	if err != nil {
		b.err = fmt.Errorf("failed to compile exempt paths: %w", err)
		return b
	}

	e := b.server.Echo()
	for _, mw := range b.opts.Middlewares {
		if b.app.gateway != nil {
			mw = b.app.gateway.Permit(mw)
		}
		e.Use(skipExempt(exempt, mw))
	}
	return b
}

func skipExempt(exempt *gateway.Matcher, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(c echo.Context) error {
			if exempt.Match(c.Request().URL.Path) {
				return next(c)
			}
			return guarded(c)
		}
	}
}

// Build returns the App or the first error of the chain.
func (b *Builder) Build() (*App, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.app == nil || b.app.registry == nil {
		return nil, fmt.Errorf("incomplete app construction")
	}
	return b.app, nil
}
