// Package server hosts the Echo server that exposes documented routes,
// probe endpoints and the generated API documents.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/logger"
)

// ReadinessCheck reports whether the service can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server represents an HTTP server instance with Echo framework.
type Server struct {
	echo       *echo.Echo
	cfg        *config.Config
	logger     logger.Logger
	basePath   string
	healthPath string
	readyPath  string

	mu    sync.RWMutex
	ready ReadinessCheck
}

// New creates a new HTTP server with middlewares, the API error handler and
// the health and readiness endpoints registered under the base path.
func New(cfg *config.Config, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		handleError(err, c, cfg, log)
	}

	basePath := normalizePrefix(cfg.Server.Path.Base)
	s := &Server{
		echo:       e,
		cfg:        cfg,
		logger:     log,
		basePath:   basePath,
		healthPath: joinPath(basePath, ensureLeadingSlash(cfg.Server.Path.Health)),
		readyPath:  joinPath(basePath, ensureLeadingSlash(cfg.Server.Path.Ready)),
	}

	SetupMiddlewares(e, log, cfg, s.healthPath, s.readyPath)

	e.GET(s.healthPath, s.healthCheck)
	e.GET(s.readyPath, s.readyCheck)

	log.Debug().
		Str("base_path", basePath).
		Str("health_path", s.healthPath).
		Str("ready_path", s.readyPath).
		Msg("Server paths configured")

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ModuleGroup returns a registrar with the base path applied, for module routes.
func (s *Server) ModuleGroup() RouteRegistrar {
	return newRouteGroup(s.echo.Group(s.basePath), s.basePath)
}

// BasePath returns the normalized base path, "" when routes are mounted at the root.
func (s *Server) BasePath() string {
	return s.basePath
}

// SetReadinessCheck replaces the check consulted by the readiness endpoint.
func (s *Server) SetReadinessCheck(check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = check
}

// Start starts the HTTP server and blocks until it is shut down.
// A graceful shutdown is not reported as an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting server...")

	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.Server.Timeout.Read,
		WriteTimeout: s.cfg.Server.Timeout.Write,
		IdleTimeout:  s.cfg.Server.Timeout.Idle,
	}

	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyCheck(c echo.Context) error {
	s.mu.RLock()
	check := s.ready
	s.mu.RUnlock()

	if check != nil {
		if err := check(c.Request().Context()); err != nil {
			return NewServiceUnavailableError(err.Error())
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
