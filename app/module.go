package app

import (
	"github.com/gaborage/go-bricks-apidoc/config"
	apihttp "github.com/gaborage/go-bricks-apidoc/http"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/server"
)

// Module defines the interface that all application modules must implement.
// It provides hooks for initialization, route registration, and cleanup.
type Module interface {
	Name() string
	Init(deps *ModuleDeps) error
	// RegisterRoutes registers the module handlers. Routes added through server.Route
	// with reg are documented.
	RegisterRoutes(reg *server.RouteRegistry, r server.RouteRegistrar)
	Shutdown() error
}

// ModuleDeps contains the dependencies that are injected into each module.
type ModuleDeps struct {
	Logger     logger.Logger
	Config     *config.Config
	HTTPClient apihttp.Client
}
