package app

import (
	"errors"
	"fmt"

	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/server"
)

// ModuleRegistry manages the registration and lifecycle of application modules.
// It handles module initialization, route registration, and shutdown.
type ModuleRegistry struct {
	modules []ModuleInfo
	deps    *ModuleDeps
	logger  logger.Logger
	routes  *server.RouteRegistry
}

// NewModuleRegistry creates a new module registry with the given dependencies.
// Documented routes are collected in routes.
func NewModuleRegistry(deps *ModuleDeps, routes *server.RouteRegistry) *ModuleRegistry {
	return &ModuleRegistry{
		modules: make([]ModuleInfo, 0),
		deps:    deps,
		logger:  deps.Logger,
		routes:  routes,
	}
}

// Register adds a module to the registry and initializes it.
// It calls the module's Init method with the injected dependencies.
func (r *ModuleRegistry) Register(module Module) error {
	if module == nil {
		return errors.New("module cannot be nil")
	}
	moduleName := module.Name()
	for _, m := range r.modules {
		if m.Descriptor.Name == moduleName || m.Module.Name() == moduleName {
			return fmt.Errorf("module %s already registered", moduleName)
		}
	}

	r.logger.Info().
		Str("module", moduleName).
		Msg("Registering module")

	if err := module.Init(r.deps); err != nil {
		return fmt.Errorf("failed to initialize module %s: %w", moduleName, err)
	}

	r.modules = append(r.modules, describe(module))
	return nil
}

// RegisterRoutes calls RegisterRoutes on all registered modules.
// It should be called after all modules have been registered. Routes a module
// documents are attributed to it and default to its tags.
func (r *ModuleRegistry) RegisterRoutes(registrar server.RouteRegistrar) {
	for _, info := range r.modules {
		r.logger.Info().
			Str("module", info.Descriptor.Name).
			Msg("Registering module routes")

		group := registrar
		if info.Descriptor.BasePath != "" {
			group = registrar.Group(info.Descriptor.BasePath)
		}

		mark := r.routes.Count()
		info.Module.RegisterRoutes(r.routes, group)
		r.routes.AssignModule(mark, info.Descriptor.Name, info.Descriptor.Tags...)

		r.logger.Debug().
			Str("module", info.Descriptor.Name).
			Int("routes", r.routes.Count()-mark).
			Msg("Module routes registered")
	}
}

// Modules returns the registered modules in registration order.
func (r *ModuleRegistry) Modules() []ModuleInfo {
	return append([]ModuleInfo(nil), r.modules...)
}

// Shutdown gracefully shuts down all registered modules in reverse order.
// Every module is asked to stop; the failures are joined.
func (r *ModuleRegistry) Shutdown() error {
	var errs []error
	for i := len(r.modules) - 1; i >= 0; i-- {
		module := r.modules[i].Module
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Shutting down module")

		if err := module.Shutdown(); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", module.Name()).
				Msg("Failed to shutdown module")
			errs = append(errs, fmt.Errorf("%s: %w", module.Name(), err))
		}
	}
	return errors.Join(errs...)
}
