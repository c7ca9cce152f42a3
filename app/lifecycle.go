package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// drainTimeout bounds the wait for the server goroutine after shutdown.
const drainTimeout = 3 * time.Second

// serve starts the HTTP server in a goroutine and returns an error channel
func (a *App) serve() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Debug().Msg("Server goroutine starting")
		err := a.server.Start()
		a.logger.Debug().Err(err).Msg("Server goroutine terminating")

		errCh <- err
		close(errCh)
	}()

	return errCh
}

// waitForShutdownOrServerError waits for either a shutdown signal or server error
func (a *App) waitForShutdownOrServerError(serverErrCh <-chan error) (bool, error) {
	quit := make(chan os.Signal, 1)
	a.signalHandler.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		a.logger.Info().Msg("Shutdown requested via signal")
		return true, nil
	case err, ok := <-serverErrCh:
		if !ok {
			return false, nil
		}
		return false, err
	}
}

// drainServerError drains any remaining error from the server error channel
func (a *App) drainServerError(ch <-chan error) error {
	if ch == nil {
		return nil
	}

	select {
	case err, ok := <-ch:
		if !ok {
			return nil
		}
		return err
	case <-time.After(drainTimeout):
		a.logger.Warn().Msg("Timeout waiting for server goroutine to complete")
		return fmt.Errorf("server goroutine failed to complete within %s", drainTimeout)
	}
}

// Run starts the application and blocks until a shutdown signal is received.
// It handles graceful shutdown with the configured server.timeout.shutdown.
func (a *App) Run() error {
	if err := a.Prepare(); err != nil {
		return err
	}

	serverErrCh := a.serve()
	shutdownRequested, serverErr := a.waitForShutdownOrServerError(serverErrCh)

	if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		a.logger.Error().Err(serverErr).Msg("Server stopped unexpectedly")
	}

	ctx, cancel := a.timeoutProvider.WithTimeout(context.Background(), a.cfg.Server.Timeout.Shutdown)
	defer cancel()

	a.logger.Info().Msg("Shutting down application")

	var errs []error
	if err := a.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if shutdownRequested {
		if err := a.drainServerError(serverErrCh); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
		}
	} else if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf(serverErrorMsg, serverErr))
	}

	return errors.Join(errs...)
}

// Shutdown gracefully shuts down the application with the given context.
// Modules stop first, then the HTTP server, then the telemetry exporters.
// Returns an aggregated error if any components fail to shut down.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	start := time.Now()

	if err := a.registry.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("modules: %w", err))
	} else {
		a.logger.Info().Dur("duration", time.Since(start)).Msg("Modules shutdown completed")
	}

	if a.server != nil {
		serverStart := time.Now()
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf(serverErrorMsg, err))
			a.logger.Error().Err(err).Msg("Failed to shutdown server")
		} else {
			a.logger.Info().Dur("duration", time.Since(serverStart)).Msg("HTTP server shutdown completed")
		}
	}

	if a.observability != nil {
		if err := a.observability.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observability: %w", err))
			a.logger.Error().Err(err).Msg("Failed to shutdown observability")
		}
	}

	a.logger.Info().Dur("duration", time.Since(start)).Msg("Application shutdown complete")
	return errors.Join(errs...)
}
