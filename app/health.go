package app

import (
	"context"
	"fmt"

	"github.com/gaborage/go-bricks-apidoc/logger"
)

const (
	healthyStatus   = "healthy"
	unhealthyStatus = "unhealthy"
	disabledStatus  = "disabled"
)

// HealthStatus captures the outcome of a readiness probe.
type HealthStatus struct {
	Name     string
	Status   string
	Details  map[string]any
	Err      error
	Critical bool
}

// HealthProbe exposes a uniform interface for readiness probes.
type HealthProbe interface {
	Run(ctx context.Context) HealthStatus
}

type healthProbeFunc struct {
	name     string
	critical bool
	fn       func(ctx context.Context) (string, map[string]any, error)
}

func (h healthProbeFunc) Run(ctx context.Context) HealthStatus {
	status, details, err := h.fn(ctx)
	if details == nil {
		details = map[string]any{}
	}
	return HealthStatus{
		Name:     h.name,
		Status:   status,
		Details:  details,
		Err:      err,
		Critical: h.critical,
	}
}

// documentHealthProbe reports whether the API document can be built.
func documentHealthProbe(docs *docsHandler) HealthProbe {
	if docs == nil {
		return healthProbeFunc{
			name: "docs",
			fn: func(context.Context) (string, map[string]any, error) {
				return disabledStatus, nil, nil
			},
		}
	}

	return healthProbeFunc{
		name:     "docs",
		critical: true,
		fn: func(ctx context.Context) (string, map[string]any, error) {
			doc, err := docs.document(ctx)
			if err != nil {
				return unhealthyStatus, nil, err
			}
			return healthyStatus, map[string]any{"paths": len(doc.Paths)}, nil
		},
	}
}

// readinessCheck runs every probe. Critical failures make the service not ready,
// the others are logged.
func readinessCheck(probes []HealthProbe, log logger.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, probe := range probes {
			result := probe.Run(ctx)
			if result.Err == nil {
				continue
			}
			if result.Critical {
				return fmt.Errorf("%s %s: %w", result.Name, result.Status, result.Err)
			}
			log.Warn().Err(result.Err).Str("probe", result.Name).Msg("Readiness probe failed")
		}
		return nil
	}
}
