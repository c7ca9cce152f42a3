package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apihttp "github.com/gaborage/go-bricks-apidoc/http"
	"github.com/gaborage/go-bricks-apidoc/observability"
)

const (
	meterName         = "github.com/gaborage/go-bricks-apidoc/gateway"
	fetchCountName    = "apidoc.gateway.fetches"
	fetchDurationName = "apidoc.gateway.fetch.duration"
)

// fetchMetrics counts downstream document fetches per service and outcome.
type fetchMetrics struct {
	fetches  metric.Int64Counter
	duration metric.Float64Histogram
}

func newFetchMetrics(mp metric.MeterProvider) (*fetchMetrics, error) {
	meter := mp.Meter(meterName)

	fetches, err := observability.CreateCounter(meter, fetchCountName, "Downstream API document fetches")
	if err != nil {
		return nil, err
	}
	duration, err := observability.CreateHistogram(meter, fetchDurationName, "Downstream API document fetch duration",
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &fetchMetrics{fetches: fetches, duration: duration}, nil
}

func (m *fetchMetrics) record(ctx context.Context, id string, elapsed time.Duration, err error) {
	status := StatusUp
	if err != nil {
		status = StatusDown
	}
	kv := []attribute.KeyValue{
		attribute.String("service", id),
		attribute.String("status", status),
	}
	if code := apihttp.StatusCode(err); code != 0 {
		kv = append(kv, attribute.Int("http.status_code", code))
	}
	attrs := metric.WithAttributes(kv...)
	m.fetches.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
