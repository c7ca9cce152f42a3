package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/server"
)

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Metrics{}
}

func TestFetchMetrics(t *testing.T) {
	users := newDownstream(t, http.StatusOK, usersDocument)
	orders := newDownstream(t, http.StatusForbidden, "")

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	cfg := loadConfig(t, gatewayYAML(false, "", users.URL, orders.URL))
	srv := server.New(cfg, logger.Nop())
	g, err := New(cfg, logger.Nop(), WithClient(testClient()), WithMeterProvider(mp))
	require.NoError(t, err)
	g.Register(srv.Echo())

	assert.Equal(t, http.StatusOK, get(srv, "/users/v3/api-docs").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/users/v3/api-docs").Code)
	assert.Equal(t, http.StatusBadGateway, get(srv, "/orders/v3/api-docs").Code)

	fetches := collectMetric(t, reader, fetchCountName)
	sum, ok := fetches.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		service, _ := dp.Attributes.Value(attribute.Key("service"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[service.AsString()+"/"+status.AsString()] = dp.Value

		code, hasCode := dp.Attributes.Value(attribute.Key("http.status_code"))
		if status.AsString() == StatusDown {
			require.True(t, hasCode)
			assert.Equal(t, int64(http.StatusForbidden), code.AsInt64())
		} else {
			assert.False(t, hasCode)
		}
	}
	assert.Equal(t, map[string]int64{"users/UP": 2, "orders/DOWN": 1}, counts)

	duration := collectMetric(t, reader, fetchDurationName)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, "ms", duration.Unit)
	assert.Len(t, hist.DataPoints, 2)
}

func TestFetchMetricsDefaultProvider(t *testing.T) {
	cfg := loadConfig(t, gatewayYAML(false, "", "http://users:8080"))
	g, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, g.metrics)
}
