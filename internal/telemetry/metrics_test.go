package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/telemetry"
)

var _ analytics.Recorder = (*telemetry.QueryMetrics)(nil)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumInt64(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestQueryMetrics_RecordQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewQueryMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordQuery(context.Background(), analytics.OutcomeSuccess, 120*time.Millisecond)
	m.RecordQuery(context.Background(), string(analytics.KindProtocol), 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.RecordQuery(ctx, string(analytics.KindTransport), time.Second)

	data := collect(t, reader)
	assert.Equal(t, int64(3), sumInt64(t, data["analytics.query.total"]))

	hist, ok := data["analytics.query.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestQueryMetrics_RecordStale(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewQueryMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordStale(context.Background())
	m.RecordStale(context.Background())

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumInt64(t, data["analytics.query.stale"]))
}

func TestNewQueryMetrics_GlobalMeter(t *testing.T) {
	m, err := telemetry.NewQueryMetrics(nil)
	require.NoError(t, err)

	m.RecordQuery(context.Background(), analytics.OutcomeSuccess, time.Millisecond)
	m.RecordStale(context.Background())
}
