package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/weatherdash/weatherdash/internal/telemetry"

// QueryMetrics records analytics query outcomes.
type QueryMetrics struct {
	queryDuration metric.Float64Histogram
	queryTotal    metric.Int64Counter
	staleTotal    metric.Int64Counter
}

// NewQueryMetrics creates the query instruments on meter, or on the global meter
// provider when meter is nil.
func NewQueryMetrics(meter metric.Meter) (*QueryMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	queryDuration, err := meter.Float64Histogram(
		"analytics.query.duration",
		metric.WithDescription("Duration of analytics queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	queryTotal, err := meter.Int64Counter(
		"analytics.query.total",
		metric.WithDescription("Total number of analytics queries that resolved"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	staleTotal, err := meter.Int64Counter(
		"analytics.query.stale",
		metric.WithDescription("Number of analytics responses discarded because a newer query was issued"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{
		queryDuration: queryDuration,
		queryTotal:    queryTotal,
		staleTotal:    staleTotal,
	}, nil
}

// RecordQuery records a resolved query. outcome is "success" or the failure kind.
func (m *QueryMetrics) RecordQuery(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("analytics.outcome", outcome),
		attribute.Bool("error", outcome != "success"),
	)

	// The request context may already be cancelled by the time a query resolves.
	ctx = context.WithoutCancel(ctx)
	m.queryDuration.Record(ctx, duration.Seconds(), attrs)
	m.queryTotal.Add(ctx, 1, attrs)
}

// RecordStale records a response dropped in favour of a newer query.
func (m *QueryMetrics) RecordStale(ctx context.Context) {
	m.staleTotal.Add(context.WithoutCancel(ctx), 1)
}
