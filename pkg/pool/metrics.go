package pool

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for batch operations.
var (
	tracer = otel.Tracer("phenograph.pool")
	meter  = otel.Meter("phenograph.pool")
)

var (
	batchLatency metric.Float64Histogram
	batchTotal   metric.Int64Counter
	batchItems   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		batchLatency, err = meter.Float64Histogram(
			"phenograph_batch_duration_seconds",
			metric.WithDescription("Duration of batch operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchTotal, err = meter.Int64Counter(
			"phenograph_batch_total",
			metric.WithDescription("Total number of batch operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchItems, err = meter.Int64Counter(
			"phenograph_batch_items_total",
			metric.WithDescription("Total number of items processed by batch operations"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordBatchMetrics(ctx context.Context, op string, items int, d time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	)
	batchLatency.Record(ctx, d.Seconds(), attrs)
	batchTotal.Add(ctx, 1, attrs)
	batchItems.Add(ctx, int64(items), attrs)
}
