package pool

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// chunksPerWorker splits work finer than the worker count so one slow
// chunk does not leave other workers idle.
const chunksPerWorker = 4

// Workers resolves a configured worker count: n <= 0 means one worker per
// available CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Map applies fn to every item on up to workers goroutines and returns the
// results index-aligned with items. fn must not touch shared mutable state.
// If ctx is cancelled before all items are processed the partial results
// are discarded and ctx's error is returned.
//
// op names the batch operation in traces and metrics.
func Map[T, R any](ctx context.Context, op string, items []T, workers int, fn func(T) R) ([]R, error) {
	workers = Workers(workers)
	ctx, span := tracer.Start(ctx, "pool.Map", trace.WithAttributes(
		attribute.String("op", op),
		attribute.Int("items", len(items)),
		attribute.Int("workers", workers),
	))
	defer span.End()
	start := time.Now()

	out := make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}

	chunk := max(1, (len(items)+workers*chunksPerWorker-1)/(workers*chunksPerWorker))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(items); lo += chunk {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+chunk, len(items))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = fn(items[i])
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	recordBatchMetrics(ctx, op, len(items), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch cancelled")
		return nil, err
	}
	return out, nil
}
