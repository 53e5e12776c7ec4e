package deconv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
)

// Run deconvolves every trace of ds in natural key order. The first failing
// trace cancels the remaining work and its error is returned.
func (d *Deconvolver) Run(ctx context.Context, ds *atd.Dataset) (RunResult, error) {
	runID := uuid.New()

	ctx, span := d.tracer.Start(ctx, "deconv.run", trace.WithAttributes(
		attribute.String("run.id", runID.String()),
		attribute.String("dataset", ds.Name),
		attribute.Int("atd.count", len(ds.Keys())),
	))
	defer span.End()

	res := RunResult{
		ID:       runID,
		Dataset:  ds.Name,
		Started:  time.Now(),
		Times:    ds.Times,
		Settings: d.settings,
	}

	source := ds
	if d.settings.Align {
		source, res.Shifts = ds.Align()
	}

	logger := d.logger.With(observability.AttrRunID, runID.String())
	logger.InfoContext(ctx, "deconvolution started",
		"dataset", ds.Name, "atds", len(source.Keys()), "workers", max(1, d.settings.Workers))

	traces, err := d.fitAll(ctx, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return RunResult{}, err
	}

	res.Traces = traces
	res.AverageError = averageError(traces)

	span.SetAttributes(attribute.Float64("fit.average_error", res.AverageError))
	logger.InfoContext(ctx, "deconvolution finished",
		"average_error", res.AverageError, "elapsed", time.Since(res.Started))

	return res, nil
}

func averageError(traces []TraceResult) float64 {
	if len(traces) == 0 {
		return 0
	}

	errs := make([]float64, len(traces))
	for i, tr := range traces {
		errs[i] = tr.MinError
	}

	return stat.Mean(errs, nil)
}

// runState holds the first error seen by any worker.
type runState struct {
	mu       sync.Mutex
	firstErr error
	cancel   context.CancelFunc
}

func (rs *runState) setError(err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.firstErr == nil {
		rs.firstErr = err
		rs.cancel()
	}
}

func (d *Deconvolver) fitAll(ctx context.Context, ds *atd.Dataset) ([]TraceResult, error) {
	keys := ds.Keys()
	out := make([]TraceResult, len(keys))
	numWorkers := min(max(1, d.settings.Workers), len(keys))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &runState{cancel: cancel}
	jobs := make(chan int, numWorkers)

	var wg sync.WaitGroup

	wg.Add(numWorkers)

	for range numWorkers {
		go func() {
			defer wg.Done()

			for idx := range jobs {
				if ctx.Err() != nil {
					continue // Drain so the feeder never blocks.
				}

				tr, fitErr := d.fitKey(ctx, ds, keys[idx])
				if fitErr != nil {
					state.setError(fitErr)

					continue
				}

				out[idx] = tr
			}
		}()
	}

	for idx := range keys {
		jobs <- idx
	}

	close(jobs)
	wg.Wait()

	if state.firstErr != nil {
		return nil, state.firstErr
	}

	// Jobs skipped after a parent cancellation leave no error of their own.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("deconvolve %s: %w", ds.Name, ctxErr)
	}

	return out, nil
}

func (d *Deconvolver) fitKey(ctx context.Context, ds *atd.Dataset, key string) (TraceResult, error) {
	y, traceErr := ds.Trace(key)
	if traceErr != nil {
		return TraceResult{}, traceErr
	}

	return d.FitTrace(ctx, key, ds.Times, y)
}
