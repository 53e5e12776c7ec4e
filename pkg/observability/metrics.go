package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
)

// Metric names.
const (
	MetricFitsTotal        = "civu.fits.total"
	MetricFitDuration      = "civu.fit.duration.seconds"
	MetricFitError         = "civu.fit.error"
	MetricFitsInflight     = "civu.fits.inflight"
	MetricPeakSteps        = "civu.peak.steps"
	MetricPeakTerminations = "civu.peak.terminations.total"
	MetricRequestsTotal    = "civu.requests.total"
	MetricRequestDuration  = "civu.request.duration.seconds"
	MetricErrorsTotal      = "civu.errors.total"
)

// Attribute keys.
const (
	attrOp          = "op"
	attrStatus      = "status"
	attrKind        = "kind"
	attrDirection   = "direction"
	attrTermination = "termination"
)

// Status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms single-trace fits up to multi-minute
// datasets with many cycles.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// stepBucketBoundaries mirrors fit.MaxSteps.
var stepBucketBoundaries = []float64{0, 1, 2, 5, 10, 25, 50, 100, 150, 199, 200}

// errorBucketBoundaries spans normalized RMSD values.
var errorBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 25}

// metricBuilder accumulates instrument creation errors so a set of
// instruments needs a single check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// FitMetrics records per-trace fits and per-peak optimizer outcomes.
type FitMetrics struct {
	fitsTotal    metric.Int64Counter
	fitDuration  metric.Float64Histogram
	fitError     metric.Float64Histogram
	inflight     metric.Int64UpDownCounter
	peakSteps    metric.Float64Histogram
	terminations metric.Int64Counter
}

// NewFitMetrics creates the fit instruments on mt.
func NewFitMetrics(mt metric.Meter) (*FitMetrics, error) {
	b := newMetricBuilder(mt)

	fm := &FitMetrics{
		fitsTotal:    b.counter(MetricFitsTotal, "Traces fitted", "{fit}"),
		fitDuration:  b.histogram(MetricFitDuration, "Wall time per trace fit", "s", durationBucketBoundaries...),
		fitError:     b.histogram(MetricFitError, "Normalized error of the selected fit", "1", errorBucketBoundaries...),
		inflight:     b.upDownCounter(MetricFitsInflight, "Trace fits in progress", "{fit}"),
		peakSteps:    b.histogram(MetricPeakSteps, "Optimizer steps per peak", "{step}", stepBucketBoundaries...),
		terminations: b.counter(MetricPeakTerminations, "Peak optimizations by termination", "{peak}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return fm, nil
}

// RecordFit records one finished trace fit. minError is ignored on failure.
func (fm *FitMetrics) RecordFit(ctx context.Context, status string, duration time.Duration, minError float64) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	fm.fitsTotal.Add(ctx, 1, attrs)
	fm.fitDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusOK {
		fm.fitError.Record(ctx, minError)
	}
}

// RecordPeak records one peak's optimizer outcome.
func (fm *FitMetrics) RecordPeak(ctx context.Context, diag fit.PeakDiagnostic) {
	fm.peakSteps.Record(ctx, float64(diag.Steps), metric.WithAttributes(
		attribute.String(attrKind, diag.Kind.String()),
		attribute.String(attrDirection, diag.Direction.String()),
	))
	fm.terminations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTermination, diag.Termination.String()),
	))
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (fm *FitMetrics) TrackInflight(ctx context.Context) func() {
	fm.inflight.Add(ctx, 1)

	return func() { fm.inflight.Add(ctx, -1) }
}

// REDMetrics holds rate, error and duration instruments for served requests.
type REDMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter
}

// NewREDMetrics creates the request instruments on mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:   b.counter(MetricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration: b.histogram(MetricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:     b.counter(MetricErrorsTotal, "Total number of errors", "{error}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}
