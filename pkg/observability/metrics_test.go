package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
)

func manualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string, kv ...attribute.KeyValue) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, name)

	want := attribute.NewSet(kv...)

	var total int64

	for _, dp := range sum.DataPoints {
		if len(kv) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}

	return total
}

func TestFitMetrics_RecordFit(t *testing.T) {
	t.Parallel()

	mp, reader := manualMeter(t)

	fm, err := observability.NewFitMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	fm.RecordFit(ctx, observability.StatusOK, 20*time.Millisecond, 0.4)
	fm.RecordFit(ctx, observability.StatusOK, 30*time.Millisecond, 0.2)
	fm.RecordFit(ctx, observability.StatusError, time.Millisecond, 0)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumValue(t, rm, observability.MetricFitsTotal, attribute.String("status", "ok")))
	assert.Equal(t, int64(1), sumValue(t, rm, observability.MetricFitsTotal, attribute.String("status", "error")))

	errHist := findMetric(rm, observability.MetricFitError)
	require.NotNil(t, errHist)

	hist, ok := errHist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.6, hist.DataPoints[0].Sum, 1e-12)
}

func TestFitMetrics_RecordPeak(t *testing.T) {
	t.Parallel()

	mp, reader := manualMeter(t)

	fm, err := observability.NewFitMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	fm.RecordPeak(ctx, fit.PeakDiagnostic{Kind: fit.Spread, Direction: fit.Forward, Steps: 12, Termination: fit.Oscillated})
	fm.RecordPeak(ctx, fit.PeakDiagnostic{Kind: fit.Height, Direction: fit.Reverse, Steps: 200, Termination: fit.IterationLimit})
	fm.RecordPeak(ctx, fit.PeakDiagnostic{Kind: fit.Height, Direction: fit.Reverse, Steps: 3, Termination: fit.Oscillated})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumValue(t, rm, observability.MetricPeakTerminations,
		attribute.String("termination", fit.Oscillated.String())))
	assert.Equal(t, int64(1), sumValue(t, rm, observability.MetricPeakTerminations,
		attribute.String("termination", fit.IterationLimit.String())))

	steps := findMetric(rm, observability.MetricPeakSteps)
	require.NotNil(t, steps)

	hist, ok := steps.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2, "one series per kind and direction")
}

func TestFitMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := manualMeter(t)

	fm, err := observability.NewFitMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := fm.TrackInflight(context.Background())
	assert.Equal(t, int64(1), sumValue(t, collectMetrics(t, reader), observability.MetricFitsInflight))

	done()
	assert.Equal(t, int64(0), sumValue(t, collectMetrics(t, reader), observability.MetricFitsInflight))
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := manualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "civu_deconvolve", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(ctx, "civu_deconvolve", observability.StatusError, 5*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumValue(t, rm, observability.MetricRequestsTotal))
	assert.Equal(t, int64(1), sumValue(t, rm, observability.MetricErrorsTotal,
		attribute.String("op", "civu_deconvolve")))
	assert.NotNil(t, findMetric(rm, observability.MetricRequestDuration))
}
