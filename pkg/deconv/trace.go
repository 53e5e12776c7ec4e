package deconv

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
)

// FitTrace deconvolves one trace y sampled at x.
func (d *Deconvolver) FitTrace(ctx context.Context, key string, x, y []float64) (TraceResult, error) {
	ctx, span := d.tracer.Start(ctx, "deconv.fit_trace", trace.WithAttributes(
		attribute.String("atd.key", key),
		attribute.Int("atd.samples", len(y)),
	))
	defer span.End()

	if d.metrics != nil {
		defer d.metrics.TrackInflight(ctx)()
	}

	start := time.Now()

	res, err := d.fitTrace(ctx, key, x, y)
	res.Duration = time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("atd.peaks", len(res.Peaks)),
			attribute.String("fit.method", res.Method.String()),
			attribute.Float64("fit.error", res.MinError),
		)
	}

	if d.metrics != nil {
		d.metrics.RecordFit(ctx, status, res.Duration, res.MinError)
	}

	return res, err
}

func (d *Deconvolver) fitTrace(ctx context.Context, key string, x, y []float64) (TraceResult, error) {
	if len(x) != len(y) {
		return TraceResult{}, fmt.Errorf("trace %s: %w: %d times, %d samples", key, fit.ErrInvalidInput, len(x), len(y))
	}

	curve, smoothErr := d.settings.Smooth.Apply(y)
	if smoothErr != nil {
		return TraceResult{}, fmt.Errorf("trace %s: smooth: %w", key, smoothErr)
	}

	if len(curve) == 0 || floats.Max(curve) <= 0 {
		return TraceResult{}, fmt.Errorf("trace %s: %w", key, ErrFlatTrace)
	}

	centers, findErr := d.settings.Means.Find(x, curve)
	if findErr != nil {
		return TraceResult{}, fmt.Errorf("trace %s: centers: %w", key, findErr)
	}

	heights, spreads := InitialGuess(curve, centers)

	problem, problemErr := fit.NewProblem(x, curve, centers, heights, spreads)
	if problemErr != nil {
		return TraceResult{}, fmt.Errorf("trace %s: %w", key, problemErr)
	}

	problem.Threshold = d.settings.Threshold

	logger := d.logger.With("atd", key)
	logger.DebugContext(ctx, "fitting trace", "centers", centers, "cycles", d.settings.Cycles)

	opts := append(d.settings.fitOptions(),
		fit.WithObserver(observability.NewFitObserver(ctx, logger, d.metrics)))

	result, fitErr := fit.Fit(ctx, problem, d.settings.Cycles, opts...)
	if fitErr != nil {
		return TraceResult{}, fmt.Errorf("trace %s: %w", key, fitErr)
	}

	best := result.Combination.Best()

	logger.InfoContext(ctx, "trace fitted",
		"method", best.Method.String(),
		"error", best.Error,
		"peaks", len(best.Params),
		"spreads", best.Params.Spreads(),
	)

	return TraceResult{
		Key:      key,
		Curve:    curve,
		Centers:  centers,
		Initial:  problem.Params,
		Fit:      result,
		Method:   best.Method,
		MinError: best.Error,
		Peaks:    DerivePeaks(x, curve, best.Params),
	}, nil
}

// InitialGuess returns starting heights and spreads for centers on curve.
// Heights are the curve values at the centers, floored at the height step so
// that refinement can move them. Spreads start at fit.InitialSpread.
func InitialGuess(curve []float64, centers []int) (heights, spreads []float64) {
	floor := fit.Height.Step(floats.Max(curve))

	heights = make([]float64, len(centers))
	spreads = make([]float64, len(centers))

	for i, c := range centers {
		heights[i] = max(curve[c], floor)
		spreads[i] = fit.InitialSpread
	}

	return heights, spreads
}

// DerivePeaks computes FWHM and area share of each peak of params against
// the observed curve.
func DerivePeaks(x, curve []float64, params gauss.ParameterSet) []PeakResult {
	total := gauss.Area(x, curve)
	out := make([]PeakResult, len(params))

	for i, p := range params {
		var share float64
		if total > 0 {
			share = gauss.Area(x, p.Evaluate(x)) / total * 100
		}

		out[i] = PeakResult{
			Index:       i,
			Height:      p.Height,
			Center:      p.Center,
			Spread:      p.Spread,
			FWHM:        p.FWHM(),
			AreaPercent: share,
		}
	}

	return out
}
