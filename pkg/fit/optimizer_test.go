package fit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

func TestOptimizeSpreadConverges(t *testing.T) {
	t.Parallel()

	x := series(60)
	truth := gauss.ParameterSet{{Height: 10, Center: 30, Spread: 1.5}}
	p := problemFor(t, x, truth, []int{30})

	for _, dir := range []fit.Direction{fit.Forward, fit.Reverse} {
		t.Run(dir.String(), func(t *testing.T) {
			t.Parallel()

			res, err := fit.Optimize(p, fit.Spread, dir)
			require.NoError(t, err)
			require.Len(t, res.Params, 1)
			require.Len(t, res.Diagnostics, 1)

			assert.InDelta(t, 1.5, res.Params[0].Spread, 0.011)
			assert.InDelta(t, 10.0, res.Params[0].Height, 1e-12, "height is fixed during a spread pass")
			assert.InDelta(t, 30.0, res.Params[0].Center, 1e-12)
			assert.LessOrEqual(t, res.Diagnostics[0].Steps, fit.MaxSteps)
			assert.Len(t, res.Fit, len(x))
		})
	}
}

func TestOptimizeIterationLimitSnapsToBest(t *testing.T) {
	t.Parallel()

	x := series(101)
	truth := gauss.ParameterSet{{Height: 10, Center: 50, Spread: 5}}
	p := problemFor(t, x, truth, []int{50})

	res, err := fit.Optimize(p, fit.Spread, fit.Forward)
	require.NoError(t, err)

	diag := res.Diagnostics[0]
	assert.Equal(t, fit.IterationLimit, diag.Termination)
	assert.Equal(t, fit.MaxSteps, diag.Steps)

	// 200 steps of 0.01 from 0.01, every one an improvement.
	assert.InDelta(t, 2.01, res.Params[0].Spread, 1e-9)
	assert.InDelta(t, res.Params[0].Spread, diag.Value, 1e-12)
}

func TestOptimizeHeightOscillationKeepsLowerError(t *testing.T) {
	t.Parallel()

	x := series(101)
	curve := gauss.Peak{Height: 200, Center: 50, Spread: 2}.Evaluate(x)

	// A wider model spread moves the best height off the integer grid, so the
	// search ends bouncing between two neighbours.
	p, err := fit.NewProblem(x, curve, []int{50}, []float64{190}, []float64{2.5})
	require.NoError(t, err)

	res, err := fit.Optimize(p, fit.Height, fit.Forward)
	require.NoError(t, err)

	diag := res.Diagnostics[0]
	assert.Equal(t, fit.Oscillated, diag.Termination)
	assert.Less(t, diag.Steps, fit.MaxSteps)

	final := res.Params[0]
	step := fit.Height.Step(200)
	require.InDelta(t, 1.0, step, 1e-12)

	windowErr := func(h float64) float64 {
		model := gauss.Peak{Height: h, Center: final.Center, Spread: final.Spread}.Evaluate(x)

		return gauss.RMSD(model[:53], curve[:53])
	}

	assert.LessOrEqual(t, windowErr(final.Height), windowErr(final.Height+step))
	assert.LessOrEqual(t, windowErr(final.Height), windowErr(final.Height-step))
	assert.LessOrEqual(t, final.Height, 200.0)
	assert.InDelta(t, windowErr(final.Height), diag.Error, 1e-12)
}

func TestOptimizeHeightNeverExceedsCurveMax(t *testing.T) {
	t.Parallel()

	x := series(40)
	curve := gauss.Peak{Height: 8, Center: 20, Spread: 1}.Evaluate(x)

	// A narrower model would want a taller peak than the data allows.
	p, err := fit.NewProblem(x, curve, []int{20}, []float64{7}, []float64{0.5})
	require.NoError(t, err)

	res, err := fit.Optimize(p, fit.Height, fit.Reverse)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.Params[0].Height, 8.0)
	assert.Positive(t, res.Params[0].Height)
}

func TestOptimizeThresholdStopsImmediately(t *testing.T) {
	t.Parallel()

	x := series(30)
	truth := gauss.ParameterSet{{Height: 5, Center: 15, Spread: 2}}
	p := problemFor(t, x, truth, []int{15})
	p.Threshold = 1000

	res, err := fit.Optimize(p, fit.Spread, fit.Forward)
	require.NoError(t, err)

	assert.Equal(t, fit.Converged, res.Diagnostics[0].Termination)
	assert.Zero(t, res.Diagnostics[0].Steps)
	assert.Equal(t, p.Params, res.Params)
}

func TestOptimizeReverseReturnsAscendingOrder(t *testing.T) {
	t.Parallel()

	x := series(100)
	truth := gauss.ParameterSet{
		{Height: 10, Center: 25, Spread: 1.5},
		{Height: 6, Center: 75, Spread: 1.2},
	}
	p := problemFor(t, x, truth, []int{25, 75})

	obs := &recordingObserver{}

	res, err := fit.Optimize(p, fit.Spread, fit.Reverse, fit.WithObserver(obs))
	require.NoError(t, err)

	assert.InDelta(t, 25.0, res.Params[0].Center, 1e-12)
	assert.InDelta(t, 75.0, res.Params[1].Center, 1e-12)
	assert.InDelta(t, 1.5, res.Params[0].Spread, 0.011)
	assert.InDelta(t, 1.2, res.Params[1].Spread, 0.011)

	// Events arrive in processing order, the record in ascending order.
	require.Len(t, obs.peaks, 2)
	assert.Equal(t, 1, obs.peaks[0].Peak)
	assert.Equal(t, 0, obs.peaks[1].Peak)
	assert.Equal(t, 0, res.Diagnostics[0].Peak)
	assert.Equal(t, 1, res.Diagnostics[1].Peak)
	require.Len(t, obs.passes, 1)
	assert.Equal(t, fit.Pass{Direction: fit.Reverse, Kind: fit.Spread}, obs.passes[0])
}

func TestOptimizeDoesNotMutateProblem(t *testing.T) {
	t.Parallel()

	x := series(30)
	truth := gauss.ParameterSet{{Height: 5, Center: 15, Spread: 2}}
	p := problemFor(t, x, truth, []int{15})
	before := p.Params.Clone()
	curveBefore := append([]float64(nil), p.Curve...)

	_, err := fit.Optimize(p, fit.Spread, fit.Forward)
	require.NoError(t, err)

	assert.Equal(t, before, p.Params)
	assert.Equal(t, curveBefore, p.Curve)
}

func TestProblemValidate(t *testing.T) {
	t.Parallel()

	x := series(10)
	curve := gauss.Peak{Height: 4, Center: 5, Spread: 1}.Evaluate(x)

	valid := func() fit.Problem {
		return fit.Problem{
			X:       x,
			Curve:   curve,
			Centers: []int{5},
			Params:  gauss.ParameterSet{{Height: 4, Center: 5, Spread: 0.01}},
		}
	}

	tests := []struct {
		name   string
		mutate func(p *fit.Problem)
	}{
		{name: "length_mismatch", mutate: func(p *fit.Problem) { p.Curve = curve[:5] }},
		{name: "no_peaks", mutate: func(p *fit.Problem) { p.Params = nil; p.Centers = nil }},
		{name: "centers_mismatch", mutate: func(p *fit.Problem) { p.Centers = []int{2, 5} }},
		{name: "center_out_of_range", mutate: func(p *fit.Problem) { p.Centers = []int{10} }},
		{name: "flat_curve", mutate: func(p *fit.Problem) { p.Curve = make([]float64, 10) }},
		{name: "zero_spread", mutate: func(p *fit.Problem) { p.Params[0].Spread = 0 }},
		{name: "negative_height", mutate: func(p *fit.Problem) { p.Params[0].Height = -1 }},
		{name: "height_above_max", mutate: func(p *fit.Problem) { p.Params[0].Height = 4.5 }},
		{name: "negative_threshold", mutate: func(p *fit.Problem) { p.Threshold = -1 }},
		{name: "nan_sample", mutate: func(p *fit.Problem) { p.Curve = withValue(curve, 3, math.NaN()) }},
		{name: "inf_sample", mutate: func(p *fit.Problem) { p.Curve = withValue(curve, 7, math.Inf(1)) }},
		{name: "nan_coordinate", mutate: func(p *fit.Problem) { p.X = withValue(x, 2, math.NaN()) }},
		{name: "repeated_coordinate", mutate: func(p *fit.Problem) { p.X = withValue(x, 4, x[3]) }},
		{name: "decreasing_coordinate", mutate: func(p *fit.Problem) { p.X = withValue(x, 8, x[1]) }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := valid()
			tt.mutate(&p)

			require.ErrorIs(t, p.Validate(), fit.ErrInvalidInput)

			_, err := fit.Optimize(p, fit.Spread, fit.Forward)
			require.ErrorIs(t, err, fit.ErrInvalidInput)
		})
	}
}

func withValue(src []float64, i int, v float64) []float64 {
	out := append([]float64(nil), src...)
	out[i] = v

	return out
}

func TestFitRejectsNaNSample(t *testing.T) {
	t.Parallel()

	x := series(30)
	curve := gauss.Peak{Height: 10, Center: 15, Spread: 3}.Evaluate(x)
	curve[3] = math.NaN()

	_, err := fit.NewProblem(x, curve, []int{15}, []float64{10}, []float64{fit.InitialSpread})
	require.ErrorIs(t, err, fit.ErrInvalidInput)
}

func TestNewProblemLengthMismatch(t *testing.T) {
	t.Parallel()

	x := series(10)

	_, err := fit.NewProblem(x, x, []int{1, 2}, []float64{1}, []float64{1, 1})
	require.ErrorIs(t, err, fit.ErrInvalidInput)
}

func TestParameterKindStep(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.01, fit.Spread.Step(50), 1e-12)
	assert.InDelta(t, 0.2, fit.Center.Step(50), 1e-12)
	assert.InDelta(t, 0.25, fit.Height.Step(50), 1e-12)
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "forward", fit.Forward.String())
	assert.Equal(t, "reverse", fit.Reverse.String())
	assert.Equal(t, "height", fit.Height.String())
	assert.Equal(t, "iteration_limit", fit.IterationLimit.String())
	assert.Equal(t, "average", fit.MethodAverage.String())

	text, err := fit.Oscillated.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "oscillated", string(text))
}
