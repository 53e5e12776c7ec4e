package fit

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// PassResult is the outcome of one optimizer pass.
type PassResult struct {
	// Params holds the refined peaks in ascending center order.
	Params gauss.ParameterSet
	// Fit is the sum of the refined peaks over the whole series.
	Fit         []float64
	Diagnostics Diagnostics
}

// Optimize tunes one parameter kind of every peak, visiting peaks in the
// order given by dir. Each finalized peak is added to a running sum, and the
// next peak is scored against that sum over its own window.
func Optimize(problem Problem, kind ParameterKind, dir Direction, opts ...Option) (PassResult, error) {
	validateErr := problem.Validate()
	if validateErr != nil {
		return PassResult{}, validateErr
	}

	o := newOptions(opts)

	return optimize(problem, Pass{Direction: dir, Kind: kind}, o.observer)
}

func optimize(problem Problem, pass Pass, obs Observer) (PassResult, error) {
	windows, windowErr := PlanWindows(problem.Centers, len(problem.X), pass.Direction)
	if windowErr != nil {
		return PassResult{}, windowErr
	}

	curveMax := problem.CurveMax()

	params := problem.Params.Clone()
	if pass.Direction == Reverse {
		params = problem.Params.Reversed()
	}

	d := newDescent(problem, pass.Kind, curveMax)
	diags := make(Diagnostics, 0, len(params))
	peak := make([]float64, len(problem.X))

	for i := range params {
		steps, term, windowError := d.refine(&params[i], windows[i])

		params[i].EvaluateInto(peak, problem.X)
		floats.Add(d.acc, peak)

		idx := i
		if pass.Direction == Reverse {
			idx = len(params) - 1 - i
		}

		diag := PeakDiagnostic{
			Peak:        idx,
			Kind:        pass.Kind,
			Direction:   pass.Direction,
			Cycle:       pass.Cycle,
			Steps:       steps,
			Termination: term,
			Value:       pass.Kind.get(&params[i]),
			Error:       windowError,
		}

		diags = append(diags, diag)
		obs.PeakFitted(diag)
	}

	if pass.Direction == Reverse {
		params = params.Reversed()
		slices.Reverse(diags)
	}

	obs.PassCompleted(pass, gauss.RMSD(d.acc, problem.Curve))

	return PassResult{Params: params, Fit: d.acc, Diagnostics: diags}, nil
}

// descent holds the per-pass state shared by the peaks of one pass.
type descent struct {
	x, curve  []float64
	acc       []float64
	model     []float64
	kind      ParameterKind
	step      float64
	curveMax  float64
	threshold float64
	sentinel  float64
}

func newDescent(problem Problem, kind ParameterKind, curveMax float64) *descent {
	return &descent{
		x:         problem.X,
		curve:     problem.Curve,
		acc:       make([]float64, len(problem.X)),
		model:     make([]float64, len(problem.X)),
		kind:      kind,
		step:      kind.Step(curveMax),
		curveMax:  curveMax,
		threshold: problem.Threshold,
		sentinel:  floats.Max(problem.Params.Heights()) * sentinelScale,
	}
}

// windowError scores p on top of the accumulated sum over w.
func (d *descent) windowError(p gauss.Peak, w Window) float64 {
	model := d.model[:w.Len()]

	for i := w.Start; i < w.End; i++ {
		model[i-w.Start] = d.acc[i] + p.At(d.x[i])
	}

	return gauss.RMSD(model, d.curve[w.Start:w.End])
}

// refine runs the coordinate descent for one peak in place and returns the
// number of steps taken, the termination reason and the final windowed error.
func (d *descent) refine(p *gauss.Peak, w Window) (int, Termination, float64) {
	kind := d.kind
	current := d.windowError(*p, w)
	minError := d.sentinel
	best := kind.get(p)
	history := make([]float64, 0, MaxSteps)

	step := 0
	for ; current > d.threshold; step++ {
		if step == MaxSteps {
			kind.set(p, best)

			return step, IterationLimit, d.windowError(*p, w)
		}

		value := kind.get(p)

		up := value + d.step
		down := value - d.step

		if down <= 0 {
			down = up
		}

		if kind == Height && up > d.curveMax {
			up = down
		}

		upPeak, downPeak := *p, *p
		kind.set(&upPeak, up)
		kind.set(&downPeak, down)

		if d.windowError(upPeak, w) > d.windowError(downPeak, w) && down > 0 {
			*p = downPeak
		} else {
			*p = upPeak
		}

		current = d.windowError(*p, w)
		value = kind.get(p)

		if current < minError {
			minError = current
			best = value
		}

		if step > 2 && history[len(history)-2] == value {
			kind.set(p, best)

			return step + 1, Oscillated, d.windowError(*p, w)
		}

		history = append(history, value)
	}

	return step, Converged, current
}
