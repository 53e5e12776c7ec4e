package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// InitialSpread is the conventional starting spread for every peak.
const InitialSpread = 0.01

// Problem is the immutable input of a fit.
type Problem struct {
	// X holds the strictly increasing sample coordinates.
	X []float64
	// Curve holds the observed values, parallel to X.
	Curve []float64
	// Centers holds one sample index per peak, ascending.
	Centers []int
	// Params holds the initial guess per peak, in the order of Centers.
	Params gauss.ParameterSet
	// Threshold stops refinement of a peak once its windowed error is at or
	// below it. Zero runs every peak to oscillation or the step ceiling.
	Threshold float64
}

// NewProblem builds a problem whose centers are taken from x at the given
// indices. heights and spreads must be parallel to centers.
func NewProblem(x, curve []float64, centers []int, heights, spreads []float64) (Problem, error) {
	if len(heights) != len(centers) || len(spreads) != len(centers) {
		return Problem{}, fmt.Errorf("%w: %d centers, %d heights, %d spreads",
			ErrInvalidInput, len(centers), len(heights), len(spreads))
	}

	validateErr := validateCenters(centers, len(x))
	if validateErr != nil {
		return Problem{}, validateErr
	}

	params := make(gauss.ParameterSet, len(centers))
	for i, c := range centers {
		params[i] = gauss.Peak{Height: heights[i], Center: x[c], Spread: spreads[i]}
	}

	p := Problem{X: x, Curve: curve, Centers: centers, Params: params}

	return p, p.Validate()
}

// CurveMax returns the largest observed value.
func (p Problem) CurveMax() float64 {
	if len(p.Curve) == 0 {
		return 0
	}

	return floats.Max(p.Curve)
}

// Validate checks the structural invariants of the problem.
func (p Problem) Validate() error {
	if len(p.X) != len(p.Curve) {
		return fmt.Errorf("%w: %d coordinates, %d curve samples", ErrInvalidInput, len(p.X), len(p.Curve))
	}

	samplesErr := validateSamples(p.X, p.Curve)
	if samplesErr != nil {
		return samplesErr
	}

	if len(p.Params) == 0 {
		return fmt.Errorf("%w: no peaks", ErrInvalidInput)
	}

	if len(p.Params) != len(p.Centers) {
		return fmt.Errorf("%w: %d peaks, %d centers", ErrInvalidInput, len(p.Params), len(p.Centers))
	}

	centersErr := validateCenters(p.Centers, len(p.X))
	if centersErr != nil {
		return centersErr
	}

	curveMax := p.CurveMax()
	if curveMax <= 0 {
		return fmt.Errorf("%w: curve maximum %g is not positive", ErrInvalidInput, curveMax)
	}

	if p.Threshold < 0 {
		return fmt.Errorf("%w: negative threshold %g", ErrInvalidInput, p.Threshold)
	}

	for i, pk := range p.Params {
		if !(pk.Spread > 0) {
			return fmt.Errorf("%w: peak %d spread %g is not positive", ErrInvalidInput, i, pk.Spread)
		}

		if !(pk.Height > 0) {
			return fmt.Errorf("%w: peak %d height %g is not positive", ErrInvalidInput, i, pk.Height)
		}

		if pk.Height > curveMax {
			return fmt.Errorf("%w: peak %d height %g exceeds curve maximum %g", ErrInvalidInput, i, pk.Height, curveMax)
		}
	}

	return nil
}

// validateSamples requires finite values and strictly increasing coordinates.
func validateSamples(x, curve []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinate %d is %g", ErrInvalidInput, i, v)
		}

		if i > 0 && !(v > x[i-1]) {
			return fmt.Errorf("%w: coordinates not increasing at %d", ErrInvalidInput, i)
		}
	}

	for i, v := range curve {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: curve sample %d is %g", ErrInvalidInput, i, v)
		}
	}

	return nil
}

// withParams returns a copy of the problem carrying new peak parameters.
func (p Problem) withParams(params gauss.ParameterSet) Problem {
	p.Params = params

	return p
}
