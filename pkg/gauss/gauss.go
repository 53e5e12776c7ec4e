// Package gauss provides Gaussian peak primitives: evaluation, reconstruction
// of multi-peak curves, residual metrics and peak shape measures.
package gauss

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// NormScale is the value the curve maximum is scaled to when normalizing.
const NormScale = 100.0

// fwhmFactor converts a standard deviation to a full width at half maximum.
var fwhmFactor = 2 * math.Sqrt(2*math.Ln2)

// Peak is a single Gaussian component h*exp(-(x-c)^2 / (2 s^2)).
type Peak struct {
	Height float64 `json:"height" yaml:"height"`
	Center float64 `json:"center" yaml:"center"`
	Spread float64 `json:"spread" yaml:"spread"`
}

// At evaluates the peak at a single coordinate.
func (p Peak) At(x float64) float64 {
	d := x - p.Center

	return p.Height * math.Exp(-(d*d)/(2*p.Spread*p.Spread))
}

// Evaluate returns the peak sampled at every coordinate of x.
func (p Peak) Evaluate(x []float64) []float64 {
	out := make([]float64, len(x))
	p.EvaluateInto(out, x)

	return out
}

// EvaluateInto samples the peak at x into dst. dst must be at least len(x) long.
func (p Peak) EvaluateInto(dst, x []float64) {
	for i, xv := range x {
		dst[i] = p.At(xv)
	}
}

// FWHM returns the full width at half maximum of the peak.
func (p Peak) FWHM() float64 {
	return FWHM(p.Spread)
}

// FWHM converts a standard deviation into a full width at half maximum.
func FWHM(spread float64) float64 {
	return fwhmFactor * spread
}

// ParameterSet is an ordered list of peaks. Order is the peak order used for
// window assignment and processing.
type ParameterSet []Peak

// Clone returns an independent copy of the set.
func (ps ParameterSet) Clone() ParameterSet {
	return slices.Clone(ps)
}

// Reversed returns a copy of the set in reverse order.
func (ps ParameterSet) Reversed() ParameterSet {
	out := ps.Clone()
	slices.Reverse(out)

	return out
}

// Heights returns the height of every peak.
func (ps ParameterSet) Heights() []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Height
	}

	return out
}

// Centers returns the center of every peak.
func (ps ParameterSet) Centers() []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Center
	}

	return out
}

// Spreads returns the spread of every peak.
func (ps ParameterSet) Spreads() []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Spread
	}

	return out
}

// Components samples every peak at x, one curve per peak.
func (ps ParameterSet) Components(x []float64) [][]float64 {
	out := make([][]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Evaluate(x)
	}

	return out
}

// Reconstruct returns the sum of all peaks sampled at x.
func (ps ParameterSet) Reconstruct(x []float64) []float64 {
	sum := make([]float64, len(x))
	buf := make([]float64, len(x))

	for _, p := range ps {
		p.EvaluateInto(buf, x)
		floats.Add(sum, buf)
	}

	return sum
}

// RMSD returns the root mean squared deviation between a and b.
// Returns 0 for empty input. Panics if the lengths differ.
func RMSD(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}

	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}

// NormFactor returns the factor that scales the curve maximum to NormScale.
// Returns 0 when the curve is empty or its maximum is not positive.
func NormFactor(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := floats.Max(curve)
	if peak <= 0 {
		return 0
	}

	return NormScale / peak
}

// Area integrates y over x with the trapezoidal rule.
// Returns 0 for fewer than two samples.
func Area(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}

	return integrate.Trapezoidal(x, y)
}
