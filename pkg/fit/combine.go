package fit

import (
	"fmt"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// Method identifies which parameter set produced a candidate.
type Method int

// Candidate methods, in tie-break order.
const (
	MethodAverage Method = iota
	MethodForward
	MethodReverse
)

func (m Method) String() string {
	switch m {
	case MethodAverage:
		return "average"
	case MethodForward:
		return "forward"
	case MethodReverse:
		return "reverse"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Bundle holds a candidate's curves over the whole series.
type Bundle struct {
	// Components holds one curve per peak.
	Components [][]float64 `json:"components"`
	// Fit is the sum of Components.
	Fit []float64 `json:"fit"`
	// Observed is the curve the fit is scored against.
	Observed []float64 `json:"observed"`
}

// Candidate is one scored reconstruction.
type Candidate struct {
	Method Method             `json:"method"`
	Params gauss.ParameterSet `json:"params"`
	Bundle Bundle             `json:"bundle"`
	// Error is the full-series RMSD multiplied by the normalization factor.
	Error float64 `json:"error"`
}

// Combination holds the three candidates of a fit and the winner.
type Combination struct {
	// Candidates is ordered average, forward, reverse.
	Candidates []Candidate `json:"candidates"`
	BestIndex  int         `json:"best_index"`
}

// Best returns the lowest-error candidate.
func (c Combination) Best() Candidate {
	return c.Candidates[c.BestIndex]
}

// Errors returns the scaled errors ordered average, forward, reverse.
func (c Combination) Errors() []float64 {
	out := make([]float64, len(c.Candidates))
	for i, cand := range c.Candidates {
		out[i] = cand.Error
	}

	return out
}

// MinError returns the error of the winning candidate.
func (c Combination) MinError() float64 {
	return c.Best().Error
}

// WeightedAverage merges forward and reverse sets peak by peak. Peak i of K
// gets forward weight 1-i/(K-1) and reverse weight i/(K-1), so each direction
// dominates where it started. A single peak is the plain mean.
func WeightedAverage(forward, reverse gauss.ParameterSet) (gauss.ParameterSet, error) {
	if len(forward) != len(reverse) {
		return nil, fmt.Errorf("%w: %d forward peaks, %d reverse peaks", ErrInvalidInput, len(forward), len(reverse))
	}

	k := len(forward)
	if k == 0 {
		return nil, fmt.Errorf("%w: no peaks to combine", ErrInvalidInput)
	}

	out := make(gauss.ParameterSet, k)

	for i := range forward {
		wr := 0.5
		if k > 1 {
			wr = float64(i) / float64(k-1)
		}

		wf := 1 - wr

		out[i] = gauss.Peak{
			Height: wf*forward[i].Height + wr*reverse[i].Height,
			Center: wf*forward[i].Center + wr*reverse[i].Center,
			Spread: wf*forward[i].Spread + wr*reverse[i].Spread,
		}
	}

	return out, nil
}

// Combine averages the forward and reverse sets, reconstructs the average,
// forward and reverse candidates over x, and scores each against curve. The
// winner is the lowest scaled error, ties going to the earlier candidate.
func Combine(forward, reverse gauss.ParameterSet, x, curve []float64, normFactor float64) (Combination, error) {
	if len(x) != len(curve) {
		return Combination{}, fmt.Errorf("%w: %d coordinates, %d curve samples", ErrInvalidInput, len(x), len(curve))
	}

	average, avgErr := WeightedAverage(forward, reverse)
	if avgErr != nil {
		return Combination{}, avgErr
	}

	sets := []struct {
		method Method
		params gauss.ParameterSet
	}{
		{method: MethodAverage, params: average},
		{method: MethodForward, params: forward.Clone()},
		{method: MethodReverse, params: reverse.Clone()},
	}

	comb := Combination{Candidates: make([]Candidate, 0, len(sets))}

	for i, s := range sets {
		fitCurve := s.params.Reconstruct(x)

		cand := Candidate{
			Method: s.method,
			Params: s.params,
			Bundle: Bundle{
				Components: s.params.Components(x),
				Fit:        fitCurve,
				Observed:   curve,
			},
			Error: gauss.RMSD(fitCurve, curve) * normFactor,
		}

		comb.Candidates = append(comb.Candidates, cand)

		if cand.Error < comb.Candidates[comb.BestIndex].Error {
			comb.BestIndex = i
		}
	}

	return comb, nil
}
