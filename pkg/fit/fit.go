package fit

import (
	"context"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// Result is the full outcome of a fit.
type Result struct {
	Cycles      CycleResult `json:"cycles"`
	Combination Combination `json:"combination"`
	NormFactor  float64     `json:"norm_factor"`
}

// Fit runs the cycle schedule and combines the forward and reverse fits.
func Fit(ctx context.Context, problem Problem, cycles int, opts ...Option) (Result, error) {
	cyc, cycErr := RunCycles(ctx, problem, cycles, opts...)
	if cycErr != nil {
		return Result{}, cycErr
	}

	norm := gauss.NormFactor(problem.Curve)

	comb, combErr := Combine(cyc.Forward.Params, cyc.Reverse.Params, problem.X, problem.Curve, norm)
	if combErr != nil {
		return Result{}, combErr
	}

	return Result{Cycles: cyc, Combination: comb, NormFactor: norm}, nil
}
