package fit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// DirectionResult is the final state of one direction's schedule.
type DirectionResult struct {
	// Params holds the fitted peaks in ascending center order.
	Params gauss.ParameterSet `json:"params"`
	// Fit is the sum of the fitted peaks.
	Fit []float64 `json:"fit"`
}

// CycleResult holds the forward and reverse fits of a cycle schedule.
type CycleResult struct {
	Forward DirectionResult `json:"forward"`
	Reverse DirectionResult `json:"reverse"`
	// Diagnostics lists every forward refinement, then every reverse one.
	Diagnostics Diagnostics `json:"diagnostics"`
}

// RunCycles fits the problem in both directions. Each direction starts from
// the initial guesses with one spread pass, then repeats a height pass and a
// spread pass cycles times. With WithCenterTuning a center pass follows each
// cycle's spread pass.
//
// The context is checked between passes.
func RunCycles(ctx context.Context, problem Problem, cycles int, opts ...Option) (CycleResult, error) {
	validateErr := problem.Validate()
	if validateErr != nil {
		return CycleResult{}, validateErr
	}

	if cycles < 0 {
		return CycleResult{}, fmt.Errorf("%w: negative cycle count %d", ErrInvalidInput, cycles)
	}

	o := newOptions(opts)

	var (
		fwd, rev       schedule
		fwdErr, revErr error
	)

	if o.parallel {
		var wg sync.WaitGroup

		wg.Add(2)

		go func() {
			defer wg.Done()

			fwd, fwdErr = runSchedule(ctx, problem, cycles, Forward, o)
		}()

		go func() {
			defer wg.Done()

			rev, revErr = runSchedule(ctx, problem, cycles, Reverse, o)
		}()

		wg.Wait()
	} else {
		fwd, fwdErr = runSchedule(ctx, problem, cycles, Forward, o)
		if fwdErr == nil {
			rev, revErr = runSchedule(ctx, problem, cycles, Reverse, o)
		}
	}

	joined := errors.Join(fwdErr, revErr)
	if joined != nil {
		return CycleResult{}, joined
	}

	diags := make(Diagnostics, 0, len(fwd.diags)+len(rev.diags))
	diags = append(diags, fwd.diags...)
	diags = append(diags, rev.diags...)

	return CycleResult{
		Forward:     fwd.result,
		Reverse:     rev.result,
		Diagnostics: diags,
	}, nil
}

type schedule struct {
	result DirectionResult
	diags  Diagnostics
}

func runSchedule(ctx context.Context, problem Problem, cycles int, dir Direction, o options) (schedule, error) {
	var s schedule

	params := problem.Params.Clone()

	run := func(kind ParameterKind, cycle int) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("%s %s pass (cycle %d): %w", dir, kind, cycle, ctxErr)
		}

		res, optErr := optimize(problem.withParams(params), Pass{Direction: dir, Kind: kind, Cycle: cycle}, o.observer)
		if optErr != nil {
			return optErr
		}

		params = res.Params
		s.result = DirectionResult{Params: res.Params, Fit: res.Fit}
		s.diags = append(s.diags, res.Diagnostics...)

		return nil
	}

	initErr := run(Spread, 0)
	if initErr != nil {
		return schedule{}, initErr
	}

	for cycle := 1; cycle <= cycles; cycle++ {
		kinds := []ParameterKind{Height, Spread}
		if o.tuneCenters {
			kinds = append(kinds, Center)
		}

		for _, kind := range kinds {
			runErr := run(kind, cycle)
			if runErr != nil {
				return schedule{}, runErr
			}
		}
	}

	return s, nil
}
