// Package fit decomposes a sampled curve into additive Gaussian peaks.
//
// The fit is a bounded coordinate descent: one parameter family (spread,
// height or center) is tuned per pass while the others stay fixed, and peaks
// are visited one at a time, each scored over its own index window against the
// curve built so far. The same schedule runs twice, once in ascending peak order
// (forward) and once in descending order (reverse). The two results are merged
// by a position-weighted average, and the lowest-error candidate among the
// average, forward and reverse fits is selected.
//
// Typical use:
//
//	problem, err := fit.NewProblem(x, curve, centers, heights, spreads)
//	result, err := fit.Fit(ctx, problem, 5)
//	best := result.Combination.Best()
package fit
