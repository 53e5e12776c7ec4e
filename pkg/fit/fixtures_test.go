package fit_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

func series(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}

	return x
}

// problemFor builds a problem from a noise-free curve with the conventional
// initial guesses: spread 0.01 and height equal to the curve at each center.
func problemFor(t *testing.T, x []float64, truth gauss.ParameterSet, centers []int) fit.Problem {
	t.Helper()

	curve := truth.Reconstruct(x)

	heights := make([]float64, len(centers))
	spreads := make([]float64, len(centers))

	for i, c := range centers {
		heights[i] = curve[c]
		spreads[i] = fit.InitialSpread
	}

	p, err := fit.NewProblem(x, curve, centers, heights, spreads)
	require.NoError(t, err)

	return p
}

type recordingObserver struct {
	mu     sync.Mutex
	peaks  []fit.PeakDiagnostic
	passes []fit.Pass
}

func (r *recordingObserver) PeakFitted(d fit.PeakDiagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peaks = append(r.peaks, d)
}

func (r *recordingObserver) PassCompleted(p fit.Pass, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passes = append(r.passes, p)
}
