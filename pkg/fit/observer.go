package fit

// PeakDiagnostic describes how one peak's refinement ended within one pass.
type PeakDiagnostic struct {
	// Peak is the index of the peak in ascending center order.
	Peak        int           `json:"peak"`
	Kind        ParameterKind `json:"kind"`
	Direction   Direction     `json:"direction"`
	Cycle       int           `json:"cycle"`
	Steps       int           `json:"steps"`
	Termination Termination   `json:"termination"`
	Value       float64       `json:"value"`
	Error       float64       `json:"error"`
}

// Pass identifies one optimizer pass inside a cycle schedule.
// Cycle 0 is the initial spread pass.
type Pass struct {
	Direction Direction
	Kind      ParameterKind
	Cycle     int
}

// Observer receives progress events from the optimizer.
// Implementations must be safe for concurrent use when forward and reverse
// fits run in parallel.
type Observer interface {
	PeakFitted(d PeakDiagnostic)
	PassCompleted(p Pass, fitError float64)
}

// NopObserver discards every event.
type NopObserver struct{}

// PeakFitted implements Observer.
func (NopObserver) PeakFitted(PeakDiagnostic) {}

// PassCompleted implements Observer.
func (NopObserver) PassCompleted(Pass, float64) {}

// Diagnostics is the ordered record of every peak refinement.
type Diagnostics []PeakDiagnostic

// Summary counts refinements per termination reason.
type Summary struct {
	Converged      int `json:"converged"`
	Oscillated     int `json:"oscillated"`
	IterationLimit int `json:"iteration_limit"`
}

// Summary tallies the terminations.
func (d Diagnostics) Summary() Summary {
	var s Summary

	for _, diag := range d {
		switch diag.Termination {
		case Converged:
			s.Converged++
		case Oscillated:
			s.Oscillated++
		case IterationLimit:
			s.IterationLimit++
		}
	}

	return s
}
