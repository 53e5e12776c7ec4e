package fit

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// ErrInvalidInput is returned when the inputs of a fit are structurally invalid.
var ErrInvalidInput = errors.New("invalid fit input")

// Direction is the order in which peaks are processed.
type Direction int

// Processing directions.
const (
	// Forward processes peaks from the lowest to the highest center index.
	Forward Direction = iota
	// Reverse processes peaks from the highest to the lowest center index.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParameterKind selects the peak parameter tuned by a pass.
type ParameterKind int

// Tunable parameters.
const (
	Spread ParameterKind = iota
	Height
	Center
)

// Step sizes per parameter kind.
const (
	// SpreadStep is the absolute spread increment per refinement step.
	SpreadStep = 0.01

	// CenterStep is the absolute center increment per refinement step.
	CenterStep = 0.2

	// heightStepScale is the height increment on the normalized (0..100) scale.
	heightStepScale = 0.5
)

// MaxSteps is the refinement step ceiling for a single peak in a single pass.
const MaxSteps = 200

// sentinelScale multiplies the largest height to give the initial minimum error.
const sentinelScale = 100

func (k ParameterKind) String() string {
	switch k {
	case Spread:
		return "spread"
	case Height:
		return "height"
	case Center:
		return "center"
	default:
		return fmt.Sprintf("parameter(%d)", int(k))
	}
}

// Step returns the refinement step for the kind given the curve maximum.
// The height step is half a percent of the curve maximum.
func (k ParameterKind) Step(curveMax float64) float64 {
	switch k {
	case Height:
		return heightStepScale * curveMax / 100
	case Center:
		return CenterStep
	default:
		return SpreadStep
	}
}

func (k ParameterKind) get(p *gauss.Peak) float64 {
	switch k {
	case Height:
		return p.Height
	case Center:
		return p.Center
	default:
		return p.Spread
	}
}

func (k ParameterKind) set(p *gauss.Peak, v float64) {
	switch k {
	case Height:
		p.Height = v
	case Center:
		p.Center = v
	default:
		p.Spread = v
	}
}

// Termination records why a peak's refinement stopped.
type Termination int

// Termination reasons.
const (
	// Converged means the windowed error reached the threshold.
	Converged Termination = iota
	// Oscillated means the value returned to the one two steps earlier.
	Oscillated
	// IterationLimit means MaxSteps refinement steps were taken.
	IterationLimit
)

func (t Termination) String() string {
	switch t {
	case Converged:
		return "converged"
	case Oscillated:
		return "oscillated"
	case IterationLimit:
		return "iteration_limit"
	default:
		return fmt.Sprintf("termination(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (k ParameterKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (t Termination) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
