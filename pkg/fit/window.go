package fit

import (
	"fmt"
	"slices"
)

// forwardWindowPad extends a forward window past its peak center.
const forwardWindowPad = 3

// Window is the index range used to score one peak's fit.
type Window struct {
	Start int // Inclusive index.
	End   int // Exclusive index.
}

// Len returns the number of samples in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// PlanWindows returns one window per peak, in processing order for dir.
//
// Forward windows are prefixes [0, center+3) clipped to n, in ascending peak
// order. Reverse windows are suffixes [center, n), listed from the last peak
// to the first.
func PlanWindows(centers []int, n int, dir Direction) ([]Window, error) {
	validateErr := validateCenters(centers, n)
	if validateErr != nil {
		return nil, validateErr
	}

	windows := make([]Window, len(centers))

	for i, c := range centers {
		switch dir {
		case Forward:
			windows[i] = Window{Start: 0, End: min(c+forwardWindowPad, n)}
		case Reverse:
			windows[i] = Window{Start: c, End: n}
		default:
			return nil, fmt.Errorf("%w: unknown direction %d", ErrInvalidInput, int(dir))
		}
	}

	if dir == Reverse {
		slices.Reverse(windows)
	}

	return windows, nil
}

func validateCenters(centers []int, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: series length %d", ErrInvalidInput, n)
	}

	for i, c := range centers {
		if c < 0 || c >= n {
			return fmt.Errorf("%w: center index %d out of range [0, %d)", ErrInvalidInput, c, n)
		}

		if i > 0 && c < centers[i-1] {
			return fmt.Errorf("%w: center indices not sorted at position %d", ErrInvalidInput, i)
		}
	}

	return nil
}
