// Package peaks locates candidate peak centers in a sampled curve.
package peaks

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	// ErrInvalidMode is returned when a mode string cannot be parsed.
	ErrInvalidMode = errors.New("invalid peak mode")
	// ErrNoPeaks is returned when a mode yields no centers.
	ErrNoPeaks = errors.New("no peak centers found")
)

// Kind enumerates the center detection strategies.
type Kind int

// Detection strategies.
const (
	// Derivative takes local minima of the second numerical gradient.
	Derivative Kind = iota
	// RelativeMax takes strict local maxima.
	RelativeMax
	// Indices uses caller supplied sample indices.
	Indices
	// Values uses caller supplied coordinates, mapped to sample indices.
	Values
)

// Mode is a parsed center detection strategy.
type Mode struct {
	Kind    Kind
	Indices []int
	Values  []float64
}

// ParseMode parses "der", "relmax" (or "rel_max"), a bracketed list of
// integers such as "[20,80]" which is taken as indices, or a bracketed list
// containing decimals such as "[1.5,3.0]" which is taken as coordinates.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "der", "derivative":
		return Mode{Kind: Derivative}, nil
	case "relmax", "rel_max":
		return Mode{Kind: RelativeMax}, nil
	}

	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}

	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return Mode{}, fmt.Errorf("%w: empty list", ErrInvalidMode)
	}

	fields := strings.Split(body, ",")

	if strings.Contains(body, ".") {
		values := make([]float64, 0, len(fields))

		for _, f := range fields {
			v, parseErr := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if parseErr != nil {
				return Mode{}, fmt.Errorf("%w: %q: %w", ErrInvalidMode, f, parseErr)
			}

			values = append(values, v)
		}

		return Mode{Kind: Values, Values: values}, nil
	}

	indices := make([]int, 0, len(fields))

	for _, f := range fields {
		v, parseErr := strconv.Atoi(strings.TrimSpace(f))
		if parseErr != nil {
			return Mode{}, fmt.Errorf("%w: %q: %w", ErrInvalidMode, f, parseErr)
		}

		indices = append(indices, v)
	}

	return Mode{Kind: Indices, Indices: indices}, nil
}

// String renders the mode in the form accepted by ParseMode.
func (m Mode) String() string {
	switch m.Kind {
	case Derivative:
		return "der"
	case RelativeMax:
		return "relmax"
	case Indices:
		parts := make([]string, len(m.Indices))
		for i, v := range m.Indices {
			parts[i] = strconv.Itoa(v)
		}

		return "[" + strings.Join(parts, ",") + "]"
	default:
		parts := make([]string, len(m.Values))
		for i, v := range m.Values {
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
			if !strings.Contains(parts[i], ".") {
				parts[i] += ".0"
			}
		}

		return "[" + strings.Join(parts, ",") + "]"
	}
}

// Find returns the ascending center indices for the curve y sampled at x.
func (m Mode) Find(x, y []float64) ([]int, error) {
	var centers []int

	switch m.Kind {
	case Derivative:
		centers = SecondDerivativeMinima(y)
	case RelativeMax:
		centers = RelativeMaxima(y)
	case Indices:
		for _, idx := range m.Indices {
			if idx < 0 || idx >= len(y) {
				return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidMode, idx, len(y))
			}
		}

		centers = slices.Clone(m.Indices)
	case Values:
		centers = IndicesFor(x, m.Values)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidMode, int(m.Kind))
	}

	if len(centers) == 0 {
		return nil, ErrNoPeaks
	}

	slices.Sort(centers)

	return centers, nil
}

// Gradient returns the numerical gradient of y at unit spacing: central
// differences inside, one-sided differences at both ends.
func Gradient(y []float64) []float64 {
	n := len(y)
	out := make([]float64, n)

	if n < 2 {
		return out
	}

	out[0] = y[1] - y[0]
	out[n-1] = y[n-1] - y[n-2]

	for i := 1; i < n-1; i++ {
		out[i] = (y[i+1] - y[i-1]) / 2
	}

	return out
}

// SecondDerivativeMinima returns the strict interior local minima of the
// gradient of the gradient of y.
func SecondDerivativeMinima(y []float64) []int {
	return localExtrema(Gradient(Gradient(y)), func(a, b float64) bool { return a < b })
}

// RelativeMaxima returns the strict interior local maxima of y.
func RelativeMaxima(y []float64) []int {
	return localExtrema(y, func(a, b float64) bool { return a > b })
}

func localExtrema(y []float64, better func(a, b float64) bool) []int {
	var out []int

	for i := 1; i < len(y)-1; i++ {
		if better(y[i], y[i-1]) && better(y[i], y[i+1]) {
			out = append(out, i)
		}
	}

	return out
}

// IndicesFor maps each coordinate to the first sample index whose coordinate
// is not below it, clamped to the last sample. x must be ascending.
func IndicesFor(x, values []float64) []int {
	if len(x) == 0 {
		return nil
	}

	out := make([]int, len(values))

	for i, v := range values {
		out[i] = min(sort.SearchFloat64s(x, v), len(x)-1)
	}

	return out
}
