// Package smooth provides moving-average smoothing of sampled curves.
package smooth

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"
)

// ErrInvalidWindow is returned for a window that is not in [1, len(series)].
var ErrInvalidWindow = errors.New("invalid smoothing window")

// Settings selects how many moving-average passes to run and their width.
// The zero value disables smoothing.
type Settings struct {
	Repeats int `mapstructure:"repeats" json:"repeats" yaml:"repeats"`
	Window  int `mapstructure:"window"  json:"window"  yaml:"window"`
}

// Enabled reports whether the settings smooth at all.
func (s Settings) Enabled() bool {
	return s.Repeats > 0
}

// Apply smooths series with the settings. Disabled settings return a copy.
func (s Settings) Apply(series []float64) ([]float64, error) {
	return Repeat(series, s.Window, s.Repeats)
}

// MovingAverage convolves series with a box kernel of the given width and
// keeps the central part of the full convolution, so the output has the same
// length as the input. Samples outside the series count as zero.
func MovingAverage(series []float64, window int) ([]float64, error) {
	if window < 1 || window > len(series) {
		return nil, fmt.Errorf("%w: width %d for %d samples", ErrInvalidWindow, window, len(series))
	}

	kernel := make([]float64, window)
	for i := range kernel {
		kernel[i] = 1 / float64(window)
	}

	out, convErr := conv.ConvolveMode(series, kernel, conv.ModeSame)
	if convErr != nil {
		return nil, fmt.Errorf("moving average: %w", convErr)
	}

	return out, nil
}

// Repeat applies MovingAverage repeats times, each pass smoothing the output
// of the previous one. Zero or negative repeats return a copy of series.
func Repeat(series []float64, window, repeats int) ([]float64, error) {
	out := append([]float64(nil), series...)

	for pass := range repeats {
		smoothed, smoothErr := MovingAverage(out, window)
		if smoothErr != nil {
			return nil, fmt.Errorf("pass %d: %w", pass+1, smoothErr)
		}

		out = smoothed
	}

	return out, nil
}
