// Package deconv runs Gaussian deconvolution over arrival-time distributions:
// preprocessing, center detection, initial guesses, the fit itself and the
// derived peak quantities.
package deconv

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
	"github.com/Sumatoshi-tech/civu/pkg/smooth"
)

// Sentinel errors.
var (
	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("invalid deconvolution settings")
	// ErrFlatTrace is returned for a trace whose maximum is not positive.
	ErrFlatTrace = errors.New("trace has no positive samples")
)

// DefaultCycles is the number of height/spread cycles used when none is set.
const DefaultCycles = 5

const tracerName = "github.com/Sumatoshi-tech/civu/pkg/deconv"

// Settings configures a deconvolution.
type Settings struct {
	Cycles      int
	Threshold   float64
	Parallel    bool
	TuneCenters bool
	Smooth      smooth.Settings
	Align       bool
	Means       peaks.Mode
	// Workers bounds the number of traces fitted concurrently. Zero or one
	// fits sequentially.
	Workers int
}

// DefaultSettings returns derivative center detection with DefaultCycles.
func DefaultSettings() Settings {
	return Settings{Cycles: DefaultCycles, Means: peaks.Mode{Kind: peaks.Derivative}}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	switch {
	case s.Cycles < 0:
		return fmt.Errorf("%w: cycles %d", ErrInvalidSettings, s.Cycles)
	case s.Threshold < 0:
		return fmt.Errorf("%w: threshold %g", ErrInvalidSettings, s.Threshold)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidSettings, s.Workers)
	case s.Smooth.Repeats < 0:
		return fmt.Errorf("%w: smooth repeats %d", ErrInvalidSettings, s.Smooth.Repeats)
	case s.Smooth.Enabled() && s.Smooth.Window < 1:
		return fmt.Errorf("%w: smooth window %d", ErrInvalidSettings, s.Smooth.Window)
	}

	return nil
}

func (s Settings) fitOptions() []fit.Option {
	var opts []fit.Option

	if s.Parallel {
		opts = append(opts, fit.WithParallel())
	}

	if s.TuneCenters {
		opts = append(opts, fit.WithCenterTuning())
	}

	return opts
}

// PeakResult holds the derived quantities of one fitted peak.
type PeakResult struct {
	Index  int     `json:"index"  yaml:"index"`
	Height float64 `json:"height" yaml:"height"`
	Center float64 `json:"center" yaml:"center"`
	Spread float64 `json:"spread" yaml:"spread"`
	FWHM   float64 `json:"fwhm"   yaml:"fwhm"`
	// AreaPercent is the peak's area as a percentage of the observed area.
	AreaPercent float64 `json:"area_percent" yaml:"area_percent"`
}

// TraceResult is the outcome of fitting one ATD.
type TraceResult struct {
	Key string
	// Curve is the preprocessed trace that was fitted.
	Curve    []float64
	Centers  []int
	Initial  gauss.ParameterSet
	Fit      fit.Result
	Method   fit.Method
	MinError float64
	Peaks    []PeakResult
	Duration time.Duration
}

// Best returns the selected parameter set.
func (r TraceResult) Best() gauss.ParameterSet {
	return r.Fit.Combination.Best().Params
}

// RunResult is the outcome of deconvolving a whole dataset.
type RunResult struct {
	ID      uuid.UUID
	Dataset string
	Started time.Time
	Times   []float64
	// Shifts holds the per-key alignment shift; nil when alignment is off.
	Shifts       map[string]int
	Traces       []TraceResult
	AverageError float64
	Settings     Settings
}

// Deconvolver fits traces with fixed settings. It is safe for concurrent use.
type Deconvolver struct {
	settings Settings
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.FitMetrics
}

// Option configures a Deconvolver.
type Option func(*Deconvolver)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deconvolver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run and trace spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Deconvolver) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithMetrics records fits and peak outcomes on fm.
func WithMetrics(fm *observability.FitMetrics) Option {
	return func(d *Deconvolver) {
		d.metrics = fm
	}
}

// New validates settings and returns a Deconvolver.
func New(settings Settings, opts ...Option) (*Deconvolver, error) {
	validateErr := settings.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	d := &Deconvolver{
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   nooptrace.NewTracerProvider().Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Settings returns the settings the deconvolver was built with.
func (d *Deconvolver) Settings() Settings {
	return d.settings
}
