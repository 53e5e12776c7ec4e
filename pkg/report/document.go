// Package report renders deconvolution runs: the result document and its
// schema, the plain-text error log and the terminal summary table.
package report

import (
	"time"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// SchemaVersion is the result document version written by NewDocument.
const SchemaVersion = 1

// Document is the serializable form of a run.
type Document struct {
	SchemaVersion int            `json:"schema_version"  yaml:"schema_version"`
	RunID         string         `json:"run_id"          yaml:"run_id"`
	Dataset       string         `json:"dataset"         yaml:"dataset"`
	Started       time.Time      `json:"started"         yaml:"started"`
	Settings      Settings       `json:"settings"        yaml:"settings"`
	Shifts        map[string]int `json:"shifts,omitempty" yaml:"shifts,omitempty"`
	AverageError  float64        `json:"average_error"   yaml:"average_error"`
	Traces        []Trace        `json:"traces"          yaml:"traces"`
}

// Settings records how the run was configured.
type Settings struct {
	Cycles        int     `json:"cycles"         yaml:"cycles"`
	Threshold     float64 `json:"threshold"      yaml:"threshold"`
	Means         string  `json:"means"          yaml:"means"`
	SmoothRepeats int     `json:"smooth_repeats" yaml:"smooth_repeats"`
	SmoothWindow  int     `json:"smooth_window"  yaml:"smooth_window"`
	Align         bool    `json:"align"          yaml:"align"`
	Parallel      bool    `json:"parallel"       yaml:"parallel"`
	TuneCenters   bool    `json:"tune_centers"   yaml:"tune_centers"`
}

// Trace is one fitted ATD.
type Trace struct {
	Key          string              `json:"key"           yaml:"key"`
	Centers      []int               `json:"centers"       yaml:"centers"`
	NormFactor   float64             `json:"norm_factor"   yaml:"norm_factor"`
	Method       string              `json:"method"        yaml:"method"`
	MinError     float64             `json:"min_error"     yaml:"min_error"`
	Candidates   []Candidate         `json:"candidates"    yaml:"candidates"`
	Peaks        []deconv.PeakResult `json:"peaks"         yaml:"peaks"`
	Terminations Terminations        `json:"terminations"  yaml:"terminations"`
	DurationMS   float64             `json:"duration_ms"   yaml:"duration_ms"`
}

// Candidate is one scored parameter set.
type Candidate struct {
	Method string       `json:"method" yaml:"method"`
	Error  float64      `json:"error"  yaml:"error"`
	Params []gauss.Peak `json:"params" yaml:"params"`
}

// Terminations counts how peak refinements ended across all passes.
type Terminations struct {
	Converged      int `json:"converged"       yaml:"converged"`
	Oscillated     int `json:"oscillated"      yaml:"oscillated"`
	IterationLimit int `json:"iteration_limit" yaml:"iteration_limit"`
}

// NewDocument converts a run.
func NewDocument(run deconv.RunResult) Document {
	s := run.Settings

	doc := Document{
		SchemaVersion: SchemaVersion,
		RunID:         run.ID.String(),
		Dataset:       run.Dataset,
		Started:       run.Started.UTC(),
		Settings: Settings{
			Cycles:        s.Cycles,
			Threshold:     s.Threshold,
			Means:         s.Means.String(),
			SmoothRepeats: s.Smooth.Repeats,
			SmoothWindow:  s.Smooth.Window,
			Align:         s.Align,
			Parallel:      s.Parallel,
			TuneCenters:   s.TuneCenters,
		},
		Shifts:       run.Shifts,
		AverageError: run.AverageError,
		Traces:       make([]Trace, len(run.Traces)),
	}

	for i, tr := range run.Traces {
		doc.Traces[i] = NewTrace(tr)
	}

	return doc
}

// NewTrace converts one fitted trace.
func NewTrace(tr deconv.TraceResult) Trace {
	summary := tr.Fit.Cycles.Diagnostics.Summary()
	cands := tr.Fit.Combination.Candidates

	out := Trace{
		Key:        tr.Key,
		Centers:    tr.Centers,
		NormFactor: tr.Fit.NormFactor,
		Method:     tr.Method.String(),
		MinError:   tr.MinError,
		Candidates: make([]Candidate, len(cands)),
		Peaks:      tr.Peaks,
		Terminations: Terminations{
			Converged:      summary.Converged,
			Oscillated:     summary.Oscillated,
			IterationLimit: summary.IterationLimit,
		},
		DurationMS: float64(tr.Duration.Microseconds()) / 1000,
	}

	for i, c := range cands {
		out.Candidates[i] = Candidate{Method: c.Method.String(), Error: c.Error, Params: c.Params}
	}

	return out
}

// CandidateError returns the error of the named method, or false.
func (t Trace) CandidateError(method fit.Method) (float64, bool) {
	for _, c := range t.Candidates {
		if c.Method == method.String() {
			return c.Error, true
		}
	}

	return 0, false
}
