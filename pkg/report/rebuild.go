package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/fit"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
	"github.com/Sumatoshi-tech/civu/pkg/smooth"
)

// ErrDocumentMismatch is returned when a document does not fit the dataset
// it is rebuilt against.
var ErrDocumentMismatch = errors.New("document does not match dataset")

// DeconvSettings converts the recorded settings back.
func (s Settings) DeconvSettings() (deconv.Settings, error) {
	mode, err := peaks.ParseMode(s.Means)
	if err != nil {
		return deconv.Settings{}, err
	}

	return deconv.Settings{
		Cycles:      s.Cycles,
		Threshold:   s.Threshold,
		Parallel:    s.Parallel,
		TuneCenters: s.TuneCenters,
		Smooth:      smooth.Settings{Repeats: s.SmoothRepeats, Window: s.SmoothWindow},
		Align:       s.Align,
		Means:       mode,
	}, nil
}

// Rebuild reconstructs a run from the document and the dataset it was fitted
// on. Curves are re-derived from ds with the recorded preprocessing and the
// candidates are re-scored from the stored forward and reverse parameters,
// so the result carries everything the charts need. Per-pass diagnostics
// are not stored and stay empty.
func (d Document) Rebuild(ds *atd.Dataset) (deconv.RunResult, error) {
	settings, settingsErr := d.Settings.DeconvSettings()
	if settingsErr != nil {
		return deconv.RunResult{}, settingsErr
	}

	id, idErr := uuid.Parse(d.RunID)
	if idErr != nil {
		return deconv.RunResult{}, fmt.Errorf("%w: run id: %w", ErrDocumentMismatch, idErr)
	}

	source := ds
	if settings.Align {
		source, _ = ds.Align()
	}

	run := deconv.RunResult{
		ID:           id,
		Dataset:      d.Dataset,
		Started:      d.Started,
		Times:        ds.Times,
		Shifts:       d.Shifts,
		Traces:       make([]deconv.TraceResult, len(d.Traces)),
		AverageError: d.AverageError,
		Settings:     settings,
	}

	for i, tr := range d.Traces {
		rebuilt, err := tr.rebuild(source, settings.Smooth)
		if err != nil {
			return deconv.RunResult{}, err
		}

		run.Traces[i] = rebuilt
	}

	return run, nil
}

func (t Trace) rebuild(ds *atd.Dataset, sm smooth.Settings) (deconv.TraceResult, error) {
	y, traceErr := ds.Trace(t.Key)
	if traceErr != nil {
		return deconv.TraceResult{}, fmt.Errorf("%w: %w", ErrDocumentMismatch, traceErr)
	}

	curve, smoothErr := sm.Apply(y)
	if smoothErr != nil {
		return deconv.TraceResult{}, fmt.Errorf("trace %s: smooth: %w", t.Key, smoothErr)
	}

	forward, fwdOK := t.candidateParams(fit.MethodForward)
	reverse, revOK := t.candidateParams(fit.MethodReverse)

	if !fwdOK || !revOK {
		return deconv.TraceResult{}, fmt.Errorf("%w: trace %s lacks forward or reverse candidate", ErrDocumentMismatch, t.Key)
	}

	comb, combErr := fit.Combine(forward, reverse, ds.Times, curve, t.NormFactor)
	if combErr != nil {
		return deconv.TraceResult{}, fmt.Errorf("trace %s: %w", t.Key, combErr)
	}

	best := comb.Best()

	return deconv.TraceResult{
		Key:      t.Key,
		Curve:    curve,
		Centers:  t.Centers,
		Fit:      fit.Result{Combination: comb, NormFactor: t.NormFactor},
		Method:   best.Method,
		MinError: best.Error,
		Peaks:    t.Peaks,
		Duration: time.Duration(t.DurationMS * float64(time.Millisecond)),
	}, nil
}

func (t Trace) candidateParams(method fit.Method) (gauss.ParameterSet, bool) {
	for _, c := range t.Candidates {
		if c.Method == method.String() {
			return gauss.ParameterSet(c.Params), true
		}
	}

	return nil, false
}
