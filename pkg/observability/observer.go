package observability

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/civu/pkg/fit"
)

// FitObserver forwards optimizer events to a logger and, when set, to
// [FitMetrics]. Peak events are logged at debug, pass events at debug with
// the pass error, and limit hits at warn.
type FitObserver struct {
	ctx     context.Context //nolint:containedctx // events carry no context of their own.
	logger  *slog.Logger
	metrics *FitMetrics
}

var _ fit.Observer = (*FitObserver)(nil)

// NewFitObserver returns an observer bound to ctx. A nil metrics disables
// recording.
func NewFitObserver(ctx context.Context, logger *slog.Logger, metrics *FitMetrics) *FitObserver {
	return &FitObserver{ctx: ctx, logger: logger, metrics: metrics}
}

// PeakFitted implements [fit.Observer].
func (o *FitObserver) PeakFitted(d fit.PeakDiagnostic) {
	if o.metrics != nil {
		o.metrics.RecordPeak(o.ctx, d)
	}

	level := slog.LevelDebug
	if d.Termination == fit.IterationLimit {
		level = slog.LevelWarn
	}

	o.logger.Log(o.ctx, level, "peak refined",
		"peak", d.Peak,
		"kind", d.Kind.String(),
		"direction", d.Direction.String(),
		"cycle", d.Cycle,
		"steps", d.Steps,
		"termination", d.Termination.String(),
		"value", d.Value,
	)
}

// PassCompleted implements [fit.Observer].
func (o *FitObserver) PassCompleted(p fit.Pass, fitError float64) {
	o.logger.DebugContext(o.ctx, "pass completed",
		"kind", p.Kind.String(),
		"direction", p.Direction.String(),
		"cycle", p.Cycle,
		"error", fitError,
	)
}
