package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
	"github.com/Sumatoshi-tech/civu/pkg/report"
	"github.com/Sumatoshi-tech/civu/pkg/smooth"
)

// Tool name constants.
const (
	ToolNameDeconvolve = "civu_deconvolve"
	ToolNameValidate   = "civu_validate"
)

// Input size limits.
const (
	// MaxSamples bounds the length of an inline trace.
	MaxSamples = 1 << 16
	// MaxCycles bounds the refinement cycles one call may request.
	MaxCycles = 1000
	// MaxDocumentBytes bounds an inline result document (4 MB).
	MaxDocumentBytes = 4 << 20
)

const defaultTraceKey = "atd"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyTrace indicates no samples were supplied.
	ErrEmptyTrace = errors.New("times and intensities are required and must not be empty")
	// ErrLengthMismatch indicates times and intensities differ in length.
	ErrLengthMismatch = errors.New("times and intensities must have the same length")
	// ErrTraceTooLarge indicates the trace exceeds MaxSamples.
	ErrTraceTooLarge = errors.New("trace exceeds maximum length")
	// ErrCyclesOutOfRange indicates cycles is negative or above MaxCycles.
	ErrCyclesOutOfRange = errors.New("cycles out of range")
	// ErrEmptyDocument indicates the document parameter is empty.
	ErrEmptyDocument = errors.New("document parameter is required and must not be empty")
	// ErrDocumentTooLarge indicates the document exceeds MaxDocumentBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")
)

// Input types (JSON schemas are generated from the struct tags).

// DeconvolveInput is the input schema for the civu_deconvolve tool.
type DeconvolveInput struct {
	Key           string    `json:"key,omitempty"            jsonschema:"label of the trace (default: atd)"`
	Times         []float64 `json:"times"                    jsonschema:"arrival times, one per sample, ascending"`
	Intensities   []float64 `json:"intensities"              jsonschema:"intensity of each sample"`
	Means         string    `json:"means,omitempty"          jsonschema:"center detection: der, relmax, [i,j] indices or [t1.0,t2.0] times (default: der)"`
	Cycles        *int      `json:"cycles,omitempty"         jsonschema:"height and spread refinement cycles (default: 5)"`
	Threshold     float64   `json:"threshold,omitempty"      jsonschema:"windowed RMSD at or below which refinement of any peak parameter stops (default: 0)"`
	SmoothRepeats int       `json:"smooth_repeats,omitempty" jsonschema:"moving average passes applied before fitting"`
	SmoothWindow  int       `json:"smooth_window,omitempty"  jsonschema:"moving average width in samples"`
	TuneCenters   bool      `json:"tune_centers,omitempty"   jsonschema:"also refine peak centers"`
}

// ValidateInput is the input schema for the civu_validate tool.
type ValidateInput struct {
	Document string `json:"document" jsonschema:"a civu result document as JSON"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ValidationOutput reports a document check.
type ValidationOutput struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateTraceInput checks common trace input constraints.
func validateTraceInput(in DeconvolveInput) error {
	if len(in.Times) == 0 || len(in.Intensities) == 0 {
		return ErrEmptyTrace
	}

	if len(in.Times) != len(in.Intensities) {
		return fmt.Errorf("%w: %d times, %d intensities", ErrLengthMismatch, len(in.Times), len(in.Intensities))
	}

	if len(in.Times) > MaxSamples {
		return fmt.Errorf("%w: %d samples (max %d)", ErrTraceTooLarge, len(in.Times), MaxSamples)
	}

	if in.Cycles != nil && (*in.Cycles < 0 || *in.Cycles > MaxCycles) {
		return fmt.Errorf("%w: %d (max %d)", ErrCyclesOutOfRange, *in.Cycles, MaxCycles)
	}

	return nil
}

// settingsFor overlays the input on the server defaults.
func settingsFor(defaults deconv.Settings, in DeconvolveInput) (deconv.Settings, error) {
	settings := defaults
	settings.Workers = 1
	// A single trace has nothing to align against.
	settings.Align = false

	if in.Means != "" {
		mode, err := peaks.ParseMode(in.Means)
		if err != nil {
			return deconv.Settings{}, err
		}

		settings.Means = mode
	}

	if in.Cycles != nil {
		settings.Cycles = *in.Cycles
	}

	if in.Threshold != 0 {
		settings.Threshold = in.Threshold
	}

	if in.SmoothRepeats != 0 {
		settings.Smooth = smooth.Settings{Repeats: in.SmoothRepeats, Window: in.SmoothWindow}
	}

	settings.TuneCenters = settings.TuneCenters || in.TuneCenters

	return settings, settings.Validate()
}

func (s *Server) handleDeconvolve(
	ctx context.Context, _ *mcpsdk.CallToolRequest, in DeconvolveInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	validateErr := validateTraceInput(in)
	if validateErr != nil {
		return errorResult(validateErr)
	}

	settings, settingsErr := settingsFor(s.defaults, in)
	if settingsErr != nil {
		return errorResult(settingsErr)
	}

	d, newErr := deconv.New(settings,
		deconv.WithLogger(s.logger),
		deconv.WithTracer(s.tracer),
		deconv.WithMetrics(s.fitMetrics),
	)
	if newErr != nil {
		return errorResult(newErr)
	}

	key := in.Key
	if key == "" {
		key = defaultTraceKey
	}

	tr, fitErr := d.FitTrace(ctx, key, in.Times, in.Intensities)
	if fitErr != nil {
		return errorResult(fitErr)
	}

	return jsonResult(report.NewTrace(tr))
}

func handleValidate(
	_ context.Context, _ *mcpsdk.CallToolRequest, in ValidateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if in.Document == "" {
		return errorResult(ErrEmptyDocument)
	}

	if len(in.Document) > MaxDocumentBytes {
		return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(in.Document), MaxDocumentBytes))
	}

	err := report.ValidateDocument([]byte(in.Document))
	if err == nil {
		return jsonResult(ValidationOutput{Valid: true})
	}

	var verr *report.ValidationError
	if errors.As(err, &verr) {
		return jsonResult(ValidationOutput{Violations: verr.Violations})
	}

	return errorResult(err)
}
