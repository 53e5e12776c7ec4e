package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
)

func TestSettingsFor(t *testing.T) {
	t.Parallel()

	defaults := deconv.DefaultSettings()
	defaults.Workers = 8
	defaults.Align = true
	defaults.Parallel = true

	cycles := 0

	got, err := settingsFor(defaults, DeconvolveInput{
		Means:         "relmax",
		Cycles:        &cycles,
		Threshold:     0.01,
		SmoothRepeats: 2,
		SmoothWindow:  3,
		TuneCenters:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Workers)
	assert.False(t, got.Align)
	assert.True(t, got.Parallel)
	assert.Equal(t, peaks.RelativeMax, got.Means.Kind)
	assert.Equal(t, 0, got.Cycles)
	assert.InDelta(t, 0.01, got.Threshold, 0)
	assert.Equal(t, 2, got.Smooth.Repeats)
	assert.True(t, got.TuneCenters)
}

func TestSettingsFor_KeepsDefaults(t *testing.T) {
	t.Parallel()

	got, err := settingsFor(deconv.DefaultSettings(), DeconvolveInput{})
	require.NoError(t, err)

	assert.Equal(t, deconv.DefaultCycles, got.Cycles)
	assert.Equal(t, peaks.Derivative, got.Means.Kind)
	assert.False(t, got.Smooth.Enabled())
}

func TestSettingsFor_InvalidSmoothing(t *testing.T) {
	t.Parallel()

	_, err := settingsFor(deconv.DefaultSettings(), DeconvolveInput{SmoothRepeats: 1})
	require.ErrorIs(t, err, deconv.ErrInvalidSettings)
}

func TestValidateTraceInput_TooLarge(t *testing.T) {
	t.Parallel()

	samples := make([]float64, MaxSamples+1)

	err := validateTraceInput(DeconvolveInput{Times: samples, Intensities: samples})
	require.ErrorIs(t, err, ErrTraceTooLarge)
}
