package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/persist"
	"github.com/Sumatoshi-tech/civu/pkg/report"
)

func TestRebuild_RoundTripsThroughCodec(t *testing.T) {
	t.Parallel()

	run := fittedRun(t)

	var buf bytes.Buffer

	codec := persist.NewJSONCodec()
	require.NoError(t, codec.Encode(&buf, report.NewDocument(run)))

	var doc report.Document

	require.NoError(t, codec.Decode(&buf, &doc))

	rebuilt, err := doc.Rebuild(fixtureDataset(t))
	require.NoError(t, err)

	assert.Equal(t, run.ID, rebuilt.ID)
	assert.Equal(t, run.Settings.Means, rebuilt.Settings.Means)
	require.Len(t, rebuilt.Traces, len(run.Traces))

	for i, tr := range rebuilt.Traces {
		orig := run.Traces[i]

		assert.Equal(t, orig.Key, tr.Key)
		assert.Equal(t, orig.Method, tr.Method)
		assert.InDelta(t, orig.MinError, tr.MinError, 1e-9)
		assert.Equal(t, orig.Curve, tr.Curve)
		assert.InDeltaSlice(t, orig.Fit.Combination.Best().Bundle.Fit, tr.Fit.Combination.Best().Bundle.Fit, 1e-9)
	}
}

func TestRebuild_MissingTrace(t *testing.T) {
	t.Parallel()

	doc := report.NewDocument(fittedRun(t))

	other, err := atd.New("other", fixtureDataset(t).Times, map[string][]float64{
		"99V": make([]float64, 100),
	})
	require.NoError(t, err)

	_, err = doc.Rebuild(other)
	require.ErrorIs(t, err, report.ErrDocumentMismatch)
}

func TestRebuild_MissingCandidate(t *testing.T) {
	t.Parallel()

	doc := report.NewDocument(fittedRun(t))
	doc.Traces[0].Candidates = doc.Traces[0].Candidates[:1]

	_, err := doc.Rebuild(fixtureDataset(t))
	require.ErrorIs(t, err, report.ErrDocumentMismatch)
}

func TestSettingsDeconvSettings(t *testing.T) {
	t.Parallel()

	run := fittedRun(t)

	got, err := report.NewDocument(run).Settings.DeconvSettings()
	require.NoError(t, err)

	assert.Equal(t, run.Settings.Cycles, got.Cycles)
	assert.Equal(t, run.Settings.Means, got.Means)
	assert.Equal(t, run.Settings.Smooth, got.Smooth)
}
