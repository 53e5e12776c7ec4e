package plot_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
	"github.com/Sumatoshi-tech/civu/pkg/plot"
)

func fittedRun(t *testing.T) deconv.RunResult {
	t.Helper()

	x := make([]float64, 60)
	for i := range x {
		x[i] = float64(i)
	}

	ds, err := atd.New("ubq", x, map[string][]float64{
		"5V":  gauss.ParameterSet{{Height: 8, Center: 20, Spread: 1.5}, {Height: 3, Center: 40, Spread: 1.5}}.Reconstruct(x),
		"10V": gauss.ParameterSet{{Height: 3, Center: 20, Spread: 1.5}, {Height: 8, Center: 40, Spread: 1.5}}.Reconstruct(x),
	})
	require.NoError(t, err)

	s := deconv.DefaultSettings()
	s.Cycles = 1
	s.Means = peaks.Mode{Kind: peaks.Indices, Indices: []int{20, 40}}

	d, err := deconv.New(s)
	require.NoError(t, err)

	run, err := d.Run(context.Background(), ds)
	require.NoError(t, err)

	return run
}

func TestChartTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		key      string
		ciu      bool
		expected string
	}{
		{name: "ciu_keeps_key", title: "Ubiquitin", key: "10V", ciu: true, expected: "Ubiquitin 10V"},
		{name: "time_unit", title: "Ubiquitin", key: "15s", expected: "Ubiquitin 15ms"},
		{name: "no_title", key: "10V", ciu: true, expected: "10V"},
		{name: "empty_key", title: "T", key: "", expected: "T "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, plot.ChartTitle(tt.title, tt.key, tt.ciu))
		})
	}
}

func TestFitChartSeries(t *testing.T) {
	t.Parallel()

	run := fittedRun(t)
	line := plot.FitChart(run.Times, run.Traces[0], plot.Options{Title: "Ubq", CIU: true})

	names := make([]string, len(line.MultiSeries))
	for i, s := range line.MultiSeries {
		names[i] = s.Name
	}

	assert.Equal(t, []string{"Sum", "Trace", "1", "2"}, names)
	assert.Len(t, line.MultiSeries[0].Data, len(run.Times))
}

func TestTrackingChartsGapMissingPeaks(t *testing.T) {
	t.Parallel()

	run := fittedRun(t)
	run.Traces[1].Peaks = run.Traces[1].Peaks[:1]

	area := plot.AreaChart(run, plot.Options{})
	require.Len(t, area.MultiSeries, 2)

	fwhm := plot.FWHMChart(run, plot.Options{Title: "Ubq"})
	require.Len(t, fwhm.MultiSeries, 2)
}

func TestRenderPage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, plot.RenderPage(&buf, fittedRun(t), plot.Options{Title: "Ubq", CIU: true}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Ubq 5V")
	assert.Contains(t, html, "population tracking")
	assert.Contains(t, html, "FWHM tracking")
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	paths, err := plot.WriteFiles(dir, "_run", fittedRun(t), plot.Options{CIU: true})
	require.NoError(t, err)

	want := []string{"ubq_5V.html", "ubq_10V.html", "ubq_run_areas.html", "ubq_run_fwhm.html"}
	require.Len(t, paths, len(want))

	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), paths[i])

		data, readErr := os.ReadFile(paths[i])
		require.NoError(t, readErr)
		assert.True(t, strings.Contains(string(data), "echarts"), name)
	}

	_, err = plot.WriteFiles(filepath.Join(dir, "missing"), "", fittedRun(t), plot.Options{})
	require.Error(t, err)
}
