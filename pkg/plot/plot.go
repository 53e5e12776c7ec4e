// Package plot renders deconvolution results as interactive HTML charts.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
)

const (
	chartWidth     = "100%"
	chartHeight    = "480px"
	lineWidth      = 2
	componentWidth = 0.5
	fillOpacity    = 0.5
	fullZoomPct    = 100
)

const (
	sumColor   = "#1f4fd8"
	traceColor = "#d62728"
)

// missing marks an absent point so echarts leaves a gap.
const missing = "-"

// Options configures chart labels.
type Options struct {
	// Title prefixes every chart title.
	Title string
	// CIU labels traces by their full key; otherwise the key's trailing
	// unit character is replaced by "ms".
	CIU bool
	// XLabel names the time axis.
	XLabel string
}

func (o Options) xLabel() string {
	if o.XLabel != "" {
		return o.XLabel
	}

	return "Adjusted time (ms)"
}

// ChartTitle returns the per-trace chart title.
func ChartTitle(title, key string, ciu bool) string {
	label := key
	if !ciu && key != "" {
		label = key[:len(key)-1] + "ms"
	}

	if title == "" {
		return label
	}

	return title + " " + label
}

func timeLabels(times []float64) []string {
	labels := make([]string, len(times))
	for i, t := range times {
		labels[i] = strconv.FormatFloat(t, 'g', 6, 64)
	}

	return labels
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}

	return out
}

// FitChart plots the selected reconstruction, the fitted trace and each
// peak as a filled area.
func FitChart(times []float64, tr deconv.TraceResult, o Options) *charts.Line {
	best := tr.Fit.Combination.Best()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    ChartTitle(o.Title, tr.Key, o.CIU),
			Subtitle: fmt.Sprintf("%s fit, error %.4g", best.Method, best.Error),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "5px", Right: "5%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.xLabel()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Normalised intensity"}),
	)
	line.SetXAxis(timeLabels(times))

	line.AddSeries("Sum", lineData(best.Bundle.Fit),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: sumColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.AddSeries("Trace", lineData(best.Bundle.Observed),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: traceColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	for i, comp := range best.Bundle.Components {
		line.AddSeries(strconv.Itoa(i+1), lineData(comp),
			charts.WithLineStyleOpts(opts.LineStyle{Width: componentWidth}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(fillOpacity)}),
		)
	}

	return line
}

// trackingChart plots one value per peak across trace keys. Traces with
// fewer peaks leave gaps.
func trackingChart(run deconv.RunResult, o Options, title, yName string, value func(deconv.PeakResult) float64) *charts.Line {
	keys := make([]string, len(run.Traces))
	maxPeaks := 0

	for i, tr := range run.Traces {
		keys[i] = tr.Key
		maxPeaks = max(maxPeaks, len(tr.Peaks))
	}

	fullTitle := title
	if o.Title != "" {
		fullTitle = o.Title + " " + title
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: fullTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5px", Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Activation energy (V)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	line.SetXAxis(keys)

	for peak := range maxPeaks {
		data := make([]opts.LineData, len(run.Traces))

		for i, tr := range run.Traces {
			if peak < len(tr.Peaks) {
				data[i] = opts.LineData{Value: value(tr.Peaks[peak])}
			} else {
				data[i] = opts.LineData{Value: missing}
			}
		}

		line.AddSeries(strconv.Itoa(peak+1), data,
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
	}

	return line
}

// AreaChart tracks each peak's share of the area across traces.
func AreaChart(run deconv.RunResult, o Options) *charts.Line {
	return trackingChart(run, o, "population tracking", "Percentage area under the curve",
		func(p deconv.PeakResult) float64 { return p.AreaPercent })
}

// FWHMChart tracks each peak's full width at half maximum across traces.
func FWHMChart(run deconv.RunResult, o Options) *charts.Line {
	return trackingChart(run, o, "FWHM tracking", "FWHM",
		func(p deconv.PeakResult) float64 { return p.FWHM })
}

// RenderPage writes a single page holding every fit chart followed by the
// area and FWHM tracking charts.
func RenderPage(w io.Writer, run deconv.RunResult, o Options) error {
	page := components.NewPage()
	page.PageTitle = run.Dataset

	for _, tr := range run.Traces {
		page.AddCharts(FitChart(run.Times, tr, o))
	}

	page.AddCharts(AreaChart(run, o), FWHMChart(run, o))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}

// WriteFiles writes "<dataset>_<key>.html" per trace plus
// "<dataset><suffix>_areas.html" and "<dataset><suffix>_fwhm.html" into dir
// and returns the paths written.
func WriteFiles(dir, suffix string, run deconv.RunResult, o Options) ([]string, error) {
	type output struct {
		name  string
		chart renderer
	}

	outputs := make([]output, 0, len(run.Traces)+2)
	for _, tr := range run.Traces {
		outputs = append(outputs, output{run.Dataset + "_" + tr.Key + ".html", FitChart(run.Times, tr, o)})
	}

	outputs = append(outputs,
		output{run.Dataset + suffix + "_areas.html", AreaChart(run, o)},
		output{run.Dataset + suffix + "_fwhm.html", FWHMChart(run, o)},
	)

	paths := make([]string, len(outputs))

	for i, out := range outputs {
		paths[i] = filepath.Join(dir, out.name)

		err := writeChart(paths[i], out.chart)
		if err != nil {
			return nil, err
		}
	}

	return paths, nil
}

type renderer interface {
	Render(w io.Writer) error
}

func writeChart(path string, r renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart %s: %w", path, err)
	}

	renderErr := r.Render(file)
	closeErr := file.Close()

	if renderErr != nil {
		return fmt.Errorf("render chart %s: %w", path, renderErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close chart %s: %w", path, closeErr)
	}

	return nil
}
