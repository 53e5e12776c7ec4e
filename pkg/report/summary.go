package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/fit"
)

// SummaryOptions tunes WriteSummary.
type SummaryOptions struct {
	// NoColor disables highlighting of the chosen error.
	NoColor bool
	// Precision is the number of decimals; zero means 3.
	Precision int
}

const defaultPrecision = 3

// methodOrder lists candidate columns in table order.
var methodOrder = []fit.Method{fit.MethodForward, fit.MethodReverse, fit.MethodAverage}

// WriteSummary renders one row per trace: peaks, the three candidate errors
// with the chosen one highlighted, the iteration-limit count and the fit
// time. The footer carries the average error.
func WriteSummary(w io.Writer, run deconv.RunResult, opts SummaryOptions) {
	prec := opts.Precision
	if prec <= 0 {
		prec = defaultPrecision
	}

	chosen := color.New(color.FgGreen, color.Bold)
	if opts.NoColor {
		chosen.DisableColor()
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.Style().Title.Format = text.FormatDefault
	tbl.SetTitle(fmt.Sprintf("%s  run %s", run.Dataset, run.ID))

	header := table.Row{"ATD", "Peaks", "Centers"}
	for _, m := range methodOrder {
		header = append(header, m.String())
	}

	header = append(header, "Limit hits", "Time")
	tbl.AppendHeader(header)

	for _, tr := range run.Traces {
		row := table.Row{tr.Key, len(tr.Peaks), formatCenters(tr)}

		for _, m := range methodOrder {
			cell := "-"

			for _, c := range tr.Fit.Combination.Candidates {
				if c.Method != m {
					continue
				}

				cell = humanize.FormatFloat(numberFormat(prec), c.Error)
				if m == tr.Method {
					cell = chosen.Sprint(cell)
				}
			}

			row = append(row, cell)
		}

		limits := tr.Fit.Cycles.Diagnostics.Summary().IterationLimit
		row = append(row, humanize.Comma(int64(limits)), tr.Duration.Round(time.Microsecond).String())
		tbl.AppendRow(row)
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%s traces", humanize.Comma(int64(len(run.Traces)))),
		"", "", "", "",
		"average " + humanize.FormatFloat(numberFormat(prec), run.AverageError),
	})

	tbl.Render()
}

func numberFormat(prec int) string {
	return "#,###." + strings.Repeat("#", prec)
}

func formatCenters(tr deconv.TraceResult) string {
	centers := tr.Best().Centers()
	parts := make([]string, len(centers))

	for i, c := range centers {
		parts[i] = humanize.FtoaWithDigits(c, 2)
	}

	return strings.Join(parts, ", ")
}

// MethodCounts tallies how often each method won across the run.
func MethodCounts(run deconv.RunResult) map[fit.Method]int {
	out := make(map[fit.Method]int, len(methodOrder))
	for _, tr := range run.Traces {
		out[tr.Method]++
	}

	return out
}
