package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
)

// ErrorLogName returns "<dataset><suffix>_errorlog_<cycles>.txt".
func ErrorLogName(dataset, suffix string, cycles int) string {
	return dataset + suffix + "_errorlog_" + strconv.Itoa(cycles) + ".txt"
}

// WriteErrorLog writes, per trace, the three candidate errors, the chosen
// method and its parameters, then the run's average error on the last line.
func WriteErrorLog(w io.Writer, run deconv.RunResult) error {
	bw := bufio.NewWriter(w)

	for _, tr := range run.Traces {
		fmt.Fprintln(bw, tr.Key)

		for _, c := range tr.Fit.Combination.Candidates {
			fmt.Fprintf(bw, "%s %s error\n", formatFloat(c.Error), c.Method)
		}

		fmt.Fprintf(bw, "\nchosen: %s\n\n", tr.Method)
		fmt.Fprintln(bw, "Intensity\tMean\tSd")

		for _, p := range tr.Best() {
			fmt.Fprintf(bw, "%s\t%s\t%s\n", formatFloat(p.Height), formatFloat(p.Center), formatFloat(p.Spread))
		}

		fmt.Fprint(bw, "\n\n")
	}

	fmt.Fprintln(bw, formatFloat(run.AverageError))

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("write error log: %w", err)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
