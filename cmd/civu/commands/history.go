package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/civu/pkg/store"
)

// ErrNoDatabase is returned when the --db flag is not set.
var ErrNoDatabase = errors.New("history database is required (use --db)")

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		dbPath   string
		dataset  string
		runID    string
		deleteID string
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List fit runs recorded with --db",
		Long: `List the runs stored in a sqlite history database, newest first. With --run
the ATD fits and peaks of one run are shown; --delete removes a run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				return ErrNoDatabase
			}

			ctx := cmd.Context()

			db, err := store.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()

			switch {
			case deleteID != "":
				err = db.DeleteRun(ctx, deleteID)
				if err != nil {
					return err
				}

				newPrinter(out, noColor, false).success("deleted run %s", deleteID)

				return nil
			case runID != "":
				fits, fitsErr := db.TraceFits(ctx, runID)
				if fitsErr != nil {
					return fitsErr
				}

				writeFitsTable(out, runID, fits)

				return nil
			default:
				runs, runsErr := db.Runs(ctx, dataset)
				if runsErr != nil {
					return runsErr
				}

				writeRunsTable(out, runs)

				return nil
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite history database")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Only list runs of this dataset")
	cmd.Flags().StringVar(&runID, "run", "", "Show the ATD fits of one run")
	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete one run")
	cmd.Flags().BoolVar(&noColor, noColorFlag, false, "Disable colored output")

	return cmd
}

func newTable(out io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.Style().Title.Format = text.FormatDefault
	tw.SetTitle(title)

	return tw
}

func writeRunsTable(out io.Writer, runs []store.RunSummary) {
	tw := newTable(out, "Runs")
	tw.AppendHeader(table.Row{"Run", "Dataset", "Started", "Cycles", "Means", "ATDs", "Avg error"})

	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID, r.Dataset, humanize.Time(r.Started), r.Cycles, r.Means, r.Traces,
			strconv.FormatFloat(r.AverageError, 'f', 4, 64),
		})
	}

	tw.AppendFooter(table.Row{fmt.Sprintf("%s runs", humanize.Comma(int64(len(runs))))})
	tw.Render()
}

func writeFitsTable(out io.Writer, runID string, fits []store.TraceFit) {
	tw := newTable(out, "Run "+runID)
	tw.AppendHeader(table.Row{"ATD", "Method", "Error", "Peak", "Height", "Center", "Spread", "FWHM", "Area %"})

	for _, f := range fits {
		for _, p := range f.Peaks {
			tw.AppendRow(table.Row{
				f.Key, f.Method, strconv.FormatFloat(f.MinError, 'f', 4, 64), p.Index + 1,
				fmtFloat(p.Height), fmtFloat(p.Center), fmtFloat(p.Spread), fmtFloat(p.FWHM), fmtFloat(p.AreaPercent),
			})
		}
	}

	tw.Render()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
