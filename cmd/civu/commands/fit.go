package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/config"
	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
	"github.com/Sumatoshi-tech/civu/pkg/persist"
	"github.com/Sumatoshi-tech/civu/pkg/plot"
	"github.com/Sumatoshi-tech/civu/pkg/report"
	"github.com/Sumatoshi-tech/civu/pkg/store"
)

// documentSuffix is appended to "<dataset><suffix>" to name the result document.
const documentSuffix = "_fit"

// FitCommand holds the flags of the fit command. Flags that are not set on
// the command line leave the configured value alone.
type FitCommand struct {
	configPath string

	cycles      int
	threshold   float64
	parallel    bool
	tuneCenters bool

	smoothRepeats int
	smoothWindow  int
	align         bool
	means         string
	workers       int

	outputDir string
	format    string
	plot      bool
	title     string
	ciu       bool
	db        string
	suffix    string

	logLevel string
	logJSON  bool

	noColor bool
	quiet   bool
}

// NewFitCommand creates the fit command.
func NewFitCommand() *cobra.Command {
	return (&FitCommand{}).command()
}

func (fc *FitCommand) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit <dataset>",
		Short: "Deconvolve every ATD of a dataset into Gaussian peaks",
		Long: `Fit each arrival-time distribution of a tab-separated dataset with a sum of
Gaussians and write the error log, the result document, HTML charts and an
optional sqlite history record.

The first column of the dataset holds arrival times; every further column is
one ATD keyed by its header label (for example a collision voltage "10V").`,
		Args: cobra.ExactArgs(1),
		RunE: fc.run,
	}

	addConfigFlag(cmd, &fc.configPath)

	flags := cmd.Flags()
	flags.IntVarP(&fc.cycles, "cycles", "c", config.DefaultCycles, "Height and spread refinement cycles")
	flags.Float64Var(&fc.threshold, "threshold", config.DefaultThreshold, "Stop refining a peak parameter once its windowed RMSD is at or below this value")
	flags.BoolVar(&fc.parallel, "parallel", false, "Run the forward and reverse fits concurrently")
	flags.BoolVar(&fc.tuneCenters, "tune-centers", false, "Also refine peak centers")
	flags.IntVar(&fc.smoothRepeats, "smooth-repeats", config.DefaultSmoothRepeats, "Moving average passes (0 = off)")
	flags.IntVar(&fc.smoothWindow, "smooth-window", config.DefaultSmoothWindow, "Moving average width in samples")
	flags.BoolVar(&fc.align, "align", false, "Align ATDs on their main peak before fitting")
	flags.StringVarP(&fc.means, "means", "m", config.DefaultMeansMode,
		"Center detection: der, relmax, [i,j] indices or [t1.0,t2.0] times")
	flags.IntVarP(&fc.workers, "workers", "w", config.DefaultPipelineWorkers, "ATDs fitted concurrently")
	flags.StringVarP(&fc.outputDir, "output", "o", config.DefaultOutputDir, "Output directory")
	flags.StringVar(&fc.format, "format", config.DefaultOutputFormat, "Result document format: json, yaml, lz4")
	flags.BoolVar(&fc.plot, "plot", config.DefaultOutputPlot, "Write HTML charts")
	flags.StringVar(&fc.title, "title", "", "Chart title prefix")
	flags.BoolVar(&fc.ciu, "ciu", config.DefaultOutputCIU, "Label charts by collision voltage (false: by time in ms)")
	flags.StringVar(&fc.db, "db", "", "Record the run in this sqlite database")
	flags.StringVar(&fc.suffix, "suffix", "", "Suffix for summary file names")
	flags.StringVar(&fc.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.BoolVar(&fc.logJSON, "log-json", false, "Log JSON to stderr")
	flags.BoolVar(&fc.noColor, noColorFlag, false, "Disable colored output")
	flags.BoolVarP(&fc.quiet, quietFlag, "q", false, "Only report errors")

	return cmd
}

// apply copies the flags that were set onto cfg.
func (fc *FitCommand) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, assign func()) {
		if flags.Changed(name) {
			assign()
		}
	}

	set("cycles", func() { cfg.Fit.Cycles = fc.cycles })
	set("threshold", func() { cfg.Fit.Threshold = fc.threshold })
	set("parallel", func() { cfg.Fit.Parallel = fc.parallel })
	set("tune-centers", func() { cfg.Fit.TuneCenters = fc.tuneCenters })
	set("smooth-repeats", func() { cfg.Preprocess.SmoothRepeats = fc.smoothRepeats })
	set("smooth-window", func() { cfg.Preprocess.SmoothWindow = fc.smoothWindow })
	set("align", func() { cfg.Preprocess.Align = fc.align })
	set("means", func() { cfg.Means.Mode = fc.means })
	set("workers", func() { cfg.Pipeline.Workers = fc.workers })
	set("output", func() { cfg.Output.Dir = fc.outputDir })
	set("format", func() { cfg.Output.Format = fc.format })
	set("plot", func() { cfg.Output.Plot = fc.plot })
	set("title", func() { cfg.Output.Title = fc.title })
	set("ciu", func() { cfg.Output.CIU = fc.ciu })
	set("db", func() { cfg.Output.DB = fc.db })
	set("suffix", func() { cfg.Output.Suffix = fc.suffix })
	set("log-level", func() { cfg.Logging.Level = fc.logLevel })
	set("log-json", func() { cfg.Logging.JSON = fc.logJSON })
}

func (fc *FitCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(fc.configPath)
	if err != nil {
		return err
	}

	fc.apply(cmd.Flags(), cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	settings, err := cfg.DeconvSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	providers, stop, err := startTelemetry(ctx, cfg, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer stop()

	fitMetrics, err := observability.NewFitMetrics(providers.Meter)
	if err != nil {
		return err
	}

	ds, err := atd.ReadFile(args[0])
	if err != nil {
		return err
	}

	d, err := deconv.New(settings,
		deconv.WithLogger(providers.Logger),
		deconv.WithTracer(providers.Tracer),
		deconv.WithMetrics(fitMetrics),
	)
	if err != nil {
		return err
	}

	run, err := d.Run(ctx, ds)
	if err != nil {
		return err
	}

	paths, err := writeOutputs(ctx, cfg, run)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPrinter(out, fc.noColor, fc.quiet)

	if !fc.quiet {
		report.WriteSummary(out, run, report.SummaryOptions{NoColor: fc.noColor})
	}

	p.success("fitted %s ATDs of %s, average error %.4g",
		humanize.Comma(int64(len(run.Traces))), run.Dataset, run.AverageError)

	for _, path := range paths {
		p.detail("%s (%s)", path, fileSize(path))
	}

	return nil
}

// writeOutputs writes the error log, the result document, the charts and
// the history record configured in cfg and returns the files written.
func writeOutputs(ctx context.Context, cfg *config.Config, run deconv.RunResult) ([]string, error) {
	dir := cfg.Output.Dir

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logPath := filepath.Join(dir, report.ErrorLogName(run.Dataset, cfg.Output.Suffix, run.Settings.Cycles))

	err = writeErrorLog(logPath, run)
	if err != nil {
		return nil, err
	}

	codec, err := persist.CodecFor(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	doc := report.NewDocument(run)

	docPath, err := persist.NewPersister[report.Document](run.Dataset+cfg.Output.Suffix+documentSuffix, codec).Save(dir, &doc)
	if err != nil {
		return nil, err
	}

	paths := []string{logPath, docPath}

	if cfg.Output.Plot {
		chartPaths, plotErr := plot.WriteFiles(dir, cfg.Output.Suffix, run, plot.Options{
			Title: cfg.Output.Title,
			CIU:   cfg.Output.CIU,
		})
		if plotErr != nil {
			return nil, plotErr
		}

		paths = append(paths, chartPaths...)
	}

	if cfg.Output.DB != "" {
		err = recordRun(ctx, cfg.Output.DB, run)
		if err != nil {
			return nil, err
		}

		paths = append(paths, cfg.Output.DB)
	}

	return paths, nil
}

func writeErrorLog(path string, run deconv.RunResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create error log: %w", err)
	}

	writeErr := report.WriteErrorLog(file, run)
	closeErr := file.Close()

	if writeErr != nil {
		return writeErr
	}

	if closeErr != nil {
		return fmt.Errorf("close error log: %w", closeErr)
	}

	return nil
}

func recordRun(ctx context.Context, path string, run deconv.RunResult) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}

	saveErr := db.SaveRun(ctx, run)
	closeErr := db.Close()

	if saveErr != nil {
		return saveErr
	}

	return closeErr
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}

	return humanize.Bytes(uint64(info.Size())) //nolint:gosec // sizes are never negative.
}
