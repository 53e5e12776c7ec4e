package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/persist"
	"github.com/Sumatoshi-tech/civu/pkg/plot"
	"github.com/Sumatoshi-tech/civu/pkg/report"
)

const (
	renderCmdUse      = "render <document> <dataset>"
	renderCmdShort    = "Render charts from a saved result document"
	renderArgCount    = 2
	renderOutputFlag  = "output"
	renderOutputShort = "o"
	renderOutputUsage = "output directory for HTML files"
	renderPageSuffix  = "_report.html"
)

// ErrNoOutputDir is returned when the --output flag is not set.
var ErrNoOutputDir = errors.New("output directory is required (use --output)")

// NewRenderCommand creates the render subcommand.
func NewRenderCommand() *cobra.Command {
	var (
		outputDir string
		title     string
		suffix    string
		page      bool
		ciu       bool
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   renderCmdUse,
		Short: renderCmdShort,
		Long: `Rebuild the fitted curves of a result document against the dataset it was
fitted on and write the per-ATD fit charts plus the area and FWHM tracking
charts. With --page everything goes into one HTML file.`,
		Args: cobra.ExactArgs(renderArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				return ErrNoOutputDir
			}

			paths, err := runRender(args[0], args[1], outputDir, suffix, page, plot.Options{Title: title, CIU: ciu})
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout(), noColor, false)
			p.success("rendered %d files", len(paths))

			for _, path := range paths {
				p.detail("%s (%s)", path, fileSize(path))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, renderOutputFlag, renderOutputShort, "", renderOutputUsage)
	cmd.Flags().StringVar(&title, "title", "", "Chart title prefix")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Suffix for tracking chart file names")
	cmd.Flags().BoolVar(&page, "page", false, "Write a single HTML page")
	cmd.Flags().BoolVar(&ciu, "ciu", true, "Label charts by collision voltage (false: by time in ms)")
	cmd.Flags().BoolVar(&noColor, noColorFlag, false, "Disable colored output")

	return cmd
}

func runRender(docPath, datasetPath, outputDir, suffix string, page bool, opts plot.Options) ([]string, error) {
	var doc report.Document

	err := persist.LoadFile(docPath, &doc)
	if err != nil {
		return nil, err
	}

	err = doc.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", docPath, err)
	}

	ds, err := atd.ReadFile(datasetPath)
	if err != nil {
		return nil, err
	}

	run, err := doc.Rebuild(ds)
	if err != nil {
		return nil, err
	}

	mkErr := os.MkdirAll(outputDir, dirPerm)
	if mkErr != nil {
		return nil, fmt.Errorf("create output dir: %w", mkErr)
	}

	if !page {
		return plot.WriteFiles(outputDir, suffix, run, opts)
	}

	path := filepath.Join(outputDir, run.Dataset+suffix+renderPageSuffix)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	renderErr := plot.RenderPage(file, run, opts)
	closeErr := file.Close()

	if renderErr != nil {
		return nil, renderErr
	}

	if closeErr != nil {
		return nil, fmt.Errorf("close page: %w", closeErr)
	}

	return []string{path}, nil
}
