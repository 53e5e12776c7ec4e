// Package commands implements CLI command handlers for civu.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/civu/pkg/config"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
	"github.com/Sumatoshi-tech/civu/pkg/version"
)

const (
	configFlag  = "config"
	noColorFlag = "no-color"
	quietFlag   = "quiet"
	dirPerm     = 0o750
)

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, configFlag, "", "Config file (default: ./.civu.yaml, then ~/.civu.yaml)")
}

// startTelemetry initializes observability for a command. The returned stop
// function flushes exporters and logs a failed flush.
func startTelemetry(
	ctx context.Context, cfg *config.Config, mode observability.AppMode, logOut io.Writer,
) (observability.Providers, func(), error) {
	obsCfg := cfg.Observability(mode, version.Version)
	obsCfg.LogOutput = logOut

	providers, err := observability.Init(ctx, obsCfg)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	stop := func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, stop, nil
}

// printer writes colored status lines.
type printer struct {
	out   io.Writer
	ok    *color.Color
	fail  *color.Color
	muted *color.Color
	quiet bool
}

func newPrinter(out io.Writer, noColor, quiet bool) *printer {
	p := &printer{
		out:   out,
		ok:    color.New(color.FgGreen),
		fail:  color.New(color.FgRed, color.Bold),
		muted: color.New(color.Faint),
		quiet: quiet,
	}

	if noColor {
		p.ok.DisableColor()
		p.fail.DisableColor()
		p.muted.DisableColor()
	}

	return p
}

func (p *printer) success(format string, args ...any) {
	if p.quiet {
		return
	}

	p.ok.Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) failure(format string, args ...any) {
	p.fail.Fprintf(p.out, "✗ "+format+"\n", args...)
}

func (p *printer) detail(format string, args ...any) {
	if p.quiet {
		return
	}

	p.muted.Fprintf(p.out, "  "+format+"\n", args...)
}
