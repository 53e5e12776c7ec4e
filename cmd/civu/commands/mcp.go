package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/civu/pkg/config"
	"github.com/Sumatoshi-tech/civu/pkg/mcp"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes civu as tools that AI agents can discover and invoke:
  - civu_deconvolve: fit one arrival-time distribution with Gaussian peaks
  - civu_validate: check a result document against the schema

Fit settings from the config file are the defaults each call overrides.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			// Stdout carries the protocol, so logs are JSON on stderr.
			cfg.Logging.JSON = true
			if debug {
				cfg.Logging.Level = "debug"
			}

			defaults, err := cfg.DeconvSettings()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			providers, stop, err := startTelemetry(ctx, cfg, observability.ModeMCP, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer stop()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			fitMetrics, err := observability.NewFitMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:     providers.Logger,
				Metrics:    red,
				FitMetrics: fitMetrics,
				Tracer:     providers.Tracer,
				Defaults:   &defaults,
			})

			return srv.Run(ctx)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
