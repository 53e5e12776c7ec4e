package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the process was started.
type AppMode string

// Application modes.
const (
	// ModeCLI is a one-shot command line run.
	ModeCLI AppMode = "cli"
	// ModeMCP is a long-lived MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "civu"
	defaultShutdownTimeoutSec = 5
)

// Config controls tracing, metrics and logging.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint enables OTLP gRPC export of traces and metrics when set.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool
	SampleRatio  float64

	// MetricsFile, when set, receives a Prometheus text exposition of all
	// metrics at shutdown.
	MetricsFile string

	LogLevel slog.Level
	LogJSON  bool
	// LogOutput defaults to stderr.
	LogOutput io.Writer

	ShutdownTimeoutSec int
}

// DefaultConfig returns a CLI configuration with no exporters.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
