// Package config loads civu settings from defaults, a YAML file and CIVU_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/civu/pkg/deconv"
	"github.com/Sumatoshi-tech/civu/pkg/observability"
	"github.com/Sumatoshi-tech/civu/pkg/peaks"
	"github.com/Sumatoshi-tech/civu/pkg/persist"
	"github.com/Sumatoshi-tech/civu/pkg/smooth"
)

// Sentinel validation errors.
var (
	ErrInvalidCycles    = errors.New("fit cycles must not be negative")
	ErrInvalidThreshold = errors.New("fit threshold must not be negative")
	ErrInvalidSmoothing = errors.New("invalid smoothing settings")
	ErrInvalidWorkers   = errors.New("pipeline workers must be positive")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidRatio     = errors.New("sample ratio must be in [0, 1]")
)

// FileName is the config file looked up in the working and home directories.
const FileName = ".civu"

const envPrefix = "CIVU"

// Config holds all civu configuration.
type Config struct {
	Fit        FitConfig        `mapstructure:"fit"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Means      MeansConfig      `mapstructure:"means"`
	Output     OutputConfig     `mapstructure:"output"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// FitConfig controls the optimizer.
type FitConfig struct {
	Cycles      int     `mapstructure:"cycles"`
	Threshold   float64 `mapstructure:"threshold"`
	Parallel    bool    `mapstructure:"parallel"`
	TuneCenters bool    `mapstructure:"tune_centers"`
}

// PreprocessConfig controls smoothing and alignment.
type PreprocessConfig struct {
	SmoothRepeats int  `mapstructure:"smooth_repeats"`
	SmoothWindow  int  `mapstructure:"smooth_window"`
	Align         bool `mapstructure:"align"`
}

// MeansConfig selects center detection. Mode is parsed by peaks.ParseMode.
type MeansConfig struct {
	Mode string `mapstructure:"mode"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
	Plot   bool   `mapstructure:"plot"`
	Title  string `mapstructure:"title"`
	// CIU labels plots by collision voltage; otherwise keys are times in ms.
	CIU bool `mapstructure:"ciu"`
	// DB is the sqlite run history; empty disables it.
	DB     string `mapstructure:"db"`
	Suffix string `mapstructure:"suffix"`
}

// PipelineConfig holds concurrency settings.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds exporter settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsFile  string  `mapstructure:"metrics_file"`
}

// LoadConfig loads configuration. An empty configPath searches for
// .civu.yaml in the working directory and then $HOME; a missing file there
// is not an error. An explicit path must exist.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(FileName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")

		home, homeErr := os.UserHomeDir()
		if homeErr == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("fit.cycles", DefaultCycles)
	viperCfg.SetDefault("fit.threshold", DefaultThreshold)
	viperCfg.SetDefault("fit.parallel", DefaultParallel)
	viperCfg.SetDefault("fit.tune_centers", DefaultTuneCenters)

	viperCfg.SetDefault("preprocess.smooth_repeats", DefaultSmoothRepeats)
	viperCfg.SetDefault("preprocess.smooth_window", DefaultSmoothWindow)
	viperCfg.SetDefault("preprocess.align", DefaultAlign)

	viperCfg.SetDefault("means.mode", DefaultMeansMode)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.plot", DefaultOutputPlot)
	viperCfg.SetDefault("output.title", "")
	viperCfg.SetDefault("output.ciu", DefaultOutputCIU)
	viperCfg.SetDefault("output.db", "")
	viperCfg.SetDefault("output.suffix", "")

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_file", "")
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Fit.Cycles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCycles, c.Fit.Cycles)
	}

	if c.Fit.Threshold < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.Fit.Threshold)
	}

	if c.Preprocess.SmoothRepeats < 0 {
		return fmt.Errorf("%w: repeats %d", ErrInvalidSmoothing, c.Preprocess.SmoothRepeats)
	}

	if c.Preprocess.SmoothRepeats > 0 && c.Preprocess.SmoothWindow < 1 {
		return fmt.Errorf("%w: window %d", ErrInvalidSmoothing, c.Preprocess.SmoothWindow)
	}

	_, modeErr := peaks.ParseMode(c.Means.Mode)
	if modeErr != nil {
		return modeErr
	}

	_, codecErr := persist.CodecFor(c.Output.Format)
	if codecErr != nil {
		return codecErr
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Pipeline.Workers)
	}

	var level slog.Level

	levelErr := level.UnmarshalText([]byte(c.Logging.Level))
	if levelErr != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// DeconvSettings converts the fit, preprocess, means and pipeline sections.
func (c *Config) DeconvSettings() (deconv.Settings, error) {
	mode, modeErr := peaks.ParseMode(c.Means.Mode)
	if modeErr != nil {
		return deconv.Settings{}, modeErr
	}

	settings := deconv.Settings{
		Cycles:      c.Fit.Cycles,
		Threshold:   c.Fit.Threshold,
		Parallel:    c.Fit.Parallel,
		TuneCenters: c.Fit.TuneCenters,
		Smooth: smooth.Settings{
			Repeats: c.Preprocess.SmoothRepeats,
			Window:  c.Preprocess.SmoothWindow,
		},
		Align:   c.Preprocess.Align,
		Means:   mode,
		Workers: c.Pipeline.Workers,
	}

	return settings, settings.Validate()
}

// Observability converts the logging and telemetry sections for the given
// mode and build version.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.Mode = mode
	cfg.ServiceVersion = version
	cfg.LogLevel = observability.ParseLevel(c.Logging.Level)
	cfg.LogJSON = c.Logging.JSON
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	cfg.MetricsFile = c.Telemetry.MetricsFile

	return cfg
}
