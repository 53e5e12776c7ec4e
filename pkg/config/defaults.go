package config

// Fit defaults.
const (
	DefaultCycles      = 5
	DefaultThreshold   = 0.0
	DefaultParallel    = false
	DefaultTuneCenters = false
)

// Preprocessing defaults. Zero repeats disables smoothing.
const (
	DefaultSmoothRepeats = 0
	DefaultSmoothWindow  = 3
	DefaultAlign         = false
)

// DefaultMeansMode is the center detection mode.
const DefaultMeansMode = "der"

// Output defaults.
const (
	DefaultOutputDir    = "."
	DefaultOutputFormat = "json"
	DefaultOutputPlot   = true
	DefaultOutputCIU    = true
)

// DefaultPipelineWorkers fits traces sequentially.
const DefaultPipelineWorkers = 1

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// DefaultSampleRatio samples every trace when an OTLP endpoint is set.
const DefaultSampleRatio = 1.0
