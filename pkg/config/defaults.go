package config

import "github.com/Sumatoshi-tech/codediff/pkg/treediff"

// Diff defaults.
const (
	DefaultDiffThreshold    = treediff.DefaultThreshold
	DefaultDiffEpsilon      = treediff.DefaultEpsilon
	DefaultDiffReorder      = "omit"
	DefaultDiffRootMismatch = "error"
)

// Logging defaults.
const (
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"
)

// Telemetry defaults.
const (
	DefaultTelemetryServiceName = "codediff"
	DefaultTelemetrySampleRatio = 1.0
	DefaultTelemetryShutdown    = "5s"
)
