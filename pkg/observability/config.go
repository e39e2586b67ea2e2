// Package observability provides OpenTelemetry tracing and metrics plus
// trace-aware structured logging for codediff.
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies where the compared sources came from.
type AppMode string

const (
	// ModeFiles compares two files on disk.
	ModeFiles AppMode = "files"
	// ModeGit compares one path at two git revisions.
	ModeGit AppMode = "git"
)

const (
	defaultServiceName     = "codediff"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "ci", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	// MetricsTextfile enables a Prometheus registry whose contents the CLI
	// writes to this path on exit.
	MetricsTextfile string

	// SampleRatio is the trace sampling ratio when DebugTrace is false.
	SampleRatio float64

	// ShutdownTimeout bounds the flush on shutdown.
	ShutdownTimeout time.Duration

	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// DebugTrace forces every trace to be sampled.
	DebugTrace bool

	// LogJSON enables JSON-formatted log output.
	LogJSON bool
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeFiles,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
