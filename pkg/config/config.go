// Package config provides configuration loading and validation for codediff.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/codediff/pkg/treediff"
)

// Sentinel validation errors.
var (
	ErrInvalidThreshold    = errors.New("diff threshold must be within [0, 1]")
	ErrInvalidEpsilon      = errors.New("diff epsilon must be within [0, threshold]")
	ErrInvalidReorder      = errors.New("diff reorder must be omit or report")
	ErrInvalidRootMismatch = errors.New("diff root_mismatch must be error or replace")
	ErrInvalidLogLevel     = errors.New("unknown logging level")
	ErrInvalidLogFormat    = errors.New("logging format must be text or json")
	ErrInvalidSampleRatio  = errors.New("telemetry sample ratio must be within [0, 1]")
)

// Config holds all configuration for codediff.
type Config struct {
	Diff      DiffConfig      `mapstructure:"diff"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DiffConfig holds the comparison parameters.
type DiffConfig struct {
	Reorder      string  `mapstructure:"reorder"`
	RootMismatch string  `mapstructure:"root_mismatch"`
	Threshold    float64 `mapstructure:"threshold"`
	Epsilon      float64 `mapstructure:"epsilon"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	ServiceName     string        `mapstructure:"service_name"`
	Environment     string        `mapstructure:"environment"`
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string        `mapstructure:"otlp_headers"`
	MetricsTextfile string        `mapstructure:"metrics_textfile"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for codediff.yaml in the usual places.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("codediff")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/codediff")
		viperCfg.AddConfigPath("/etc/codediff")
	}

	viperCfg.SetEnvPrefix("CODEDIFF")
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

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("diff.threshold", DefaultDiffThreshold)
	viperCfg.SetDefault("diff.epsilon", DefaultDiffEpsilon)
	viperCfg.SetDefault("diff.reorder", DefaultDiffReorder)
	viperCfg.SetDefault("diff.root_mismatch", DefaultDiffRootMismatch)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.format", DefaultLoggingFormat)

	viperCfg.SetDefault("telemetry.service_name", DefaultTelemetryServiceName)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultTelemetryShutdown)
	viperCfg.SetDefault("telemetry.metrics_textfile", "")
}

// Validate re-checks the configuration, e.g. after command-line overrides.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	diffCfg := config.Diff

	if diffCfg.Threshold < 0 || diffCfg.Threshold > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, diffCfg.Threshold)
	}

	if diffCfg.Epsilon < 0 || diffCfg.Epsilon > diffCfg.Threshold {
		return fmt.Errorf("%w: %g", ErrInvalidEpsilon, diffCfg.Epsilon)
	}

	if _, err := ParseReorderPolicy(diffCfg.Reorder); err != nil {
		return err
	}

	if _, err := ParseRootMismatchPolicy(diffCfg.RootMismatch); err != nil {
		return err
	}

	if _, err := config.Logging.SlogLevel(); err != nil {
		return err
	}

	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// ParseReorderPolicy maps "omit" and "report" to their treediff policy.
func ParseReorderPolicy(name string) (treediff.ReorderPolicy, error) {
	switch strings.ToLower(name) {
	case "omit", "":
		return treediff.ReorderOmit, nil
	case "report":
		return treediff.ReorderReport, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidReorder, name)
	}
}

// ParseRootMismatchPolicy maps "error" and "replace" to their treediff policy.
func ParseRootMismatchPolicy(name string) (treediff.RootMismatchPolicy, error) {
	switch strings.ToLower(name) {
	case "error", "":
		return treediff.RootMismatchError, nil
	case "replace":
		return treediff.RootMismatchReplace, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRootMismatch, name)
	}
}

// CompareOptions converts the diff section into comparer options. The
// configuration is assumed to be validated.
func (d DiffConfig) CompareOptions() []treediff.Option {
	reorder, _ := ParseReorderPolicy(d.Reorder)
	rootMismatch, _ := ParseRootMismatchPolicy(d.RootMismatch)

	return []treediff.Option{
		treediff.WithThreshold(d.Threshold),
		treediff.WithEpsilon(d.Epsilon),
		treediff.WithReorderPolicy(reorder),
		treediff.WithRootMismatchPolicy(rootMismatch),
	}
}

// SlogLevel parses the configured level name.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// JSON reports whether logs are written as JSON.
func (l LoggingConfig) JSON() bool {
	return strings.EqualFold(l.Format, "json")
}
