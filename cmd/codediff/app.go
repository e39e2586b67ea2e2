package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codediff/pkg/config"
	"github.com/Sumatoshi-tech/codediff/pkg/observability"
	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
	"github.com/Sumatoshi-tech/codediff/pkg/treediff"
	"github.com/Sumatoshi-tech/codediff/pkg/version"
)

// Failure reasons recorded by the error counter.
const (
	reasonInput     = "input"
	reasonCancelled = "cancelled"
	reasonInternal  = "internal"
)

// app is the per-invocation runtime: configuration, telemetry and metrics.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.DiffMetrics
	providers observability.Providers
	textfile  string
}

func newApp(cmd *cobra.Command, opts *rootOptions, mode observability.AppMode, textfile string) (*app, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}

	switch {
	case opts.verbose:
		level = slog.LevelDebug
	case opts.quiet:
		level = slog.LevelError
	}

	if textfile == "" {
		textfile = cfg.Telemetry.MetricsTextfile
	}

	ver, _ := version.Resolved()

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Telemetry.ServiceName
	obsCfg.ServiceVersion = ver
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.MetricsTextfile = textfile
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.ShutdownTimeout = cfg.Telemetry.ShutdownTimeout
	obsCfg.LogWriter = cmd.ErrOrStderr()
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewDiffMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create metrics: %w", err), providers.Shutdown(context.Background()))
	}

	return &app{
		cfg:       cfg,
		logger:    providers.Logger,
		metrics:   metrics,
		providers: providers,
		textfile:  textfile,
	}, nil
}

// compare runs one comparison with the configured options and records it.
func (a *app) compare(ctx context.Context, oldTree, newTree *syntax.Tree) (*treediff.EditScript, error) {
	opts := append(a.cfg.Diff.CompareOptions(),
		treediff.WithLogger(a.logger),
		treediff.WithTracer(a.providers.Tracer),
	)

	start := time.Now()
	script, err := treediff.Compare(ctx, oldTree, newTree, opts...)
	stats := observability.ComparisonStats{Duration: time.Since(start)}

	if err != nil {
		stats.ErrReason = failureReason(err)
	} else {
		stats.Edits = make(map[string]int, len(treediff.EditKinds))
		for kind, n := range script.Counts() {
			stats.Edits[kind.String()] = n
		}
	}

	a.metrics.RecordComparison(context.WithoutCancel(ctx), stats)

	return script, err
}

// close writes the metrics textfile, if any, then flushes telemetry. The
// textfile must be written first: the Prometheus reader stops with the provider.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.textfile != "" {
		errs = append(errs, observability.WritePrometheusTextfile(a.textfile, a.providers.Registry))
	}

	errs = append(errs, a.providers.Shutdown(ctx))

	return errors.Join(errs...)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, treediff.ErrInput):
		return reasonInput
	case errors.Is(err, treediff.ErrCancelled):
		return reasonCancelled
	default:
		return reasonInternal
	}
}
