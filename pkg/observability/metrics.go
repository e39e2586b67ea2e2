package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricComparisonsTotal   = "codediff.comparisons.total"
	metricComparisonDuration = "codediff.comparison.duration.seconds"
	metricEditsTotal         = "codediff.edits.total"
	metricErrorsTotal        = "codediff.errors.total"

	attrStatus = "status"
	attrKind   = "kind"
	attrReason = "reason"

	// StatusOK marks a comparison that produced a script.
	StatusOK = "ok"
	// StatusError marks a comparison that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers 100µs to 30s: small edits compare in
// microseconds, generated files with tens of thousands of tokens take seconds.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

// DiffMetrics holds the OTel instruments for tree comparisons.
type DiffMetrics struct {
	comparisons metric.Int64Counter
	duration    metric.Float64Histogram
	edits       metric.Int64Counter
	errors      metric.Int64Counter
}

// ComparisonStats describes one finished comparison.
type ComparisonStats struct {
	// Edits counts the script's edits by kind name. Empty on failure.
	Edits map[string]int
	// ErrReason names the failure class ("input", "cancelled", ...). Empty on success.
	ErrReason string
	Duration  time.Duration
}

// NewDiffMetrics creates the comparison instruments from the given meter.
func NewDiffMetrics(mt metric.Meter) (*DiffMetrics, error) {
	b := newMetricBuilder(mt)

	dm := &DiffMetrics{
		comparisons: b.counter(metricComparisonsTotal, "Total tree comparisons", "{comparison}"),
		duration: b.histogram(metricComparisonDuration, "Tree comparison duration in seconds", "s",
			durationBucketBoundaries...),
		edits:  b.counter(metricEditsTotal, "Edits emitted by kind", "{edit}"),
		errors: b.counter(metricErrorsTotal, "Failed comparisons by reason", "{error}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return dm, nil
}

// RecordComparison records one comparison. Safe to call on a nil receiver (no-op).
func (dm *DiffMetrics) RecordComparison(ctx context.Context, stats ComparisonStats) {
	if dm == nil {
		return
	}

	status := StatusOK
	if stats.ErrReason != "" {
		status = StatusError
	}

	statusAttr := metric.WithAttributes(attribute.String(attrStatus, status))
	dm.comparisons.Add(ctx, 1, statusAttr)
	dm.duration.Record(ctx, stats.Duration.Seconds(), statusAttr)

	if status == StatusError {
		dm.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, stats.ErrReason)))

		return
	}

	for kind, n := range stats.Edits {
		if n > 0 {
			dm.edits.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrKind, kind)))
		}
	}
}
