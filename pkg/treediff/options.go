package treediff

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codediff/pkg/syntax"
)

// Default comparison parameters.
const (
	// DefaultThreshold is the largest distance at which two siblings still match.
	DefaultThreshold = 0.33
	// DefaultEpsilon is the child tolerance used inside the distance metric.
	DefaultEpsilon = 0.0
)

// tracerName is the default OTel tracer name for the comparer.
const tracerName = "codediff/treediff"

// ReorderPolicy decides how a matched pair that only changed its position
// among the same parent's children is reported.
type ReorderPolicy uint8

// Reorder policies.
const (
	// ReorderOmit leaves intra-parent reorders out of the edit script.
	ReorderOmit ReorderPolicy = iota
	// ReorderReport emits a Reorder edit for them.
	ReorderReport
)

func (p ReorderPolicy) String() string {
	switch p {
	case ReorderOmit:
		return "omit"
	case ReorderReport:
		return "report"
	default:
		return "unknown"
	}
}

// RootMismatchPolicy decides what Compare does with roots of different labels.
type RootMismatchPolicy uint8

// Root mismatch policies.
const (
	// RootMismatchError fails the comparison with ErrInput.
	RootMismatchError RootMismatchPolicy = iota
	// RootMismatchReplace returns a script that deletes the old root and
	// inserts the new one, without matching anything below.
	RootMismatchReplace
)

func (p RootMismatchPolicy) String() string {
	switch p {
	case RootMismatchError:
		return "error"
	case RootMismatchReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Pair is a correspondence between an old node and a new node.
type Pair struct {
	Old syntax.NodeID `json:"old"`
	New syntax.NodeID `json:"new"`
}

type settings struct {
	logger       *slog.Logger
	tracer       trace.Tracer
	knownMatches []Pair
	threshold    float64
	epsilon      float64
	reorder      ReorderPolicy
	rootMismatch RootMismatchPolicy
}

func defaultSettings() settings {
	return settings{
		threshold: DefaultThreshold,
		epsilon:   DefaultEpsilon,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
}

// Option configures a Comparer.
type Option func(*settings)

// WithThreshold sets the largest node distance at which siblings match.
func WithThreshold(threshold float64) Option {
	return func(s *settings) {
		s.threshold = threshold
	}
}

// WithEpsilon sets the tolerance for aligning children inside the distance
// metric. Zero aligns only equivalent children.
func WithEpsilon(epsilon float64) Option {
	return func(s *settings) {
		s.epsilon = epsilon
	}
}

// WithReorderPolicy sets how intra-parent reorders are reported.
func WithReorderPolicy(policy ReorderPolicy) Option {
	return func(s *settings) {
		s.reorder = policy
	}
}

// WithRootMismatchPolicy sets how roots of different labels are handled.
func WithRootMismatchPolicy(policy RootMismatchPolicy) Option {
	return func(s *settings) {
		s.rootMismatch = policy
	}
}

// WithKnownMatches seeds every comparison with pairs the caller already knows
// to correspond, e.g. declarations matched by name. Each pair must join nodes
// of the same label; roots may not be seeded.
func WithKnownMatches(pairs ...Pair) Option {
	return func(s *settings) {
		s.knownMatches = append(s.knownMatches, pairs...)
	}
}

// WithLogger sets the logger for comparison diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer. When unset, otel.Tracer("codediff/treediff") is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}
