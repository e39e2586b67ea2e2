package treediff

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Compare. Match them with errors.Is.
var (
	// ErrInput reports trees that cannot be compared: nil trees, trees of
	// different grammars, roots of different labels, or invalid known matches.
	ErrInput = errors.New("treediff: incompatible input")
	// ErrCancelled reports a comparison abandoned because its context ended.
	// The returned error also wraps the context's error.
	ErrCancelled = errors.New("treediff: comparison cancelled")
)

// InvariantViolation is the panic value raised when a computed match breaks
// one of its structural guarantees. It signals a bug in the comparer, never
// bad input.
type InvariantViolation struct {
	Check  string
	Detail string
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("treediff: invariant %q violated: %s", v.Check, v.Detail)
}

func violate(check, format string, args ...any) {
	panic(InvariantViolation{Check: check, Detail: fmt.Sprintf(format, args...)})
}
