package cegar

import (
	"context"
	"errors"

	"github.com/l3aro/go-cegar/pkg/solver"
)

var (
	// ErrBudgetExhausted reports that the iteration budget ran out before a
	// verdict.
	ErrBudgetExhausted = errors.New("iteration budget exhausted")

	// ErrInvalidConfig reports an unusable combination of components or
	// options.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStalled is wrapped by refiners that cannot make progress.
	ErrStalled = errors.New("refinement stalled")
)

// IsInconclusive reports whether err ends a run without a verdict rather
// than signalling a failure: the solver gave up, a budget ran out, or
// refinement could not make progress.
func IsInconclusive(err error) bool {
	return errors.Is(err, solver.ErrUnknown) ||
		errors.Is(err, ErrBudgetExhausted) ||
		errors.Is(err, ErrStalled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
