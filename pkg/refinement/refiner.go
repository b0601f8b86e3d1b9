package refinement

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/cegar"
)

// TraceRefiner examines the shortest abstract counterexample of an ARG
// with an ExprTraceChecker and refines the precision from its refutation.
type TraceRefiner[S analysis.ExprState, A analysis.ExprAction, P, R any] struct {
	checker ExprTraceChecker[R]
	prec    PrecRefiner[P, R]
	log     log.Logger
}

// NewTraceRefiner creates a refiner. A nil logger discards output.
func NewTraceRefiner[S analysis.ExprState, A analysis.ExprAction, P, R any](
	checker ExprTraceChecker[R], prec PrecRefiner[P, R], logger log.Logger,
) *TraceRefiner[S, A, P, R] {
	if checker == nil || prec == nil {
		panic("refinement: nil trace checker or precision refiner")
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &TraceRefiner[S, A, P, R]{checker: checker, prec: prec, log: logger}
}

var errNoTarget = errors.New("ARG has no target node")

// Refine implements cegar.Refiner. It fails with ErrRefinementStalled when
// the refutation leaves the precision unchanged.
func (r *TraceRefiner[S, A, P, R]) Refine(g *arg.ARG[S, A], prec P) (*cegar.RefinerResult[S, A, P], error) {
	target, ok := pickTarget(g)
	if !ok {
		return nil, errNoTarget
	}
	states, actions := g.TraceTo(target)
	trace, err := analysis.NewTrace(states, actions)
	if err != nil {
		return nil, err
	}
	status, err := r.checker.Check(ToExprTrace(trace))
	if err != nil {
		return nil, fmt.Errorf("checking trace to node %d: %w", target, err)
	}
	if status.IsFeasible() {
		r.log.Debug("counterexample is feasible", "length", trace.Len())
		return &cegar.RefinerResult[S, A, P]{Status: cegar.Feasible, Trace: trace, Cex: status.Cex}, nil
	}

	refined := r.prec.Refine(prec, status.Refutation)
	if any(refined) == any(prec) {
		return nil, fmt.Errorf("trace to node %d, %v: %w", target, status.Refutation, ErrRefinementStalled)
	}
	r.log.Debug("counterexample is spurious", "length", trace.Len(), "prec", refined)
	return &cegar.RefinerResult[S, A, P]{Status: cegar.Spurious, Prec: refined, Trace: trace}, nil
}

// pickTarget returns the shallowest target node, the lowest id among equals.
func pickTarget[S, A any](g *arg.ARG[S, A]) (arg.NodeID, bool) {
	best := arg.NoNode
	for _, id := range g.TargetNodes() {
		if best == arg.NoNode || g.Node(id).Depth() < g.Node(best).Depth() {
			best = id
		}
	}
	return best, best != arg.NoNode
}
