package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

// ErrMalformedTrace reports a trace whose state and action counts disagree.
var ErrMalformedTrace = errors.New("trace must have one more state than actions")

// Trace alternates states and actions: s0 a0 s1 ... a(n-1) sn.
type Trace[S, A any] struct {
	States  []S
	Actions []A
}

// NewTrace validates the state and action counts.
func NewTrace[S, A any](states []S, actions []A) (*Trace[S, A], error) {
	if len(states) != len(actions)+1 {
		return nil, fmt.Errorf("%d states and %d actions: %w", len(states), len(actions), ErrMalformedTrace)
	}
	return &Trace[S, A]{States: states, Actions: actions}, nil
}

// Len is the number of actions; a nil trace has none.
func (t *Trace[S, A]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Actions)
}

func (t *Trace[S, A]) String() string {
	var sb strings.Builder
	for i, s := range t.States {
		if i > 0 {
			fmt.Fprintf(&sb, " -[%v]-> ", t.Actions[i-1])
		}
		fmt.Fprintf(&sb, "%v", s)
	}
	return sb.String()
}

// TargetPredicate decides whether an abstract state may violate the
// property.
type TargetPredicate[S any] interface {
	Test(s S) (bool, error)
}

// TargetFunc adapts a function to TargetPredicate.
type TargetFunc[S any] func(s S) (bool, error)

func (f TargetFunc[S]) Test(s S) (bool, error) { return f(s) }

// ExprStatePredicate marks states that are consistent with a target
// formula over unprimed variables.
type ExprStatePredicate[S ExprState] struct {
	target expr.Expr
	solver solver.Solver
}

// NewExprStatePredicate creates a predicate that holds for states s with
// s && target satisfiable.
func NewExprStatePredicate[S ExprState](target expr.Expr, s solver.Solver) *ExprStatePredicate[S] {
	return &ExprStatePredicate[S]{target: target, solver: s}
}

func (p *ExprStatePredicate[S]) Test(s S) (bool, error) {
	e := expr.And(expr.Unfold(s.ToExpr(), expr.VarIndexing{}), expr.Unfold(p.target, expr.VarIndexing{}))
	if e = solver.WidthOf(p.solver).Simplify(e); expr.IsFalse(e) {
		return false, nil
	}
	ok, err := solver.IsSat(p.solver, e)
	if err != nil {
		return false, fmt.Errorf("checking target %s: %w", p.target, err)
	}
	return ok, nil
}

// ConcreteTrace is a feasible execution: one valuation of the program
// variables per trace position.
type ConcreteTrace struct {
	Valuations []expr.Valuation
}

// Len is the number of steps.
func (t *ConcreteTrace) Len() int { return len(t.Valuations) - 1 }

func (t *ConcreteTrace) String() string {
	parts := make([]string, len(t.Valuations))
	for i, v := range t.Valuations {
		parts[i] = v.String()
	}
	return strings.Join(parts, " -> ")
}
