// Package refinement decides whether abstract counterexamples are real and,
// when they are not, turns the proof of infeasibility into a finer
// precision.
package refinement

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/cegar"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

var (
	// ErrRefinementStalled reports a refinement that left the precision
	// unchanged, so the next round would find the same counterexample.
	ErrRefinementStalled = cegar.ErrStalled

	// ErrStmtActionRequired reports a checker that needs statement-level
	// actions given a trace without them.
	ErrStmtActionRequired = fmt.Errorf("trace actions must carry statements: %w", cegar.ErrInvalidConfig)
)

// ConcreteTrace is a feasible execution with one valuation per position.
type ConcreteTrace = analysis.ConcreteTrace

// ExprTrace is a trace reduced to its symbolic content.
type ExprTrace struct {
	States  []expr.Expr
	Actions []analysis.ExprAction
}

// ToExprTrace takes the formulas of the states and the actions of t.
func ToExprTrace[S analysis.ExprState, A analysis.ExprAction](t *analysis.Trace[S, A]) *ExprTrace {
	out := &ExprTrace{
		States:  make([]expr.Expr, len(t.States)),
		Actions: make([]analysis.ExprAction, len(t.Actions)),
	}
	for i, s := range t.States {
		out.States[i] = s.ToExpr()
	}
	for i, a := range t.Actions {
		out.Actions[i] = a
	}
	return out
}

// Len is the number of actions.
func (t *ExprTrace) Len() int { return len(t.Actions) }

// stmtActions returns the actions as statement actions.
func (t *ExprTrace) stmtActions() ([]analysis.StmtAction, error) {
	out := make([]analysis.StmtAction, len(t.Actions))
	for i, a := range t.Actions {
		sa, ok := a.(analysis.StmtAction)
		if !ok {
			return nil, fmt.Errorf("action %d (%v): %w", i, a, ErrStmtActionRequired)
		}
		out[i] = sa
	}
	return out, nil
}

// TraceStatus is the verdict on a trace: feasible with a concrete
// execution, or infeasible with a refutation.
type TraceStatus[R any] struct {
	feasible   bool
	Cex        *ConcreteTrace
	Refutation R
}

func Feasible[R any](cex *ConcreteTrace) *TraceStatus[R] {
	return &TraceStatus[R]{feasible: true, Cex: cex}
}

func Infeasible[R any](r R) *TraceStatus[R] {
	return &TraceStatus[R]{Refutation: r}
}

func (s *TraceStatus[R]) IsFeasible() bool { return s.feasible }

func (s *TraceStatus[R]) String() string {
	if s.feasible {
		return "feasible: " + s.Cex.String()
	}
	return fmt.Sprintf("infeasible: %v", s.Refutation)
}

// ExprTraceChecker decides the feasibility of traces under fixed initial
// and target conditions.
type ExprTraceChecker[R any] interface {
	Check(t *ExprTrace) (*TraceStatus[R], error)
}

// unfolded is the SSA form of a trace: position i holds the conjuncts
// that constrain the variables at indexings[i]. Position 0 starts with the
// initial condition and the last position ends with the target.
type unfolded struct {
	indexings []expr.VarIndexing
	init      []expr.Expr
	groups    [][]expr.Expr
}

func unfoldTrace(init, target expr.Expr, t *ExprTrace) *unfolded {
	n := t.Len()
	u := &unfolded{
		indexings: make([]expr.VarIndexing, n+1),
		groups:    make([][]expr.Expr, n+1),
	}
	u.init = expr.Conjuncts(expr.Unfold(init, u.indexings[0]))
	u.groups[0] = expr.Conjuncts(expr.Unfold(t.States[0], u.indexings[0]))
	for i := 1; i <= n; i++ {
		act := t.Actions[i-1]
		u.indexings[i] = u.indexings[i-1].Add(act.NextIndexing())
		g := expr.Conjuncts(expr.Unfold(act.ToExpr(), u.indexings[i-1]))
		g = append(g, expr.Conjuncts(expr.Unfold(t.States[i], u.indexings[i]))...)
		u.groups[i] = g
	}
	u.groups[n] = append(u.groups[n], expr.Conjuncts(expr.Unfold(target, u.indexings[n]))...)
	return u
}

// concrete decodes a model into one valuation per position.
func concrete(s solver.Solver, indexings []expr.VarIndexing) (*ConcreteTrace, error) {
	model, err := s.Model()
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	out := &ConcreteTrace{Valuations: make([]expr.Valuation, len(indexings))}
	for i, vi := range indexings {
		out.Valuations[i] = expr.ExtractValuation(model, vi)
	}
	return out, nil
}

// check runs a decided check.
func check(s solver.Solver) (solver.Status, error) {
	st, err := s.Check()
	if err != nil {
		return st, err
	}
	return st, st.Decided()
}

// flatten turns a statement trace into blocks of statements: the initial
// condition and each source state become assumptions in front of the
// action, and the last state and the target are assumed after it.
func flatten(init, target expr.Expr, t *ExprTrace, acts []analysis.StmtAction) [][]stmt.Stmt {
	n := t.Len()
	blocks := make([][]stmt.Stmt, n)
	assume := func(e expr.Expr) []stmt.Stmt {
		var out []stmt.Stmt
		for _, c := range expr.Conjuncts(e) {
			out = append(out, stmt.Assume(c))
		}
		return out
	}
	for i := 0; i < n; i++ {
		var b []stmt.Stmt
		if i == 0 {
			b = append(b, assume(init)...)
		}
		b = append(b, assume(t.States[i])...)
		b = append(b, acts[i].Stmts()...)
		if i == n-1 {
			b = append(b, assume(t.States[n])...)
			b = append(b, assume(target)...)
		}
		blocks[i] = b
	}
	return blocks
}

var errNotUnsat = errors.New("expected an unsatisfiable query")
