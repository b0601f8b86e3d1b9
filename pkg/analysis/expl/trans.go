package expl

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// InitFunc enumerates the valuations of the tracked variables allowed by an
// initial condition.
type InitFunc struct {
	solver solver.Solver
	init   expr.Expr
	limit  int
}

// NewInitFunc creates an InitFunc for the condition init over unprimed
// variables. limit bounds the enumerated states; zero means no bound.
func NewInitFunc(s solver.Solver, init expr.Expr, limit int) *InitFunc {
	return &InitFunc{solver: s, init: init, limit: limit}
}

func (f *InitFunc) InitStates(prec *Prec) ([]*State, error) {
	return successors(f.solver, expr.Unfold(f.init, expr.VarIndexing{}), prec, expr.VarIndexing{}, f.limit)
}

// ExprTransFunc computes successors of a transition formula by enumerating
// the values the tracked variables can take after the step.
type ExprTransFunc[A analysis.ExprAction] struct {
	solver solver.Solver
	limit  int
}

// NewExprTransFunc creates an ExprTransFunc. When a step has more than
// limit successors, a single state keeping only the variables with a unique
// next value is returned instead; zero means no bound.
func NewExprTransFunc[A analysis.ExprAction](s solver.Solver, limit int) *ExprTransFunc[A] {
	return &ExprTransFunc[A]{solver: s, limit: limit}
}

func (f *ExprTransFunc[A]) Succ(s *State, a A, prec *Prec) ([]*State, error) {
	if s.bottom {
		return nil, nil
	}
	var zero expr.VarIndexing
	e := expr.And(expr.Unfold(s.ToExpr(), zero), expr.Unfold(a.ToExpr(), zero))
	return successors(f.solver, e, prec, a.NextIndexing(), f.limit)
}

// successors enumerates the tracked variables at the versions of vi in the
// models of e, an unfolded formula.
func successors(s solver.Solver, e expr.Expr, prec *Prec, vi expr.VarIndexing, limit int) ([]*State, error) {
	consts := make([]*expr.Decl, len(prec.Vars()))
	for i, v := range prec.Vars() {
		consts[i] = v.Indexed(vi.Get(v))
	}

	vals, exceeded, err := solver.Enumerate(s, e, consts, limit)
	if err != nil {
		return nil, fmt.Errorf("enumerating successors: %w", err)
	}
	if exceeded {
		fixed, err := solver.Fixed(s, e, consts)
		if err != nil {
			return nil, fmt.Errorf("finding fixed values: %w", err)
		}
		vals = []expr.Valuation{fixed}
	}

	out := make([]*State, 0, len(vals))
	for _, v := range vals {
		out = append(out, NewState(expr.ExtractValuation(v, vi)))
	}
	return out, nil
}

// StmtTransFunc interprets statements directly on valuations without a
// solver. Unknown values propagate: assigning an expression that cannot be
// evaluated forgets the variable, and an assumption that cannot be decided
// is passed. Arithmetic wraps at the given integer width.
type StmtTransFunc[A analysis.StmtAction] struct {
	width expr.Width
}

func NewStmtTransFunc[A analysis.StmtAction](w expr.Width) *StmtTransFunc[A] {
	return &StmtTransFunc[A]{width: w}
}

func (f *StmtTransFunc[A]) Succ(s *State, a A, prec *Prec) ([]*State, error) {
	if s.bottom {
		return nil, nil
	}
	val, feasible, err := Interpret(f.width, s.val, a.Stmts())
	if err != nil {
		return nil, err
	}
	if !feasible {
		return []*State{Bottom()}, nil
	}
	return []*State{NewState(prec.Project(val))}, nil
}

// Interpret executes stmts on val with w-bit integers. It reports false when
// an assumption evaluates to false.
func Interpret(w expr.Width, val expr.Valuation, stmts []stmt.Stmt) (expr.Valuation, bool, error) {
	for _, st := range stmts {
		switch st := st.(type) {
		case *stmt.AssignStmt:
			v, err := w.Eval(st.Value, val)
			switch {
			case err == nil:
				val = val.With(st.Var, v)
			case errors.Is(err, expr.ErrNotEvaluable):
				val = val.Without(st.Var)
			default:
				return val, false, err
			}
		case *stmt.AssumeStmt:
			c := w.PartialEval(st.Cond, val)
			if expr.IsFalse(c) {
				return val, false, nil
			}
			val = learn(val, c)
		case *stmt.HavocStmt:
			val = val.Without(st.Var)
		}
	}
	return val, true, nil
}

// learn adds the values pinned by equality conjuncts of an assumption.
func learn(val expr.Valuation, c expr.Expr) expr.Valuation {
	for _, conj := range expr.Conjuncts(c) {
		eq, ok := conj.(*expr.CmpExpr)
		if !ok || eq.Op != expr.OpEq {
			continue
		}
		ref, lit := eq.L, eq.R
		if _, isRef := ref.(*expr.RefExpr); !isRef {
			ref, lit = lit, ref
		}
		r, ok := ref.(*expr.RefExpr)
		if !ok || !r.Decl.IsVar() {
			continue
		}
		switch lit.(type) {
		case *expr.IntLit, *expr.BoolLit:
			val = val.With(r.Decl, lit)
		}
	}
	return val
}

// NewStmtAnalysis creates an explicit analysis interpreting statements at
// the integer width of s.
func NewStmtAnalysis[A analysis.StmtAction](s solver.Solver, init expr.Expr, limit int) analysis.Analysis[*State, A, *Prec] {
	return analysis.New[*State, A, *Prec](Domain{}, NewInitFunc(s, init, limit), NewStmtTransFunc[A](solver.WidthOf(s)))
}

// NewExprAnalysis creates an explicit analysis enumerating successors of
// transition formulas with the solver.
func NewExprAnalysis[A analysis.ExprAction](s solver.Solver, init expr.Expr, limit int) analysis.Analysis[*State, A, *Prec] {
	return analysis.New[*State, A, *Prec](Domain{}, NewInitFunc(s, init, limit), NewExprTransFunc[A](s, limit))
}
