package pred

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

// Abstraction selects how a concrete formula is abstracted.
type Abstraction int

const (
	// Cartesian keeps the strongest conjunction of literals: one state.
	Cartesian Abstraction = iota
	// Boolean keeps every consistent combination of literals: a state per
	// combination.
	Boolean
)

func (a Abstraction) String() string {
	if a == Boolean {
		return "boolean"
	}
	return "cartesian"
}

// ParseAbstraction parses "cartesian" or "boolean".
func ParseAbstraction(s string) (Abstraction, error) {
	switch s {
	case "cartesian", "":
		return Cartesian, nil
	case "boolean":
		return Boolean, nil
	default:
		return Cartesian, fmt.Errorf("unknown predicate abstraction %q", s)
	}
}

// abstractor computes abstract states of unfolded formulas.
type abstractor struct {
	solver solver.Solver
	kind   Abstraction
}

// abstract returns the abstractions of e, whose variables after the step
// have the versions of vi. An unsatisfiable e has no abstraction.
func (a *abstractor) abstract(e expr.Expr, prec *Prec, vi expr.VarIndexing) ([]*State, error) {
	if a.kind == Boolean {
		return a.boolean(e, prec, vi)
	}
	return a.cartesian(e, prec, vi)
}

func (a *abstractor) cartesian(e expr.Expr, prec *Prec, vi expr.VarIndexing) ([]*State, error) {
	var out []*State
	err := solver.WithPushPop(a.solver, func() error {
		if err := a.solver.Add(e); err != nil {
			return err
		}
		st, err := a.solver.Check()
		if err != nil {
			return err
		}
		if err := st.Decided(); err != nil {
			return err
		}
		if st == solver.Unsat {
			return nil
		}
		var lits []expr.Expr
		for _, p := range prec.Preds() {
			next := expr.Unfold(p, vi)
			pos, err := solver.IsSat(a.solver, next)
			if err != nil {
				return err
			}
			neg, err := solver.IsSat(a.solver, expr.Not(next))
			if err != nil {
				return err
			}
			switch {
			case pos && !neg:
				lits = append(lits, p)
			case neg && !pos:
				lits = append(lits, expr.Simplify(expr.Not(p)))
			}
		}
		out = []*State{NewState(lits...)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cartesian abstraction: %w", err)
	}
	return out, nil
}

// boolean enumerates the satisfiable combinations of predicate values via
// one fresh activation constant per predicate.
func (a *abstractor) boolean(e expr.Expr, prec *Prec, vi expr.VarIndexing) ([]*State, error) {
	preds := prec.Preds()
	acts := make([]*expr.Decl, len(preds))
	defs := []expr.Expr{e}
	for i, p := range preds {
		acts[i] = expr.Fresh("act", expr.BoolType)
		defs = append(defs, expr.Iff(expr.Ref(acts[i]), expr.Unfold(p, vi)))
	}
	models, _, err := solver.Enumerate(a.solver, expr.And(defs...), acts, 0)
	if err != nil {
		return nil, fmt.Errorf("boolean abstraction: %w", err)
	}
	out := make([]*State, 0, len(models))
	for _, m := range models {
		lits := make([]expr.Expr, 0, len(preds))
		for i, p := range preds {
			v, ok := m.Get(acts[i])
			if !ok {
				continue
			}
			if expr.IsTrue(v) {
				lits = append(lits, p)
			} else {
				lits = append(lits, expr.Simplify(expr.Not(p)))
			}
		}
		out = append(out, NewState(lits...))
	}
	return out, nil
}

// InitFunc abstracts an initial condition.
type InitFunc struct {
	abs  *abstractor
	init expr.Expr
}

func NewInitFunc(s solver.Solver, init expr.Expr, kind Abstraction) *InitFunc {
	return &InitFunc{abs: &abstractor{solver: s, kind: kind}, init: init}
}

func (f *InitFunc) InitStates(prec *Prec) ([]*State, error) {
	var zero expr.VarIndexing
	return f.abs.abstract(expr.Unfold(f.init, zero), prec, zero)
}

// TransFunc abstracts the strongest postcondition of a state along a
// transition formula.
type TransFunc[A analysis.ExprAction] struct {
	abs *abstractor
}

func NewTransFunc[A analysis.ExprAction](s solver.Solver, kind Abstraction) *TransFunc[A] {
	return &TransFunc[A]{abs: &abstractor{solver: s, kind: kind}}
}

func (f *TransFunc[A]) Succ(s *State, a A, prec *Prec) ([]*State, error) {
	if s.bottom {
		return nil, nil
	}
	var zero expr.VarIndexing
	e := expr.And(expr.Unfold(s.ToExpr(), zero), expr.Unfold(a.ToExpr(), zero))
	return f.abs.abstract(e, prec, a.NextIndexing())
}

// NewAnalysis creates a predicate analysis.
func NewAnalysis[A analysis.ExprAction](s solver.Solver, init expr.Expr, kind Abstraction) analysis.Analysis[*State, A, *Prec] {
	return analysis.New[*State, A, *Prec](NewDomain(s), NewInitFunc(s, init, kind), NewTransFunc[A](s, kind))
}
