package refinement

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// Direction selects how Newton refinement runs the trace symbolically.
type Direction int

const (
	// Forward computes strongest postconditions from the start.
	Forward Direction = iota
	// Backward computes weakest preconditions from the end.
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "sp"
	}
	return "wp"
}

// NewtonChecker refutes traces by symbolic execution of their statements.
// The trace is flattened so that the initial condition, the states and the
// target become assumptions; the formula at each position is the
// postcondition of the prefix (Forward) or the precondition of the suffix
// (Backward).
type NewtonChecker struct {
	init       expr.Expr
	target     expr.Expr
	solver     solver.Solver
	width      expr.Width
	dir        Direction
	liveVars   bool
	irrelevant bool
}

// NewtonOption configures a NewtonChecker.
type NewtonOption func(*NewtonChecker)

// WithLiveVars projects every formula onto the variables that are live at
// its position: future-live for Forward, past-live for Backward.
func WithLiveVars() NewtonOption { return func(c *NewtonChecker) { c.liveVars = true } }

// WithIrrelevantStmtAbstraction replaces the statements outside the unsat
// core of the trace before symbolic execution: assignments become havocs
// and assumptions become trivial.
func WithIrrelevantStmtAbstraction() NewtonOption {
	return func(c *NewtonChecker) { c.irrelevant = true }
}

func NewNewtonChecker(init, target expr.Expr, s solver.Solver, dir Direction, opts ...NewtonOption) *NewtonChecker {
	c := &NewtonChecker{init: init, target: target, solver: s, width: solver.WidthOf(s), dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *NewtonChecker) Check(t *ExprTrace) (*TraceStatus[*ItpRefutation], error) {
	acts, err := t.stmtActions()
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return c.checkRoot(t)
	}
	blocks := flatten(c.init, c.target, t, acts)

	indexings := make([]expr.VarIndexing, len(blocks)+1)
	var tracked []expr.Expr
	var core []expr.Expr
	var status *TraceStatus[*ItpRefutation]
	err = solver.WithPushPop(c.solver, func() error {
		vi := indexings[0]
		for i, b := range blocks {
			for _, s := range b {
				e, delta := stmt.UnfoldStmt(s, vi)
				tracked = append(tracked, e)
				if err := c.solver.Track(e); err != nil {
					return fmt.Errorf("asserting %s: %w", s, err)
				}
				vi = vi.Add(delta)
			}
			indexings[i+1] = vi
		}
		st, err := check(c.solver)
		if err != nil {
			return err
		}
		if st == solver.Sat {
			cex, err := concrete(c.solver, indexings)
			if err != nil {
				return err
			}
			status = Feasible[*ItpRefutation](cex)
			return nil
		}
		core, err = c.solver.UnsatCore()
		return err
	})
	if err != nil || status != nil {
		return status, err
	}

	if c.irrelevant {
		blocks = abstractIrrelevant(blocks, tracked, core)
	}
	var itps []expr.Expr
	if c.dir == Forward {
		itps, err = c.forward(blocks)
	} else {
		itps = c.backward(blocks)
	}
	if err != nil {
		return nil, err
	}
	return Infeasible(NewItpRefutation(nil, itps)), nil
}

// checkRoot handles a trace without actions, where only the initial
// condition can explain why the root is not a target.
func (c *NewtonChecker) checkRoot(t *ExprTrace) (*TraceStatus[*ItpRefutation], error) {
	var status *TraceStatus[*ItpRefutation]
	err := solver.WithPushPop(c.solver, func() error {
		u := unfoldTrace(c.init, c.target, t)
		if err := c.solver.Add(append(u.init, u.groups[0]...)...); err != nil {
			return err
		}
		st, err := check(c.solver)
		if err != nil {
			return err
		}
		if st == solver.Sat {
			cex, err := concrete(c.solver, u.indexings)
			if err != nil {
				return err
			}
			status = Feasible[*ItpRefutation](cex)
			return nil
		}
		status = Infeasible(NewItpRefutation(c.width.Simplify(c.init), []expr.Expr{expr.False()}))
		return nil
	})
	return status, err
}

// abstractIrrelevant keeps the statements whose formula is in the core.
// Statements are matched to tracked formulas in order.
func abstractIrrelevant(blocks [][]stmt.Stmt, tracked, core []expr.Expr) [][]stmt.Stmt {
	inCore := make(map[expr.Expr]bool, len(core))
	for _, e := range core {
		inCore[e] = true
	}
	out := make([][]stmt.Stmt, len(blocks))
	k := 0
	for i, b := range blocks {
		for _, s := range b {
			e := tracked[k]
			k++
			if inCore[e] {
				out[i] = append(out[i], s)
				continue
			}
			switch s := s.(type) {
			case *stmt.AssignStmt:
				out[i] = append(out[i], stmt.Havoc(s.Var))
			case *stmt.AssumeStmt:
				out[i] = append(out[i], stmt.Assume(expr.True()))
			default:
				out[i] = append(out[i], s)
			}
		}
	}
	return out
}

// forward returns the postconditions after each block, with the first
// unsatisfiable one and all later ones replaced by false.
func (c *NewtonChecker) forward(blocks [][]stmt.Stmt) ([]expr.Expr, error) {
	itps := make([]expr.Expr, len(blocks)+1)
	itps[0] = expr.True()
	for i, b := range blocks {
		itps[i+1] = stmt.SPWidth(c.width, itps[i], b...)
	}
	if c.liveVars {
		live := stmt.FutureLive(blocks)
		for i := range itps {
			itps[i] = projectExists(c.width, itps[i], live[i])
		}
	}
	for i := range itps {
		if expr.IsFalse(itps[i]) {
			fill(itps[i:])
			break
		}
		ok, err := solver.IsSat(c.solver, itps[i])
		if err != nil {
			return nil, fmt.Errorf("checking postcondition %d: %w", i, err)
		}
		if !ok {
			fill(itps[i:])
			break
		}
	}
	return itps, nil
}

// backward returns the preconditions of the blocks after each position.
func (c *NewtonChecker) backward(blocks [][]stmt.Stmt) []expr.Expr {
	itps := make([]expr.Expr, len(blocks)+1)
	itps[len(blocks)] = expr.True()
	for i := len(blocks) - 1; i >= 0; i-- {
		itps[i] = stmt.WPWidth(c.width, itps[i+1], blocks[i]...)
	}
	if c.liveVars {
		live := stmt.PastLive(blocks)
		for i := range itps {
			itps[i] = projectForall(c.width, itps[i], live[i])
		}
	}
	return itps
}

func fill(es []expr.Expr) {
	for i := range es {
		es[i] = expr.False()
	}
}

// projectExists quantifies away the variables of e outside live. Variables
// that survive one-point elimination become free constants, which keeps
// the formula equisatisfiable.
func projectExists(w expr.Width, e expr.Expr, live stmt.VarSet) expr.Expr {
	params, body := rename(e, live)
	if len(params) == 0 {
		return e
	}
	out := w.EliminateOnePoint(expr.Exists(params, body))
	if q, ok := out.(*expr.ExistsExpr); ok {
		return q.Body
	}
	return out
}

// projectForall universally quantifies the variables of e outside live.
func projectForall(w expr.Width, e expr.Expr, live stmt.VarSet) expr.Expr {
	params, body := rename(e, live)
	if len(params) == 0 {
		return e
	}
	return w.EliminateOnePoint(expr.Forall(params, body))
}

// rename replaces the dead variables of e with fresh constants.
func rename(e expr.Expr, live stmt.VarSet) ([]*expr.Decl, expr.Expr) {
	sub := make(map[*expr.Decl]expr.Expr)
	var params []*expr.Decl
	for _, v := range expr.Vars(e) {
		if live.Has(v) {
			continue
		}
		p := expr.Fresh("lv_"+v.Name(), v.Type())
		params = append(params, p)
		sub[v] = expr.Ref(p)
	}
	return params, expr.Substitute(e, sub)
}
