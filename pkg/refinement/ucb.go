package refinement

import (
	"fmt"
	"slices"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// UCBChecker refutes traces by unsat-core based predicate extraction. At
// every position it takes the reachable region (the postcondition of the
// previous predicate) and the weakest precondition of the rest of the trace,
// and keeps the part of the core that comes from the latter.
type UCBChecker struct {
	init   expr.Expr
	target expr.Expr
	solver solver.Solver
	width  expr.Width
}

func NewUCBChecker(init, target expr.Expr, s solver.Solver) *UCBChecker {
	return &UCBChecker{init: init, target: target, solver: s, width: solver.WidthOf(s)}
}

func (c *UCBChecker) Check(t *ExprTrace) (*TraceStatus[*ItpRefutation], error) {
	acts, err := t.stmtActions()
	if err != nil {
		return nil, err
	}
	u := unfoldTrace(c.init, c.target, t)

	var status *TraceStatus[*ItpRefutation]
	err = solver.WithPushPop(c.solver, func() error {
		if err := c.solver.Add(u.init...); err != nil {
			return err
		}
		for _, g := range u.groups {
			if err := c.solver.Add(g...); err != nil {
				return err
			}
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
		}
		return nil
	})
	if err != nil || status != nil {
		return status, err
	}

	ref, err := c.refute(t, acts, u)
	if err != nil {
		return nil, err
	}
	return Infeasible(ref), nil
}

func (c *UCBChecker) refute(t *ExprTrace, acts []analysis.StmtAction, u *unfolded) (*ItpRefutation, error) {
	n := t.Len()
	wps := make([]expr.Expr, n+1)
	post := expr.And(t.States[n], c.target)
	wps[n] = expr.Unfold(post, u.indexings[n])
	for i := n - 1; i >= 0; i-- {
		post = expr.And(t.States[i], stmt.WPWidth(c.width, post, acts[i].Stmts()...))
		wps[i] = expr.Unfold(post, u.indexings[i])
	}

	itps := make([]expr.Expr, n+1)
	var pred expr.Expr = expr.True()
	for i := 0; i <= n; i++ {
		var data []expr.Expr
		if i == 0 {
			data = slices.Clone(u.init)
		} else {
			sp := stmt.SPWidth(c.width, expr.And(pred, t.States[i-1]), acts[i-1].Stmts()...)
			data = expr.Conjuncts(expr.Unfold(sp, u.indexings[i]))
		}
		p, err := c.predicate(data, expr.Conjuncts(wps[i]))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		f, err := expr.Foldin(p, u.indexings[i])
		if err != nil {
			return nil, err
		}
		itps[i] = f
		pred = f
	}
	return NewItpRefutation(nil, itps), nil
}

// predicate negates the part of the core of data && wp that is not data.
func (c *UCBChecker) predicate(data, wp []expr.Expr) (expr.Expr, error) {
	var out expr.Expr
	err := solver.WithPushPop(c.solver, func() error {
		isData := make(map[expr.Expr]bool, len(data))
		for _, e := range data {
			isData[e] = true
			if err := c.solver.Track(e); err != nil {
				return err
			}
		}
		for _, e := range wp {
			if isData[e] {
				continue
			}
			if err := c.solver.Track(e); err != nil {
				return err
			}
		}
		st, err := check(c.solver)
		if err != nil {
			return err
		}
		if st != solver.Unsat {
			return errNotUnsat
		}
		core, err := c.solver.UnsatCore()
		if err != nil {
			return err
		}
		var keep []expr.Expr
		for _, e := range core {
			if !isData[e] {
				keep = append(keep, e)
			}
		}
		out = c.width.Simplify(expr.Not(expr.And(keep...)))
		return nil
	})
	return out, err
}
