package refinement

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

// SeqItpChecker refutes traces with sequence interpolants.
type SeqItpChecker struct {
	init   expr.Expr
	target expr.Expr
	solver solver.ItpSolver
}

func NewSeqItpChecker(init, target expr.Expr, s solver.ItpSolver) *SeqItpChecker {
	return &SeqItpChecker{init: init, target: target, solver: s}
}

// Check asserts the trace position by position and stops at the first
// position that makes it unsatisfiable. Interpolants are taken over the
// markers asserted so far; later positions get false.
func (c *SeqItpChecker) Check(t *ExprTrace) (*TraceStatus[*ItpRefutation], error) {
	u := unfoldTrace(c.init, c.target, t)
	var status *TraceStatus[*ItpRefutation]
	err := solver.WithPushPop(c.solver, func() error {
		entry := c.solver.CreateMarker()
		if err := c.solver.AddMarked(entry, u.init...); err != nil {
			return err
		}
		markers := []solver.ItpMarker{entry}
		for i, g := range u.groups {
			m := c.solver.CreateMarker()
			markers = append(markers, m)
			if err := c.solver.AddMarked(m, g...); err != nil {
				return fmt.Errorf("asserting position %d: %w", i, err)
			}
			st, err := check(c.solver)
			if err != nil {
				return fmt.Errorf("checking position %d: %w", i, err)
			}
			if st == solver.Sat {
				continue
			}
			ref, err := c.refutation(u, markers, i)
			if err != nil {
				return err
			}
			status = Infeasible(ref)
			return nil
		}
		cex, err := concrete(c.solver, u.indexings)
		if err != nil {
			return err
		}
		status = Feasible[*ItpRefutation](cex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (c *SeqItpChecker) refutation(u *unfolded, markers []solver.ItpMarker, unsatAt int) (*ItpRefutation, error) {
	itp, err := c.solver.Interpolant(c.solver.CreateSeqPattern(markers))
	if err != nil {
		return nil, fmt.Errorf("computing interpolants: %w", err)
	}
	itps := make([]expr.Expr, len(u.groups))
	for i := range itps {
		if i >= unsatAt {
			itps[i] = expr.False()
			continue
		}
		f, err := expr.Foldin(itp.Eval(markers[i+1]), u.indexings[i])
		if err != nil {
			return nil, err
		}
		itps[i] = f
	}
	entry, err := expr.Foldin(itp.Eval(markers[0]), u.indexings[0])
	if err != nil {
		return nil, err
	}
	return NewItpRefutation(entry, itps), nil
}
