package refinement

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

// UnsatCoreChecker refutes traces with an unsat core over the conjuncts of
// the trace formula.
type UnsatCoreChecker struct {
	init   expr.Expr
	target expr.Expr
	solver solver.Solver
}

func NewUnsatCoreChecker(init, target expr.Expr, s solver.Solver) *UnsatCoreChecker {
	return &UnsatCoreChecker{init: init, target: target, solver: s}
}

// Check tracks the conjuncts position by position; the refutation records
// how many leading positions were satisfiable together.
func (c *UnsatCoreChecker) Check(t *ExprTrace) (*TraceStatus[*UnsatCoreRefutation], error) {
	u := unfoldTrace(c.init, c.target, t)
	var status *TraceStatus[*UnsatCoreRefutation]
	err := solver.WithPushPop(c.solver, func() error {
		for _, e := range u.init {
			if err := c.solver.Track(e); err != nil {
				return err
			}
		}
		for i, g := range u.groups {
			for _, e := range g {
				if err := c.solver.Track(e); err != nil {
					return fmt.Errorf("asserting position %d: %w", i, err)
				}
			}
			st, err := check(c.solver)
			if err != nil {
				return fmt.Errorf("checking position %d: %w", i, err)
			}
			if st == solver.Sat {
				continue
			}
			core, err := c.solver.UnsatCore()
			if err != nil {
				return err
			}
			status = Infeasible(&UnsatCoreRefutation{Core: core, Prefix: i})
			return nil
		}
		cex, err := concrete(c.solver, u.indexings)
		if err != nil {
			return err
		}
		status = Feasible[*UnsatCoreRefutation](cex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
