package solver

import "github.com/l3aro/go-cegar/pkg/expr"

// Enumerate returns the distinct projections onto decls of the models of e.
// A decl that does not occur in the model is left out of the projection.
// When limit is positive and more than limit projections exist, the first
// limit are returned with exceeded set.
func Enumerate(s Solver, e expr.Expr, decls []*expr.Decl, limit int) (vals []expr.Valuation, exceeded bool, err error) {
	err = WithPushPop(s, func() error {
		if err := s.Add(e); err != nil {
			return err
		}
		for {
			st, err := s.Check()
			if err != nil {
				return err
			}
			if err := st.Decided(); err != nil {
				return err
			}
			if st == Unsat {
				return nil
			}
			if limit > 0 && len(vals) == limit {
				exceeded = true
				return nil
			}
			model, err := s.Model()
			if err != nil {
				return err
			}
			proj := model.Project(func(d *expr.Decl) bool { return contains(decls, d) })
			vals = append(vals, proj)
			if err := s.Add(expr.Not(proj.ToExpr())); err != nil {
				return err
			}
		}
	})
	return vals, exceeded, err
}

// Fixed returns the decls whose value is the same in every model of e,
// with that value. e must be satisfiable.
func Fixed(s Solver, e expr.Expr, decls []*expr.Decl) (expr.Valuation, error) {
	var fixed expr.Valuation
	err := WithPushPop(s, func() error {
		if err := s.Add(e); err != nil {
			return err
		}
		st, err := s.Check()
		if err != nil {
			return err
		}
		if err := st.Decided(); err != nil {
			return err
		}
		if st != Sat {
			return nil
		}
		model, err := s.Model()
		if err != nil {
			return err
		}
		for _, d := range decls {
			v, ok := model.Get(d)
			if !ok {
				continue
			}
			other, err := IsSat(s, expr.Neq(expr.Ref(d), v))
			if err != nil {
				return err
			}
			if !other {
				fixed = fixed.With(d, v)
			}
		}
		return nil
	})
	return fixed, err
}

func contains(ds []*expr.Decl, d *expr.Decl) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}
