package expr

import "fmt"

// Unfold replaces every free variable x under k primes with the constant
// x_(i+k), where i is the index of x in vi. The result mentions no program
// variables and no primes.
func Unfold(e Expr, vi VarIndexing) Expr {
	return unfold(e, vi, 0, nil)
}

func unfold(e Expr, vi VarIndexing, offset int, bound map[*Decl]int) Expr {
	switch e := e.(type) {
	case *PrimeExpr:
		return unfold(e.Op, vi, offset+1, bound)
	case *RefExpr:
		if !e.Decl.IsVar() || bound[e.Decl] > 0 {
			return e
		}
		return Ref(e.Decl.Indexed(vi.Get(e.Decl) + offset))
	case *ExistsExpr:
		bound = bind(bound, e.Params, 1)
		body := unfold(e.Body, vi, offset, bound)
		bind(bound, e.Params, -1)
		return &ExistsExpr{Params: e.Params, Body: body}
	case *ForallExpr:
		bound = bind(bound, e.Params, 1)
		body := unfold(e.Body, vi, offset, bound)
		bind(bound, e.Params, -1)
		return &ForallExpr{Params: e.Params, Body: body}
	}
	return MapChildren(e, func(c Expr) Expr { return unfold(c, vi, offset, bound) })
}

// UnfoldAll unfolds each expression at the same indexing.
func UnfoldAll(es []Expr, vi VarIndexing) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Unfold(e, vi)
	}
	return out
}

// Foldin is the inverse of Unfold: each indexed constant x_j becomes x
// under j-i primes, where i is the index of x in vi.
func Foldin(e Expr, vi VarIndexing) (Expr, error) {
	var ferr error
	var rec func(Expr) Expr
	rec = func(e Expr) Expr {
		if r, ok := e.(*RefExpr); ok {
			base, idx, ok := r.Decl.Base()
			if !ok {
				return e
			}
			k := idx - vi.Get(base)
			if k < 0 {
				if ferr == nil {
					ferr = fmt.Errorf("folding %s at %s: index below current version", r.Decl.name, vi)
				}
				return e
			}
			return PrimeN(Ref(base), k)
		}
		return MapChildren(e, rec)
	}
	out := rec(e)
	if ferr != nil {
		return nil, ferr
	}
	return out, nil
}

// ExtractValuation decodes a model over indexed constants into a valuation
// over the program variables at the versions given by vi.
func ExtractValuation(model Valuation, vi VarIndexing) Valuation {
	m := make(map[*Decl]Expr)
	for _, d := range model.decls {
		base, idx, ok := d.Base()
		if !ok || idx != vi.Get(base) {
			continue
		}
		m[base] = model.values[d]
	}
	return MustValuation(m)
}
