package expr

// EliminateOnePoint removes quantified parameters that are fixed by an
// equality: exists p. (p == t && phi) becomes phi[t/p], and
// forall p. (p != t || phi) becomes phi[t/p], provided t does not mention p.
// Parameters that cannot be eliminated stay quantified.
func EliminateOnePoint(e Expr) Expr { return MaxWidth.EliminateOnePoint(e) }

// EliminateOnePoint is the package-level EliminateOnePoint with constants
// folded at width w.
func (w Width) EliminateOnePoint(e Expr) Expr {
	e = MapChildren(e, w.EliminateOnePoint)
	switch q := e.(type) {
	case *ExistsExpr:
		params, body := w.eliminate(q.Params, q.Body, false)
		return w.Simplify(Exists(params, body))
	case *ForallExpr:
		params, body := w.eliminate(q.Params, q.Body, true)
		return w.Simplify(Forall(params, body))
	}
	return e
}

func (w Width) eliminate(params []*Decl, body Expr, universal bool) ([]*Decl, Expr) {
	remaining := append([]*Decl(nil), params...)
	for changed := true; changed; {
		changed = false
		for i, p := range remaining {
			t, ok := definition(p, body, universal)
			if !ok {
				continue
			}
			body = w.Simplify(Substitute(body, map[*Decl]Expr{p: t}))
			remaining = append(remaining[:i:i], remaining[i+1:]...)
			changed = true
			break
		}
	}
	return remaining, body
}

// definition finds a term t with p == t among the conjuncts (existential) or
// p != t among the disjuncts (universal) of body.
func definition(p *Decl, body Expr, universal bool) (Expr, bool) {
	var parts []Expr
	if universal {
		parts = disjuncts(body)
	} else {
		parts = Conjuncts(body)
	}
	for _, part := range parts {
		c, ok := part.(*CmpExpr)
		if !ok {
			continue
		}
		if (!universal && c.Op != OpEq) || (universal && c.Op != OpNeq) {
			continue
		}
		if r, ok := c.L.(*RefExpr); ok && r.Decl == p && !Contains(c.R, p) {
			return c.R, true
		}
		if r, ok := c.R.(*RefExpr); ok && r.Decl == p && !Contains(c.L, p) {
			return c.L, true
		}
	}
	return nil, false
}

func disjuncts(e Expr) []Expr {
	switch e := e.(type) {
	case *OrExpr:
		var out []Expr
		for _, op := range e.Ops {
			out = append(out, disjuncts(op)...)
		}
		return out
	case *ImplyExpr:
		return append(disjuncts(simplifyNot(e.L)), disjuncts(e.R)...)
	case *NotExpr:
		if a, ok := e.Op.(*AndExpr); ok {
			var out []Expr
			for _, op := range a.Ops {
				out = append(out, disjuncts(simplifyNot(op))...)
			}
			return out
		}
	}
	return []Expr{e}
}
