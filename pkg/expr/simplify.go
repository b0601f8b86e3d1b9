package expr

// Simplify performs constant folding and local boolean rewriting with 64-bit
// integers. The result is equivalent to e; it is not a normal form.
func Simplify(e Expr) Expr { return MaxWidth.Simplify(e) }

// Simplify folds constants as w-bit two's complement integers, so every
// literal it produces lies in [w.Min(), w.Max()].
func (w Width) Simplify(e Expr) Expr {
	switch e := e.(type) {
	case *BoolLit, *RefExpr:
		return e
	case *IntLit:
		if w.Fits(e.Value) {
			return e
		}
		return Int(w.Wrap(e.Value))
	case *PrimeExpr:
		op := w.Simplify(e.Op)
		switch op.(type) {
		case *BoolLit, *IntLit:
			return op
		}
		if op == e.Op {
			return e
		}
		return &PrimeExpr{Op: op}
	case *NotExpr:
		return simplifyNot(w.Simplify(e.Op))
	case *AndExpr:
		return w.simplifyAnd(e.Ops)
	case *OrExpr:
		return w.simplifyOr(e.Ops)
	case *ImplyExpr:
		l, r := w.Simplify(e.L), w.Simplify(e.R)
		switch {
		case IsFalse(l), IsTrue(r):
			return trueLit
		case IsTrue(l):
			return r
		case IsFalse(r):
			return simplifyNot(l)
		case Equal(l, r):
			return trueLit
		}
		return &ImplyExpr{L: l, R: r}
	case *IffExpr:
		return simplifyIff(w.Simplify(e.L), w.Simplify(e.R))
	case *IteExpr:
		c, t, f := w.Simplify(e.Cond), w.Simplify(e.Then), w.Simplify(e.Else)
		switch {
		case IsTrue(c):
			return t
		case IsFalse(c):
			return f
		case Equal(t, f):
			return t
		case IsTrue(t) && IsFalse(f):
			return c
		case IsFalse(t) && IsTrue(f):
			return simplifyNot(c)
		}
		return &IteExpr{Cond: c, Then: t, Else: f}
	case *CmpExpr:
		return w.simplifyCmp(e.Op, w.Simplify(e.L), w.Simplify(e.R))
	case *AddExpr:
		return w.simplifyAdd(e.Ops)
	case *SubExpr:
		l, r := w.Simplify(e.L), w.Simplify(e.R)
		lv, lok := l.(*IntLit)
		rv, rok := r.(*IntLit)
		switch {
		case lok && rok:
			return Int(w.Wrap(lv.Value - rv.Value))
		case rok && rv.Value == 0:
			return l
		case Equal(l, r):
			return Int(0)
		}
		return &SubExpr{L: l, R: r}
	case *MulExpr:
		return w.simplifyMul(e.Ops)
	case *NegExpr:
		op := w.Simplify(e.Op)
		switch op := op.(type) {
		case *IntLit:
			return Int(w.Wrap(-op.Value))
		case *NegExpr:
			return op.Op
		}
		return &NegExpr{Op: op}
	case *ExistsExpr:
		body := w.Simplify(e.Body)
		if _, ok := body.(*BoolLit); ok {
			return body
		}
		return Exists(usedParams(e.Params, body), body)
	case *ForallExpr:
		body := w.Simplify(e.Body)
		if _, ok := body.(*BoolLit); ok {
			return body
		}
		return Forall(usedParams(e.Params, body), body)
	}
	return e
}

func usedParams(params []*Decl, body Expr) []*Decl {
	free := make(map[*Decl]struct{})
	for _, d := range Decls(body) {
		free[d] = struct{}{}
	}
	var out []*Decl
	for _, p := range params {
		if _, ok := free[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func simplifyNot(op Expr) Expr {
	switch op := op.(type) {
	case *BoolLit:
		return Bool(!op.Value)
	case *NotExpr:
		return op.Op
	case *CmpExpr:
		return &CmpExpr{Op: op.Op.Negate(), L: op.L, R: op.R}
	}
	return &NotExpr{Op: op}
}

func (w Width) simplifyAnd(ops []Expr) Expr {
	var out []Expr
	seen := make(map[string]struct{})
	var rec func([]Expr) bool
	rec = func(ops []Expr) bool {
		for _, op := range ops {
			s := w.Simplify(op)
			if a, ok := s.(*AndExpr); ok {
				if !rec(a.Ops) {
					return false
				}
				continue
			}
			if IsFalse(s) {
				return false
			}
			if IsTrue(s) {
				continue
			}
			k := s.String()
			if _, ok := seen[k]; ok {
				continue
			}
			if _, ok := seen[simplifyNot(s).String()]; ok {
				return false
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
		return true
	}
	if !rec(ops) {
		return falseLit
	}
	return And(out...)
}

func (w Width) simplifyOr(ops []Expr) Expr {
	var out []Expr
	seen := make(map[string]struct{})
	var rec func([]Expr) bool
	rec = func(ops []Expr) bool {
		for _, op := range ops {
			s := w.Simplify(op)
			if o, ok := s.(*OrExpr); ok {
				if !rec(o.Ops) {
					return false
				}
				continue
			}
			if IsTrue(s) {
				return false
			}
			if IsFalse(s) {
				continue
			}
			k := s.String()
			if _, ok := seen[k]; ok {
				continue
			}
			if _, ok := seen[simplifyNot(s).String()]; ok {
				return false
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
		return true
	}
	if !rec(ops) {
		return trueLit
	}
	return Or(out...)
}

func simplifyIff(l, r Expr) Expr {
	switch {
	case IsTrue(l):
		return r
	case IsTrue(r):
		return l
	case IsFalse(l):
		return simplifyNot(r)
	case IsFalse(r):
		return simplifyNot(l)
	case Equal(l, r):
		return trueLit
	}
	return &IffExpr{L: l, R: r}
}

func (w Width) simplifyCmp(op CmpOp, l, r Expr) Expr {
	if l.Type() == BoolType {
		switch op {
		case OpEq:
			return simplifyIff(l, r)
		case OpNeq:
			return simplifyNot(simplifyIff(l, r))
		}
	}
	lv, lok := l.(*IntLit)
	rv, rok := r.(*IntLit)
	if lok && rok {
		return Bool(compare(op, lv.Value, rv.Value))
	}
	if Equal(l, r) {
		switch op {
		case OpEq, OpLeq, OpGeq:
			return trueLit
		default:
			return falseLit
		}
	}
	return &CmpExpr{Op: op, L: l, R: r}
}

func compare(op CmpOp, a, b int64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpLt:
		return a < b
	case OpLeq:
		return a <= b
	case OpGt:
		return a > b
	default:
		return a >= b
	}
}

func (w Width) simplifyAdd(ops []Expr) Expr {
	var out []Expr
	var sum int64
	var rec func([]Expr)
	rec = func(ops []Expr) {
		for _, op := range ops {
			s := w.Simplify(op)
			switch s := s.(type) {
			case *AddExpr:
				rec(s.Ops)
			case *IntLit:
				sum += s.Value
			default:
				out = append(out, s)
			}
		}
	}
	rec(ops)
	sum = w.Wrap(sum)
	if sum != 0 || len(out) == 0 {
		out = append(out, Int(sum))
	}
	return Add(out...)
}

func (w Width) simplifyMul(ops []Expr) Expr {
	var out []Expr
	prod := int64(1)
	for _, op := range ops {
		s := w.Simplify(op)
		if lit, ok := s.(*IntLit); ok {
			prod *= lit.Value
			continue
		}
		out = append(out, s)
	}
	prod = w.Wrap(prod)
	if prod == 0 {
		return Int(0)
	}
	if prod != 1 || len(out) == 0 {
		out = append([]Expr{Int(prod)}, out...)
	}
	return Mul(out...)
}
