package expr

import (
	"slices"
	"strings"
)

// Children returns the direct operands of e.
func Children(e Expr) []Expr {
	switch e := e.(type) {
	case *PrimeExpr:
		return []Expr{e.Op}
	case *NotExpr:
		return []Expr{e.Op}
	case *NegExpr:
		return []Expr{e.Op}
	case *AndExpr:
		return e.Ops
	case *OrExpr:
		return e.Ops
	case *AddExpr:
		return e.Ops
	case *MulExpr:
		return e.Ops
	case *ImplyExpr:
		return []Expr{e.L, e.R}
	case *IffExpr:
		return []Expr{e.L, e.R}
	case *SubExpr:
		return []Expr{e.L, e.R}
	case *CmpExpr:
		return []Expr{e.L, e.R}
	case *IteExpr:
		return []Expr{e.Cond, e.Then, e.Else}
	case *ExistsExpr:
		return []Expr{e.Body}
	case *ForallExpr:
		return []Expr{e.Body}
	default:
		return nil
	}
}

// MapChildren rebuilds e with every operand replaced by fn(operand). The
// original node is returned when no operand changed.
func MapChildren(e Expr, fn func(Expr) Expr) Expr {
	switch e := e.(type) {
	case *PrimeExpr:
		if op := fn(e.Op); op != e.Op {
			return &PrimeExpr{Op: op}
		}
	case *NotExpr:
		if op := fn(e.Op); op != e.Op {
			return &NotExpr{Op: op}
		}
	case *NegExpr:
		if op := fn(e.Op); op != e.Op {
			return &NegExpr{Op: op}
		}
	case *AndExpr:
		if ops, changed := mapAll(e.Ops, fn); changed {
			return &AndExpr{Ops: ops}
		}
	case *OrExpr:
		if ops, changed := mapAll(e.Ops, fn); changed {
			return &OrExpr{Ops: ops}
		}
	case *AddExpr:
		if ops, changed := mapAll(e.Ops, fn); changed {
			return &AddExpr{Ops: ops}
		}
	case *MulExpr:
		if ops, changed := mapAll(e.Ops, fn); changed {
			return &MulExpr{Ops: ops}
		}
	case *ImplyExpr:
		if l, r := fn(e.L), fn(e.R); l != e.L || r != e.R {
			return &ImplyExpr{L: l, R: r}
		}
	case *IffExpr:
		if l, r := fn(e.L), fn(e.R); l != e.L || r != e.R {
			return &IffExpr{L: l, R: r}
		}
	case *SubExpr:
		if l, r := fn(e.L), fn(e.R); l != e.L || r != e.R {
			return &SubExpr{L: l, R: r}
		}
	case *CmpExpr:
		if l, r := fn(e.L), fn(e.R); l != e.L || r != e.R {
			return &CmpExpr{Op: e.Op, L: l, R: r}
		}
	case *IteExpr:
		if c, t, f := fn(e.Cond), fn(e.Then), fn(e.Else); c != e.Cond || t != e.Then || f != e.Else {
			return &IteExpr{Cond: c, Then: t, Else: f}
		}
	case *ExistsExpr:
		if b := fn(e.Body); b != e.Body {
			return &ExistsExpr{Params: e.Params, Body: b}
		}
	case *ForallExpr:
		if b := fn(e.Body); b != e.Body {
			return &ForallExpr{Params: e.Params, Body: b}
		}
	}
	return e
}

func mapAll(ops []Expr, fn func(Expr) Expr) ([]Expr, bool) {
	var out []Expr
	for i, op := range ops {
		n := fn(op)
		if n != op && out == nil {
			out = make([]Expr, len(ops))
			copy(out, ops[:i])
		}
		if out != nil {
			out[i] = n
		}
	}
	if out == nil {
		return ops, false
	}
	return out, true
}

// Decls returns the free declarations of e in order of first occurrence.
func Decls(e Expr) []*Decl {
	var out []*Decl
	seen := make(map[*Decl]struct{})
	collectDecls(e, nil, seen, &out)
	return out
}

// Vars returns the free program variables of e in order of first occurrence.
func Vars(e Expr) []*Decl {
	var out []*Decl
	for _, d := range Decls(e) {
		if d.IsVar() {
			out = append(out, d)
		}
	}
	return out
}

func collectDecls(e Expr, bound map[*Decl]int, seen map[*Decl]struct{}, out *[]*Decl) {
	switch e := e.(type) {
	case *RefExpr:
		if bound[e.Decl] > 0 {
			return
		}
		if _, ok := seen[e.Decl]; !ok {
			seen[e.Decl] = struct{}{}
			*out = append(*out, e.Decl)
		}
		return
	case *ExistsExpr:
		bound = bind(bound, e.Params, 1)
		collectDecls(e.Body, bound, seen, out)
		bind(bound, e.Params, -1)
		return
	case *ForallExpr:
		bound = bind(bound, e.Params, 1)
		collectDecls(e.Body, bound, seen, out)
		bind(bound, e.Params, -1)
		return
	}
	for _, c := range Children(e) {
		collectDecls(c, bound, seen, out)
	}
}

func bind(bound map[*Decl]int, params []*Decl, delta int) map[*Decl]int {
	if bound == nil {
		bound = make(map[*Decl]int)
	}
	for _, p := range params {
		bound[p] += delta
	}
	return bound
}

// SortDecls orders declarations by name, then by index for indexed
// constants of the same variable.
func SortDecls(ds []*Decl) {
	slices.SortFunc(ds, func(a, b *Decl) int {
		if c := strings.Compare(a.name, b.name); c != 0 {
			return c
		}
		return a.index - b.index
	})
}

// Substitute replaces free, unprimed references to the keys of sub. Bound
// and primed occurrences are left untouched.
func Substitute(e Expr, sub map[*Decl]Expr) Expr {
	if len(sub) == 0 {
		return e
	}
	var rec func(Expr, map[*Decl]int) Expr
	rec = func(e Expr, bound map[*Decl]int) Expr {
		switch e := e.(type) {
		case *PrimeExpr:
			// primed references denote next-state values
			return e
		case *RefExpr:
			if bound[e.Decl] > 0 {
				return e
			}
			if r, ok := sub[e.Decl]; ok {
				return r
			}
			return e
		case *ExistsExpr:
			bound = bind(bound, e.Params, 1)
			body := rec(e.Body, bound)
			bind(bound, e.Params, -1)
			if body == e.Body {
				return e
			}
			return &ExistsExpr{Params: e.Params, Body: body}
		case *ForallExpr:
			bound = bind(bound, e.Params, 1)
			body := rec(e.Body, bound)
			bind(bound, e.Params, -1)
			if body == e.Body {
				return e
			}
			return &ForallExpr{Params: e.Params, Body: body}
		}
		return MapChildren(e, func(c Expr) Expr { return rec(c, bound) })
	}
	return rec(e, nil)
}

// Contains reports whether d occurs free in e.
func Contains(e Expr, d *Decl) bool {
	for _, x := range Decls(e) {
		if x == d {
			return true
		}
	}
	return false
}

// Equal reports structural equality. Declarations compare by identity.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	switch a := a.(type) {
	case *BoolLit:
		b, ok := b.(*BoolLit)
		return ok && a.Value == b.Value
	case *IntLit:
		b, ok := b.(*IntLit)
		return ok && a.Value == b.Value
	case *RefExpr:
		b, ok := b.(*RefExpr)
		return ok && a.Decl == b.Decl
	case *CmpExpr:
		b, ok := b.(*CmpExpr)
		return ok && a.Op == b.Op && Equal(a.L, b.L) && Equal(a.R, b.R)
	case *ExistsExpr:
		b, ok := b.(*ExistsExpr)
		return ok && slices.Equal(a.Params, b.Params) && Equal(a.Body, b.Body)
	case *ForallExpr:
		b, ok := b.(*ForallExpr)
		return ok && slices.Equal(a.Params, b.Params) && Equal(a.Body, b.Body)
	}
	if !sameKind(a, b) {
		return false
	}
	ca, cb := Children(a), Children(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !Equal(ca[i], cb[i]) {
			return false
		}
	}
	return true
}

func sameKind(a, b Expr) bool {
	switch a.(type) {
	case *PrimeExpr:
		_, ok := b.(*PrimeExpr)
		return ok
	case *NotExpr:
		_, ok := b.(*NotExpr)
		return ok
	case *NegExpr:
		_, ok := b.(*NegExpr)
		return ok
	case *AndExpr:
		_, ok := b.(*AndExpr)
		return ok
	case *OrExpr:
		_, ok := b.(*OrExpr)
		return ok
	case *AddExpr:
		_, ok := b.(*AddExpr)
		return ok
	case *MulExpr:
		_, ok := b.(*MulExpr)
		return ok
	case *ImplyExpr:
		_, ok := b.(*ImplyExpr)
		return ok
	case *IffExpr:
		_, ok := b.(*IffExpr)
		return ok
	case *SubExpr:
		_, ok := b.(*SubExpr)
		return ok
	case *IteExpr:
		_, ok := b.(*IteExpr)
		return ok
	}
	return false
}

// Conjuncts flattens nested conjunctions. True conjuncts are dropped.
func Conjuncts(e Expr) []Expr {
	var out []Expr
	var rec func(Expr)
	rec = func(e Expr) {
		if a, ok := e.(*AndExpr); ok {
			for _, op := range a.Ops {
				rec(op)
			}
			return
		}
		if IsTrue(e) {
			return
		}
		out = append(out, e)
	}
	rec(e)
	return out
}

// Atoms returns the distinct atomic boolean subformulas of e: comparisons,
// boolean references and primed boolean references.
func Atoms(e Expr) []Expr {
	var out []Expr
	seen := make(map[string]struct{})
	var rec func(Expr)
	rec = func(e Expr) {
		switch e := e.(type) {
		case *CmpExpr:
			if e.L.Type() == IntType {
				add(&out, seen, e)
				return
			}
		case *RefExpr, *PrimeExpr:
			if e.Type() == BoolType {
				add(&out, seen, e)
			}
			return
		case *ExistsExpr, *ForallExpr:
			add(&out, seen, e)
			return
		}
		for _, c := range Children(e) {
			if c.Type() == BoolType {
				rec(c)
			}
		}
	}
	rec(e)
	return out
}

func add(out *[]Expr, seen map[string]struct{}, e Expr) {
	k := e.String()
	if _, ok := seen[k]; ok {
		return
	}
	seen[k] = struct{}{}
	*out = append(*out, e)
}
