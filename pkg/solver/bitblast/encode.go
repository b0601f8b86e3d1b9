package bitblast

import (
	"fmt"

	"github.com/go-air/gini/z"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

type polarity int

const (
	positive polarity = iota
	negative
	mixed
)

func (p polarity) flip() polarity {
	switch p {
	case positive:
		return negative
	case negative:
		return positive
	default:
		return mixed
	}
}

type litKey struct {
	e   expr.Expr
	pol polarity
}

// encoder translates expressions over a circuit. Free declarations get
// fresh bits on first use; bound parameters are Skolemised where their
// polarity allows it.
type encoder struct {
	c     *circuit
	bits  map[*expr.Decl]bitvec
	order []*expr.Decl
	lits  map[litKey]z.Lit
	terms map[expr.Expr]bitvec
}

func newEncoder(width int) *encoder {
	return &encoder{
		c:     newCircuit(width),
		bits:  make(map[*expr.Decl]bitvec),
		lits:  make(map[litKey]z.Lit),
		terms: make(map[expr.Expr]bitvec),
	}
}

type scope map[*expr.Decl]bitvec

func (s scope) with(params []*expr.Decl, fresh func(*expr.Decl) bitvec) scope {
	out := make(scope, len(s)+len(params))
	for d, v := range s {
		out[d] = v
	}
	for _, p := range params {
		out[p] = fresh(p)
	}
	return out
}

func (e *encoder) declBits(d *expr.Decl) bitvec {
	if v, ok := e.bits[d]; ok {
		return v
	}
	v := e.newBits(d)
	e.bits[d] = v
	e.order = append(e.order, d)
	return v
}

func (e *encoder) newBits(d *expr.Decl) bitvec {
	if d.Type() == expr.BoolType {
		return bitvec{e.c.fresh()}
	}
	return e.c.freshVec()
}

func (e *encoder) ref(d *expr.Decl, sc scope) bitvec {
	if v, ok := sc[d]; ok {
		return v
	}
	return e.declBits(d)
}

// lit encodes a boolean expression.
func (e *encoder) lit(x expr.Expr, pol polarity, sc scope) (z.Lit, error) {
	if len(sc) == 0 {
		if m, ok := e.lits[litKey{x, pol}]; ok {
			return m, nil
		}
	}
	m, err := e.encodeLit(x, pol, sc)
	if err != nil {
		return z.LitNull, err
	}
	if len(sc) == 0 {
		e.lits[litKey{x, pol}] = m
	}
	return m, nil
}

func (e *encoder) encodeLit(x expr.Expr, pol polarity, sc scope) (z.Lit, error) {
	c := e.c
	switch x := x.(type) {
	case *expr.BoolLit:
		if x.Value {
			return c.t, nil
		}
		return c.f(), nil
	case *expr.RefExpr:
		return e.ref(x.Decl, sc)[0], nil
	case *expr.NotExpr:
		m, err := e.lit(x.Op, pol.flip(), sc)
		return m.Not(), err
	case *expr.AndExpr:
		return e.fold(x.Ops, pol, sc, c.and, c.t)
	case *expr.OrExpr:
		return e.fold(x.Ops, pol, sc, c.or, c.f())
	case *expr.ImplyExpr:
		l, err := e.lit(x.L, pol.flip(), sc)
		if err != nil {
			return z.LitNull, err
		}
		r, err := e.lit(x.R, pol, sc)
		if err != nil {
			return z.LitNull, err
		}
		return c.or(l.Not(), r), nil
	case *expr.IffExpr:
		return e.boolEq(x.L, x.R, sc)
	case *expr.IteExpr:
		s, err := e.lit(x.Cond, mixed, sc)
		if err != nil {
			return z.LitNull, err
		}
		a, err := e.lit(x.Then, pol, sc)
		if err != nil {
			return z.LitNull, err
		}
		b, err := e.lit(x.Else, pol, sc)
		if err != nil {
			return z.LitNull, err
		}
		return c.mux(s, a, b), nil
	case *expr.CmpExpr:
		return e.cmp(x, sc)
	case *expr.ExistsExpr:
		if pol != positive {
			return z.LitNull, fmt.Errorf("existential in negative position %s: %w", x, solver.ErrUnsupported)
		}
		return e.lit(x.Body, pol, sc.with(x.Params, e.newBits))
	case *expr.ForallExpr:
		if pol != negative {
			return z.LitNull, fmt.Errorf("universal in positive position %s: %w", x, solver.ErrUnsupported)
		}
		return e.lit(x.Body, pol, sc.with(x.Params, e.newBits))
	case *expr.PrimeExpr:
		return z.LitNull, fmt.Errorf("primed expression %s must be unfolded: %w", x, solver.ErrUnsupported)
	default:
		return z.LitNull, fmt.Errorf("boolean expression %s: %w", x, solver.ErrUnsupported)
	}
}

func (e *encoder) fold(ops []expr.Expr, pol polarity, sc scope, op func(a, b z.Lit) z.Lit, unit z.Lit) (z.Lit, error) {
	acc := unit
	for _, x := range ops {
		m, err := e.lit(x, pol, sc)
		if err != nil {
			return z.LitNull, err
		}
		acc = op(acc, m)
	}
	return acc, nil
}

func (e *encoder) boolEq(l, r expr.Expr, sc scope) (z.Lit, error) {
	a, err := e.lit(l, mixed, sc)
	if err != nil {
		return z.LitNull, err
	}
	b, err := e.lit(r, mixed, sc)
	if err != nil {
		return z.LitNull, err
	}
	return e.c.iff(a, b), nil
}

func (e *encoder) cmp(x *expr.CmpExpr, sc scope) (z.Lit, error) {
	c := e.c
	if x.L.Type() == expr.BoolType {
		m, err := e.boolEq(x.L, x.R, sc)
		if err != nil {
			return z.LitNull, err
		}
		switch x.Op {
		case expr.OpEq:
			return m, nil
		case expr.OpNeq:
			return m.Not(), nil
		default:
			return z.LitNull, fmt.Errorf("ordering of booleans %s: %w", x, solver.ErrUnsupported)
		}
	}
	a, err := e.term(x.L, sc)
	if err != nil {
		return z.LitNull, err
	}
	b, err := e.term(x.R, sc)
	if err != nil {
		return z.LitNull, err
	}
	switch x.Op {
	case expr.OpEq:
		return c.eqVec(a, b), nil
	case expr.OpNeq:
		return c.eqVec(a, b).Not(), nil
	case expr.OpLt:
		return c.sltVec(a, b), nil
	case expr.OpLeq:
		return c.sltVec(b, a).Not(), nil
	case expr.OpGt:
		return c.sltVec(b, a), nil
	default:
		return c.sltVec(a, b).Not(), nil
	}
}

// term encodes an integer expression.
func (e *encoder) term(x expr.Expr, sc scope) (bitvec, error) {
	if len(sc) == 0 {
		if v, ok := e.terms[x]; ok {
			return v, nil
		}
	}
	v, err := e.encodeTerm(x, sc)
	if err != nil {
		return nil, err
	}
	if len(sc) == 0 {
		e.terms[x] = v
	}
	return v, nil
}

func (e *encoder) encodeTerm(x expr.Expr, sc scope) (bitvec, error) {
	c := e.c
	switch x := x.(type) {
	case *expr.IntLit:
		if w := expr.Width(c.width); !w.Fits(x.Value) {
			return nil, fmt.Errorf("literal %d outside [%d, %d]: %w", x.Value, w.Min(), w.Max(), solver.ErrUnsupported)
		}
		return c.constVec(x.Value), nil
	case *expr.RefExpr:
		return e.ref(x.Decl, sc), nil
	case *expr.AddExpr:
		return e.foldTerms(x.Ops, sc, func(a, b bitvec) bitvec { return c.addVec(a, b, c.f()) })
	case *expr.MulExpr:
		return e.foldTerms(x.Ops, sc, c.mulVec)
	case *expr.SubExpr:
		return e.foldTerms([]expr.Expr{x.L, x.R}, sc, c.subVec)
	case *expr.NegExpr:
		a, err := e.term(x.Op, sc)
		if err != nil {
			return nil, err
		}
		return c.negVec(a), nil
	case *expr.IteExpr:
		s, err := e.lit(x.Cond, mixed, sc)
		if err != nil {
			return nil, err
		}
		a, err := e.term(x.Then, sc)
		if err != nil {
			return nil, err
		}
		b, err := e.term(x.Else, sc)
		if err != nil {
			return nil, err
		}
		return c.muxVec(s, a, b), nil
	case *expr.PrimeExpr:
		return nil, fmt.Errorf("primed expression %s must be unfolded: %w", x, solver.ErrUnsupported)
	default:
		return nil, fmt.Errorf("integer expression %s: %w", x, solver.ErrUnsupported)
	}
}

func (e *encoder) foldTerms(ops []expr.Expr, sc scope, op func(a, b bitvec) bitvec) (bitvec, error) {
	var acc bitvec
	for i, x := range ops {
		v, err := e.term(x, sc)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = v
			continue
		}
		acc = op(acc, v)
	}
	return acc, nil
}

// assertion encodes a top-level formula.
func (e *encoder) assertion(x expr.Expr) (z.Lit, error) {
	if x.Type() != expr.BoolType {
		return z.LitNull, fmt.Errorf("assertion %s is not boolean: %w", x, solver.ErrUnsupported)
	}
	return e.lit(x, positive, nil)
}

// value decodes d from the current model.
func (e *encoder) value(d *expr.Decl) expr.Expr {
	v := e.declBits(d)
	if d.Type() == expr.BoolType {
		return expr.Bool(e.c.g.Value(v[0]))
	}
	return expr.Int(e.c.decode(v))
}
