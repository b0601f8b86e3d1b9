package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotEvaluable is returned when an expression still has free symbols
// after substituting a valuation.
var ErrNotEvaluable = errors.New("expression is not evaluable")

// Valuation assigns literal values to declarations. The zero value is the
// empty valuation. Valuations are never modified after construction.
type Valuation struct {
	values map[*Decl]Expr
	decls  []*Decl
}

// NewValuation builds a valuation from literal values. Non-literal values
// are rejected.
func NewValuation(values map[*Decl]Expr) (Valuation, error) {
	m := make(map[*Decl]Expr, len(values))
	decls := make([]*Decl, 0, len(values))
	for d, v := range values {
		switch v.(type) {
		case *BoolLit, *IntLit:
		default:
			return Valuation{}, fmt.Errorf("value of %s is not a literal: %s", d.name, v)
		}
		if v.Type() != d.typ {
			return Valuation{}, fmt.Errorf("value of %s has type %s, want %s", d.name, v.Type(), d.typ)
		}
		m[d] = v
		decls = append(decls, d)
	}
	SortDecls(decls)
	return Valuation{values: m, decls: decls}, nil
}

// MustValuation is NewValuation for statically known values.
func MustValuation(values map[*Decl]Expr) Valuation {
	v, err := NewValuation(values)
	if err != nil {
		panic(err)
	}
	return v
}

// Get returns the value of d.
func (v Valuation) Get(d *Decl) (Expr, bool) {
	e, ok := v.values[d]
	return e, ok
}

// Len returns the number of assigned declarations.
func (v Valuation) Len() int { return len(v.decls) }

// Decls returns the assigned declarations sorted by name.
func (v Valuation) Decls() []*Decl { return v.decls }

// With returns a copy with d assigned to val.
func (v Valuation) With(d *Decl, val Expr) Valuation {
	m := make(map[*Decl]Expr, len(v.values)+1)
	for k, x := range v.values {
		m[k] = x
	}
	m[d] = val
	return MustValuation(m)
}

// Without returns a copy with d unassigned.
func (v Valuation) Without(d *Decl) Valuation {
	if _, ok := v.values[d]; !ok {
		return v
	}
	m := make(map[*Decl]Expr, len(v.values))
	for k, x := range v.values {
		if k != d {
			m[k] = x
		}
	}
	return MustValuation(m)
}

// Project keeps the declarations accepted by keep.
func (v Valuation) Project(keep func(*Decl) bool) Valuation {
	m := make(map[*Decl]Expr, len(v.values))
	for k, x := range v.values {
		if keep(k) {
			m[k] = x
		}
	}
	return MustValuation(m)
}

// Equal reports whether both valuations assign the same values.
func (v Valuation) Equal(o Valuation) bool {
	if len(v.decls) != len(o.decls) {
		return false
	}
	for d, x := range v.values {
		y, ok := o.values[d]
		if !ok || !Equal(x, y) {
			return false
		}
	}
	return true
}

// Substitution returns the valuation as a substitution map.
func (v Valuation) Substitution() map[*Decl]Expr {
	m := make(map[*Decl]Expr, len(v.values))
	for k, x := range v.values {
		m[k] = x
	}
	return m
}

// ToExpr returns the conjunction of equalities describing the valuation.
func (v Valuation) ToExpr() Expr {
	ops := make([]Expr, 0, len(v.decls))
	for _, d := range v.decls {
		ops = append(ops, Eq(Ref(d), v.values[d]))
	}
	return And(ops...)
}

func (v Valuation) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, d := range v.decls {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.name)
		sb.WriteByte('=')
		sb.WriteString(v.values[d].String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// PartialEval substitutes the valuation into e and simplifies.
func PartialEval(e Expr, v Valuation) Expr { return MaxWidth.PartialEval(e, v) }

// Eval evaluates e to a literal under v.
func Eval(e Expr, v Valuation) (Expr, error) { return MaxWidth.Eval(e, v) }
