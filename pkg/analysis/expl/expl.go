// Package expl implements explicit-value analysis: abstract states assign
// concrete values to the tracked variables and leave the rest unknown.
package expl

import (
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
)

// State is a valuation of tracked variables, or bottom.
type State struct {
	val    expr.Valuation
	bottom bool
}

var bottom = &State{bottom: true}

// Bottom returns the unreachable state.
func Bottom() *State { return bottom }

// Top returns the state without any known value.
func Top() *State { return &State{} }

// NewState wraps a valuation over program variables.
func NewState(val expr.Valuation) *State { return &State{val: val} }

func (s *State) Valuation() expr.Valuation { return s.val }

func (s *State) IsBottom() bool { return s.bottom }

// Eval evaluates e in the state, partially where values are unknown.
func (s *State) Eval(e expr.Expr) expr.Expr { return expr.PartialEval(e, s.val) }

func (s *State) ToExpr() expr.Expr {
	if s.bottom {
		return expr.False()
	}
	return s.val.ToExpr()
}

func (s *State) String() string {
	if s.bottom {
		return "bottom"
	}
	return s.val.String()
}

// Prec is the set of tracked variables.
type Prec struct {
	vars []*expr.Decl
	set  map[*expr.Decl]struct{}
}

// NewPrec creates a precision tracking vars.
func NewPrec(vars ...*expr.Decl) *Prec {
	p := &Prec{set: make(map[*expr.Decl]struct{})}
	for _, v := range vars {
		if _, ok := p.set[v]; ok {
			continue
		}
		p.set[v] = struct{}{}
		p.vars = append(p.vars, v)
	}
	expr.SortDecls(p.vars)
	return p
}

// Vars returns the tracked variables sorted by name.
func (p *Prec) Vars() []*expr.Decl { return p.vars }

func (p *Prec) Len() int { return len(p.vars) }

func (p *Prec) Contains(v *expr.Decl) bool {
	_, ok := p.set[v]
	return ok
}

// Join returns a precision tracking the variables of both. If o adds
// nothing, p itself is returned.
func (p *Prec) Join(o *Prec) *Prec {
	grows := false
	for _, v := range o.vars {
		if !p.Contains(v) {
			grows = true
			break
		}
	}
	if !grows {
		return p
	}
	return NewPrec(append(append([]*expr.Decl(nil), p.vars...), o.vars...)...)
}

// Project keeps the values of tracked variables.
func (p *Prec) Project(val expr.Valuation) expr.Valuation {
	return val.Project(p.Contains)
}

func (p *Prec) String() string {
	names := make([]string, len(p.vars))
	for i, v := range p.vars {
		names[i] = v.Name()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Domain orders explicit states by information: s1 is below s2 when it
// agrees with every value s2 knows.
type Domain struct{}

func (Domain) IsTop(s *State) bool    { return !s.bottom && s.val.Len() == 0 }
func (Domain) IsBottom(s *State) bool { return s.bottom }

func (Domain) IsLeq(s1, s2 *State) (bool, error) {
	if s1.bottom {
		return true, nil
	}
	if s2.bottom {
		return false, nil
	}
	for _, d := range s2.val.Decls() {
		v2, _ := s2.val.Get(d)
		v1, ok := s1.val.Get(d)
		if !ok || !expr.Equal(v1, v2) {
			return false, nil
		}
	}
	return true, nil
}

// Join keeps the values both states agree on.
func (Domain) Join(s1, s2 *State) (*State, error) {
	if s1.bottom {
		return s2, nil
	}
	if s2.bottom {
		return s1, nil
	}
	common := s1.val.Project(func(d *expr.Decl) bool {
		v1, _ := s1.val.Get(d)
		v2, ok := s2.val.Get(d)
		return ok && expr.Equal(v1, v2)
	})
	return NewState(common), nil
}
