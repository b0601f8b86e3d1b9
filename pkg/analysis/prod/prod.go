// Package prod composes two analyses over the same actions into their
// direct product. Neither component knows about the other; combinations
// where either side is bottom are discarded.
package prod

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
)

// State pairs two component states.
type State[S1, S2 any] struct {
	S1 S1
	S2 S2
}

func NewState[S1, S2 any](s1 S1, s2 S2) *State[S1, S2] { return &State[S1, S2]{S1: s1, S2: s2} }

func (s *State[S1, S2]) String() string { return fmt.Sprintf("(%v, %v)", s.S1, s.S2) }

// ToExpr conjoins the component formulas. Components that have no
// symbolic meaning contribute true.
func (s *State[S1, S2]) ToExpr() expr.Expr {
	var ops []expr.Expr
	for _, c := range []any{s.S1, s.S2} {
		if es, ok := c.(analysis.ExprState); ok {
			ops = append(ops, es.ToExpr())
		}
	}
	return expr.And(ops...)
}

// Prec pairs two component precisions.
type Prec[P1, P2 any] struct {
	P1 P1
	P2 P2
}

func NewPrec[P1, P2 any](p1 P1, p2 P2) *Prec[P1, P2] { return &Prec[P1, P2]{P1: p1, P2: p2} }

// With returns a precision with the given components, or p itself when
// both are the current ones.
func (p *Prec[P1, P2]) With(p1 P1, p2 P2) *Prec[P1, P2] {
	if any(p1) == any(p.P1) && any(p2) == any(p.P2) {
		return p
	}
	return NewPrec(p1, p2)
}

func (p *Prec[P1, P2]) String() string { return fmt.Sprintf("(%v, %v)", p.P1, p.P2) }

// Domain is the product order: componentwise inclusion.
type Domain[S1, S2 any] struct {
	D1 analysis.Domain[S1]
	D2 analysis.Domain[S2]
}

func (d *Domain[S1, S2]) IsTop(s *State[S1, S2]) bool {
	return d.D1.IsTop(s.S1) && d.D2.IsTop(s.S2)
}

func (d *Domain[S1, S2]) IsBottom(s *State[S1, S2]) bool {
	return d.D1.IsBottom(s.S1) || d.D2.IsBottom(s.S2)
}

func (d *Domain[S1, S2]) IsLeq(s1, s2 *State[S1, S2]) (bool, error) {
	if d.IsBottom(s1) {
		return true, nil
	}
	ok, err := d.D1.IsLeq(s1.S1, s2.S1)
	if err != nil || !ok {
		return false, err
	}
	return d.D2.IsLeq(s1.S2, s2.S2)
}

func (d *Domain[S1, S2]) Join(s1, s2 *State[S1, S2]) (*State[S1, S2], error) {
	j1, err := d.D1.Join(s1.S1, s2.S1)
	if err != nil {
		return nil, err
	}
	j2, err := d.D2.Join(s1.S2, s2.S2)
	if err != nil {
		return nil, err
	}
	return NewState(j1, j2), nil
}

type initFunc[S1, S2, P1, P2 any] struct {
	dom *Domain[S1, S2]
	i1  analysis.InitFunc[S1, P1]
	i2  analysis.InitFunc[S2, P2]
}

func (f *initFunc[S1, S2, P1, P2]) InitStates(prec *Prec[P1, P2]) ([]*State[S1, S2], error) {
	l, err := f.i1.InitStates(prec.P1)
	if err != nil {
		return nil, err
	}
	r, err := f.i2.InitStates(prec.P2)
	if err != nil {
		return nil, err
	}
	return f.dom.combine(l, r), nil
}

type transFunc[S1, S2, A, P1, P2 any] struct {
	dom *Domain[S1, S2]
	t1  analysis.TransFunc[S1, A, P1]
	t2  analysis.TransFunc[S2, A, P2]
}

func (f *transFunc[S1, S2, A, P1, P2]) Succ(s *State[S1, S2], a A, prec *Prec[P1, P2]) ([]*State[S1, S2], error) {
	l, err := f.t1.Succ(s.S1, a, prec.P1)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, nil
	}
	r, err := f.t2.Succ(s.S2, a, prec.P2)
	if err != nil {
		return nil, err
	}
	return f.dom.combine(l, r), nil
}

// combine is the Cartesian product without bottom pairs.
func (d *Domain[S1, S2]) combine(l []S1, r []S2) []*State[S1, S2] {
	var out []*State[S1, S2]
	for _, s1 := range l {
		if d.D1.IsBottom(s1) {
			continue
		}
		for _, s2 := range r {
			if d.D2.IsBottom(s2) {
				continue
			}
			out = append(out, NewState(s1, s2))
		}
	}
	return out
}

type prodAnalysis[S1, S2, A, P1, P2 any] struct {
	dom   *Domain[S1, S2]
	init  *initFunc[S1, S2, P1, P2]
	trans *transFunc[S1, S2, A, P1, P2]
}

func (a *prodAnalysis[S1, S2, A, P1, P2]) Domain() analysis.Domain[*State[S1, S2]] { return a.dom }

func (a *prodAnalysis[S1, S2, A, P1, P2]) InitFunc() analysis.InitFunc[*State[S1, S2], *Prec[P1, P2]] {
	return a.init
}

func (a *prodAnalysis[S1, S2, A, P1, P2]) TransFunc() analysis.TransFunc[*State[S1, S2], A, *Prec[P1, P2]] {
	return a.trans
}

// NewAnalysis composes two analyses over the same action type.
func NewAnalysis[S1, S2, A, P1, P2 any](a1 analysis.Analysis[S1, A, P1], a2 analysis.Analysis[S2, A, P2]) analysis.Analysis[*State[S1, S2], A, *Prec[P1, P2]] {
	dom := &Domain[S1, S2]{D1: a1.Domain(), D2: a2.Domain()}
	return &prodAnalysis[S1, S2, A, P1, P2]{
		dom:   dom,
		init:  &initFunc[S1, S2, P1, P2]{dom: dom, i1: a1.InitFunc(), i2: a2.InitFunc()},
		trans: &transFunc[S1, S2, A, P1, P2]{dom: dom, t1: a1.TransFunc(), t2: a2.TransFunc()},
	}
}
