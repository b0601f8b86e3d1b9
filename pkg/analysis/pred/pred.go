// Package pred implements predicate abstraction: abstract states are
// conjunctions of literals over a finite set of tracked predicates.
package pred

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

// State is a conjunction of predicate literals, or bottom.
type State struct {
	lits   []expr.Expr
	keys   map[string]struct{}
	bottom bool
}

var bottom = &State{bottom: true}

func Bottom() *State { return bottom }

func Top() *State { return NewState() }

// NewState creates the conjunction of lits.
func NewState(lits ...expr.Expr) *State {
	s := &State{keys: make(map[string]struct{})}
	for _, l := range lits {
		k := l.String()
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = struct{}{}
		s.lits = append(s.lits, l)
	}
	sort.Slice(s.lits, func(i, j int) bool { return s.lits[i].String() < s.lits[j].String() })
	return s
}

func (s *State) Lits() []expr.Expr { return s.lits }

func (s *State) IsBottom() bool { return s.bottom }

func (s *State) has(l expr.Expr) bool {
	_, ok := s.keys[l.String()]
	return ok
}

func (s *State) ToExpr() expr.Expr {
	if s.bottom {
		return expr.False()
	}
	return expr.And(s.lits...)
}

func (s *State) String() string {
	if s.bottom {
		return "bottom"
	}
	parts := make([]string, len(s.lits))
	for i, l := range s.lits {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Prec is the set of tracked predicates, identified by their printed form.
type Prec struct {
	preds []expr.Expr
	keys  map[string]struct{}
}

// NewPrec creates a precision. Predicates are simplified; constants are
// dropped.
func NewPrec(preds ...expr.Expr) *Prec {
	p := &Prec{keys: make(map[string]struct{})}
	for _, e := range preds {
		p.add(e)
	}
	return p
}

func (p *Prec) add(e expr.Expr) bool {
	e = expr.Simplify(e)
	if _, ok := e.(*expr.BoolLit); ok {
		return false
	}
	k := e.String()
	if _, ok := p.keys[k]; ok {
		return false
	}
	p.keys[k] = struct{}{}
	p.preds = append(p.preds, e)
	return true
}

func (p *Prec) Preds() []expr.Expr { return p.preds }

func (p *Prec) Len() int { return len(p.preds) }

// Join returns a precision with the predicates of both. If o adds nothing,
// p itself is returned.
func (p *Prec) Join(o *Prec) *Prec {
	grows := false
	for _, e := range o.preds {
		if _, ok := p.keys[e.String()]; !ok {
			grows = true
			break
		}
	}
	if !grows {
		return p
	}
	return NewPrec(append(append([]expr.Expr(nil), p.preds...), o.preds...)...)
}

func (p *Prec) String() string {
	parts := make([]string, len(p.preds))
	for i, e := range p.preds {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Domain orders states by implication, checked syntactically first and
// with the solver otherwise.
type Domain struct {
	solver solver.Solver
}

func NewDomain(s solver.Solver) *Domain { return &Domain{solver: s} }

func (d *Domain) IsTop(s *State) bool    { return !s.bottom && len(s.lits) == 0 }
func (d *Domain) IsBottom(s *State) bool { return s.bottom }

func (d *Domain) IsLeq(s1, s2 *State) (bool, error) {
	if s1.bottom {
		return true, nil
	}
	if s2.bottom {
		return false, nil
	}
	subset := true
	for _, l := range s2.lits {
		if !s1.has(l) {
			subset = false
			break
		}
	}
	if subset {
		return true, nil
	}
	var zero expr.VarIndexing
	sat, err := solver.IsSat(d.solver, expr.And(expr.Unfold(s1.ToExpr(), zero), expr.Not(expr.Unfold(s2.ToExpr(), zero))))
	if err != nil {
		return false, fmt.Errorf("checking inclusion: %w", err)
	}
	return !sat, nil
}

// Join keeps the literals common to both states.
func (d *Domain) Join(s1, s2 *State) (*State, error) {
	if s1.bottom {
		return s2, nil
	}
	if s2.bottom {
		return s1, nil
	}
	var common []expr.Expr
	for _, l := range s1.lits {
		if s2.has(l) {
			common = append(common, l)
		}
	}
	return NewState(common...), nil
}
