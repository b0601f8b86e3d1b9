// Package zone implements zone abstraction for clock variables: abstract
// states are convex sets of clock valuations stored as canonical
// difference-bound matrices.
package zone

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
)

// Constraint bounds X - Y by C, strictly if Strict. A nil clock is the
// constant zero.
type Constraint struct {
	X, Y   *expr.Decl
	C      int64
	Strict bool
}

func Lt(x *expr.Decl, c int64) Constraint  { return Constraint{X: x, C: c, Strict: true} }
func Leq(x *expr.Decl, c int64) Constraint { return Constraint{X: x, C: c} }
func Gt(x *expr.Decl, c int64) Constraint  { return Constraint{Y: x, C: -c, Strict: true} }
func Geq(x *expr.Decl, c int64) Constraint { return Constraint{Y: x, C: -c} }

// Diff bounds x - y by c.
func Diff(x, y *expr.Decl, c int64, strict bool) Constraint {
	return Constraint{X: x, Y: y, C: c, Strict: strict}
}

func (c Constraint) bound() bound {
	if c.Strict {
		return lt(c.C)
	}
	return le(c.C)
}

func (c Constraint) String() string {
	op := "<="
	if c.Strict {
		op = "<"
	}
	switch {
	case c.Y == nil:
		return fmt.Sprintf("%s %s %d", c.X.Name(), op, c.C)
	case c.X == nil:
		return fmt.Sprintf("-%s %s %d", c.Y.Name(), op, c.C)
	default:
		return fmt.Sprintf("%s - %s %s %d", c.X.Name(), c.Y.Name(), op, c.C)
	}
}

// ClockOp is one of Guard, Reset, Delay or Free.
type ClockOp interface {
	isClockOp()
}

type (
	// Guard intersects with a constraint.
	Guard struct{ Constraint Constraint }
	// Reset sets a clock to a value.
	Reset struct {
		Clock *expr.Decl
		Value int64
	}
	// Delay lets time elapse.
	Delay struct{}
	// Free forgets a clock.
	Free struct{ Clock *expr.Decl }
)

func (Guard) isClockOp() {}
func (Reset) isClockOp() {}
func (Delay) isClockOp() {}
func (Free) isClockOp()  {}

// Action is an action with an effect on clocks.
type Action interface {
	ClockOps() []ClockOp
}

// Prec is the set of tracked clocks.
type Prec struct {
	clocks []*expr.Decl
	index  map[*expr.Decl]int
}

func NewPrec(clocks ...*expr.Decl) *Prec {
	p := &Prec{index: make(map[*expr.Decl]int)}
	for _, c := range clocks {
		if _, ok := p.index[c]; ok {
			continue
		}
		p.clocks = append(p.clocks, c)
		p.index[c] = len(p.clocks)
	}
	return p
}

func (p *Prec) Clocks() []*expr.Decl { return p.clocks }

// Join returns a precision with the clocks of both, or p itself if o adds
// nothing.
func (p *Prec) Join(o *Prec) *Prec {
	for _, c := range o.clocks {
		if _, ok := p.index[c]; !ok {
			return NewPrec(append(append([]*expr.Decl(nil), p.clocks...), o.clocks...)...)
		}
	}
	return p
}

func (p *Prec) String() string {
	names := make([]string, len(p.clocks))
	for i, c := range p.clocks {
		names[i] = c.Name()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// State is a zone over the clocks of a precision.
type State struct {
	prec *Prec
	dbm  *dbm
}

// Top returns the zone of all non-negative clock valuations.
func Top(prec *Prec) *State { return &State{prec: prec, dbm: topDBM(len(prec.clocks))} }

// Zero returns the zone where every clock is zero.
func Zero(prec *Prec) *State { return &State{prec: prec, dbm: zeroDBM(len(prec.clocks))} }

func (s *State) IsBottom() bool { return !s.dbm.consistent() }

// Apply returns the zone after ops. Operations on untracked clocks are
// ignored.
func (s *State) Apply(ops ...ClockOp) *State {
	d := s.dbm.clone()
	idx := func(c *expr.Decl) (int, bool) {
		if c == nil {
			return 0, true
		}
		i, ok := s.prec.index[c]
		return i, ok
	}
	for _, op := range ops {
		if !d.consistent() {
			break
		}
		switch op := op.(type) {
		case Guard:
			i, okX := idx(op.Constraint.X)
			j, okY := idx(op.Constraint.Y)
			if okX && okY {
				d.constrain(i, j, op.Constraint.bound())
			}
		case Reset:
			if i, ok := idx(op.Clock); ok && i > 0 {
				d.reset(i, op.Value)
			}
		case Delay:
			d.up()
		case Free:
			if i, ok := idx(op.Clock); ok && i > 0 {
				d.free(i)
			}
		}
	}
	return &State{prec: s.prec, dbm: d}
}

// Extrapolate widens bounds above the maximal constant of each clock.
// Clocks without a constant are left alone.
func (s *State) Extrapolate(k map[*expr.Decl]int64) *State {
	ks := make([]int64, len(s.prec.clocks)+1)
	for i, c := range s.prec.clocks {
		v, ok := k[c]
		if !ok {
			v = int64(inf.value())
		}
		ks[i+1] = v
	}
	d := s.dbm.clone()
	d.extrapolate(ks)
	return &State{prec: s.prec, dbm: d}
}

// Constraints lists the finite bounds of the zone.
func (s *State) Constraints() []Constraint {
	clock := func(i int) *expr.Decl {
		if i == 0 {
			return nil
		}
		return s.prec.clocks[i-1]
	}
	var out []Constraint
	for i := range s.dbm.m {
		for j := range s.dbm.m[i] {
			b := s.dbm.m[i][j]
			if i == j || b.isInf() || (i == 0 && b == le(0)) {
				continue
			}
			out = append(out, Constraint{X: clock(i), Y: clock(j), C: b.value(), Strict: b.strict()})
		}
	}
	return out
}

// ToExpr describes the zone over the clock variables.
func (s *State) ToExpr() expr.Expr {
	if s.IsBottom() {
		return expr.False()
	}
	var ops []expr.Expr
	for _, c := range s.prec.clocks {
		ops = append(ops, expr.Geq(expr.Ref(c), expr.Int(0)))
	}
	for _, c := range s.Constraints() {
		lhs := expr.Int(0)
		switch {
		case c.X != nil && c.Y != nil:
			lhs = expr.Sub(expr.Ref(c.X), expr.Ref(c.Y))
		case c.X != nil:
			lhs = expr.Ref(c.X)
		default:
			lhs = expr.Neg(expr.Ref(c.Y))
		}
		if c.Strict {
			ops = append(ops, expr.Lt(lhs, expr.Int(c.C)))
		} else {
			ops = append(ops, expr.Leq(lhs, expr.Int(c.C)))
		}
	}
	return expr.And(ops...)
}

func (s *State) String() string {
	if s.IsBottom() {
		return "bottom"
	}
	cs := s.Constraints()
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Domain orders zones by inclusion.
type Domain struct{}

func (Domain) IsTop(s *State) bool    { return s.dbm.leq(topDBM(s.dbm.n)) && topDBM(s.dbm.n).leq(s.dbm) }
func (Domain) IsBottom(s *State) bool { return s.IsBottom() }

func (Domain) IsLeq(s1, s2 *State) (bool, error) {
	if s1.IsBottom() {
		return true, nil
	}
	if s2.IsBottom() {
		return false, nil
	}
	if s1.dbm.n != s2.dbm.n {
		return false, fmt.Errorf("comparing zones over %s and %s", s1.prec, s2.prec)
	}
	return s1.dbm.leq(s2.dbm), nil
}

// Join is the convex hull.
func (Domain) Join(s1, s2 *State) (*State, error) {
	if s1.IsBottom() {
		return s2, nil
	}
	if s2.IsBottom() {
		return s1, nil
	}
	if s1.dbm.n != s2.dbm.n {
		return nil, fmt.Errorf("joining zones over %s and %s", s1.prec, s2.prec)
	}
	return &State{prec: s1.prec, dbm: s1.dbm.join(s2.dbm)}, nil
}

// InitFunc starts with all clocks at zero and lets time elapse.
type InitFunc struct{}

func (InitFunc) InitStates(prec *Prec) ([]*State, error) {
	return []*State{Zero(prec).Apply(Delay{})}, nil
}

// TransFunc applies the clock operations of an action, then extrapolates.
type TransFunc[A Action] struct {
	maxConsts map[*expr.Decl]int64
}

// NewTransFunc creates a transfer function extrapolating with maxConsts;
// nil disables extrapolation.
func NewTransFunc[A Action](maxConsts map[*expr.Decl]int64) *TransFunc[A] {
	return &TransFunc[A]{maxConsts: maxConsts}
}

func (f *TransFunc[A]) Succ(s *State, a A, prec *Prec) ([]*State, error) {
	if prec != s.prec {
		s = s.reproject(prec)
	}
	succ := s.Apply(a.ClockOps()...)
	if f.maxConsts != nil && !succ.IsBottom() {
		succ = succ.Extrapolate(f.maxConsts)
	}
	return []*State{succ}, nil
}

// reproject moves the zone to another precision, keeping the bounds
// between clocks tracked by both.
func (s *State) reproject(prec *Prec) *State {
	out := Top(prec)
	for i, c := range prec.clocks {
		oi, ok := s.prec.index[c]
		if !ok {
			continue
		}
		out.dbm.m[i+1][0] = s.dbm.m[oi][0]
		out.dbm.m[0][i+1] = s.dbm.m[0][oi]
		for j, c2 := range prec.clocks {
			if oj, ok := s.prec.index[c2]; ok {
				out.dbm.m[i+1][j+1] = s.dbm.m[oi][oj]
			}
		}
	}
	out.dbm.canonicalize()
	return out
}

// NewAnalysis creates a zone analysis.
func NewAnalysis[A Action](maxConsts map[*expr.Decl]int64) analysis.Analysis[*State, A, *Prec] {
	return analysis.New[*State, A, *Prec](Domain{}, InitFunc{}, NewTransFunc[A](maxConsts))
}
