package cfa

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// Action is the statement action of one edge.
type Action struct {
	Edge *Edge
	e    expr.Expr
	vi   expr.VarIndexing
}

// NewAction computes the transition formula of e once.
func NewAction(e *Edge) *Action {
	f, vi := stmt.ToExpr(e.Stmts)
	return &Action{Edge: e, e: f, vi: vi}
}

func (a *Action) Source() *Loc                   { return a.Edge.Source }
func (a *Action) Target() *Loc                   { return a.Edge.Target }
func (a *Action) Stmts() []stmt.Stmt             { return a.Edge.Stmts }
func (a *Action) ToExpr() expr.Expr              { return a.e }
func (a *Action) NextIndexing() expr.VarIndexing { return a.vi }
func (a *Action) String() string                 { return a.Edge.String() }

// CacheKey identifies the edge; parallel edges print alike.
func (a *Action) CacheKey() string { return fmt.Sprintf("%p", a.Edge) }

// LocState pairs a control location with an abstract data state.
type LocState[S any] struct {
	Loc   *Loc
	State S
}

func NewLocState[S any](l *Loc, s S) *LocState[S] { return &LocState[S]{Loc: l, State: s} }

// ToExpr is the formula of the data state, or true when it has none.
func (s *LocState[S]) ToExpr() expr.Expr {
	if es, ok := any(s.State).(analysis.ExprState); ok {
		return es.ToExpr()
	}
	return expr.True()
}

func (s *LocState[S]) String() string { return fmt.Sprintf("%s %v", s.Loc, s.State) }

// Partition groups states by location for coverage.
func Partition[S any](s *LocState[S]) any { return s.Loc }

type domain[S any] struct {
	inner analysis.Domain[S]
}

// A location state is never top: the location is always known.
func (d domain[S]) IsTop(*LocState[S]) bool      { return false }
func (d domain[S]) IsBottom(s *LocState[S]) bool { return d.inner.IsBottom(s.State) }

func (d domain[S]) IsLeq(s1, s2 *LocState[S]) (bool, error) {
	if s1.Loc != s2.Loc {
		return d.inner.IsBottom(s1.State), nil
	}
	return d.inner.IsLeq(s1.State, s2.State)
}

func (d domain[S]) Join(s1, s2 *LocState[S]) (*LocState[S], error) {
	if s1.Loc != s2.Loc {
		return nil, fmt.Errorf("joining states at %s and %s", s1.Loc, s2.Loc)
	}
	j, err := d.inner.Join(s1.State, s2.State)
	if err != nil {
		return nil, err
	}
	return NewLocState(s1.Loc, j), nil
}

type initFunc[S, P any] struct {
	loc   *Loc
	inner analysis.InitFunc[S, P]
}

func (f initFunc[S, P]) InitStates(prec P) ([]*LocState[S], error) {
	states, err := f.inner.InitStates(prec)
	if err != nil {
		return nil, err
	}
	out := make([]*LocState[S], len(states))
	for i, s := range states {
		out[i] = NewLocState(f.loc, s)
	}
	return out, nil
}

type transFunc[S, P any] struct {
	inner analysis.TransFunc[S, *Action, P]
}

func (f transFunc[S, P]) Succ(s *LocState[S], a *Action, prec P) ([]*LocState[S], error) {
	if a.Source() != s.Loc {
		return nil, fmt.Errorf("action %s is not enabled at %s", a, s.Loc)
	}
	succs, err := f.inner.Succ(s.State, a, prec)
	if err != nil {
		return nil, err
	}
	out := make([]*LocState[S], len(succs))
	for i, t := range succs {
		out[i] = NewLocState(a.Target(), t)
	}
	return out, nil
}

// NewAnalysis lifts a data analysis over edge actions to location states,
// starting at the initial location of c.
func NewAnalysis[S, P any](c *CFA, inner analysis.Analysis[S, *Action, P]) analysis.Analysis[*LocState[S], *Action, P] {
	return analysis.New[*LocState[S], *Action, P](
		domain[S]{inner: inner.Domain()},
		initFunc[S, P]{loc: c.Init, inner: inner.InitFunc()},
		transFunc[S, P]{inner: inner.TransFunc()},
	)
}

// LTS enables the outgoing edges of the current location.
type LTS[S any] struct {
	actions map[*Loc][]*Action
}

// NewLTS builds one action per edge of c.
func NewLTS[S any](c *CFA) *LTS[S] {
	l := &LTS[S]{actions: make(map[*Loc][]*Action, len(c.Locs))}
	for _, e := range c.Edges {
		l.actions[e.Source] = append(l.actions[e.Source], NewAction(e))
	}
	return l
}

func (l *LTS[S]) EnabledActionsFor(s *LocState[S]) []*Action { return l.actions[s.Loc] }

// ErrorLocPredicate marks the states at the error location as targets.
type ErrorLocPredicate[S any] struct {
	Error *Loc
}

func (p ErrorLocPredicate[S]) Test(s *LocState[S]) (bool, error) { return s.Loc == p.Error, nil }
