// Package analysis defines the abstract interpretation interfaces the
// reachability engine is generic over: a domain of abstract states ordered
// by inclusion, an initial-state function and a transfer function, both
// parameterised by a precision.
package analysis

import (
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// Domain orders abstract states.
type Domain[S any] interface {
	IsTop(s S) bool
	IsBottom(s S) bool
	// IsLeq reports whether s1 is included in s2.
	IsLeq(s1, s2 S) (bool, error)
	Join(s1, s2 S) (S, error)
}

// InitFunc computes the initial abstract states under a precision.
type InitFunc[S, P any] interface {
	InitStates(prec P) ([]S, error)
}

// TransFunc computes the abstract successors of a state along an action.
type TransFunc[S, A, P any] interface {
	Succ(s S, a A, prec P) ([]S, error)
}

// LTS enumerates the actions enabled in a state.
type LTS[S, A any] interface {
	EnabledActionsFor(s S) []A
}

// Analysis bundles a domain with its initial-state and transfer functions.
type Analysis[S, A, P any] interface {
	Domain() Domain[S]
	InitFunc() InitFunc[S, P]
	TransFunc() TransFunc[S, A, P]
}

type basic[S, A, P any] struct {
	domain Domain[S]
	init   InitFunc[S, P]
	trans  TransFunc[S, A, P]
}

// New bundles the three parts of an analysis.
func New[S, A, P any](d Domain[S], i InitFunc[S, P], t TransFunc[S, A, P]) Analysis[S, A, P] {
	return &basic[S, A, P]{domain: d, init: i, trans: t}
}

func (b *basic[S, A, P]) Domain() Domain[S]             { return b.domain }
func (b *basic[S, A, P]) InitFunc() InitFunc[S, P]      { return b.init }
func (b *basic[S, A, P]) TransFunc() TransFunc[S, A, P] { return b.trans }

// ExprState is an abstract state with a symbolic meaning over unprimed
// variables.
type ExprState interface {
	ToExpr() expr.Expr
}

// ExprAction is an action with a transition formula over primed variables.
type ExprAction interface {
	ToExpr() expr.Expr
	// NextIndexing is the SSA shift the action induces.
	NextIndexing() expr.VarIndexing
}

// StmtAction is an ExprAction given by a statement sequence.
type StmtAction interface {
	ExprAction
	Stmts() []stmt.Stmt
}

// InitFuncFunc adapts a function to InitFunc.
type InitFuncFunc[S, P any] func(prec P) ([]S, error)

func (f InitFuncFunc[S, P]) InitStates(prec P) ([]S, error) { return f(prec) }

// TransFuncFunc adapts a function to TransFunc.
type TransFuncFunc[S, A, P any] func(s S, a A, prec P) ([]S, error)

func (f TransFuncFunc[S, A, P]) Succ(s S, a A, prec P) ([]S, error) { return f(s, a, prec) }

// LTSFunc adapts a function to LTS.
type LTSFunc[S, A any] func(s S) []A

func (f LTSFunc[S, A]) EnabledActionsFor(s S) []A { return f(s) }
