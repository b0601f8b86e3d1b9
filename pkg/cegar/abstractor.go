package cegar

import (
	"fmt"

	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
)

// AbstractionStatus is the outcome of building an ARG.
type AbstractionStatus int

const (
	// AbstractionSafe means the ARG is complete and has no target node.
	AbstractionSafe AbstractionStatus = iota
	// AbstractionUnsafe means the ARG has at least one target node.
	AbstractionUnsafe
)

func (s AbstractionStatus) String() string {
	if s == AbstractionSafe {
		return "safe"
	}
	return "unsafe"
}

// StopCriterion decides when exploration may end early.
type StopCriterion int

const (
	// FullExploration builds the whole ARG.
	FullExploration StopCriterion = iota
	// FirstCex stops as soon as a target node appears.
	FirstCex
)

// PartitionFunc groups states that may cover each other. States with
// different keys are never compared.
type PartitionFunc[S any] func(s S) any

// Abstractor builds and extends ARGs under a precision.
type Abstractor[S, A, P any] struct {
	analysis  analysis.Analysis[S, A, P]
	lts       analysis.LTS[S, A]
	target    analysis.TargetPredicate[S]
	partition PartitionFunc[S]
	search    arg.Search
	stop      StopCriterion
	log       log.Logger
}

// AbstractorOption configures an Abstractor.
type AbstractorOption[S, A, P any] func(*Abstractor[S, A, P])

// WithPartition restricts covering to states with equal keys.
func WithPartition[S, A, P any](fn PartitionFunc[S]) AbstractorOption[S, A, P] {
	return func(a *Abstractor[S, A, P]) { a.partition = fn }
}

// WithSearch sets the waitlist ordering.
func WithSearch[S, A, P any](s arg.Search) AbstractorOption[S, A, P] {
	return func(a *Abstractor[S, A, P]) { a.search = s }
}

// WithStopCriterion sets when exploration ends.
func WithStopCriterion[S, A, P any](c StopCriterion) AbstractorOption[S, A, P] {
	return func(a *Abstractor[S, A, P]) { a.stop = c }
}

// WithAbstractorLogger sets the logger.
func WithAbstractorLogger[S, A, P any](l log.Logger) AbstractorOption[S, A, P] {
	return func(a *Abstractor[S, A, P]) { a.log = l }
}

// NewAbstractor creates an abstractor. It panics on nil collaborators.
func NewAbstractor[S, A, P any](an analysis.Analysis[S, A, P], lts analysis.LTS[S, A], target analysis.TargetPredicate[S], opts ...AbstractorOption[S, A, P]) *Abstractor[S, A, P] {
	if an == nil || lts == nil || target == nil {
		panic("cegar: NewAbstractor needs an analysis, an LTS and a target predicate")
	}
	a := &Abstractor[S, A, P]{
		analysis:  an,
		lts:       lts,
		target:    target,
		partition: func(S) any { return nil },
		log:       log.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateARG returns an empty ARG for this abstractor.
func (a *Abstractor[S, A, P]) CreateARG() *arg.ARG[S, A] { return arg.New[S, A]() }

// Init adds the initial states as roots. Bottom roots are marked expanded
// so that they are never processed.
func (a *Abstractor[S, A, P]) Init(g *arg.ARG[S, A], prec P) error {
	inits, err := a.analysis.InitFunc().InitStates(prec)
	if err != nil {
		return fmt.Errorf("computing initial states: %w", err)
	}
	dom := a.analysis.Domain()
	for _, s := range inits {
		if dom.IsBottom(s) {
			g.SetExpanded(g.CreateRoot(s, false).ID())
			continue
		}
		target, err := a.target.Test(s)
		if err != nil {
			return fmt.Errorf("testing initial state %v: %w", s, err)
		}
		g.CreateRoot(s, target)
	}
	return nil
}

// Check extends g until every node is expanded, covered or a target, or
// until the stop criterion fires. An empty ARG is initialised first.
func (a *Abstractor[S, A, P]) Check(g *arg.ARG[S, A], prec P) (AbstractionStatus, error) {
	if len(g.Roots()) == 0 {
		if err := a.Init(g, prec); err != nil {
			return 0, err
		}
	}
	if a.stop == FirstCex && !g.IsSafe() {
		return AbstractionUnsafe, nil
	}

	waitlist := arg.NewWaitlist[S, A](a.search)
	for _, n := range g.Nodes() {
		if n.IsFeasibleLeaf() {
			waitlist.Add(n)
		}
	}

	for n, ok := waitlist.Remove(); ok; n, ok = waitlist.Remove() {
		if !n.IsFeasibleLeaf() {
			continue
		}
		if err := a.close(g, n); err != nil {
			return 0, err
		}
		if n.IsCovered() {
			continue
		}
		children, err := a.expand(g, n, prec)
		if err != nil {
			return 0, err
		}
		for _, c := range children {
			if c.IsTarget() {
				if a.stop == FirstCex {
					return AbstractionUnsafe, nil
				}
				continue
			}
			waitlist.Add(c)
		}
	}

	if g.IsSafe() {
		return AbstractionSafe, nil
	}
	return AbstractionUnsafe, nil
}

// close covers n with the first earlier-created node of the same
// partition that includes it.
func (a *Abstractor[S, A, P]) close(g *arg.ARG[S, A], n *arg.Node[S, A]) error {
	dom := a.analysis.Domain()
	key := a.partition(n.State())
	for _, m := range g.Nodes() {
		if m.ID() == n.ID() {
			break
		}
		if m.IsCovered() || m.IsTarget() || a.partition(m.State()) != key {
			continue
		}
		ok, err := dom.IsLeq(n.State(), m.State())
		if err != nil {
			return fmt.Errorf("comparing node %d with %d: %w", n.ID(), m.ID(), err)
		}
		if ok {
			return g.Cover(n.ID(), m.ID())
		}
	}
	return nil
}

func (a *Abstractor[S, A, P]) expand(g *arg.ARG[S, A], n *arg.Node[S, A], prec P) ([]*arg.Node[S, A], error) {
	dom := a.analysis.Domain()
	trans := a.analysis.TransFunc()
	var children []*arg.Node[S, A]
	for _, act := range a.lts.EnabledActionsFor(n.State()) {
		succs, err := trans.Succ(n.State(), act, prec)
		if err != nil {
			return nil, fmt.Errorf("expanding node %d along %v: %w", n.ID(), act, err)
		}
		for _, s := range succs {
			if dom.IsBottom(s) {
				continue
			}
			target, err := a.target.Test(s)
			if err != nil {
				return nil, fmt.Errorf("testing successor of node %d: %w", n.ID(), err)
			}
			c, err := g.CreateSucc(n.ID(), act, s, target)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
	}
	g.SetExpanded(n.ID())
	a.log.Debug("expanded node", "node", n.ID(), "children", len(children))
	return children, nil
}
