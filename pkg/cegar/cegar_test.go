package cegar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/expr"
)

// The toy system counts x from 0 up to 5. A state is either the exact
// value v or, when above, the interval [v, 5]. The precision is the first
// value that is no longer tracked exactly.
type counter struct {
	v      int
	above  bool
	bottom bool
}

func (c counter) String() string {
	switch {
	case c.bottom:
		return "bottom"
	case c.above:
		return fmt.Sprintf("[%d,5]", c.v)
	}
	return fmt.Sprint(c.v)
}

const limit = 5

type counterDomain struct{}

func (counterDomain) IsTop(s counter) bool    { return s.above && s.v == 0 }
func (counterDomain) IsBottom(s counter) bool { return s.bottom }

func (counterDomain) IsLeq(a, b counter) (bool, error) {
	switch {
	case a.bottom:
		return true, nil
	case b.bottom:
		return false, nil
	case b.above:
		return a.v >= b.v, nil
	}
	return !a.above && a.v == b.v, nil
}

func (counterDomain) Join(a, b counter) (counter, error) {
	return counter{}, errors.New("not needed")
}

func abstract(v, prec int) counter {
	if v >= prec {
		return counter{v: prec, above: true}
	}
	return counter{v: v}
}

func newCounterAnalysis(bottomInit bool) analysis.Analysis[counter, string, int] {
	init := analysis.InitFuncFunc[counter, int](func(prec int) ([]counter, error) {
		if bottomInit {
			return []counter{{bottom: true}}, nil
		}
		return []counter{abstract(0, prec)}, nil
	})
	trans := analysis.TransFuncFunc[counter, string, int](func(s counter, a string, prec int) ([]counter, error) {
		if a == "stay" {
			return []counter{s}, nil
		}
		if s.v >= limit {
			return []counter{{bottom: true}}, nil
		}
		if s.above {
			return []counter{s}, nil
		}
		return []counter{abstract(s.v+1, prec)}, nil
	})
	return analysis.New[counter, string, int](counterDomain{}, init, trans)
}

func actions(stay bool) analysis.LTS[counter, string] {
	return analysis.LTSFunc[counter, string](func(counter) []string {
		if stay {
			return []string{"inc", "stay"}
		}
		return []string{"inc"}
	})
}

func targetAt(t int) analysis.TargetPredicate[counter] {
	return analysis.TargetFunc[counter](func(s counter) (bool, error) {
		if s.above {
			return s.v <= t && t <= limit, nil
		}
		return s.v == t, nil
	})
}

// counterRefiner reports the first target trace as feasible when every
// state on it is exact, and otherwise tracks one more value.
func counterRefiner(x *expr.Decl) Refiner[counter, string, int] {
	return RefinerFunc[counter, string, int](func(g *arg.ARG[counter, string], prec int) (*RefinerResult[counter, string, int], error) {
		targets := g.TargetNodes()
		if len(targets) == 0 {
			return nil, errors.New("no target")
		}
		states, acts := g.TraceTo(targets[0])
		trace, err := analysis.NewTrace(states, acts)
		if err != nil {
			return nil, err
		}
		cex := &analysis.ConcreteTrace{}
		for _, s := range states {
			if s.above {
				return &RefinerResult[counter, string, int]{Status: Spurious, Prec: prec + 1, Trace: trace}, nil
			}
			cex.Valuations = append(cex.Valuations, expr.MustValuation(map[*expr.Decl]expr.Expr{x: expr.Int(int64(s.v))}))
		}
		return &RefinerResult[counter, string, int]{Status: Feasible, Trace: trace, Cex: cex}, nil
	})
}

func TestAbstractorCoversLoops(t *testing.T) {
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(7))
	g := abs.CreateARG()

	status, err := abs.Check(g, 2)
	require.NoError(t, err)
	assert.Equal(t, AbstractionSafe, status)
	assert.True(t, g.IsComplete())

	// 0 -> 1 -> [2,5] -> [2,5], the last covered by its parent.
	assert.Equal(t, arg.Stats{Nodes: 4, Edges: 3, Covered: 1, Depth: 3, MeanBranching: 1}, g.Stats())
	assert.Equal(t, arg.NodeID(2), g.Node(3).CoveredBy())
}

func TestAbstractorTargetsAreNotExpanded(t *testing.T) {
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(4))
	g := abs.CreateARG()

	status, err := abs.Check(g, 2)
	require.NoError(t, err)
	assert.Equal(t, AbstractionUnsafe, status)
	require.Equal(t, []arg.NodeID{2}, g.TargetNodes())
	assert.False(t, g.Node(2).IsExpanded())
	assert.True(t, g.IsComplete())
}

func TestAbstractorStopCriterion(t *testing.T) {
	tests := []struct {
		stop     StopCriterion
		complete bool
	}{
		{FullExploration, true},
		{FirstCex, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.stop), func(t *testing.T) {
			abs := NewAbstractor(newCounterAnalysis(false), actions(true), targetAt(4),
				WithStopCriterion[counter, string, int](tt.stop),
				WithSearch[counter, string, int](arg.DFS))
			g := abs.CreateARG()

			status, err := abs.Check(g, 2)
			require.NoError(t, err)
			assert.Equal(t, AbstractionUnsafe, status)
			assert.Equal(t, tt.complete, g.IsComplete())
		})
	}
}

func TestAbstractorBottomRoot(t *testing.T) {
	abs := NewAbstractor(newCounterAnalysis(true), actions(false), targetAt(0))
	g := abs.CreateARG()

	status, err := abs.Check(g, 2)
	require.NoError(t, err)
	assert.Equal(t, AbstractionSafe, status)
	require.Len(t, g.Nodes(), 1)
	assert.True(t, g.Node(0).IsExpanded())
	assert.True(t, g.Node(0).IsLeaf())
}

func TestCoveringIsSound(t *testing.T) {
	for _, search := range []arg.Search{arg.BFS, arg.DFS, arg.TargetFirstSearch} {
		t.Run(search.String(), func(t *testing.T) {
			an := newCounterAnalysis(false)
			abs := NewAbstractor(an, actions(true), targetAt(4), WithSearch[counter, string, int](search))
			g := abs.CreateARG()
			_, err := abs.Check(g, 3)
			require.NoError(t, err)

			for _, n := range g.Nodes() {
				if !n.IsCovered() {
					continue
				}
				m := g.Node(n.CoveredBy())
				ok, err := an.Domain().IsLeq(n.State(), m.State())
				require.NoError(t, err)
				assert.True(t, ok, "node %d covered by %d", n.ID(), m.ID())
				assert.False(t, g.IsAncestor(n.ID(), m.ID()))
				assert.False(t, m.IsCovered())
			}
		})
	}
}

func TestCheckerUnsafe(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(4))
	var rounds []IterationInfo
	c, err := NewChecker(abs, counterRefiner(x), WithProgress(func(i IterationInfo) { rounds = append(rounds, i) }))
	require.NoError(t, err)

	res, err := c.Check(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, res.Safe())
	require.NotNil(t, res.Cex)
	assert.Equal(t, 4, res.Cex.Len())
	assert.Equal(t, "{x=0} -> {x=1} -> {x=2} -> {x=3} -> {x=4}", res.Cex.String())
	assert.Equal(t, 4, res.Trace.Len())

	assert.Equal(t, 4, res.Stats.Iterations)
	require.Len(t, rounds, 4)
	assert.Equal(t, []string{"2", "3", "4", "5"}, []string{rounds[0].Prec, rounds[1].Prec, rounds[2].Prec, rounds[3].Prec})
	assert.Equal(t, "unsafe", rounds[3].Status)
}

func TestCheckerAcceptsSpuriousWithoutTrace(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	inner := counterRefiner(x)
	calls := 0
	ref := RefinerFunc[counter, string, int](func(g *arg.ARG[counter, string], prec int) (*RefinerResult[counter, string, int], error) {
		calls++
		if calls == 1 {
			return &RefinerResult[counter, string, int]{Status: Spurious, Prec: prec + 1}, nil
		}
		return inner.Refine(g, prec)
	})
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(4))
	c, err := NewChecker(abs, ref)
	require.NoError(t, err)

	res, err := c.Check(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, res.Safe())
	assert.Equal(t, "refined", res.Stats.Rounds[0].Status)
	assert.Equal(t, "3", res.Stats.Rounds[1].Prec)
}

func TestTraceLenOfNil(t *testing.T) {
	var tr *analysis.Trace[counter, string]
	assert.Equal(t, 0, tr.Len())
}

func TestCheckerSafe(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	abs := NewAbstractor(newCounterAnalysis(false), actions(true), targetAt(7))
	c, err := NewChecker(abs, counterRefiner(x))
	require.NoError(t, err)

	res, err := c.Check(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, res.Safe())
	assert.Nil(t, res.Trace)
	assert.Equal(t, 1, res.Stats.Iterations)
	assert.True(t, res.ARG.IsComplete())
	assert.Contains(t, res.String(), "SAFE after 1 iterations")
}

func TestCheckerBudgets(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(4))

	c, err := NewChecker(abs, counterRefiner(x), WithMaxIterations(2))
	require.NoError(t, err)
	_, err = c.Check(context.Background(), 2)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.True(t, IsInconclusive(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err = NewChecker(abs, counterRefiner(x))
	require.NoError(t, err)
	_, err = c.Check(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsInconclusive(err))

	_, err = NewChecker(abs, counterRefiner(x), WithMaxIterations(-1))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, IsInconclusive(err))
}

func TestCheckerPropagatesRefinerErrors(t *testing.T) {
	boom := errors.New("boom")
	abs := NewAbstractor(newCounterAnalysis(false), actions(false), targetAt(4))
	c, err := NewChecker(abs, RefinerFunc[counter, string, int](func(*arg.ARG[counter, string], int) (*RefinerResult[counter, string, int], error) {
		return nil, boom
	}))
	require.NoError(t, err)

	_, err = c.Check(context.Background(), 2)
	assert.ErrorIs(t, err, boom)
}
