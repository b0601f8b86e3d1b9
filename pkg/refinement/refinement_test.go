package refinement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/analysis/expl"
	"github.com/l3aro/go-cegar/pkg/analysis/pred"
	"github.com/l3aro/go-cegar/pkg/analysis/prod"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/cegar"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/solver/bitblast"
	"github.com/l3aro/go-cegar/pkg/stmt"
	"github.com/l3aro/go-cegar/pkg/sts"
)

type action struct {
	stmts []stmt.Stmt
}

func (a action) Stmts() []stmt.Stmt { return a.stmts }

func (a action) ToExpr() expr.Expr {
	e, _ := stmt.ToExpr(a.stmts)
	return e
}

func (a action) NextIndexing() expr.VarIndexing {
	_, vi := stmt.ToExpr(a.stmts)
	return vi
}

func (a action) String() string { return "inc" }

type formula struct{ e expr.Expr }

func (f formula) ToExpr() expr.Expr { return f.e }

// counter counts x up from 0 while x < 10.
type counter struct {
	x    *expr.Decl
	init expr.Expr
	inc  action
}

func newCounter() *counter {
	x := expr.NewVar("x", expr.IntType)
	return &counter{
		x:    x,
		init: expr.Eq(expr.Ref(x), expr.Int(0)),
		inc: action{stmts: []stmt.Stmt{
			stmt.Assume(expr.Lt(expr.Ref(x), expr.Int(10))),
			stmt.Assign(x, expr.Add(expr.Ref(x), expr.Int(1))),
		}},
	}
}

func (c *counter) reach(v int64) expr.Expr { return expr.Eq(expr.Ref(c.x), expr.Int(v)) }

// trace returns n increments between unconstrained states.
func (c *counter) trace(n int) *ExprTrace {
	t := &ExprTrace{States: []expr.Expr{expr.True()}}
	for i := 0; i < n; i++ {
		t.States = append(t.States, expr.True())
		t.Actions = append(t.Actions, c.inc)
	}
	return t
}

func newSolver() *bitblast.Solver { return bitblast.New(bitblast.DefaultOptions()) }

func itpCheckers(c *counter, target expr.Expr) map[string]ExprTraceChecker[*ItpRefutation] {
	return map[string]ExprTraceChecker[*ItpRefutation]{
		"seq-itp":      NewSeqItpChecker(c.init, target, newSolver()),
		"newton-sp":    NewNewtonChecker(c.init, target, newSolver(), Forward),
		"newton-wp":    NewNewtonChecker(c.init, target, newSolver(), Backward),
		"newton-sp-lv": NewNewtonChecker(c.init, target, newSolver(), Forward, WithLiveVars()),
		"newton-wp-lv": NewNewtonChecker(c.init, target, newSolver(), Backward, WithLiveVars()),
		"newton-it-sp": NewNewtonChecker(c.init, target, newSolver(), Forward, WithIrrelevantStmtAbstraction()),
		"ucb":          NewUCBChecker(c.init, target, newSolver()),
	}
}

// assertReplays evaluates every unfolded init, transition and target
// conjunct of tr under the values of cex.
func assertReplays(t *testing.T, init, target expr.Expr, tr *ExprTrace, cex *ConcreteTrace) {
	t.Helper()
	u := unfoldTrace(init, target, tr)
	require.Len(t, cex.Valuations, len(u.indexings))

	m := make(map[*expr.Decl]expr.Expr)
	for i, val := range cex.Valuations {
		for _, d := range val.Decls() {
			v, _ := val.Get(d)
			m[d.Indexed(u.indexings[i].Get(d))] = v
		}
	}
	all := expr.MustValuation(m)

	conjuncts := append([]expr.Expr(nil), u.init...)
	for _, g := range u.groups {
		conjuncts = append(conjuncts, g...)
	}
	w := expr.Width(bitblast.DefaultWidth)
	for _, c := range conjuncts {
		v, err := w.Eval(c, all)
		require.NoError(t, err, "%s", c)
		assert.True(t, expr.IsTrue(v), "%s under %s", c, all)
	}
}

func TestFeasibleTrace(t *testing.T) {
	c := newCounter()
	tr := c.trace(5)
	want := "{x=0} -> {x=1} -> {x=2} -> {x=3} -> {x=4} -> {x=5}"

	for name, chk := range itpCheckers(c, c.reach(5)) {
		t.Run(name, func(t *testing.T) {
			status, err := chk.Check(tr)
			require.NoError(t, err)
			require.True(t, status.IsFeasible())
			assert.Equal(t, 5, status.Cex.Len())
			assert.Equal(t, want, status.Cex.String())
			assertReplays(t, c.init, c.reach(5), tr, status.Cex)
		})
	}

	t.Run("unsat-core", func(t *testing.T) {
		status, err := NewUnsatCoreChecker(c.init, c.reach(5), newSolver()).Check(tr)
		require.NoError(t, err)
		require.True(t, status.IsFeasible())
		assert.Equal(t, want, status.Cex.String())
		assertReplays(t, c.init, c.reach(5), tr, status.Cex)
	})
}

func TestFeasibleResetTrace(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)
	sys, err := sts.NewBuilder().
		AddInit(expr.And(expr.Eq(expr.Ref(x), expr.Int(0)), expr.Eq(expr.Ref(y), expr.Int(0)))).
		AddTrans(
			expr.Imply(expr.Lt(expr.Ref(x), expr.Int(10)), expr.Eq(expr.Prime(expr.Ref(x)), expr.Add(expr.Ref(x), expr.Int(1)))),
			expr.Imply(expr.Geq(expr.Ref(x), expr.Int(10)), expr.Eq(expr.Prime(expr.Ref(x)), expr.Int(0))),
			expr.Eq(expr.Prime(expr.Ref(y)), expr.Int(0))).
		SetProp(expr.Neq(expr.Ref(x), expr.Int(5))).
		Build()
	require.NoError(t, err)

	tr := &ExprTrace{States: []expr.Expr{expr.True()}}
	for i := 0; i < 5; i++ {
		tr.States = append(tr.States, expr.True())
		tr.Actions = append(tr.Actions, sys.Action())
	}
	want := "{x=0, y=0} -> {x=1, y=0} -> {x=2, y=0} -> {x=3, y=0} -> {x=4, y=0} -> {x=5, y=0}"

	checkers := map[string]ExprTraceChecker[*ItpRefutation]{
		"seq-itp": NewSeqItpChecker(sys.InitExpr(), sys.Target(), newSolver()),
	}
	for name, chk := range checkers {
		t.Run(name, func(t *testing.T) {
			status, err := chk.Check(tr)
			require.NoError(t, err)
			require.True(t, status.IsFeasible())
			assert.Equal(t, want, status.Cex.String())
			assertReplays(t, sys.InitExpr(), sys.Target(), tr, status.Cex)
		})
	}

	t.Run("unsat-core", func(t *testing.T) {
		status, err := NewUnsatCoreChecker(sys.InitExpr(), sys.Target(), newSolver()).Check(tr)
		require.NoError(t, err)
		require.True(t, status.IsFeasible())
		assert.Equal(t, want, status.Cex.String())
		assertReplays(t, sys.InitExpr(), sys.Target(), tr, status.Cex)
	})
}

func TestInfeasibleTrace(t *testing.T) {
	c := newCounter()
	tr := c.trace(3)

	for name, chk := range itpCheckers(c, c.reach(5)) {
		t.Run(name, func(t *testing.T) {
			status, err := chk.Check(tr)
			require.NoError(t, err)
			require.False(t, status.IsFeasible())

			ref := status.Refutation
			require.Len(t, ref.Itps, 4)
			assert.Equal(t, ref.Formulas()[1:], ref.Itps)

			prec := ItpToPredPrec(SplitAtoms).Refine(pred.NewPrec(), ref)
			assert.Positive(t, prec.Len())
			vars := ItpToExplPrec().Refine(expl.NewPrec(), ref)
			assert.Equal(t, "{x}", vars.String())
		})
	}

	t.Run("seq-itp prunes at the target", func(t *testing.T) {
		status, err := NewSeqItpChecker(c.init, c.reach(5), newSolver()).Check(tr)
		require.NoError(t, err)
		ref := status.Refutation
		assert.Equal(t, 3, ref.PruneIndex)
		assert.True(t, expr.IsFalse(ref.Itps[3]))
	})

	t.Run("newton-sp prunes at the target", func(t *testing.T) {
		status, err := NewNewtonChecker(c.init, c.reach(5), newSolver(), Forward).Check(tr)
		require.NoError(t, err)
		ref := status.Refutation
		assert.True(t, expr.IsTrue(ref.Itps[0]))
		assert.Equal(t, 3, ref.PruneIndex)
	})

	t.Run("unsat-core", func(t *testing.T) {
		status, err := NewUnsatCoreChecker(c.init, c.reach(5), newSolver()).Check(tr)
		require.NoError(t, err)
		require.False(t, status.IsFeasible())
		ref := status.Refutation
		assert.Equal(t, 3, ref.Prefix)
		assert.Equal(t, []*expr.Decl{c.x}, ref.Vars())
	})
}

func TestRootTrace(t *testing.T) {
	c := newCounter()
	tr := c.trace(0)

	for name, chk := range itpCheckers(c, c.reach(5)) {
		t.Run(name, func(t *testing.T) {
			status, err := chk.Check(tr)
			require.NoError(t, err)
			require.False(t, status.IsFeasible())
			vars := ItpToExplPrec().Refine(expl.NewPrec(), status.Refutation)
			assert.Equal(t, "{x}", vars.String(), "refutation must not stall at the root")
		})
	}

	status, err := NewSeqItpChecker(c.init, c.reach(0), newSolver()).Check(tr)
	require.NoError(t, err)
	require.True(t, status.IsFeasible())
	assert.Equal(t, "{x=0}", status.Cex.String())
}

func TestStatesConstrainTheTrace(t *testing.T) {
	c := newCounter()
	tr := c.trace(2)
	tr.States[1] = expr.Gt(expr.Ref(c.x), expr.Int(4))

	status, err := NewUnsatCoreChecker(c.init, expr.True(), newSolver()).Check(tr)
	require.NoError(t, err)
	require.False(t, status.IsFeasible())
	assert.Equal(t, 1, status.Refutation.Prefix)
}

func TestStmtActionRequired(t *testing.T) {
	c := newCounter()
	tr := &ExprTrace{
		States:  []expr.Expr{expr.True(), expr.True()},
		Actions: []analysis.ExprAction{formula2action{c.inc.ToExpr(), c.inc.NextIndexing()}},
	}

	_, err := NewNewtonChecker(c.init, c.reach(1), newSolver(), Forward).Check(tr)
	require.ErrorIs(t, err, ErrStmtActionRequired)
	assert.ErrorIs(t, err, cegar.ErrInvalidConfig)

	_, err = NewUCBChecker(c.init, c.reach(1), newSolver()).Check(tr)
	require.ErrorIs(t, err, ErrStmtActionRequired)

	status, err := NewSeqItpChecker(c.init, c.reach(1), newSolver()).Check(tr)
	require.NoError(t, err)
	assert.True(t, status.IsFeasible())
}

type formula2action struct {
	e  expr.Expr
	vi expr.VarIndexing
}

func (a formula2action) ToExpr() expr.Expr              { return a.e }
func (a formula2action) NextIndexing() expr.VarIndexing { return a.vi }

func TestPrecRefiners(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)
	lt := expr.Lt(expr.Ref(x), expr.Int(3))
	eq := expr.Eq(expr.Ref(y), expr.Int(0))
	aux := expr.Fresh("sp_x", expr.IntType)

	ref := NewItpRefutation(nil, []expr.Expr{
		expr.And(lt, eq),
		expr.Eq(expr.Ref(x), expr.Ref(aux)),
		expr.Exists([]*expr.Decl{aux}, expr.Eq(expr.Ref(x), expr.Ref(aux))),
		expr.False(),
	})
	assert.Equal(t, 3, ref.PruneIndex)

	tests := []struct {
		split Split
		want  string
	}{
		{SplitWhole, "{x < 3 && y == 0}"},
		{SplitConjuncts, "{x < 3, y == 0}"},
		{SplitAtoms, "{x < 3, y == 0}"},
	}
	for _, tt := range tests {
		t.Run(tt.split.String(), func(t *testing.T) {
			r := ItpToPredPrec(tt.split)
			p := r.Refine(pred.NewPrec(), ref)
			assert.Equal(t, tt.want, p.String())
			assert.Same(t, p, r.Refine(p, ref), "refining twice must return the same precision")
		})
	}

	e := ItpToExplPrec().Refine(expl.NewPrec(), ref)
	assert.Equal(t, "{x, y}", e.String())
	assert.Same(t, e, ItpToExplPrec().Refine(e, ref))

	core := &UnsatCoreRefutation{Core: []expr.Expr{expr.Lt(expr.Ref(x.Indexed(2)), expr.Ref(aux))}}
	assert.Equal(t, []*expr.Decl{x}, core.Vars())
	ce := UnsatCoreToExplPrec().Refine(expl.NewPrec(y), core)
	assert.Equal(t, "{x, y}", ce.String())
	assert.Same(t, ce, UnsatCoreToExplPrec().Refine(ce, core))

	both := ProdPrecRefiner(ItpToExplPrec(), ItpToPredPrec(SplitConjuncts))
	start := prod.NewPrec(expl.NewPrec(), pred.NewPrec())
	refined := both.Refine(start, ref)
	assert.NotSame(t, start, refined)
	assert.Equal(t, "({x, y}, {x < 3, y == 0})", refined.String())
	assert.Same(t, refined, both.Refine(refined, ref))

	keep := ProdPrecRefiner(ItpToExplPrec(), Keep[*pred.Prec, *ItpRefutation]())
	kept := keep.Refine(start, ref)
	assert.Same(t, start.P2, kept.P2)
}

func TestParseSplit(t *testing.T) {
	for _, s := range []Split{SplitWhole, SplitConjuncts, SplitAtoms} {
		got, err := ParseSplit(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseSplit("")
	require.NoError(t, err)
	assert.Equal(t, SplitWhole, got)
	_, err = ParseSplit("halves")
	assert.Error(t, err)
}

func TestTraceRefinerPicksShortestTarget(t *testing.T) {
	c := newCounter()
	g := arg.New[formula, action]()
	root := g.CreateRoot(formula{c.init}, false)
	a, err := g.CreateSucc(root.ID(), c.inc, formula{expr.True()}, false)
	require.NoError(t, err)
	_, err = g.CreateSucc(a.ID(), c.inc, formula{expr.True()}, true)
	require.NoError(t, err)
	short, err := g.CreateSucc(root.ID(), c.inc, formula{expr.True()}, true)
	require.NoError(t, err)

	id, ok := pickTarget(g)
	require.True(t, ok)
	assert.Equal(t, short.ID(), id)

	r := NewTraceRefiner[formula, action](NewSeqItpChecker(c.init, c.reach(2), newSolver()), ItpToExplPrec(), nil)
	res, err := r.Refine(g, expl.NewPrec())
	require.NoError(t, err)
	assert.Equal(t, cegar.Spurious, res.Status)
	assert.Equal(t, 1, res.Trace.Len())
	assert.Equal(t, "{x}", res.Prec.String())

	_, err = r.Refine(g, res.Prec)
	require.ErrorIs(t, err, ErrRefinementStalled)
	assert.True(t, cegar.IsInconclusive(err))
}

func TestTraceRefinerFeasible(t *testing.T) {
	c := newCounter()
	g := arg.New[formula, action]()
	root := g.CreateRoot(formula{c.init}, false)
	_, err := g.CreateSucc(root.ID(), c.inc, formula{expr.True()}, true)
	require.NoError(t, err)

	r := NewTraceRefiner[formula, action](NewUnsatCoreChecker(c.init, c.reach(1), newSolver()), UnsatCoreToExplPrec(), nil)
	res, err := r.Refine(g, expl.NewPrec())
	require.NoError(t, err)
	assert.Equal(t, cegar.Feasible, res.Status)
	assert.Equal(t, "{x=0} -> {x=1}", res.Cex.String())

	_, err = r.Refine(arg.New[formula, action](), expl.NewPrec())
	assert.Error(t, err)
}

// run checks the counter against prop x != bad with the explicit domain.
func run[R any](t *testing.T, c *counter, bad int64, chk func(s solver.Solver, target expr.Expr) ExprTraceChecker[R], ref PrecRefiner[*expl.Prec, R]) *cegar.SafetyResult[*expl.State, action] {
	t.Helper()
	s := newSolver()
	target := c.reach(bad)
	an := expl.NewStmtAnalysis[action](s, c.init, 0)
	lts := analysis.LTSFunc[*expl.State, action](func(*expl.State) []action { return []action{c.inc} })
	abs := cegar.NewAbstractor[*expl.State, action, *expl.Prec](an, lts, analysis.NewExprStatePredicate[*expl.State](target, s))
	checker, err := cegar.NewChecker(abs, NewTraceRefiner[*expl.State, action](chk(s, target), ref, nil), cegar.WithMaxIterations(10))
	require.NoError(t, err)
	res, err := checker.Check(context.Background(), expl.NewPrec())
	require.NoError(t, err)
	return res
}

func TestCounterEndToEnd(t *testing.T) {
	c := newCounter()
	itp := map[string]func(s solver.Solver, target expr.Expr) ExprTraceChecker[*ItpRefutation]{
		"seq-itp": func(s solver.Solver, target expr.Expr) ExprTraceChecker[*ItpRefutation] {
			return NewSeqItpChecker(c.init, target, newSolver())
		},
		"newton-sp": func(s solver.Solver, target expr.Expr) ExprTraceChecker[*ItpRefutation] {
			return NewNewtonChecker(c.init, target, s, Forward)
		},
		"newton-wp-lv": func(s solver.Solver, target expr.Expr) ExprTraceChecker[*ItpRefutation] {
			return NewNewtonChecker(c.init, target, s, Backward, WithLiveVars())
		},
		"ucb": func(s solver.Solver, target expr.Expr) ExprTraceChecker[*ItpRefutation] {
			return NewUCBChecker(c.init, target, s)
		},
	}
	core := func(s solver.Solver, target expr.Expr) ExprTraceChecker[*UnsatCoreRefutation] {
		return NewUnsatCoreChecker(c.init, target, s)
	}

	tests := []struct {
		bad    int64
		safe   bool
		states int
	}{
		{5, false, 6},
		{10, false, 11},
		{11, true, 0},
	}
	for _, tt := range tests {
		check := func(t *testing.T, res *cegar.SafetyResult[*expl.State, action]) {
			assert.Equal(t, tt.safe, res.Safe())
			assert.Equal(t, 2, res.Stats.Iterations)
			if tt.safe {
				assert.True(t, res.ARG.IsSafe())
				assert.True(t, res.ARG.IsComplete())
				return
			}
			require.NotNil(t, res.Cex)
			require.Len(t, res.Cex.Valuations, tt.states)
			for i, v := range res.Cex.Valuations {
				got, ok := v.Get(c.x)
				require.True(t, ok)
				assert.Equal(t, expr.Int(int64(i)).String(), got.String())
			}
			assert.Len(t, res.Trace.States, tt.states)
		}
		for name, chk := range itp {
			t.Run(name, func(t *testing.T) {
				check(t, run(t, c, tt.bad, chk, ItpToExplPrec()))
			})
		}
		t.Run("unsat-core", func(t *testing.T) {
			check(t, run(t, c, tt.bad, core, UnsatCoreToExplPrec()))
		})
	}
}

func TestRefinerErrorsPropagate(t *testing.T) {
	c := newCounter()
	g := arg.New[formula, action]()
	g.CreateRoot(formula{c.init}, true)

	boom := errors.New("boom")
	failing := checkerFunc(func(*ExprTrace) (*TraceStatus[*ItpRefutation], error) { return nil, boom })
	_, err := NewTraceRefiner[formula, action](failing, ItpToExplPrec(), nil).Refine(g, expl.NewPrec())
	assert.ErrorIs(t, err, boom)
}

type checkerFunc func(*ExprTrace) (*TraceStatus[*ItpRefutation], error)

func (f checkerFunc) Check(t *ExprTrace) (*TraceStatus[*ItpRefutation], error) { return f(t) }
