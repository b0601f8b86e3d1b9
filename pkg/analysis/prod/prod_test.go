package prod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/analysis/expl"
	"github.com/l3aro/go-cegar/pkg/analysis/zone"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver/bitblast"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// timedAction has a discrete part and a clock part, as an edge of a timed
// automaton does.
type timedAction struct {
	stmts []stmt.Stmt
	ops   []zone.ClockOp
}

func (a timedAction) Stmts() []stmt.Stmt       { return a.stmts }
func (a timedAction) ClockOps() []zone.ClockOp { return a.ops }
func (a timedAction) String() string           { return "timed" }

func (a timedAction) ToExpr() expr.Expr {
	e, _ := stmt.ToExpr(a.stmts)
	return e
}

func (a timedAction) NextIndexing() expr.VarIndexing {
	_, vi := stmt.ToExpr(a.stmts)
	return vi
}

func setup() (*expr.Decl, *expr.Decl, *Prec[*zone.Prec, *expl.Prec]) {
	c := expr.NewVar("c", expr.IntType)
	v := expr.NewVar("v", expr.IntType)
	return c, v, NewPrec(zone.NewPrec(c), expl.NewPrec(v))
}

func TestIsBottomIsDisjunction(t *testing.T) {
	c, v, prec := setup()
	d := &Domain[*zone.State, *expl.State]{D1: zone.Domain{}, D2: expl.Domain{}}

	liveZone := zone.Top(prec.P1)
	deadZone := zone.Top(prec.P1).Apply(zone.Guard{Constraint: zone.Lt(c, 0)})
	liveVal := expl.NewState(expr.MustValuation(map[*expr.Decl]expr.Expr{v: expr.Int(1)}))

	tests := []struct {
		name  string
		state *State[*zone.State, *expl.State]
		want  bool
	}{
		{"both live", NewState(liveZone, liveVal), false},
		{"zone empty", NewState(deadZone, liveVal), true},
		{"valuation bottom", NewState(liveZone, expl.Bottom()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsBottom(tt.state))
		})
	}

	ok, err := d.IsLeq(NewState(liveZone, liveVal), NewState(liveZone, expl.Top()))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.IsLeq(NewState(liveZone, expl.Top()), NewState(liveZone, liveVal))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, d.IsTop(NewState(liveZone, expl.Top())))
}

func TestProductTransferDropsBottomCombinations(t *testing.T) {
	c, v, prec := setup()
	s := bitblast.New(bitblast.DefaultOptions())
	a := NewAnalysis[*zone.State, *expl.State, timedAction, *zone.Prec, *expl.Prec](
		zone.NewAnalysis[timedAction](nil),
		expl.NewStmtAnalysis[timedAction](s, expr.Eq(expr.Ref(v), expr.Int(0)), 0),
	)

	inits, err := a.InitFunc().InitStates(prec)
	require.NoError(t, err)
	require.Len(t, inits, 1)
	assert.Equal(t, "{v=0}", inits[0].S2.String())

	step := timedAction{
		stmts: []stmt.Stmt{stmt.Assign(v, expr.Add(expr.Ref(v), expr.Int(1)))},
		ops:   []zone.ClockOp{zone.Guard{Constraint: zone.Leq(c, 3)}, zone.Reset{Clock: c}, zone.Delay{}},
	}
	succs, err := a.TransFunc().Succ(inits[0], step, prec)
	require.NoError(t, err)
	require.Len(t, succs, 1)
	assert.Equal(t, "{v=1}", succs[0].S2.String())

	timeout := timedAction{ops: []zone.ClockOp{zone.Guard{Constraint: zone.Leq(c, 3)}, zone.Guard{Constraint: zone.Gt(c, 5)}}}
	succs, err = a.TransFunc().Succ(inits[0], timeout, prec)
	require.NoError(t, err)
	assert.Empty(t, succs)

	blocked := timedAction{stmts: []stmt.Stmt{stmt.Assume(expr.Gt(expr.Ref(v), expr.Int(0)))}}
	succs, err = a.TransFunc().Succ(inits[0], blocked, prec)
	require.NoError(t, err)
	assert.Empty(t, succs)
}

func TestPrecWithKeepsIdentity(t *testing.T) {
	_, _, prec := setup()
	assert.Same(t, prec, prec.With(prec.P1, prec.P2))
	assert.NotSame(t, prec, prec.With(prec.P1, expl.NewPrec()))
}

func TestStateToExpr(t *testing.T) {
	_, v, prec := setup()
	s := NewState(zone.Top(prec.P1), expl.NewState(expr.MustValuation(map[*expr.Decl]expr.Expr{v: expr.Int(2)})))
	assert.Equal(t, "c >= 0 && v == 2", s.ToExpr().String())
}
