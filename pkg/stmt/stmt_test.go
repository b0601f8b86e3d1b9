package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/expr"
)

func TestString(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	assert.Equal(t, "x = x + 1", Assign(x, expr.Add(expr.Ref(x), expr.Int(1))).String())
	assert.Equal(t, "assume(x < 5)", Assume(expr.Lt(expr.Ref(x), expr.Int(5))).String())
	assert.Equal(t, "havoc(x)", Havoc(x).String())
	assert.Equal(t, "skip", Skip().String())
}

func TestToExpr(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)

	tests := []struct {
		name   string
		stmts  []Stmt
		want   string
		shiftX int
		shiftY int
	}{
		{
			name:   "single assignment",
			stmts:  []Stmt{Assign(x, expr.Add(expr.Ref(x), expr.Int(1)))},
			want:   "next(x) == x + 1",
			shiftX: 1,
		},
		{
			name: "guarded double write",
			stmts: []Stmt{
				Assume(expr.Lt(expr.Ref(x), expr.Int(5))),
				Assign(x, expr.Add(expr.Ref(x), expr.Int(1))),
				Assign(x, expr.Mul(expr.Ref(x), expr.Int(2))),
			},
			want:   "x < 5 && next(x) == x + 1 && next(next(x)) == next(x) * 2",
			shiftX: 2,
		},
		{
			name:   "havoc then read",
			stmts:  []Stmt{Havoc(y), Assume(expr.Gt(expr.Ref(y), expr.Ref(x)))},
			want:   "next(y) > x",
			shiftY: 1,
		},
		{
			name:  "skip",
			stmts: []Stmt{Skip()},
			want:  "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, shift := ToExpr(tt.stmts)
			assert.Equal(t, tt.want, e.String())
			assert.Equal(t, tt.shiftX, shift.Get(x))
			assert.Equal(t, tt.shiftY, shift.Get(y))
		})
	}
}

func TestUnfoldStmt(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	e, delta := UnfoldStmt(Assign(x, expr.Add(expr.Ref(x), expr.Int(1))), expr.AllIndexing(0).Inc(x, 2))
	assert.Equal(t, "x_3 == x_2 + 1", e.String())
	assert.Equal(t, 1, delta.Get(x))

	e, delta = UnfoldStmt(Havoc(x), expr.AllIndexing(0))
	assert.True(t, expr.IsTrue(e))
	assert.Equal(t, 1, delta.Get(x))
}

func TestSP(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)

	tests := []struct {
		name  string
		pre   expr.Expr
		stmts []Stmt
		want  string
	}{
		{
			name:  "assume conjoins",
			pre:   expr.Eq(expr.Ref(x), expr.Int(0)),
			stmts: []Stmt{Assume(expr.Lt(expr.Ref(y), expr.Int(3)))},
			want:  "x == 0 && y < 3",
		},
		{
			name:  "increment of a known value",
			pre:   expr.Eq(expr.Ref(x), expr.Int(0)),
			stmts: []Stmt{Assign(x, expr.Add(expr.Ref(x), expr.Int(1)))},
			want:  "x == 1",
		},
		{
			name:  "assignment from another variable",
			pre:   expr.True(),
			stmts: []Stmt{Assign(x, expr.Ref(y))},
			want:  "x == y",
		},
		{
			name:  "havoc forgets",
			pre:   expr.Eq(expr.Ref(x), expr.Int(0)),
			stmts: []Stmt{Havoc(x)},
			want:  "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SP(tt.pre, tt.stmts...).String())
		})
	}
}

func TestSPKeepsUnresolvedOldValues(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	post := SP(expr.Lt(expr.Ref(x), expr.Int(5)), Assign(x, expr.Add(expr.Ref(x), expr.Int(1))))
	consts := 0
	for _, d := range expr.Decls(post) {
		if !d.IsVar() {
			consts++
		}
	}
	assert.Equal(t, 1, consts)
	assert.Contains(t, expr.Vars(post), x)
}

func TestWP(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)

	tests := []struct {
		name  string
		post  expr.Expr
		stmts []Stmt
		want  string
	}{
		{
			name:  "assignment substitutes",
			post:  expr.Eq(expr.Ref(x), expr.Int(5)),
			stmts: []Stmt{Assign(x, expr.Add(expr.Ref(x), expr.Int(1)))},
			want:  "x + 1 == 5",
		},
		{
			name: "guard and assignment",
			post: expr.Gt(expr.Ref(y), expr.Int(0)),
			stmts: []Stmt{
				Assume(expr.Lt(expr.Ref(x), expr.Int(3))),
				Assign(y, expr.Ref(x)),
			},
			want: "x < 3 && x > 0",
		},
		{
			name:  "havoc of a pinned variable",
			post:  expr.Eq(expr.Ref(x), expr.Int(5)),
			stmts: []Stmt{Havoc(x)},
			want:  "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WP(tt.post, tt.stmts...).String())
		})
	}
}

func TestLiveness(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	y := expr.NewVar("y", expr.IntType)
	z := expr.NewVar("z", expr.IntType)

	blocks := [][]Stmt{
		{Assign(x, expr.Int(0)), Assign(y, expr.Int(0))},
		{Havoc(z), Assign(x, expr.Add(expr.Ref(x), expr.Ref(z)))},
		{Assume(expr.Gt(expr.Ref(x), expr.Int(3)))},
	}

	future := FutureLive(blocks)
	require.Len(t, future, 4)
	assert.Empty(t, future[0])
	assert.Equal(t, []*expr.Decl{x}, future[1].Sorted())
	assert.Equal(t, []*expr.Decl{x}, future[2].Sorted())
	assert.Empty(t, future[3])

	past := PastLive(blocks)
	require.Len(t, past, 4)
	assert.Empty(t, past[0])
	assert.Equal(t, []*expr.Decl{x, y}, past[1].Sorted())
	assert.True(t, past[2].Has(z))
	assert.True(t, past[3].Has(y))
}

func TestSPWPWrapAtWidth(t *testing.T) {
	x := expr.NewVar("x", expr.IntType)
	stmts := []Stmt{Assign(x, expr.Int(32767)), Assign(x, expr.Add(expr.Ref(x), expr.Int(1)))}

	assert.Equal(t, "x == -32768", SPWidth(16, expr.True(), stmts...).String())
	assert.Equal(t, "x == 32768", SP(expr.True(), stmts...).String())

	neg := expr.Lt(expr.Ref(x), expr.Int(0))
	assert.Equal(t, "true", WPWidth(16, neg, stmts...).String())
	assert.Equal(t, "false", WP(neg, stmts...).String())
}
