package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidthRange(t *testing.T) {
	tests := []struct {
		w        Width
		min, max int64
	}{
		{2, -2, 1},
		{8, -128, 127},
		{16, -32768, 32767},
		{MaxWidth, -1 << 63, 1<<63 - 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.min, tt.w.Min(), "width %d", tt.w)
		assert.Equal(t, tt.max, tt.w.Max(), "width %d", tt.w)
		assert.True(t, tt.w.Fits(tt.max))
		assert.Equal(t, tt.min, tt.w.Wrap(tt.max+1), "width %d", tt.w)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		w    Width
		v    int64
		want int64
	}{
		{16, 32768, -32768},
		{16, -32769, 32767},
		{16, 65536, 0},
		{16, 40000, -25536},
		{8, 255, -1},
		{8, -5, -5},
		{MaxWidth, 1 << 40, 1 << 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.w.Wrap(tt.v), "wrap %d at width %d", tt.v, tt.w)
	}
}

func TestSimplifyAtWidth(t *testing.T) {
	x := NewVar("x", IntType)

	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"sum wraps", Add(Int(32767), Int(1)), "-32768"},
		{"difference wraps", Sub(Int(-32768), Int(1)), "32767"},
		{"negation of min", Neg(Int(-32768)), "-32768"},
		{"product wraps", Mul(Int(256), Int(256)), "0"},
		{"comparison after wrap", Lt(Add(Int(32767), Int(1)), Int(0)), "true"},
		{"wide literal", Eq(Ref(x), Int(65537)), "x == 1"},
		{"symbolic sum keeps wrapped constant", Add(Ref(x), Int(32767), Int(1)), "x + -32768"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Width(16).Simplify(tt.e).String())
		})
	}

	assert.Equal(t, "false", Simplify(Lt(Add(Int(32767), Int(1)), Int(0))).String())
}

func TestEvalAtWidth(t *testing.T) {
	x := NewVar("x", IntType)
	val := MustValuation(map[*Decl]Expr{x: Int(32767)})

	got, err := Width(16).Eval(Add(Ref(x), Int(1)), val)
	require.NoError(t, err)
	assert.Equal(t, "-32768", got.String())

	got, err = Width(16).Eval(Lt(Add(Ref(x), Int(1)), Int(0)), val)
	require.NoError(t, err)
	assert.True(t, IsTrue(got))

	got, err = Eval(Add(Ref(x), Int(1)), val)
	require.NoError(t, err)
	assert.Equal(t, "32768", got.String())
}

func TestCheckLiterals(t *testing.T) {
	x := NewVar("x", IntType)

	require.NoError(t, Width(16).CheckLiterals(And(Eq(Ref(x), Int(32767)), Gt(Ref(x), Int(-32768)))))

	err := Width(16).CheckLiterals(And(Gt(Ref(x), Int(0)), Lt(Ref(x), Int(40000))))
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "40000")
}

func TestEliminateOnePointAtWidth(t *testing.T) {
	x := NewVar("x", IntType)
	p := NewConst("p", IntType)

	e := Exists([]*Decl{p}, And(Eq(Ref(p), Int(32767)), Eq(Ref(x), Add(Ref(p), Int(1)))))
	assert.Equal(t, "x == -32768", Width(16).EliminateOnePoint(e).String())
}
