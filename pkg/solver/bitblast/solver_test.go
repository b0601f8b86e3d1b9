package bitblast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

func newTestSolver() *Solver { return New(DefaultOptions()) }

func TestCheck(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	y := expr.NewConst("y", expr.IntType)
	b := expr.NewConst("b", expr.BoolType)

	tests := []struct {
		name string
		e    expr.Expr
		want solver.Status
	}{
		{"bounds", expr.And(expr.Gt(expr.Ref(x), expr.Int(3)), expr.Lt(expr.Ref(x), expr.Int(5))), solver.Sat},
		{"empty interval", expr.And(expr.Gt(expr.Ref(x), expr.Int(3)), expr.Lt(expr.Ref(x), expr.Int(4))), solver.Unsat},
		{"negative values", expr.Eq(expr.Add(expr.Ref(x), expr.Int(5)), expr.Int(-2)), solver.Sat},
		{"product", expr.And(expr.Eq(expr.Mul(expr.Ref(x), expr.Ref(y)), expr.Int(12)), expr.Gt(expr.Ref(x), expr.Int(5)), expr.Gt(expr.Ref(y), expr.Int(1))), solver.Sat},
		{"boolean equality", expr.And(expr.Eq(expr.Ref(b), expr.Gt(expr.Ref(x), expr.Int(0))), expr.Ref(b), expr.Lt(expr.Ref(x), expr.Int(0))), solver.Unsat},
		{"ite term", expr.Eq(expr.Ite(expr.Ref(b), expr.Int(1), expr.Int(2)), expr.Int(3)), solver.Unsat},
		{"skolemised existential", expr.Exists([]*expr.Decl{y}, expr.And(expr.Eq(expr.Ref(x), expr.Add(expr.Ref(y), expr.Ref(y))), expr.Eq(expr.Ref(x), expr.Int(7)))), solver.Unsat},
		{"negated universal", expr.Not(expr.Forall([]*expr.Decl{y}, expr.Leq(expr.Ref(y), expr.Ref(x)))), solver.Sat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSolver()
			require.NoError(t, s.Add(tt.e))
			got, err := s.Check()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsupportedQuantifierPosition(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	y := expr.NewConst("y", expr.IntType)
	s := newTestSolver()
	err := s.Add(expr.Forall([]*expr.Decl{y}, expr.Leq(expr.Ref(y), expr.Ref(x))))
	assert.ErrorIs(t, err, solver.ErrUnsupported)

	err = s.Add(expr.Prime(expr.Ref(x)))
	assert.ErrorIs(t, err, solver.ErrUnsupported)
}

func TestModel(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	y := expr.NewConst("y", expr.IntType)
	s := newTestSolver()
	require.NoError(t, s.Add(
		expr.Eq(expr.Ref(x), expr.Int(-7)),
		expr.Eq(expr.Ref(y), expr.Mul(expr.Ref(x), expr.Int(3))),
	))
	st, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, solver.Sat, st)

	model, err := s.Model()
	require.NoError(t, err)
	got, ok := model.Get(y)
	require.True(t, ok)
	assert.Equal(t, "-21", got.String())
}

func TestPushPop(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	s := newTestSolver()
	require.NoError(t, s.Add(expr.Gt(expr.Ref(x), expr.Int(0))))

	s.Push()
	require.NoError(t, s.Add(expr.Lt(expr.Ref(x), expr.Int(0))))
	st, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, solver.Unsat, st)
	assert.Len(t, s.Assertions(), 2)
	s.Pop(1)

	st, err = s.Check()
	require.NoError(t, err)
	assert.Equal(t, solver.Sat, st)
	assert.Len(t, s.Assertions(), 1)

	_, err = s.UnsatCore()
	assert.ErrorIs(t, err, solver.ErrNoCore)
}

func TestUnsatCore(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	y := expr.NewConst("y", expr.IntType)
	s := newTestSolver()

	relevant1 := expr.Gt(expr.Ref(x), expr.Int(5))
	irrelevant := expr.Eq(expr.Ref(y), expr.Int(1))
	relevant2 := expr.Lt(expr.Ref(x), expr.Int(2))
	require.NoError(t, s.Track(relevant1))
	require.NoError(t, s.Track(irrelevant))
	require.NoError(t, s.Track(relevant2))

	st, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, solver.Unsat, st)

	core, err := s.UnsatCore()
	require.NoError(t, err)
	assert.Equal(t, []expr.Expr{relevant1, relevant2}, core)

	_, err = s.Model()
	assert.ErrorIs(t, err, solver.ErrNoModel)
}

func TestWidthWrapsAround(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	s := New(Options{Width: 4})
	require.NoError(t, s.Add(expr.Eq(expr.Ref(x), expr.Int(7)), expr.Lt(expr.Add(expr.Ref(x), expr.Int(1)), expr.Ref(x))))
	st, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, solver.Sat, st)
}

func TestLiteralRange(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	tests := []struct {
		name    string
		width   int
		lit     int64
		wantErr bool
	}{
		{"max", 16, 32767, false},
		{"min", 16, -32768, false},
		{"above max", 16, 32768, true},
		{"below min", 16, -32769, true},
		{"narrow", 4, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Width: tt.width})
			assert.Equal(t, expr.Width(tt.width), s.IntWidth())
			err := s.Add(expr.Eq(expr.Ref(x), expr.Int(tt.lit)))
			if tt.wantErr {
				assert.ErrorIs(t, err, solver.ErrUnsupported)
				return
			}
			require.NoError(t, err)
			st, err := s.Check()
			require.NoError(t, err)
			assert.Equal(t, solver.Sat, st)
		})
	}
}

func TestFactory(t *testing.T) {
	f := NewFactory(DefaultOptions())
	assert.NotNil(t, f.NewSolver())
	assert.NotNil(t, f.NewItpSolver())
}

func TestTimeout(t *testing.T) {
	x := expr.NewConst("x", expr.IntType)
	y := expr.NewConst("y", expr.IntType)
	hard := expr.And(
		expr.Eq(expr.Mul(expr.Ref(x), expr.Ref(y)), expr.Int(1000000007)),
		expr.Gt(expr.Ref(x), expr.Int(1)),
		expr.Gt(expr.Ref(y), expr.Int(1)))

	s := New(Options{Width: 40, Timeout: time.Nanosecond})
	require.NoError(t, s.Add(hard))
	got, err := s.Check()
	require.NoError(t, err)
	assert.Contains(t, []solver.Status{solver.Sat, solver.Unsat, solver.Unknown}, got)
	if got == solver.Unknown {
		assert.ErrorIs(t, got.Decided(), solver.ErrUnknown)
	}

	s = New(Options{Width: 8, Timeout: time.Minute})
	require.NoError(t, s.Add(expr.Eq(expr.Ref(x), expr.Int(3))))
	got, err = s.Check()
	require.NoError(t, err)
	assert.Equal(t, solver.Sat, got)
}
