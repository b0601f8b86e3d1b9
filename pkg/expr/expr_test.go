package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	b := NewVar("b", BoolType)

	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"literal", Int(-3), "-3"},
		{"comparison", Lt(Ref(x), Int(10)), "x < 10"},
		{"sum in product", Mul(Add(Ref(x), Int(1)), Ref(y)), "(x + 1) * y"},
		{"right nested sub", Sub(Ref(x), Sub(Ref(y), Int(1))), "x - (y - 1)"},
		{"conjunction of disjunction", And(Or(Ref(b), Gt(Ref(x), Int(0))), Not(Ref(b))), "(b || x > 0) && !b"},
		{"prime", Eq(Prime(Ref(x)), Add(Ref(x), Int(1))), "next(x) == x + 1"},
		{"implication", Imply(Lt(Ref(x), Int(10)), Eq(Prime(Ref(x)), Int(0))), "implies(x < 10, next(x) == 0)"},
		{"ite", Eq(Ref(y), Ite(Ref(b), Int(1), Int(2))), "y == ite(b, 1, 2)"},
		{"negated sum", Neg(Add(Ref(x), Ref(y))), "-(x + y)"},
		{"exists", Exists([]*Decl{y}, Eq(Ref(x), Ref(y))), "exists([y int], x == y)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.String())
		})
	}
}

func TestSimplify(t *testing.T) {
	x := NewVar("x", IntType)
	b := NewVar("b", BoolType)

	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"constant folding", Add(Int(1), Int(2), Ref(x), Int(-3)), "x"},
		{"comparison of literals", Lt(Int(1), Int(2)), "true"},
		{"and with false", And(Ref(b), False()), "false"},
		{"and drops true", And(True(), Ref(b)), "b"},
		{"contradiction", And(Ref(b), Not(Ref(b))), "false"},
		{"excluded middle", Or(Lt(Ref(x), Int(0)), Geq(Ref(x), Int(0))), "true"},
		{"negated comparison", Not(Lt(Ref(x), Int(3))), "x >= 3"},
		{"double negation", Not(Not(Ref(b))), "b"},
		{"implication from false", Imply(False(), Ref(b)), "true"},
		{"ite with literal condition", Ite(True(), Ref(x), Int(0)), "x"},
		{"reflexive equality", Eq(Ref(x), Ref(x)), "true"},
		{"multiplication by zero", Mul(Ref(x), Int(0)), "0"},
		{"nested and is flattened", And(Ref(b), And(Gt(Ref(x), Int(0)), Ref(b))), "b && x > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.e).String())
		})
	}
}

func TestEval(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	val := MustValuation(map[*Decl]Expr{x: Int(4)})

	got, err := Eval(Add(Ref(x), Int(1)), val)
	require.NoError(t, err)
	assert.Equal(t, "5", got.String())

	_, err = Eval(Add(Ref(x), Ref(y)), val)
	assert.ErrorIs(t, err, ErrNotEvaluable)

	partial := PartialEval(And(Lt(Ref(x), Int(10)), Gt(Ref(y), Ref(x))), val)
	assert.Equal(t, "y > 4", partial.String())
}

func TestNewValuationRejectsNonLiterals(t *testing.T) {
	x := NewVar("x", IntType)
	_, err := NewValuation(map[*Decl]Expr{x: Ref(x)})
	assert.Error(t, err)

	_, err = NewValuation(map[*Decl]Expr{x: True()})
	assert.Error(t, err)
}

func TestVarIndexing(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)

	vi := AllIndexing(0).Inc(x, 2)
	assert.Equal(t, 2, vi.Get(x))
	assert.Equal(t, 0, vi.Get(y))

	sum := vi.Add(AllIndexing(1))
	assert.Equal(t, 3, sum.Get(x))
	assert.Equal(t, 1, sum.Get(y))

	diff := sum.Sub(vi)
	assert.Equal(t, 1, diff.Get(x))
	assert.Equal(t, 1, diff.Get(y))

	var zero VarIndexing
	assert.Equal(t, 0, zero.Get(x))
}

func TestUnfoldFoldin(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	trans := And(Eq(Prime(Ref(x)), Add(Ref(x), Int(1))), Eq(Prime(Ref(y)), Int(0)))

	vi := AllIndexing(0).Inc(x, 3)
	unfolded := Unfold(trans, vi)
	assert.Equal(t, "x_4 == x_3 + 1 && y_1 == 0", unfolded.String())
	assert.Empty(t, Vars(unfolded))

	folded, err := Foldin(unfolded, vi)
	require.NoError(t, err)
	assert.True(t, Equal(trans, folded))

	_, err = Foldin(unfolded, AllIndexing(5))
	assert.Error(t, err)
}

func TestUnfoldKeepsBoundVariables(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	e := Exists([]*Decl{y}, Eq(Ref(x), Ref(y)))
	assert.Equal(t, "exists([y int], x_2 == y)", Unfold(e, AllIndexing(2)).String())
}

func TestExtractValuation(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	model := MustValuation(map[*Decl]Expr{
		x.Indexed(0): Int(0),
		x.Indexed(1): Int(1),
		y.Indexed(0): Int(7),
	})

	val := ExtractValuation(model, AllIndexing(0).Inc(x, 1))
	got, ok := val.Get(x)
	require.True(t, ok)
	assert.Equal(t, "1", got.String())
	got, ok = val.Get(y)
	require.True(t, ok)
	assert.Equal(t, "7", got.String())
	assert.Equal(t, "{x=1, y=7}", val.String())
}

func TestEliminateOnePoint(t *testing.T) {
	x := NewVar("x", IntType)
	y := NewVar("y", IntType)
	c := NewConst("c", IntType)

	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{
			name: "existential equality",
			e:    Exists([]*Decl{c}, And(Eq(Ref(c), Int(0)), Eq(Ref(x), Add(Ref(c), Int(1))))),
			want: "x == 1",
		},
		{
			name: "universal disequality",
			e:    Forall([]*Decl{y}, Imply(Eq(Ref(y), Ref(x)), Gt(Ref(y), Int(0)))),
			want: "x > 0",
		},
		{
			name: "irreducible",
			e:    Exists([]*Decl{y}, Lt(Ref(x), Ref(y))),
			want: "exists([y int], x < y)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EliminateOnePoint(tt.e).String())
		})
	}
}

func TestConjunctsAndAtoms(t *testing.T) {
	x := NewVar("x", IntType)
	b := NewVar("b", BoolType)
	e := And(Ref(b), And(Lt(Ref(x), Int(3)), True()), Or(Ref(b), Not(Eq(Ref(x), Int(0)))))

	conj := Conjuncts(e)
	require.Len(t, conj, 3)
	assert.Equal(t, "b", conj[0].String())

	atoms := Atoms(e)
	var names []string
	for _, a := range atoms {
		names = append(names, a.String())
	}
	assert.Equal(t, []string{"b", "x < 3", "x == 0"}, names)
}

func TestIndexedDeclIsShared(t *testing.T) {
	x := NewVar("x", IntType)
	assert.Same(t, x.Indexed(3), x.Indexed(3))
	base, idx, ok := x.Indexed(3).Base()
	require.True(t, ok)
	assert.Same(t, x, base)
	assert.Equal(t, 3, idx)
	assert.False(t, x.Indexed(3).IsVar())
}
