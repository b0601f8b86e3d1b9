package bitblast

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

var (
	// ErrItpLimit reports that an interpolant needed more cubes than allowed.
	ErrItpLimit = errors.New("interpolant enumeration limit exceeded")

	// ErrConsistent reports that the marked assertions are jointly
	// satisfiable, so no interpolant exists.
	ErrConsistent = errors.New("marked assertions are consistent")
)

// Interpolant computes a sequence interpolant for the markers of p. Each
// I_k is an interpolant of (I_{k-1} && A_k, A_{k+1} && ... && A_n); the
// interpolant of the last marker is false.
func (s *Solver) Interpolant(p solver.ItpPattern) (solver.Interpolant, error) {
	if s.status != solver.Unsat {
		return nil, solver.ErrNoCore
	}
	markers := p.Markers()
	groups := make([][]expr.Expr, len(markers))
	for i, m := range markers {
		groups[i] = s.marked(m)
	}

	out := solver.SeqInterpolant{}
	prev := expr.True()
	for i, m := range markers {
		if i == len(markers)-1 {
			out[m] = expr.False()
			break
		}
		a := append([]expr.Expr{prev}, groups[i]...)
		var b []expr.Expr
		for _, g := range groups[i+1:] {
			b = append(b, g...)
		}
		itp, err := s.interpolate(a, b)
		if err != nil {
			return nil, fmt.Errorf("interpolant at marker %d: %w", i, err)
		}
		out[m] = itp
		prev = itp
	}
	return out, nil
}

// interpolate enumerates the models of a projected on the symbols shared
// with b, generalising every cube against b before blocking it.
func (s *Solver) interpolate(a, b []expr.Expr) (expr.Expr, error) {
	shared := sharedDecls(a, b)

	sa := New(s.opts)
	if err := sa.Add(a...); err != nil {
		return nil, err
	}
	sb := New(s.opts)
	if err := sb.Add(b...); err != nil {
		return nil, err
	}

	var cubes []expr.Expr
	for n := 0; ; n++ {
		st, err := sa.Check()
		if err != nil {
			return nil, err
		}
		if err := st.Decided(); err != nil {
			return nil, err
		}
		if st == solver.Unsat {
			break
		}
		if n >= s.opts.ItpLimit {
			return nil, fmt.Errorf("%d cubes: %w", n, ErrItpLimit)
		}
		cube, err := generalize(sb, shared, sa)
		if err != nil {
			return nil, err
		}
		cubes = append(cubes, cube)
		if err := sa.Add(expr.Not(cube)); err != nil {
			return nil, err
		}
	}
	return s.IntWidth().Simplify(expr.Or(cubes...)), nil
}

func sharedDecls(a, b []expr.Expr) []*expr.Decl {
	inA := make(map[*expr.Decl]bool)
	for _, e := range a {
		for _, d := range expr.Decls(e) {
			inA[d] = true
		}
	}
	seen := make(map[*expr.Decl]bool)
	var out []*expr.Decl
	for _, e := range b {
		for _, d := range expr.Decls(e) {
			if inA[d] && !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	expr.SortDecls(out)
	return out
}

// generalize turns the current model of sa into a cube over shared that is
// inconsistent with sb: first the unsat core drops irrelevant literals,
// then integer literals are widened to the largest inconsistent interval.
func generalize(sb *Solver, shared []*expr.Decl, sa *Solver) (expr.Expr, error) {
	lits := make([]expr.Expr, len(shared))
	for i, d := range shared {
		v := sa.enc.value(d)
		if d.Type() == expr.BoolType {
			if expr.IsTrue(v) {
				lits[i] = expr.Ref(d)
			} else {
				lits[i] = expr.Not(expr.Ref(d))
			}
			continue
		}
		lits[i] = expr.Eq(expr.Ref(d), v)
	}

	var core []expr.Expr
	err := solver.WithPushPop(sb, func() error {
		for _, l := range lits {
			if err := sb.Track(l); err != nil {
				return err
			}
		}
		st, err := sb.Check()
		if err != nil {
			return err
		}
		if err := st.Decided(); err != nil {
			return err
		}
		if st == solver.Sat {
			return ErrConsistent
		}
		core, err = sb.UnsatCore()
		return err
	})
	if err != nil {
		return nil, err
	}

	kept := append([]expr.Expr(nil), core...)
	for i, l := range kept {
		eq, ok := l.(*expr.CmpExpr)
		if !ok || eq.L.Type() != expr.IntType {
			continue
		}
		others := append(append([]expr.Expr(nil), kept[:i]...), kept[i+1:]...)
		widened, err := widen(sb, eq.L.(*expr.RefExpr).Decl, eq.R.(*expr.IntLit).Value, others)
		if err != nil {
			return nil, err
		}
		kept[i] = widened
	}
	return sb.IntWidth().Simplify(expr.And(kept...)), nil
}

// widen finds the largest interval around v for d that stays inconsistent
// with sb together with others.
func widen(sb *Solver, d *expr.Decl, v int64, others []expr.Expr) (expr.Expr, error) {
	x := expr.Ref(d)
	minV, maxV := sb.enc.c.minInt(), sb.enc.c.maxInt()
	unsat := func(lo, hi int64) (bool, error) {
		st, err := solver.CheckExpr(sb, expr.And(append([]expr.Expr{expr.Leq(expr.Int(lo), x), expr.Leq(x, expr.Int(hi))}, others...)...))
		if err != nil {
			return false, err
		}
		return st == solver.Unsat, nil
	}

	hi, err := search(v, maxV, func(h int64) (bool, error) { return unsat(v, h) })
	if err != nil {
		return nil, err
	}
	lo, err := search(v, minV, func(l int64) (bool, error) { return unsat(l, hi) })
	if err != nil {
		return nil, err
	}

	switch {
	case lo == minV && hi == maxV:
		return expr.True(), nil
	case lo == hi:
		return expr.Eq(x, expr.Int(lo)), nil
	case lo == minV:
		return expr.Leq(x, expr.Int(hi)), nil
	case hi == maxV:
		return expr.Geq(x, expr.Int(lo)), nil
	default:
		return expr.And(expr.Geq(x, expr.Int(lo)), expr.Leq(x, expr.Int(hi))), nil
	}
}

// search returns the bound farthest from ok, towards limit, for which pred
// holds, given that pred(ok) holds and pred is monotone.
func search(ok, limit int64, pred func(int64) (bool, error)) (int64, error) {
	if ok == limit {
		return ok, nil
	}
	good, err := pred(limit)
	if err != nil || good {
		return limit, err
	}
	bad := limit
	for diff(ok, bad) > 1 {
		mid := ok + (bad-ok)/2
		good, err := pred(mid)
		if err != nil {
			return 0, err
		}
		if good {
			ok = mid
		} else {
			bad = mid
		}
	}
	return ok, nil
}

func diff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
