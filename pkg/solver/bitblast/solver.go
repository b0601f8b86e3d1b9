// Package bitblast is a pure Go reference solver for the solver interfaces.
// Integers are fixed-width two's complement bit-vectors, formulas are
// bit-blasted into a gini SAT instance, scopes are activation literals and
// interpolants come from projected model enumeration.
package bitblast

import (
	"fmt"
	"time"

	"github.com/go-air/gini/z"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
)

const (
	DefaultWidth    = 16
	DefaultItpLimit = 1024
)

// Options configures a solver.
type Options struct {
	// Width is the bit width of integers.
	Width int
	// Timeout bounds a single check; zero means no bound.
	Timeout time.Duration
	// ItpLimit bounds the number of cubes enumerated per interpolant.
	ItpLimit int
}

// DefaultOptions returns 16-bit integers without a timeout.
func DefaultOptions() Options {
	return Options{Width: DefaultWidth, ItpLimit: DefaultItpLimit}
}

func (o Options) normalize() Options {
	if o.Width < 2 || o.Width > 63 {
		o.Width = DefaultWidth
	}
	if o.ItpLimit <= 0 {
		o.ItpLimit = DefaultItpLimit
	}
	return o
}

type entry struct {
	e      expr.Expr
	lit    z.Lit
	track  z.Lit
	marker *solver.Marker
}

type frame struct {
	act     z.Lit
	entries []entry
}

// Solver implements solver.ItpSolver.
type Solver struct {
	opts    Options
	enc     *encoder
	frames  []frame
	markers int
	status  solver.Status
	core    []expr.Expr
}

var _ solver.ItpSolver = (*Solver)(nil)

// New creates a solver session.
func New(opts Options) *Solver {
	s := &Solver{opts: opts.normalize()}
	s.Reset()
	return s
}

// IntWidth returns the bit width of integers.
func (s *Solver) IntWidth() expr.Width { return expr.Width(s.opts.Width) }

// Reset discards every assertion and scope.
func (s *Solver) Reset() {
	s.enc = newEncoder(s.opts.Width)
	s.frames = []frame{{act: s.enc.c.t}}
	s.status = solver.Unknown
	s.core = nil
}

func (s *Solver) Push() {
	s.frames = append(s.frames, frame{act: s.enc.c.fresh()})
	s.status = solver.Unknown
}

func (s *Solver) Pop(n int) {
	for ; n > 0 && len(s.frames) > 1; n-- {
		top := s.frames[len(s.frames)-1]
		s.enc.c.clause(top.act.Not())
		s.frames = s.frames[:len(s.frames)-1]
	}
	s.status = solver.Unknown
}

func (s *Solver) top() *frame { return &s.frames[len(s.frames)-1] }

func (s *Solver) assert(e expr.Expr, tracked bool, m *solver.Marker) error {
	lit, err := s.enc.assertion(e)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", e, err)
	}
	f := s.top()
	ent := entry{e: e, lit: lit, track: z.LitNull, marker: m}
	if tracked {
		ent.track = s.enc.c.fresh()
		s.enc.c.clause(ent.track.Not(), f.act.Not(), lit)
	} else {
		s.enc.c.clause(f.act.Not(), lit)
	}
	f.entries = append(f.entries, ent)
	s.status = solver.Unknown
	return nil
}

func (s *Solver) Add(assertions ...expr.Expr) error {
	for _, e := range assertions {
		if err := s.assert(e, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) Track(assertion expr.Expr) error { return s.assert(assertion, true, nil) }

func (s *Solver) Check() (solver.Status, error) {
	var assumptions []z.Lit
	for _, f := range s.frames[1:] {
		assumptions = append(assumptions, f.act)
	}
	tracked := make(map[z.Lit]expr.Expr)
	var order []z.Lit
	for _, f := range s.frames {
		for _, ent := range f.entries {
			if ent.track != z.LitNull {
				assumptions = append(assumptions, ent.track)
				tracked[ent.track] = ent.e
				order = append(order, ent.track)
			}
		}
	}

	res := solve(s.enc.c, assumptions, s.opts.Timeout)
	s.core = nil
	switch res {
	case 1:
		s.status = solver.Sat
	case -1:
		s.status = solver.Unsat
		failed := make(map[z.Lit]bool)
		for _, m := range s.enc.c.g.Why(nil) {
			failed[m] = true
			failed[m.Not()] = true
		}
		for _, m := range order {
			if failed[m] {
				s.core = append(s.core, tracked[m])
			}
		}
	default:
		s.status = solver.Unknown
	}
	return s.status, nil
}

// solve runs the SAT solver under assumptions, reporting 0 on timeout.
func solve(c *circuit, assumptions []z.Lit, timeout time.Duration) int {
	c.g.Assume(assumptions...)
	if timeout <= 0 {
		return c.g.Solve()
	}
	return c.g.GoSolve().Try(timeout)
}

func (s *Solver) Model() (expr.Valuation, error) {
	if s.status != solver.Sat {
		return expr.Valuation{}, solver.ErrNoModel
	}
	values := make(map[*expr.Decl]expr.Expr)
	for _, a := range s.Assertions() {
		for _, d := range expr.Decls(a) {
			values[d] = s.enc.value(d)
		}
	}
	return expr.NewValuation(values)
}

func (s *Solver) UnsatCore() ([]expr.Expr, error) {
	if s.status != solver.Unsat {
		return nil, solver.ErrNoCore
	}
	return s.core, nil
}

func (s *Solver) Assertions() []expr.Expr {
	var out []expr.Expr
	for _, f := range s.frames {
		for _, ent := range f.entries {
			out = append(out, ent.e)
		}
	}
	return out
}

func (s *Solver) CreateMarker() solver.ItpMarker {
	s.markers++
	return &solver.Marker{ID: s.markers}
}

func (s *Solver) AddMarked(m solver.ItpMarker, assertions ...expr.Expr) error {
	mk, ok := m.(*solver.Marker)
	if !ok {
		return fmt.Errorf("foreign marker %v: %w", m, solver.ErrUnsupported)
	}
	for _, e := range assertions {
		if err := s.assert(e, false, mk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) CreateSeqPattern(markers []solver.ItpMarker) solver.ItpPattern {
	return &solver.SeqPattern{Seq: markers}
}

// marked returns the active assertions labelled with m.
func (s *Solver) marked(m solver.ItpMarker) []expr.Expr {
	var out []expr.Expr
	for _, f := range s.frames {
		for _, ent := range f.entries {
			if ent.marker != nil && solver.ItpMarker(ent.marker) == m {
				out = append(out, ent.e)
			}
		}
	}
	return out
}

// Factory creates bit-blasting solvers with fixed options.
type Factory struct {
	Options Options
}

func NewFactory(opts Options) *Factory { return &Factory{Options: opts} }

func (f *Factory) NewSolver() solver.Solver       { return New(f.Options) }
func (f *Factory) NewItpSolver() solver.ItpSolver { return New(f.Options) }
