// Package solver defines the SMT solver session consumed by the analyses and
// the refinement strategies. A session is a single mutable resource owned by
// one verification run; callers scope their assertions with Push and Pop.
package solver

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
)

var (
	// ErrUnknown reports that the solver could not decide a query.
	ErrUnknown = errors.New("solver returned unknown")

	// ErrUnsupported reports an expression the solver cannot encode.
	ErrUnsupported = errors.New("unsupported expression")

	// ErrNoModel is returned by Model when the last check was not satisfiable.
	ErrNoModel = errors.New("no model available")

	// ErrNoCore is returned by UnsatCore and Interpolant when the last check
	// was not unsatisfiable.
	ErrNoCore = errors.New("no unsat core available")
)

// Status is the outcome of a satisfiability check.
type Status int

const (
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Decided returns ErrUnknown for Unknown so callers never treat an
// undecided query as either answer.
func (s Status) Decided() error {
	if s == Unknown {
		return ErrUnknown
	}
	return nil
}

// Solver is an incremental SMT session.
type Solver interface {
	// Add asserts boolean formulas in the current scope.
	Add(assertions ...expr.Expr) error
	// Track asserts a formula that may appear in the unsat core.
	Track(assertion expr.Expr) error
	Check() (Status, error)
	Push()
	Pop(n int)
	Reset()
	// Model returns values for the constants and variables of the active
	// assertions after a Sat check.
	Model() (expr.Valuation, error)
	// UnsatCore returns the tracked assertions that suffice for the last
	// Unsat result, in tracking order.
	UnsatCore() ([]expr.Expr, error)
	Assertions() []expr.Expr
}

// Sized is implemented by solvers whose integers have a fixed width.
// Concrete evaluation next to such a solver must wrap at the same width.
type Sized interface {
	IntWidth() expr.Width
}

// WidthOf returns the integer width of s, or expr.MaxWidth when s does not
// report one.
func WidthOf(s Solver) expr.Width {
	if sz, ok := s.(Sized); ok {
		return sz.IntWidth()
	}
	return expr.MaxWidth
}

// ItpMarker labels a group of assertions for interpolation.
type ItpMarker interface {
	isMarker()
}

// ItpPattern describes how markers are ordered for interpolation.
type ItpPattern interface {
	Markers() []ItpMarker
}

// Interpolant maps every marker of a pattern to its interpolant.
type Interpolant interface {
	Eval(m ItpMarker) expr.Expr
}

// ItpSolver is a Solver able to produce Craig interpolants.
type ItpSolver interface {
	Solver
	CreateMarker() ItpMarker
	// AddMarked asserts formulas in the current scope and labels them.
	AddMarked(m ItpMarker, assertions ...expr.Expr) error
	// CreateSeqPattern orders markers into a sequence A_0, ..., A_n.
	CreateSeqPattern(markers []ItpMarker) ItpPattern
	// Interpolant returns, for every marker A_i of the pattern, a formula
	// implied by A_0 && ... && A_i and inconsistent with the rest, over
	// their shared symbols. Requires the last check to be Unsat.
	Interpolant(p ItpPattern) (Interpolant, error)
}

// Marker is the ItpMarker implementation shared by solvers of this module.
type Marker struct {
	ID int
}

func (*Marker) isMarker() {}

func (m *Marker) String() string { return fmt.Sprintf("marker#%d", m.ID) }

// SeqPattern is a sequence of markers.
type SeqPattern struct {
	Seq []ItpMarker
}

func (p *SeqPattern) Markers() []ItpMarker { return p.Seq }

// SeqInterpolant holds one formula per marker.
type SeqInterpolant map[ItpMarker]expr.Expr

func (i SeqInterpolant) Eval(m ItpMarker) expr.Expr {
	if e, ok := i[m]; ok {
		return e
	}
	return expr.False()
}

// WithPushPop runs fn inside a fresh scope and pops it on every exit path.
func WithPushPop(s Solver, fn func() error) error {
	s.Push()
	defer s.Pop(1)
	return fn()
}

// CheckExpr decides e in a scope of its own.
func CheckExpr(s Solver, e expr.Expr) (Status, error) {
	var st Status
	err := WithPushPop(s, func() error {
		if err := s.Add(e); err != nil {
			return err
		}
		var err error
		st, err = s.Check()
		if err != nil {
			return err
		}
		return st.Decided()
	})
	return st, err
}

// IsSat reports whether e is satisfiable, failing on Unknown.
func IsSat(s Solver, e expr.Expr) (bool, error) {
	st, err := CheckExpr(s, e)
	if err != nil {
		return false, err
	}
	return st == Sat, nil
}

// Factory builds fresh solver sessions.
type Factory interface {
	NewSolver() Solver
	NewItpSolver() ItpSolver
}
