package cegar

import (
	"fmt"
	"time"

	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
)

// SafetyResult is the verdict of a run. A safe result carries the final
// ARG as proof; an unsafe one carries the abstract and concrete
// counterexamples as well.
type SafetyResult[S, A any] struct {
	ARG   *arg.ARG[S, A]
	Trace *analysis.Trace[S, A]
	Cex   *analysis.ConcreteTrace
	Stats Statistics
}

// Safe reports whether no counterexample was found.
func (r *SafetyResult[S, A]) Safe() bool { return r.Cex == nil }

func (r *SafetyResult[S, A]) String() string {
	if r.Safe() {
		return fmt.Sprintf("SAFE after %d iterations (%s)", r.Stats.Iterations, r.ARG.Stats())
	}
	return fmt.Sprintf("UNSAFE after %d iterations, counterexample of length %d", r.Stats.Iterations, r.Cex.Len())
}

// IterationInfo describes one abstraction-refinement round.
type IterationInfo struct {
	Iteration   int           `json:"iteration"`
	Prec        string        `json:"prec"`
	ARG         arg.Stats     `json:"arg"`
	Abstraction time.Duration `json:"abstraction_ns"`
	Refinement  time.Duration `json:"refinement_ns"`
	Status      string        `json:"status"`
}

// Statistics accumulates timing and size figures over a run.
type Statistics struct {
	Iterations      int             `json:"iterations"`
	AbstractionTime time.Duration   `json:"abstraction_ns"`
	RefinementTime  time.Duration   `json:"refinement_ns"`
	Rounds          []IterationInfo `json:"rounds"`
}

func (s *Statistics) record(info IterationInfo) {
	s.Iterations = info.Iteration
	s.AbstractionTime += info.Abstraction
	s.RefinementTime += info.Refinement
	s.Rounds = append(s.Rounds, info)
}

func (s Statistics) String() string {
	return fmt.Sprintf("iterations=%d abstraction=%s refinement=%s", s.Iterations, s.AbstractionTime, s.RefinementTime)
}
