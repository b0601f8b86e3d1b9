// Package cegar implements counterexample-guided abstraction refinement:
// an Abstractor builds an abstract reachability graph under a precision,
// and a Refiner either confirms a counterexample found in it or returns a
// finer precision for the next round.
package cegar

import (
	"context"
	"fmt"
	"time"

	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
)

// RefinementStatus is the outcome of examining an unsafe ARG.
type RefinementStatus int

const (
	// Spurious means the examined counterexample is infeasible and the
	// precision was refined.
	Spurious RefinementStatus = iota
	// Feasible means the counterexample is real.
	Feasible
)

func (s RefinementStatus) String() string {
	if s == Spurious {
		return "spurious"
	}
	return "feasible"
}

// RefinerResult is what a Refiner found. Prec is set when Spurious, Cex
// when Feasible; Trace is the abstract trace that was examined.
type RefinerResult[S, A, P any] struct {
	Status RefinementStatus
	Prec   P
	Trace  *analysis.Trace[S, A]
	Cex    *analysis.ConcreteTrace
}

// Refiner examines an ARG with target nodes.
type Refiner[S, A, P any] interface {
	Refine(g *arg.ARG[S, A], prec P) (*RefinerResult[S, A, P], error)
}

// RefinerFunc adapts a function to Refiner.
type RefinerFunc[S, A, P any] func(g *arg.ARG[S, A], prec P) (*RefinerResult[S, A, P], error)

func (f RefinerFunc[S, A, P]) Refine(g *arg.ARG[S, A], prec P) (*RefinerResult[S, A, P], error) {
	return f(g, prec)
}

// Checker alternates abstraction and refinement until a verdict.
type Checker[S, A, P any] struct {
	abstractor    *Abstractor[S, A, P]
	refiner       Refiner[S, A, P]
	maxIterations int
	log           log.Logger
	progress      func(IterationInfo)
}

// Option configures a Checker.
type Option func(*options)

type options struct {
	maxIterations int
	log           log.Logger
	progress      func(IterationInfo)
}

// WithMaxIterations bounds the number of rounds; zero means unbounded.
func WithMaxIterations(n int) Option { return func(o *options) { o.maxIterations = n } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(o *options) { o.log = l } }

// WithProgress registers a callback run after every round.
func WithProgress(fn func(IterationInfo)) Option { return func(o *options) { o.progress = fn } }

// NewChecker creates a checker. It returns ErrInvalidConfig for a
// negative iteration budget and panics on nil collaborators.
func NewChecker[S, A, P any](abs *Abstractor[S, A, P], ref Refiner[S, A, P], opts ...Option) (*Checker[S, A, P], error) {
	if abs == nil || ref == nil {
		panic("cegar: NewChecker needs an abstractor and a refiner")
	}
	o := options{log: log.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxIterations < 0 {
		return nil, fmt.Errorf("max iterations %d: %w", o.maxIterations, ErrInvalidConfig)
	}
	return &Checker[S, A, P]{
		abstractor:    abs,
		refiner:       ref,
		maxIterations: o.maxIterations,
		log:           o.log,
		progress:      o.progress,
	}, nil
}

// Check runs CEGAR from the initial precision. Every round builds a fresh
// ARG. The context is consulted between rounds.
func (c *Checker[S, A, P]) Check(ctx context.Context, prec P) (*SafetyResult[S, A], error) {
	var stats Statistics
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before iteration %d: %w", iter, err)
		}
		if c.maxIterations > 0 && iter > c.maxIterations {
			return nil, fmt.Errorf("after %d iterations: %w", c.maxIterations, ErrBudgetExhausted)
		}

		info := IterationInfo{Iteration: iter, Prec: fmt.Sprint(prec)}
		start := time.Now()
		g := c.abstractor.CreateARG()
		status, err := c.abstractor.Check(g, prec)
		info.Abstraction = time.Since(start)
		info.ARG = g.Stats()
		if err != nil {
			return nil, fmt.Errorf("abstraction in iteration %d: %w", iter, err)
		}

		if status == AbstractionSafe {
			info.Status = "safe"
			c.finish(&stats, info)
			return &SafetyResult[S, A]{ARG: g, Stats: stats}, nil
		}

		start = time.Now()
		res, err := c.refiner.Refine(g, prec)
		info.Refinement = time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("refinement in iteration %d: %w", iter, err)
		}

		if res.Status == Feasible {
			info.Status = "unsafe"
			c.finish(&stats, info)
			return &SafetyResult[S, A]{ARG: g, Trace: res.Trace, Cex: res.Cex, Stats: stats}, nil
		}
		info.Status = "refined"
		c.finish(&stats, info)
		c.log.Debug("refined precision", "iteration", iter, "trace_length", res.Trace.Len(), "prec", res.Prec)
		prec = res.Prec
	}
}

func (c *Checker[S, A, P]) finish(stats *Statistics, info IterationInfo) {
	stats.record(info)
	c.log.Info("iteration finished", "iteration", info.Iteration, "arg_size", info.ARG.Nodes, "status", info.Status)
	if c.progress != nil {
		c.progress(info)
	}
}
