// Package engine assembles a CEGAR checker from a configuration and a
// loaded model.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/internal/model"
	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/cache"
	"github.com/l3aro/go-cegar/pkg/cegar"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver/bitblast"
)

// Options carries the per-run inputs that are not part of the
// configuration.
type Options struct {
	// Track seeds the explicit precision with variable names.
	Track []string
	// Preds seeds the predicate precision with boolean expressions.
	Preds []string

	Logger   log.Logger
	Progress func(cegar.IterationInfo)

	// Store overrides the precision store built from the configuration.
	Store *cache.PrecStore
}

// Step is one state of a counterexample.
type Step struct {
	State  string            `json:"state"`
	Action string            `json:"action,omitempty"`
	Values map[string]string `json:"values"`
}

// Result is the outcome of a run in a printable form.
type Result struct {
	Safe       bool              `json:"safe"`
	Verdict    string            `json:"verdict"`
	ModelHash  string            `json:"model_hash"`
	Domain     config.Domain     `json:"domain"`
	Refinement config.Refinement `json:"refinement"`
	Prec       string            `json:"prec"`
	Stats      cegar.Statistics  `json:"stats"`
	ARG        arg.Stats         `json:"arg"`
	Cache      cache.Stats       `json:"cache"`
	Cex        []Step            `json:"counterexample,omitempty"`

	dot func(io.Writer) error
}

// WriteDot writes the final ARG in Graphviz format.
func (r *Result) WriteDot(w io.Writer) error { return r.dot(w) }

// Run is an assembled checker ready to execute.
type Run struct {
	cfg   *config.Config
	check func(ctx context.Context) (*Result, error)
}

// Check runs the checker under the configured time budget.
func (r *Run) Check(ctx context.Context) (*Result, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return r.check(ctx)
}

// builder holds what every domain and formalism combination needs.
type builder struct {
	cfg    *config.Config
	model  *model.Model
	solver *bitblast.Solver
	log    log.Logger
	opts   Options
	store  *cache.PrecStore

	seedVars  []*expr.Decl
	seedPreds []expr.Expr
}

// Build validates cfg against the model and assembles the checker.
// Unsupported combinations wrap cegar.ErrInvalidConfig.
func Build(cfg *config.Config, m *model.Model, opts Options) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m.Kind == model.KindSTS && cfg.Refinement.NeedsStmts() {
		return nil, fmt.Errorf("%w: refinement %s needs statements and only applies to cfa models", cegar.ErrInvalidConfig, cfg.Refinement)
	}

	b := &builder{
		cfg:   cfg,
		model: m,
		solver: bitblast.New(bitblast.Options{
			Width:   cfg.IntWidth,
			Timeout: cfg.SolverTimeout,
		}),
		log:   opts.Logger,
		opts:  opts,
		store: opts.Store,
	}
	if b.log == nil {
		b.log = log.Nop()
	}
	w := b.solver.IntWidth()
	for _, e := range m.Formulas() {
		if err := w.CheckLiterals(e); err != nil {
			return nil, fmt.Errorf("%w: %w", cegar.ErrInvalidConfig, err)
		}
	}
	if b.store == nil && cfg.WarmStart {
		b.store = cache.NewPrecStore(cfg.CacheDir, 64)
	}
	if err := b.seed(); err != nil {
		return nil, err
	}

	check, err := b.assemble()
	if err != nil {
		return nil, err
	}
	return &Run{cfg: cfg, check: check}, nil
}

// seed collects the initial precision from the options and, on a warm
// start, from the store.
func (b *builder) seed() error {
	tracks := append([]string{}, b.opts.Track...)
	preds := append([]string{}, b.opts.Preds...)

	if b.cfg.WarmStart && b.store != nil {
		e, ok, err := b.store.Get(b.model.Hash, string(b.cfg.Domain))
		if err != nil {
			b.log.Warn("ignoring stored precision", "error", err)
		} else if ok {
			b.log.Info("warm start", "vars", len(e.Vars), "preds", len(e.Preds), "updated_at", e.UpdatedAt)
			tracks = append(tracks, e.Vars...)
			preds = append(preds, e.Preds...)
		}
	}

	seen := make(map[*expr.Decl]bool)
	for _, name := range tracks {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		d, ok := b.model.Scope[name]
		if !ok {
			return fmt.Errorf("%w: tracked variable: %w: %s", cegar.ErrInvalidConfig, model.ErrUndeclared, name)
		}
		if !seen[d] {
			seen[d] = true
			b.seedVars = append(b.seedVars, d)
		}
	}
	for _, src := range preds {
		if strings.TrimSpace(src) == "" {
			continue
		}
		e, err := b.model.Scope.ParseBoolExpr(src)
		if err != nil {
			return fmt.Errorf("%w: predicate: %w", cegar.ErrInvalidConfig, err)
		}
		if err := b.solver.IntWidth().CheckLiterals(e); err != nil {
			return fmt.Errorf("%w: predicate: %w", cegar.ErrInvalidConfig, err)
		}
		b.seedPreds = append(b.seedPreds, e)
	}

	switch {
	case b.cfg.Domain == config.DomainExpl && len(b.seedPreds) > 0:
		return fmt.Errorf("%w: the expl domain tracks variables, not predicates", cegar.ErrInvalidConfig)
	case b.cfg.Domain == config.DomainPred && len(b.seedVars) > 0:
		return fmt.Errorf("%w: the pred domain tracks predicates, not variables", cegar.ErrInvalidConfig)
	}
	return nil
}

func (b *builder) assemble() (func(context.Context) (*Result, error), error) {
	switch b.model.Kind {
	case model.KindSTS:
		return b.sts()
	case model.KindCFA:
		return b.cfa()
	}
	return nil, fmt.Errorf("%w: model kind %q", cegar.ErrInvalidConfig, b.model.Kind)
}

// withCache memoises the transfer function unless the cache is disabled.
func withCache[S, A, P any](size int, an analysis.Analysis[S, A, P]) (analysis.Analysis[S, A, P], func() cache.Stats) {
	if size <= 0 {
		return an, func() cache.Stats { return cache.Stats{} }
	}
	trans := analysis.NewCachingTransFunc(an.TransFunc(), size)
	return analysis.New(an.Domain(), an.InitFunc(), analysis.TransFunc[S, A, P](trans)), trans.Stats
}

// pipeline runs one checker and turns its result into a Result.
type pipeline[S, A, P any] struct {
	b        *builder
	checker  *cegar.Checker[S, A, P]
	prec     P
	last     *P
	entry    func(P) cache.PrecEntry
	cacheFor func() cache.Stats
}

// recording wraps ref so that the latest refined precision is kept in last.
func recording[S, A, P any](ref cegar.Refiner[S, A, P], last *P) cegar.Refiner[S, A, P] {
	return cegar.RefinerFunc[S, A, P](func(g *arg.ARG[S, A], prec P) (*cegar.RefinerResult[S, A, P], error) {
		*last = prec
		res, err := ref.Refine(g, prec)
		if err == nil && res.Status == cegar.Spurious {
			*last = res.Prec
		}
		return res, err
	})
}

func (p *pipeline[S, A, P]) run(ctx context.Context) (*Result, error) {
	*p.last = p.prec
	res, err := p.checker.Check(ctx, p.prec)
	p.save()
	if err != nil {
		return nil, err
	}

	out := &Result{
		Safe:       res.Safe(),
		Verdict:    "unsafe",
		ModelHash:  p.b.model.Hash,
		Domain:     p.b.cfg.Domain,
		Refinement: p.b.cfg.Refinement,
		Prec:       fmt.Sprint(*p.last),
		Stats:      res.Stats,
		ARG:        res.ARG.Stats(),
		Cache:      p.cacheFor(),
		dot:        res.ARG.WriteDot,
	}
	if out.Safe {
		out.Verdict = "safe"
		return out, nil
	}
	out.Cex = make([]Step, len(res.Cex.Valuations))
	for i, val := range res.Cex.Valuations {
		step := Step{Values: make(map[string]string, val.Len())}
		if i < len(res.Trace.States) {
			step.State = fmt.Sprint(res.Trace.States[i])
		}
		if i < len(res.Trace.Actions) {
			step.Action = fmt.Sprint(res.Trace.Actions[i])
		}
		for _, d := range val.Decls() {
			v, _ := val.Get(d)
			step.Values[d.Name()] = v.String()
		}
		out.Cex[i] = step
	}
	return out, nil
}

// save stores the last precision for later warm starts. Failures are
// logged and otherwise ignored.
func (p *pipeline[S, A, P]) save() {
	if !p.b.cfg.WarmStart || p.b.store == nil {
		return
	}
	e := p.entry(*p.last)
	e.ModelHash = p.b.model.Hash
	e.Domain = string(p.b.cfg.Domain)
	if err := p.b.store.Put(e); err != nil {
		p.b.log.Warn("failed to store precision", "error", err)
		return
	}
	p.b.log.Debug("stored precision", "vars", len(e.Vars), "preds", len(e.Preds))
}
