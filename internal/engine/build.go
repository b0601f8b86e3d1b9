package engine

import (
	"context"
	"fmt"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/pkg/analysis"
	"github.com/l3aro/go-cegar/pkg/analysis/expl"
	"github.com/l3aro/go-cegar/pkg/analysis/pred"
	"github.com/l3aro/go-cegar/pkg/analysis/prod"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/cache"
	"github.com/l3aro/go-cegar/pkg/cegar"
	"github.com/l3aro/go-cegar/pkg/cfa"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/refinement"
	"github.com/l3aro/go-cegar/pkg/sts"
)

type checkFunc = func(context.Context) (*Result, error)

type explPred = prod.Prec[*expl.Prec, *pred.Prec]

// precRefiners turns either kind of refutation into a precision. A nil
// core refiner means the domain cannot learn from unsat cores.
type precRefiners[P any] struct {
	itp  refinement.PrecRefiner[P, *refinement.ItpRefutation]
	core refinement.PrecRefiner[P, *refinement.UnsatCoreRefutation]
}

func explRefiners() precRefiners[*expl.Prec] {
	return precRefiners[*expl.Prec]{itp: refinement.ItpToExplPrec(), core: refinement.UnsatCoreToExplPrec()}
}

func predRefiners(split refinement.Split) precRefiners[*pred.Prec] {
	return precRefiners[*pred.Prec]{itp: refinement.ItpToPredPrec(split)}
}

func prodRefiners(split refinement.Split) precRefiners[*explPred] {
	keep := refinement.Keep[*pred.Prec, *refinement.UnsatCoreRefutation]()
	return precRefiners[*explPred]{
		itp:  refinement.ProdPrecRefiner(refinement.ItpToExplPrec(), refinement.ItpToPredPrec(split)),
		core: refinement.ProdPrecRefiner(refinement.UnsatCoreToExplPrec(), keep),
	}
}

func explEntry(p *expl.Prec) cache.PrecEntry {
	e := cache.PrecEntry{Vars: make([]string, 0, p.Len())}
	for _, d := range p.Vars() {
		e.Vars = append(e.Vars, d.Name())
	}
	return e
}

func predEntry(p *pred.Prec) cache.PrecEntry {
	e := cache.PrecEntry{Preds: make([]string, 0, p.Len())}
	for _, q := range p.Preds() {
		e.Preds = append(e.Preds, q.String())
	}
	return e
}

func prodEntry(p *explPred) cache.PrecEntry {
	e := explEntry(p.P1)
	e.Preds = predEntry(p.P2).Preds
	return e
}

// newRefiner builds the trace checker named by the configuration. Traces
// carry the initial and target conditions in their states when init and
// target are true.
func newRefiner[S analysis.ExprState, A analysis.ExprAction, P any](b *builder, init, target expr.Expr, pr precRefiners[P]) (cegar.Refiner[S, A, P], error) {
	s := b.solver
	var itp refinement.ExprTraceChecker[*refinement.ItpRefutation]
	switch b.cfg.Refinement {
	case config.RefinementUnsatCore:
		if pr.core == nil {
			return nil, fmt.Errorf("%w: refinement %s cannot refine the %s domain", cegar.ErrInvalidConfig, b.cfg.Refinement, b.cfg.Domain)
		}
		return refinement.NewTraceRefiner[S, A](refinement.NewUnsatCoreChecker(init, target, s), pr.core, b.log), nil
	case config.RefinementSeqItp:
		itp = refinement.NewSeqItpChecker(init, target, s)
	case config.RefinementNewtonSP:
		itp = refinement.NewNewtonChecker(init, target, s, refinement.Forward)
	case config.RefinementNewtonWP:
		itp = refinement.NewNewtonChecker(init, target, s, refinement.Backward)
	case config.RefinementNewtonSPLV:
		itp = refinement.NewNewtonChecker(init, target, s, refinement.Forward, refinement.WithLiveVars())
	case config.RefinementNewtonWPLV:
		itp = refinement.NewNewtonChecker(init, target, s, refinement.Backward, refinement.WithLiveVars())
	case config.RefinementNewtonITSP:
		itp = refinement.NewNewtonChecker(init, target, s, refinement.Forward, refinement.WithIrrelevantStmtAbstraction())
	case config.RefinementUCB:
		itp = refinement.NewUCBChecker(init, target, s)
	default:
		return nil, fmt.Errorf("%w: refinement %q", cegar.ErrInvalidConfig, b.cfg.Refinement)
	}
	return refinement.NewTraceRefiner[S, A](itp, pr.itp, b.log), nil
}

func (b *builder) split() refinement.Split {
	s, _ := refinement.ParseSplit(b.cfg.PredSplit)
	return s
}

func (b *builder) abstraction() pred.Abstraction {
	a, _ := pred.ParseAbstraction(b.cfg.PredAbstraction)
	return a
}

func (b *builder) sts() (checkFunc, error) {
	init := b.model.STS.InitExpr()
	switch b.cfg.Domain {
	case config.DomainExpl:
		an := expl.NewExprAnalysis[*sts.Action](b.solver, init, b.cfg.MaxEnum)
		return stsPipeline(b, an, expl.NewPrec(b.seedVars...), explRefiners(), explEntry)
	case config.DomainPred:
		an := pred.NewAnalysis[*sts.Action](b.solver, init, b.abstraction())
		return stsPipeline(b, an, pred.NewPrec(b.seedPreds...), predRefiners(b.split()), predEntry)
	case config.DomainProd:
		an := prod.NewAnalysis(
			expl.NewExprAnalysis[*sts.Action](b.solver, init, b.cfg.MaxEnum),
			pred.NewAnalysis[*sts.Action](b.solver, init, b.abstraction()))
		prec := prod.NewPrec(expl.NewPrec(b.seedVars...), pred.NewPrec(b.seedPreds...))
		return stsPipeline(b, an, prec, prodRefiners(b.split()), prodEntry)
	}
	return nil, fmt.Errorf("%w: domain %q", cegar.ErrInvalidConfig, b.cfg.Domain)
}

// stsPipeline explores the single transition of the system from every
// state. Initial and target conditions are part of the trace checker.
func stsPipeline[X analysis.ExprState, P any](b *builder, an analysis.Analysis[X, *sts.Action, P], prec P, pr precRefiners[P], entry func(P) cache.PrecEntry) (checkFunc, error) {
	s := b.model.STS
	act := s.Action()
	lts := analysis.LTSFunc[X, *sts.Action](func(X) []*sts.Action { return []*sts.Action{act} })
	bad := b.solver.IntWidth().Simplify(s.Target())
	target := analysis.NewExprStatePredicate[X](bad, b.solver)
	ref, err := newRefiner[X, *sts.Action](b, s.InitExpr(), bad, pr)
	if err != nil {
		return nil, err
	}
	return assemble[X, *sts.Action, P](b, an, lts, target, nil, ref, prec, entry)
}

func (b *builder) cfa() (checkFunc, error) {
	t := expr.True()
	switch b.cfg.Domain {
	case config.DomainExpl:
		an := expl.NewStmtAnalysis[*cfa.Action](b.solver, t, b.cfg.MaxEnum)
		return cfaPipeline(b, an, expl.NewPrec(b.seedVars...), explRefiners(), explEntry)
	case config.DomainPred:
		an := pred.NewAnalysis[*cfa.Action](b.solver, t, b.abstraction())
		return cfaPipeline(b, an, pred.NewPrec(b.seedPreds...), predRefiners(b.split()), predEntry)
	case config.DomainProd:
		an := prod.NewAnalysis(
			expl.NewStmtAnalysis[*cfa.Action](b.solver, t, b.cfg.MaxEnum),
			pred.NewAnalysis[*cfa.Action](b.solver, t, b.abstraction()))
		prec := prod.NewPrec(expl.NewPrec(b.seedVars...), pred.NewPrec(b.seedPreds...))
		return cfaPipeline(b, an, prec, prodRefiners(b.split()), prodEntry)
	}
	return nil, fmt.Errorf("%w: domain %q", cegar.ErrInvalidConfig, b.cfg.Domain)
}

// cfaPipeline lifts the data analysis to locations. Reaching the error
// location is the target, so the trace checker needs no extra conditions.
func cfaPipeline[X analysis.ExprState, P any](b *builder, inner analysis.Analysis[X, *cfa.Action, P], prec P, pr precRefiners[P], entry func(P) cache.PrecEntry) (checkFunc, error) {
	c := b.model.CFA
	ref, err := newRefiner[*cfa.LocState[X], *cfa.Action](b, expr.True(), expr.True(), pr)
	if err != nil {
		return nil, err
	}
	return assemble[*cfa.LocState[X], *cfa.Action, P](b, cfa.NewAnalysis(c, inner), cfa.NewLTS[X](c),
		cfa.ErrorLocPredicate[X]{Error: c.Error}, cfa.Partition[X], ref, prec, entry)
}

func assemble[S analysis.ExprState, A analysis.ExprAction, P any](
	b *builder,
	an analysis.Analysis[S, A, P],
	lts analysis.LTS[S, A],
	target analysis.TargetPredicate[S],
	partition cegar.PartitionFunc[S],
	ref cegar.Refiner[S, A, P],
	prec P,
	entry func(P) cache.PrecEntry,
) (checkFunc, error) {
	an, stats := withCache(b.cfg.CacheSize, an)
	search, err := arg.ParseSearch(b.cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cegar.ErrInvalidConfig, err)
	}

	opts := []cegar.AbstractorOption[S, A, P]{
		cegar.WithSearch[S, A, P](search),
		cegar.WithAbstractorLogger[S, A, P](b.log),
	}
	if partition != nil {
		opts = append(opts, cegar.WithPartition[S, A, P](partition))
	}
	if b.cfg.FirstCex {
		opts = append(opts, cegar.WithStopCriterion[S, A, P](cegar.FirstCex))
	}
	abs := cegar.NewAbstractor(an, lts, target, opts...)

	p := &pipeline[S, A, P]{b: b, prec: prec, last: new(P), entry: entry, cacheFor: stats}
	checker, err := cegar.NewChecker(abs, recording(ref, p.last),
		cegar.WithMaxIterations(b.cfg.MaxIterations),
		cegar.WithLogger(b.log),
		cegar.WithProgress(b.opts.Progress))
	if err != nil {
		return nil, err
	}
	p.checker = checker
	return p.run, nil
}
