package refinement

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/analysis/expl"
	"github.com/l3aro/go-cegar/pkg/analysis/pred"
	"github.com/l3aro/go-cegar/pkg/analysis/prod"
	"github.com/l3aro/go-cegar/pkg/expr"
)

// PrecRefiner turns a refutation into a precision at least as fine as prec.
// Implementations return prec itself when the refutation adds nothing.
type PrecRefiner[P, R any] interface {
	Refine(prec P, r R) P
}

// PrecRefinerFunc adapts a function to PrecRefiner.
type PrecRefinerFunc[P, R any] func(prec P, r R) P

func (f PrecRefinerFunc[P, R]) Refine(prec P, r R) P { return f(prec, r) }

// Split decides how interpolants are cut into predicates.
type Split int

const (
	SplitWhole Split = iota
	SplitConjuncts
	SplitAtoms
)

func (s Split) String() string {
	switch s {
	case SplitConjuncts:
		return "conjuncts"
	case SplitAtoms:
		return "atoms"
	default:
		return "whole"
	}
}

// ParseSplit parses a split policy name. The empty string is SplitWhole.
func ParseSplit(s string) (Split, error) {
	switch strings.ToLower(s) {
	case "", "whole":
		return SplitWhole, nil
	case "conjuncts":
		return SplitConjuncts, nil
	case "atoms":
		return SplitAtoms, nil
	}
	return SplitWhole, fmt.Errorf("unknown predicate split %q", s)
}

func (s Split) apply(e expr.Expr) []expr.Expr {
	switch s {
	case SplitConjuncts:
		return expr.Conjuncts(e)
	case SplitAtoms:
		return expr.Atoms(e)
	default:
		return []expr.Expr{e}
	}
}

// ItpToPredPrec adds the interpolants, split by split, as predicates.
// Formulas that are not over program variables alone are skipped.
func ItpToPredPrec(split Split) PrecRefiner[*pred.Prec, *ItpRefutation] {
	return PrecRefinerFunc[*pred.Prec, *ItpRefutation](func(prec *pred.Prec, r *ItpRefutation) *pred.Prec {
		var preds []expr.Expr
		for _, f := range r.Formulas() {
			for _, p := range split.apply(f) {
				if isStatePredicate(p) {
					preds = append(preds, p)
				}
			}
		}
		return prec.Join(pred.NewPrec(preds...))
	})
}

// ItpToExplPrec tracks the variables the interpolants mention.
func ItpToExplPrec() PrecRefiner[*expl.Prec, *ItpRefutation] {
	return PrecRefinerFunc[*expl.Prec, *ItpRefutation](func(prec *expl.Prec, r *ItpRefutation) *expl.Prec {
		var vars []*expr.Decl
		for _, f := range r.Formulas() {
			vars = append(vars, expr.Vars(f)...)
		}
		return prec.Join(expl.NewPrec(vars...))
	})
}

// UnsatCoreToExplPrec tracks the variables the core mentions.
func UnsatCoreToExplPrec() PrecRefiner[*expl.Prec, *UnsatCoreRefutation] {
	return PrecRefinerFunc[*expl.Prec, *UnsatCoreRefutation](func(prec *expl.Prec, r *UnsatCoreRefutation) *expl.Prec {
		return prec.Join(expl.NewPrec(r.Vars()...))
	})
}

// ProdPrecRefiner refines both components of a product precision from the
// same refutation.
func ProdPrecRefiner[P1, P2, R any](r1 PrecRefiner[P1, R], r2 PrecRefiner[P2, R]) PrecRefiner[*prod.Prec[P1, P2], R] {
	return PrecRefinerFunc[*prod.Prec[P1, P2], R](func(prec *prod.Prec[P1, P2], r R) *prod.Prec[P1, P2] {
		return prec.With(r1.Refine(prec.P1, r), r2.Refine(prec.P2, r))
	})
}

// Keep leaves the precision unchanged. It serves product components that
// do not learn from refutations, such as zones over a fixed clock set.
func Keep[P, R any]() PrecRefiner[P, R] {
	return PrecRefinerFunc[P, R](func(prec P, _ R) P { return prec })
}

// isStatePredicate reports whether e is quantifier free and mentions only
// unprimed program variables.
func isStatePredicate(e expr.Expr) bool {
	switch e := e.(type) {
	case *expr.ExistsExpr, *expr.ForallExpr, *expr.PrimeExpr:
		return false
	case *expr.RefExpr:
		return e.Decl.IsVar()
	}
	for _, c := range expr.Children(e) {
		if !isStatePredicate(c) {
			return false
		}
	}
	return true
}
