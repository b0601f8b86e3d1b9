package refinement

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
)

// ItpRefutation explains an infeasible trace with one formula per trace
// position, over the program variables at that position. Entry is the
// formula learned from the initial condition alone, before the first
// state.
type ItpRefutation struct {
	Entry expr.Expr
	Itps  []expr.Expr
	// PruneIndex is the first position whose formula is false, or the last
	// position when none is.
	PruneIndex int
}

// NewItpRefutation computes the prune index of itps. A nil entry is true.
func NewItpRefutation(entry expr.Expr, itps []expr.Expr) *ItpRefutation {
	if entry == nil {
		entry = expr.True()
	}
	r := &ItpRefutation{Entry: entry, Itps: itps, PruneIndex: len(itps) - 1}
	for i, e := range itps {
		if expr.IsFalse(e) {
			r.PruneIndex = i
			break
		}
	}
	return r
}

// Formulas returns the entry formula followed by the per-position ones.
func (r *ItpRefutation) Formulas() []expr.Expr {
	return append([]expr.Expr{r.Entry}, r.Itps...)
}

func (r *ItpRefutation) String() string {
	parts := make([]string, len(r.Itps))
	for i, e := range r.Itps {
		parts[i] = e.String()
	}
	return fmt.Sprintf("itp(entry=%s, [%s], prune=%d)", r.Entry, strings.Join(parts, "; "), r.PruneIndex)
}

// UnsatCoreRefutation explains an infeasible trace with an unsat core of
// its indexed formula. Prefix is the number of leading positions that are
// satisfiable together.
type UnsatCoreRefutation struct {
	Core   []expr.Expr
	Prefix int
}

// Vars returns the program variables the core mentions, at any version.
func (r *UnsatCoreRefutation) Vars() []*expr.Decl {
	seen := make(map[*expr.Decl]bool)
	var out []*expr.Decl
	for _, e := range r.Core {
		for _, d := range expr.Decls(e) {
			base, _, ok := d.Base()
			if !ok {
				if !d.IsVar() {
					continue
				}
				base = d
			}
			if !seen[base] {
				seen[base] = true
				out = append(out, base)
			}
		}
	}
	expr.SortDecls(out)
	return out
}

func (r *UnsatCoreRefutation) String() string {
	parts := make([]string, len(r.Core))
	for i, e := range r.Core {
		parts[i] = e.String()
	}
	return fmt.Sprintf("core([%s], prefix=%d)", strings.Join(parts, "; "), r.Prefix)
}
