package stmt

import "github.com/l3aro/go-cegar/pkg/expr"

// ToExpr converts a statement sequence into a transition formula over
// primed variables together with the index shift it induces. A variable
// written k times appears under k primes after its last write.
func ToExpr(stmts []Stmt) (expr.Expr, expr.VarIndexing) {
	var conj []expr.Expr
	var offsets expr.VarIndexing
	for _, s := range stmts {
		e, delta := stepExpr(s, offsets)
		if e != nil {
			conj = append(conj, e)
		}
		offsets = offsets.Add(delta)
	}
	return expr.And(conj...), offsets
}

// UnfoldStmt returns the indexed formula of a single statement executed at
// indexing vi and the shift it induces.
func UnfoldStmt(s Stmt, vi expr.VarIndexing) (expr.Expr, expr.VarIndexing) {
	e, delta := stepExpr(s, expr.VarIndexing{})
	if e == nil {
		e = expr.True()
	}
	return expr.Unfold(e, vi), delta
}

func stepExpr(s Stmt, offsets expr.VarIndexing) (expr.Expr, expr.VarIndexing) {
	var none expr.VarIndexing
	switch s := s.(type) {
	case *AssignStmt:
		lhs := expr.PrimeN(expr.Ref(s.Var), offsets.Get(s.Var)+1)
		return expr.Eq(lhs, shift(s.Value, offsets)), none.Inc(s.Var, 1)
	case *AssumeStmt:
		return shift(s.Cond, offsets), none
	case *HavocStmt:
		return nil, none.Inc(s.Var, 1)
	default:
		return nil, none
	}
}

// shift primes every variable reference according to offsets.
func shift(e expr.Expr, offsets expr.VarIndexing) expr.Expr {
	var rec func(expr.Expr) expr.Expr
	rec = func(e expr.Expr) expr.Expr {
		if r, ok := e.(*expr.RefExpr); ok {
			if !r.Decl.IsVar() {
				return e
			}
			return expr.PrimeN(e, offsets.Get(r.Decl))
		}
		return expr.MapChildren(e, rec)
	}
	return rec(e)
}
