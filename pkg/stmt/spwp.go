package stmt

import "github.com/l3aro/go-cegar/pkg/expr"

// SP computes the strongest postcondition of pre over stmts. Old values of
// overwritten variables become fresh constants; equalities that pin such a
// constant are eliminated immediately.
func SP(pre expr.Expr, stmts ...Stmt) expr.Expr { return SPWidth(expr.MaxWidth, pre, stmts...) }

// SPWidth is SP with constants folded as w-bit integers.
func SPWidth(w expr.Width, pre expr.Expr, stmts ...Stmt) expr.Expr {
	cur := pre
	for _, s := range stmts {
		cur = spStep(w, cur, s)
	}
	return w.Simplify(cur)
}

func spStep(w expr.Width, pre expr.Expr, s Stmt) expr.Expr {
	switch s := s.(type) {
	case *AssumeStmt:
		return expr.And(pre, s.Cond)
	case *AssignStmt:
		old := expr.Fresh("sp_"+s.Var.Name(), s.Var.Type())
		sub := map[*expr.Decl]expr.Expr{s.Var: expr.Ref(old)}
		post := expr.And(expr.Substitute(pre, sub), expr.Eq(expr.Ref(s.Var), expr.Substitute(s.Value, sub)))
		return dropExists(w.EliminateOnePoint(expr.Exists([]*expr.Decl{old}, post)))
	case *HavocStmt:
		old := expr.Fresh("sp_"+s.Var.Name(), s.Var.Type())
		post := expr.Substitute(pre, map[*expr.Decl]expr.Expr{s.Var: expr.Ref(old)})
		return dropExists(w.EliminateOnePoint(expr.Exists([]*expr.Decl{old}, post)))
	default:
		return pre
	}
}

// WP computes the weakest existential precondition of post over stmts: the
// states from which some execution of stmts reaches post.
func WP(post expr.Expr, stmts ...Stmt) expr.Expr { return WPWidth(expr.MaxWidth, post, stmts...) }

// WPWidth is WP with constants folded as w-bit integers.
func WPWidth(w expr.Width, post expr.Expr, stmts ...Stmt) expr.Expr {
	cur := post
	for i := len(stmts) - 1; i >= 0; i-- {
		cur = wpStep(w, cur, stmts[i])
	}
	return w.Simplify(cur)
}

func wpStep(w expr.Width, post expr.Expr, s Stmt) expr.Expr {
	switch s := s.(type) {
	case *AssumeStmt:
		return expr.And(s.Cond, post)
	case *AssignStmt:
		return expr.Substitute(post, map[*expr.Decl]expr.Expr{s.Var: s.Value})
	case *HavocStmt:
		c := expr.Fresh("wp_"+s.Var.Name(), s.Var.Type())
		pre := expr.Substitute(post, map[*expr.Decl]expr.Expr{s.Var: expr.Ref(c)})
		return dropExists(w.EliminateOnePoint(expr.Exists([]*expr.Decl{c}, pre)))
	default:
		return post
	}
}

// dropExists turns a top-level existential over fresh constants into free
// constants, which is equisatisfiable.
func dropExists(e expr.Expr) expr.Expr {
	if q, ok := e.(*expr.ExistsExpr); ok {
		return q.Body
	}
	return e
}
