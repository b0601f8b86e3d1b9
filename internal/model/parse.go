package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

// parserPool is a pool of reusable tree-sitter parsers for Go.
var parserPool = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(golang.GetLanguage())
		return p
	},
}

// Scope resolves identifiers of expressions to declarations.
type Scope map[string]*expr.Decl

// NewScope creates a scope of the given variables.
func NewScope(vars ...*expr.Decl) Scope {
	s := make(Scope, len(vars))
	for _, v := range vars {
		s[v.Name()] = v
	}
	return s
}

// ParseExpr parses a Go expression over the variables of the scope.
// Besides Go operators it understands next(x), implies(a, b) and
// ite(c, a, b).
func (s Scope) ParseExpr(src string) (expr.Expr, error) {
	var out expr.Expr
	err := parseGo("package p\nvar _ = "+src+"\n", func(root *sitter.Node, code []byte) error {
		n := find(root, "expression_list")
		if n == nil || n.NamedChildCount() != 1 {
			return fmt.Errorf("expected a single expression")
		}
		var err error
		out, err = s.convert(n.NamedChild(0), code)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	return out, nil
}

// ParseBoolExpr parses an expression and checks that it is boolean.
func (s Scope) ParseBoolExpr(src string) (expr.Expr, error) {
	e, err := s.ParseExpr(src)
	if err != nil {
		return nil, err
	}
	if e.Type() != expr.BoolType {
		return nil, fmt.Errorf("parsing %q: %w: want bool, got %s", src, ErrType, e.Type())
	}
	return e, nil
}

// ParseStmt parses one statement: x = e, x++, x--, assume(c) or havoc(x).
func (s Scope) ParseStmt(src string) (stmt.Stmt, error) {
	var out stmt.Stmt
	err := parseGo("package p\nfunc _() {\n"+src+"\n}\n", func(root *sitter.Node, code []byte) error {
		body := find(root, "block")
		if body == nil {
			return fmt.Errorf("expected a statement")
		}
		n := findAny(body, "assignment_statement", "inc_statement", "dec_statement", "expression_statement")
		if n == nil {
			return fmt.Errorf("expected a statement")
		}
		var err error
		out, err = s.convertStmt(n, code)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	return out, nil
}

func parseGo(code string, fn func(root *sitter.Node, code []byte) error) error {
	p := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(p)

	b := []byte(code)
	tree := p.Parse(nil, b)
	if tree == nil {
		return fmt.Errorf("parser failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return ErrSyntax
	}
	return fn(root, b)
}

// find returns the first node of the given type in preorder.
func find(n *sitter.Node, typ string) *sitter.Node {
	return findAny(n, typ)
}

func findAny(n *sitter.Node, types ...string) *sitter.Node {
	for _, t := range types {
		if n.Type() == t {
			return n
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if m := findAny(n.NamedChild(i), types...); m != nil {
			return m
		}
	}
	return nil
}

func (s Scope) lookup(name string) (*expr.Decl, error) {
	d, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndeclared, name)
	}
	return d, nil
}

func (s Scope) convert(n *sitter.Node, code []byte) (expr.Expr, error) {
	switch n.Type() {
	case "parenthesized_expression":
		return s.convert(n.NamedChild(0), code)
	case "identifier":
		d, err := s.lookup(n.Content(code))
		if err != nil {
			return nil, err
		}
		return expr.Ref(d), nil
	case "int_literal":
		v, err := strconv.ParseInt(strings.ReplaceAll(n.Content(code), "_", ""), 0, 64)
		if err != nil {
			return nil, err
		}
		return expr.Int(v), nil
	case "true":
		return expr.True(), nil
	case "false":
		return expr.False(), nil
	case "unary_expression":
		return s.unary(n, code)
	case "binary_expression":
		return s.binary(n, code)
	case "call_expression":
		return s.call(n, code)
	}
	return nil, fmt.Errorf("%w: %s %q", ErrUnsupported, n.Type(), n.Content(code))
}

func (s Scope) unary(n *sitter.Node, code []byte) (expr.Expr, error) {
	op := n.ChildByFieldName("operator").Type()
	x, err := s.convert(n.ChildByFieldName("operand"), code)
	if err != nil {
		return nil, err
	}
	switch op {
	case "!":
		if err := want(x, expr.BoolType, op); err != nil {
			return nil, err
		}
		return expr.Not(x), nil
	case "-":
		if err := want(x, expr.IntType, op); err != nil {
			return nil, err
		}
		if lit, ok := x.(*expr.IntLit); ok {
			return expr.Int(-lit.Value), nil
		}
		return expr.Neg(x), nil
	case "+":
		return x, want(x, expr.IntType, op)
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}

var cmpOps = map[string]expr.CmpOp{
	"==": expr.OpEq, "!=": expr.OpNeq,
	"<": expr.OpLt, "<=": expr.OpLeq, ">": expr.OpGt, ">=": expr.OpGeq,
}

func (s Scope) binary(n *sitter.Node, code []byte) (expr.Expr, error) {
	op := n.ChildByFieldName("operator").Type()
	l, err := s.convert(n.ChildByFieldName("left"), code)
	if err != nil {
		return nil, err
	}
	r, err := s.convert(n.ChildByFieldName("right"), code)
	if err != nil {
		return nil, err
	}
	switch op {
	case "&&", "||":
		if err := want(l, expr.BoolType, op); err != nil {
			return nil, err
		}
		if err := want(r, expr.BoolType, op); err != nil {
			return nil, err
		}
		if op == "&&" {
			return expr.And(l, r), nil
		}
		return expr.Or(l, r), nil
	case "+", "-", "*":
		if err := want(l, expr.IntType, op); err != nil {
			return nil, err
		}
		if err := want(r, expr.IntType, op); err != nil {
			return nil, err
		}
		switch op {
		case "+":
			return expr.Add(l, r), nil
		case "-":
			return expr.Sub(l, r), nil
		}
		return expr.Mul(l, r), nil
	}
	cmp, ok := cmpOps[op]
	if !ok {
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
	}
	if cmp != expr.OpEq && cmp != expr.OpNeq {
		if err := want(l, expr.IntType, op); err != nil {
			return nil, err
		}
	}
	if err := want(r, l.Type(), op); err != nil {
		return nil, err
	}
	return expr.Cmp(cmp, l, r), nil
}

func (s Scope) call(n *sitter.Node, code []byte) (expr.Expr, error) {
	name := n.ChildByFieldName("function").Content(code)
	args, err := s.args(n, code)
	if err != nil {
		return nil, err
	}
	arity := map[string]int{"next": 1, "implies": 2, "ite": 3}
	k, ok := arity[name]
	if !ok {
		return nil, fmt.Errorf("%w: function %s", ErrUnsupported, name)
	}
	if len(args) != k {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", name, k, len(args))
	}
	switch name {
	case "next":
		return expr.Prime(args[0]), nil
	case "implies":
		if err := want(args[0], expr.BoolType, name); err != nil {
			return nil, err
		}
		if err := want(args[1], expr.BoolType, name); err != nil {
			return nil, err
		}
		return expr.Imply(args[0], args[1]), nil
	}
	if err := want(args[0], expr.BoolType, name); err != nil {
		return nil, err
	}
	if err := want(args[2], args[1].Type(), name); err != nil {
		return nil, err
	}
	return expr.Ite(args[0], args[1], args[2]), nil
}

func (s Scope) args(n *sitter.Node, code []byte) ([]expr.Expr, error) {
	list := n.ChildByFieldName("arguments")
	out := make([]expr.Expr, 0, list.NamedChildCount())
	for i := 0; i < int(list.NamedChildCount()); i++ {
		e, err := s.convert(list.NamedChild(i), code)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s Scope) convertStmt(n *sitter.Node, code []byte) (stmt.Stmt, error) {
	switch n.Type() {
	case "assignment_statement":
		if op := n.ChildByFieldName("operator").Type(); op != "=" {
			return nil, fmt.Errorf("%w: assignment %s", ErrUnsupported, op)
		}
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if left.NamedChildCount() != 1 || right.NamedChildCount() != 1 {
			return nil, fmt.Errorf("%w: parallel assignment", ErrUnsupported)
		}
		v, err := s.target(left.NamedChild(0), code)
		if err != nil {
			return nil, err
		}
		e, err := s.convert(right.NamedChild(0), code)
		if err != nil {
			return nil, err
		}
		if err := want(e, v.Type(), "="); err != nil {
			return nil, err
		}
		return stmt.Assign(v, e), nil
	case "inc_statement", "dec_statement":
		v, err := s.target(n.NamedChild(0), code)
		if err != nil {
			return nil, err
		}
		if err := want(expr.Ref(v), expr.IntType, n.Type()); err != nil {
			return nil, err
		}
		if n.Type() == "inc_statement" {
			return stmt.Assign(v, expr.Add(expr.Ref(v), expr.Int(1))), nil
		}
		return stmt.Assign(v, expr.Sub(expr.Ref(v), expr.Int(1))), nil
	}

	call := n.NamedChild(0)
	if call == nil || call.Type() != "call_expression" {
		return nil, fmt.Errorf("%w: statement %q", ErrUnsupported, n.Content(code))
	}
	name := call.ChildByFieldName("function").Content(code)
	list := call.ChildByFieldName("arguments")
	if list.NamedChildCount() != 1 {
		return nil, fmt.Errorf("%s takes 1 argument, got %d", name, list.NamedChildCount())
	}
	arg := list.NamedChild(0)
	switch name {
	case "assume":
		c, err := s.convert(arg, code)
		if err != nil {
			return nil, err
		}
		if err := want(c, expr.BoolType, name); err != nil {
			return nil, err
		}
		return stmt.Assume(c), nil
	case "havoc":
		v, err := s.target(arg, code)
		if err != nil {
			return nil, err
		}
		return stmt.Havoc(v), nil
	}
	return nil, fmt.Errorf("%w: statement %s", ErrUnsupported, name)
}

func (s Scope) target(n *sitter.Node, code []byte) (*expr.Decl, error) {
	if n.Type() != "identifier" {
		return nil, fmt.Errorf("%w: cannot assign to %q", ErrUnsupported, n.Content(code))
	}
	return s.lookup(n.Content(code))
}

func want(e expr.Expr, t expr.Type, op string) error {
	if e.Type() != t {
		return fmt.Errorf("%w: %s needs %s operands, got %s", ErrType, op, t, e)
	}
	return nil
}
