package expr

import (
	"strconv"
	"strings"
)

// Expressions print in Go syntax so that model files, precision caches and
// log lines share one notation. Primes print as next(x), implication as
// implies(a, b) and if-then-else as ite(c, a, b).

const (
	precOr = iota + 1
	precAnd
	precCmp
	precAdd
	precMul
	precUnary
	precAtom
)

func precedence(e Expr) int {
	switch e := e.(type) {
	case *OrExpr:
		return precOr
	case *AndExpr:
		return precAnd
	case *CmpExpr, *IffExpr:
		return precCmp
	case *AddExpr, *SubExpr:
		return precAdd
	case *MulExpr:
		return precMul
	case *NotExpr, *NegExpr:
		return precUnary
	case *IntLit:
		if e.Value < 0 {
			return precUnary
		}
		return precAtom
	default:
		return precAtom
	}
}

func write(sb *strings.Builder, e Expr, ctx int) {
	p := precedence(e)
	if p < ctx {
		sb.WriteByte('(')
		defer sb.WriteByte(')')
	}
	switch e := e.(type) {
	case *BoolLit:
		sb.WriteString(strconv.FormatBool(e.Value))
	case *IntLit:
		sb.WriteString(strconv.FormatInt(e.Value, 10))
	case *RefExpr:
		sb.WriteString(e.Decl.name)
	case *PrimeExpr:
		sb.WriteString("next(")
		write(sb, e.Op, 0)
		sb.WriteByte(')')
	case *NotExpr:
		sb.WriteByte('!')
		write(sb, e.Op, precUnary)
	case *NegExpr:
		sb.WriteByte('-')
		write(sb, e.Op, precUnary+1)
	case *AndExpr:
		writeJoined(sb, e.Ops, " && ", precAnd)
	case *OrExpr:
		writeJoined(sb, e.Ops, " || ", precOr)
	case *AddExpr:
		writeJoined(sb, e.Ops, " + ", precAdd)
	case *MulExpr:
		writeJoined(sb, e.Ops, " * ", precMul)
	case *SubExpr:
		write(sb, e.L, precAdd)
		sb.WriteString(" - ")
		write(sb, e.R, precAdd+1)
	case *CmpExpr:
		write(sb, e.L, precCmp+1)
		sb.WriteByte(' ')
		sb.WriteString(e.Op.String())
		sb.WriteByte(' ')
		write(sb, e.R, precCmp+1)
	case *IffExpr:
		write(sb, e.L, precCmp+1)
		sb.WriteString(" == ")
		write(sb, e.R, precCmp+1)
	case *ImplyExpr:
		sb.WriteString("implies(")
		write(sb, e.L, 0)
		sb.WriteString(", ")
		write(sb, e.R, 0)
		sb.WriteByte(')')
	case *IteExpr:
		sb.WriteString("ite(")
		write(sb, e.Cond, 0)
		sb.WriteString(", ")
		write(sb, e.Then, 0)
		sb.WriteString(", ")
		write(sb, e.Else, 0)
		sb.WriteByte(')')
	case *ExistsExpr:
		writeQuantifier(sb, "exists", e.Params, e.Body)
	case *ForallExpr:
		writeQuantifier(sb, "forall", e.Params, e.Body)
	}
}

func writeJoined(sb *strings.Builder, ops []Expr, sep string, p int) {
	for i, op := range ops {
		if i > 0 {
			sb.WriteString(sep)
		}
		// operands at the same level are parenthesized except the first,
		// which keeps the printed form left-associative
		ctx := p
		if i > 0 {
			ctx = p + 1
		}
		write(sb, op, ctx)
	}
}

func writeQuantifier(sb *strings.Builder, name string, params []*Decl, body Expr) {
	sb.WriteString(name)
	sb.WriteString("([")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.name)
		sb.WriteByte(' ')
		sb.WriteString(p.typ.String())
	}
	sb.WriteString("], ")
	write(sb, body, 0)
	sb.WriteByte(')')
}

func toString(e Expr) string {
	var sb strings.Builder
	write(&sb, e, 0)
	return sb.String()
}

func (e *BoolLit) String() string    { return toString(e) }
func (e *IntLit) String() string     { return toString(e) }
func (e *RefExpr) String() string    { return e.Decl.name }
func (e *PrimeExpr) String() string  { return toString(e) }
func (e *NotExpr) String() string    { return toString(e) }
func (e *AndExpr) String() string    { return toString(e) }
func (e *OrExpr) String() string     { return toString(e) }
func (e *ImplyExpr) String() string  { return toString(e) }
func (e *IffExpr) String() string    { return toString(e) }
func (e *IteExpr) String() string    { return toString(e) }
func (e *CmpExpr) String() string    { return toString(e) }
func (e *AddExpr) String() string    { return toString(e) }
func (e *SubExpr) String() string    { return toString(e) }
func (e *MulExpr) String() string    { return toString(e) }
func (e *NegExpr) String() string    { return toString(e) }
func (e *ExistsExpr) String() string { return toString(e) }
func (e *ForallExpr) String() string { return toString(e) }
