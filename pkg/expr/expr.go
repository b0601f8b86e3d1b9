package expr

// Expr is a typed, immutable expression. The set of implementations is
// closed; consumers switch on the concrete type.
type Expr interface {
	Type() Type
	String() string
	isExpr()
}

type (
	// BoolLit is a boolean literal.
	BoolLit struct{ Value bool }

	// IntLit is an integer literal.
	IntLit struct{ Value int64 }

	// RefExpr refers to a declaration.
	RefExpr struct{ Decl *Decl }

	// PrimeExpr denotes the value of its operand after one step.
	PrimeExpr struct{ Op Expr }

	NotExpr   struct{ Op Expr }
	AndExpr   struct{ Ops []Expr }
	OrExpr    struct{ Ops []Expr }
	ImplyExpr struct{ L, R Expr }
	IffExpr   struct{ L, R Expr }

	// IteExpr is if-then-else over either sort.
	IteExpr struct{ Cond, Then, Else Expr }

	// CmpExpr compares two integers, or two booleans for Eq and Neq.
	CmpExpr struct {
		Op   CmpOp
		L, R Expr
	}

	AddExpr struct{ Ops []Expr }
	SubExpr struct{ L, R Expr }
	MulExpr struct{ Ops []Expr }
	NegExpr struct{ Op Expr }

	// ExistsExpr and ForallExpr bind their params inside Body.
	ExistsExpr struct {
		Params []*Decl
		Body   Expr
	}
	ForallExpr struct {
		Params []*Decl
		Body   Expr
	}
)

// CmpOp is a comparison operator.
type CmpOp int

const (
	OpEq CmpOp = iota
	OpNeq
	OpLt
	OpLeq
	OpGt
	OpGeq
)

func (op CmpOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLeq:
		return "<="
	case OpGt:
		return ">"
	case OpGeq:
		return ">="
	default:
		return "?"
	}
}

// Negate returns the operator of the negated comparison.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case OpEq:
		return OpNeq
	case OpNeq:
		return OpEq
	case OpLt:
		return OpGeq
	case OpLeq:
		return OpGt
	case OpGt:
		return OpLeq
	default:
		return OpLt
	}
}

func (*BoolLit) Type() Type     { return BoolType }
func (*IntLit) Type() Type      { return IntType }
func (e *RefExpr) Type() Type   { return e.Decl.typ }
func (e *PrimeExpr) Type() Type { return e.Op.Type() }
func (*NotExpr) Type() Type     { return BoolType }
func (*AndExpr) Type() Type     { return BoolType }
func (*OrExpr) Type() Type      { return BoolType }
func (*ImplyExpr) Type() Type   { return BoolType }
func (*IffExpr) Type() Type     { return BoolType }
func (e *IteExpr) Type() Type   { return e.Then.Type() }
func (*CmpExpr) Type() Type     { return BoolType }
func (*AddExpr) Type() Type     { return IntType }
func (*SubExpr) Type() Type     { return IntType }
func (*MulExpr) Type() Type     { return IntType }
func (*NegExpr) Type() Type     { return IntType }
func (*ExistsExpr) Type() Type  { return BoolType }
func (*ForallExpr) Type() Type  { return BoolType }
func (*BoolLit) isExpr()        {}
func (*IntLit) isExpr()         {}
func (*RefExpr) isExpr()        {}
func (*PrimeExpr) isExpr()      {}
func (*NotExpr) isExpr()        {}
func (*AndExpr) isExpr()        {}
func (*OrExpr) isExpr()         {}
func (*ImplyExpr) isExpr()      {}
func (*IffExpr) isExpr()        {}
func (*IteExpr) isExpr()        {}
func (*CmpExpr) isExpr()        {}
func (*AddExpr) isExpr()        {}
func (*SubExpr) isExpr()        {}
func (*MulExpr) isExpr()        {}
func (*NegExpr) isExpr()        {}
func (*ExistsExpr) isExpr()     {}
func (*ForallExpr) isExpr()     {}

var (
	trueLit  = &BoolLit{Value: true}
	falseLit = &BoolLit{Value: false}
)

func True() Expr  { return trueLit }
func False() Expr { return falseLit }

func Bool(b bool) Expr {
	if b {
		return trueLit
	}
	return falseLit
}

func Int(v int64) Expr { return &IntLit{Value: v} }

func Ref(d *Decl) Expr { return d.ref }

func Prime(e Expr) Expr { return &PrimeExpr{Op: e} }

// PrimeN wraps e in n primes.
func PrimeN(e Expr, n int) Expr {
	for i := 0; i < n; i++ {
		e = &PrimeExpr{Op: e}
	}
	return e
}

func Not(e Expr) Expr { return &NotExpr{Op: e} }

// And builds a conjunction; the empty conjunction is true.
func And(ops ...Expr) Expr {
	switch len(ops) {
	case 0:
		return trueLit
	case 1:
		return ops[0]
	}
	return &AndExpr{Ops: append([]Expr(nil), ops...)}
}

// Or builds a disjunction; the empty disjunction is false.
func Or(ops ...Expr) Expr {
	switch len(ops) {
	case 0:
		return falseLit
	case 1:
		return ops[0]
	}
	return &OrExpr{Ops: append([]Expr(nil), ops...)}
}

func Imply(l, r Expr) Expr { return &ImplyExpr{L: l, R: r} }
func Iff(l, r Expr) Expr   { return &IffExpr{L: l, R: r} }

func Ite(c, t, e Expr) Expr { return &IteExpr{Cond: c, Then: t, Else: e} }

func Eq(l, r Expr) Expr  { return &CmpExpr{Op: OpEq, L: l, R: r} }
func Neq(l, r Expr) Expr { return &CmpExpr{Op: OpNeq, L: l, R: r} }
func Lt(l, r Expr) Expr  { return &CmpExpr{Op: OpLt, L: l, R: r} }
func Leq(l, r Expr) Expr { return &CmpExpr{Op: OpLeq, L: l, R: r} }
func Gt(l, r Expr) Expr  { return &CmpExpr{Op: OpGt, L: l, R: r} }
func Geq(l, r Expr) Expr { return &CmpExpr{Op: OpGeq, L: l, R: r} }

// Cmp builds a comparison with the given operator.
func Cmp(op CmpOp, l, r Expr) Expr { return &CmpExpr{Op: op, L: l, R: r} }

// Add builds a sum; the empty sum is 0.
func Add(ops ...Expr) Expr {
	switch len(ops) {
	case 0:
		return Int(0)
	case 1:
		return ops[0]
	}
	return &AddExpr{Ops: append([]Expr(nil), ops...)}
}

func Sub(l, r Expr) Expr { return &SubExpr{L: l, R: r} }

// Mul builds a product; the empty product is 1.
func Mul(ops ...Expr) Expr {
	switch len(ops) {
	case 0:
		return Int(1)
	case 1:
		return ops[0]
	}
	return &MulExpr{Ops: append([]Expr(nil), ops...)}
}

func Neg(e Expr) Expr { return &NegExpr{Op: e} }

// Exists quantifies params existentially; with no params it returns body.
func Exists(params []*Decl, body Expr) Expr {
	if len(params) == 0 {
		return body
	}
	return &ExistsExpr{Params: append([]*Decl(nil), params...), Body: body}
}

// Forall quantifies params universally; with no params it returns body.
func Forall(params []*Decl, body Expr) Expr {
	if len(params) == 0 {
		return body
	}
	return &ForallExpr{Params: append([]*Decl(nil), params...), Body: body}
}

// IsTrue reports whether e is the literal true.
func IsTrue(e Expr) bool {
	b, ok := e.(*BoolLit)
	return ok && b.Value
}

// IsFalse reports whether e is the literal false.
func IsFalse(e Expr) bool {
	b, ok := e.(*BoolLit)
	return ok && !b.Value
}
