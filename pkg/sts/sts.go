// Package sts provides symbolic transition systems: variables with an
// initial condition, an invariant, a transition relation over primed
// variables and a safety property.
package sts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
)

// ErrNoProp reports a system built without a property.
var ErrNoProp = errors.New("sts: property is required")

// STS is an immutable symbolic transition system.
type STS struct {
	Vars  []*expr.Decl
	Init  []expr.Expr
	Invar []expr.Expr
	Trans []expr.Expr
	Prop  expr.Expr
}

// InitExpr is the initial condition together with the invariant.
func (s *STS) InitExpr() expr.Expr {
	return expr.And(append(append([]expr.Expr(nil), s.Init...), s.Invar...)...)
}

// Target is the negated property.
func (s *STS) Target() expr.Expr { return expr.Simplify(expr.Not(s.Prop)) }

// Action is the single step of the system.
func (s *STS) Action() *Action {
	ops := append([]expr.Expr(nil), s.Trans...)
	ops = append(ops, s.Invar...)
	if len(s.Invar) > 0 {
		ops = append(ops, expr.Prime(expr.And(s.Invar...)))
	}
	return &Action{e: expr.And(ops...)}
}

func (s *STS) String() string {
	var sb strings.Builder
	sb.WriteString("STS [\n")
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = v.Name()
	}
	fmt.Fprintf(&sb, "\tVars:  %s\n", strings.Join(names, ", "))
	writeExprs(&sb, "Init: ", s.Init)
	writeExprs(&sb, "Invar:", s.Invar)
	writeExprs(&sb, "Trans:", s.Trans)
	fmt.Fprintf(&sb, "\tProp:  %s\n]", s.Prop)
	return sb.String()
}

func writeExprs(sb *strings.Builder, label string, es []expr.Expr) {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	fmt.Fprintf(sb, "\t%s %s\n", label, strings.Join(parts, ", "))
}

// Action is the transition relation as one expression action: every
// variable moves one version per step.
type Action struct {
	e expr.Expr
}

func (a *Action) ToExpr() expr.Expr { return a.e }

func (a *Action) NextIndexing() expr.VarIndexing { return expr.AllIndexing(1) }

func (a *Action) String() string { return "trans" }

// Builder collects the constraints of an STS. Conjunctions are split and
// duplicate constraints are kept once.
type Builder struct {
	init, invar, trans []expr.Expr
	seen               map[string]struct{}
	prop               expr.Expr
}

func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

func (b *Builder) add(kind string, dst *[]expr.Expr, es []expr.Expr) {
	for _, e := range es {
		for _, c := range expr.Conjuncts(e) {
			key := kind + "\x00" + c.String()
			if _, ok := b.seen[key]; ok {
				continue
			}
			b.seen[key] = struct{}{}
			*dst = append(*dst, c)
		}
	}
}

func (b *Builder) AddInit(es ...expr.Expr) *Builder {
	b.add("init", &b.init, es)
	return b
}

func (b *Builder) AddInvar(es ...expr.Expr) *Builder {
	b.add("invar", &b.invar, es)
	return b
}

func (b *Builder) AddTrans(es ...expr.Expr) *Builder {
	b.add("trans", &b.trans, es)
	return b
}

func (b *Builder) SetProp(e expr.Expr) *Builder {
	b.prop = e
	return b
}

// Build collects the variables of all constraints, sorted by name.
func (b *Builder) Build() (*STS, error) {
	if b.prop == nil {
		return nil, ErrNoProp
	}
	seen := make(map[*expr.Decl]struct{})
	var vars []*expr.Decl
	collect := func(es ...expr.Expr) {
		for _, e := range es {
			for _, v := range expr.Vars(e) {
				if _, ok := seen[v]; !ok {
					seen[v] = struct{}{}
					vars = append(vars, v)
				}
			}
		}
	}
	collect(b.init...)
	collect(b.invar...)
	collect(b.trans...)
	collect(b.prop)
	expr.SortDecls(vars)
	return &STS{Vars: vars, Init: b.init, Invar: b.invar, Trans: b.trans, Prop: b.prop}, nil
}
