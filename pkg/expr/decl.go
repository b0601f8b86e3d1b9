// Package expr provides the symbolic expression language used by the
// analyses and refiners: typed declarations, a closed set of expression
// variants, simplification, evaluation under valuations and SSA-style
// indexing of variables along a path.
package expr

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Type is the sort of a declaration or expression.
type Type int

const (
	BoolType Type = iota + 1
	IntType
)

func (t Type) String() string {
	switch t {
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	default:
		return "unknown"
	}
}

// ParseType converts a type name as written in model files.
func ParseType(s string) (Type, error) {
	switch s {
	case "bool":
		return BoolType, nil
	case "int":
		return IntType, nil
	default:
		return 0, fmt.Errorf("unknown type %q (must be 'bool' or 'int')", s)
	}
}

// DeclKind distinguishes program variables, which get indexed along a path,
// from constants, which never do.
type DeclKind int

const (
	VarKind DeclKind = iota
	ConstKind
)

// Decl is a named, typed symbol. Declarations are compared by identity.
type Decl struct {
	name string
	typ  Type
	kind DeclKind

	// set for the indexed constants derived from a variable
	base  *Decl
	index int

	ref *RefExpr

	mu      sync.Mutex
	indexed map[int]*Decl
}

var freshCounter atomic.Int64

// NewVar declares a program variable.
func NewVar(name string, typ Type) *Decl {
	return newDecl(name, typ, VarKind)
}

// NewConst declares a constant symbol.
func NewConst(name string, typ Type) *Decl {
	return newDecl(name, typ, ConstKind)
}

// Fresh declares a constant whose name is unique within the process.
func Fresh(prefix string, typ Type) *Decl {
	n := freshCounter.Add(1)
	return newDecl(fmt.Sprintf("%s!%d", prefix, n), typ, ConstKind)
}

func newDecl(name string, typ Type, kind DeclKind) *Decl {
	d := &Decl{name: name, typ: typ, kind: kind}
	d.ref = &RefExpr{Decl: d}
	return d
}

func (d *Decl) Name() string   { return d.name }
func (d *Decl) Type() Type     { return d.typ }
func (d *Decl) Kind() DeclKind { return d.kind }
func (d *Decl) IsVar() bool    { return d.kind == VarKind }
func (d *Decl) String() string { return d.name }

// Ref returns the reference expression of the declaration.
func (d *Decl) Ref() *RefExpr { return d.ref }

// Indexed returns the constant standing for the i-th version of a variable.
// The same constant is returned for repeated calls.
func (d *Decl) Indexed(i int) *Decl {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexed == nil {
		d.indexed = make(map[int]*Decl)
	}
	if c, ok := d.indexed[i]; ok {
		return c
	}
	c := newDecl(fmt.Sprintf("%s_%d", d.name, i), d.typ, ConstKind)
	c.base = d
	c.index = i
	d.indexed[i] = c
	return c
}

// Base returns the variable an indexed constant was derived from and its
// index, or false for any other declaration.
func (d *Decl) Base() (*Decl, int, bool) {
	if d.base == nil {
		return nil, 0, false
	}
	return d.base, d.index, true
}
