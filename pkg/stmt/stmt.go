// Package stmt provides the statement language labelling control-flow edges
// together with its symbolic semantics: conversion to SSA-indexed transition
// formulas, strongest postconditions and weakest preconditions.
package stmt

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/expr"
)

// Stmt is one of AssignStmt, AssumeStmt, HavocStmt or SkipStmt.
type Stmt interface {
	String() string
	isStmt()
}

// AssignStmt sets Var to the value of Value.
type AssignStmt struct {
	Var   *expr.Decl
	Value expr.Expr
}

// AssumeStmt blocks unless Cond holds.
type AssumeStmt struct {
	Cond expr.Expr
}

// HavocStmt sets Var to an arbitrary value.
type HavocStmt struct {
	Var *expr.Decl
}

// SkipStmt does nothing.
type SkipStmt struct{}

func (*AssignStmt) isStmt() {}
func (*AssumeStmt) isStmt() {}
func (*HavocStmt) isStmt()  {}
func (*SkipStmt) isStmt()   {}

func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s", s.Var.Name(), s.Value) }
func (s *AssumeStmt) String() string { return fmt.Sprintf("assume(%s)", s.Cond) }
func (s *HavocStmt) String() string  { return fmt.Sprintf("havoc(%s)", s.Var.Name()) }
func (*SkipStmt) String() string     { return "skip" }

func Assign(v *expr.Decl, e expr.Expr) *AssignStmt { return &AssignStmt{Var: v, Value: e} }
func Assume(c expr.Expr) *AssumeStmt               { return &AssumeStmt{Cond: c} }
func Havoc(v *expr.Decl) *HavocStmt                { return &HavocStmt{Var: v} }
func Skip() *SkipStmt                              { return &SkipStmt{} }

// Reads returns the variables read by s.
func Reads(s Stmt) []*expr.Decl {
	switch s := s.(type) {
	case *AssignStmt:
		return expr.Vars(s.Value)
	case *AssumeStmt:
		return expr.Vars(s.Cond)
	default:
		return nil
	}
}

// Writes returns the variable assigned by s, if any.
func Writes(s Stmt) []*expr.Decl {
	if a, ok := s.(*AssignStmt); ok {
		return []*expr.Decl{a.Var}
	}
	return nil
}

// Havocs returns the variable havocked by s, if any.
func Havocs(s Stmt) []*expr.Decl {
	if h, ok := s.(*HavocStmt); ok {
		return []*expr.Decl{h.Var}
	}
	return nil
}
