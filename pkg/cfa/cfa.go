// Package cfa provides control-flow automata: locations connected by
// edges labeled with statement sequences, with distinguished initial,
// final and error locations.
package cfa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/stmt"
)

var (
	ErrNoInitLoc    = errors.New("cfa: initial location is required")
	ErrNoErrorLoc   = errors.New("cfa: error location is required")
	ErrDuplicateLoc = errors.New("cfa: duplicate location")
	ErrForeignLoc   = errors.New("cfa: location belongs to another automaton")
)

// Loc is a control location.
type Loc struct {
	Name     string
	owner    *Builder
	inEdges  []*Edge
	outEdges []*Edge
}

func (l *Loc) InEdges() []*Edge  { return l.inEdges }
func (l *Loc) OutEdges() []*Edge { return l.outEdges }
func (l *Loc) String() string    { return l.Name }

// Edge moves control from Source to Target while executing Stmts.
type Edge struct {
	Source *Loc
	Target *Loc
	Stmts  []stmt.Stmt
}

func (e *Edge) String() string {
	parts := make([]string, len(e.Stmts))
	for i, s := range e.Stmts {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s -> %s [%s]", e.Source, e.Target, strings.Join(parts, "; "))
}

// CFA is an immutable control-flow automaton.
type CFA struct {
	Vars  []*expr.Decl
	Locs  []*Loc
	Edges []*Edge
	Init  *Loc
	Final *Loc
	Error *Loc
}

// Loc returns the location with the given name.
func (c *CFA) Loc(name string) (*Loc, bool) {
	for _, l := range c.Locs {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

func (c *CFA) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CFA [init=%s, final=%v, error=%s]\n", c.Init, c.Final, c.Error)
	for _, e := range c.Edges {
		fmt.Fprintf(&sb, "\t%s\n", e)
	}
	return sb.String()
}

// Builder assembles a CFA.
type Builder struct {
	locs  []*Loc
	names map[string]*Loc
	edges []*Edge
	init  *Loc
	final *Loc
	error *Loc
}

func NewBuilder() *Builder {
	return &Builder{names: make(map[string]*Loc)}
}

func (b *Builder) CreateLoc(name string) (*Loc, error) {
	if _, ok := b.names[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLoc, name)
	}
	l := &Loc{Name: name, owner: b}
	b.locs = append(b.locs, l)
	b.names[name] = l
	return l, nil
}

func (b *Builder) CreateEdge(source, target *Loc, stmts ...stmt.Stmt) (*Edge, error) {
	if source.owner != b || target.owner != b {
		return nil, ErrForeignLoc
	}
	e := &Edge{Source: source, Target: target, Stmts: stmts}
	source.outEdges = append(source.outEdges, e)
	target.inEdges = append(target.inEdges, e)
	b.edges = append(b.edges, e)
	return e, nil
}

func (b *Builder) SetInit(l *Loc)  { b.init = l }
func (b *Builder) SetFinal(l *Loc) { b.final = l }
func (b *Builder) SetError(l *Loc) { b.error = l }

// Build checks the distinguished locations and collects the variables of
// all statements. The final location is optional.
func (b *Builder) Build() (*CFA, error) {
	if b.init == nil {
		return nil, ErrNoInitLoc
	}
	if b.error == nil {
		return nil, ErrNoErrorLoc
	}
	for _, l := range []*Loc{b.init, b.final, b.error} {
		if l != nil && l.owner != b {
			return nil, fmt.Errorf("%w: %s", ErrForeignLoc, l.Name)
		}
	}
	seen := make(map[*expr.Decl]struct{})
	var vars []*expr.Decl
	for _, e := range b.edges {
		for _, s := range e.Stmts {
			for _, group := range [][]*expr.Decl{stmt.Reads(s), stmt.Writes(s), stmt.Havocs(s)} {
				for _, v := range group {
					if _, ok := seen[v]; !ok {
						seen[v] = struct{}{}
						vars = append(vars, v)
					}
				}
			}
		}
	}
	expr.SortDecls(vars)
	return &CFA{
		Vars:  vars,
		Locs:  append([]*Loc(nil), b.locs...),
		Edges: append([]*Edge(nil), b.edges...),
		Init:  b.init,
		Final: b.final,
		Error: b.error,
	}, nil
}
