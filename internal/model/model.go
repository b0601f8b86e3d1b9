// Package model loads verification models from YAML files. Expressions and
// statements inside a model are written in Go syntax.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-cegar/pkg/cfa"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/stmt"
	"github.com/l3aro/go-cegar/pkg/sts"
)

var (
	// ErrInvalidModel reports a structurally invalid model file.
	ErrInvalidModel = errors.New("invalid model")
	// ErrSyntax reports an expression or statement that does not parse.
	ErrSyntax = errors.New("syntax error")
	// ErrUndeclared reports a reference to an undeclared variable.
	ErrUndeclared = errors.New("undeclared variable")
	// ErrType reports an ill-typed expression.
	ErrType = errors.New("type mismatch")
	// ErrUnsupported reports Go syntax outside the model language.
	ErrUnsupported = errors.New("unsupported construct")
)

// Kind is the formalism of a model.
type Kind string

const (
	KindSTS Kind = "sts"
	KindCFA Kind = "cfa"
)

// VarSpec declares a variable.
type VarSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// EdgeSpec is a CFA edge.
type EdgeSpec struct {
	From  string   `yaml:"from"`
	To    string   `yaml:"to"`
	Stmts []string `yaml:"stmts,omitempty"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*l = StringList{n.Value}
		return nil
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		return err
	}
	*l = out
	return nil
}

// File is the on-disk form of a model.
type File struct {
	Kind  Kind       `yaml:"kind"`
	Vars  []VarSpec  `yaml:"vars"`
	Init  StringList `yaml:"init"`
	Invar []string   `yaml:"invar,omitempty"`
	Trans []string   `yaml:"trans,omitempty"`
	Prop  string     `yaml:"prop,omitempty"`
	Locs  []string   `yaml:"locs,omitempty"`
	Final string     `yaml:"final,omitempty"`
	Error string     `yaml:"error,omitempty"`
	Edges []EdgeSpec `yaml:"edges,omitempty"`
}

// Model is a loaded model. Exactly one of STS and CFA is set.
type Model struct {
	Kind  Kind
	Vars  []*expr.Decl
	Scope Scope
	STS   *sts.STS
	CFA   *cfa.CFA
	// Hash identifies the file content.
	Hash string
}

// Formulas returns every expression of the model: the init, invariant,
// transition and property formulas of an STS, or the statement operands of
// a CFA.
func (m *Model) Formulas() []expr.Expr {
	var out []expr.Expr
	if m.STS != nil {
		out = append(out, m.STS.Init...)
		out = append(out, m.STS.Invar...)
		out = append(out, m.STS.Trans...)
		out = append(out, m.STS.Prop)
	}
	if m.CFA != nil {
		for _, e := range m.CFA.Edges {
			for _, st := range e.Stmts {
				switch st := st.(type) {
				case *stmt.AssignStmt:
					out = append(out, st.Value)
				case *stmt.AssumeStmt:
					out = append(out, st.Cond)
				}
			}
		}
	}
	return out
}

// Load reads and parses a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return m, nil
}

// Parse parses a model document.
func Parse(data []byte) (*Model, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	sum := sha256.Sum256(data)
	m, err := f.Build()
	if err != nil {
		return nil, err
	}
	m.Hash = hex.EncodeToString(sum[:])
	return m, nil
}

// Build declares the variables and builds the formalism.
func (f *File) Build() (*Model, error) {
	m := &Model{Kind: f.Kind}
	m.Scope = make(Scope, len(f.Vars))
	for _, v := range f.Vars {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: variable without a name", ErrInvalidModel)
		}
		if _, ok := m.Scope[v.Name]; ok {
			return nil, fmt.Errorf("%w: variable %s declared twice", ErrInvalidModel, v.Name)
		}
		typ, err := expr.ParseType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %s: %v", ErrInvalidModel, v.Name, err)
		}
		d := expr.NewVar(v.Name, typ)
		m.Scope[v.Name] = d
		m.Vars = append(m.Vars, d)
	}

	var err error
	switch f.Kind {
	case KindSTS:
		m.STS, err = f.buildSTS(m.Scope)
	case KindCFA:
		m.CFA, err = f.buildCFA(m.Scope)
	default:
		err = fmt.Errorf("%w: kind must be %q or %q, got %q", ErrInvalidModel, KindSTS, KindCFA, f.Kind)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (f *File) buildSTS(scope Scope) (*sts.STS, error) {
	if f.Prop == "" {
		return nil, fmt.Errorf("%w: sts needs a prop", ErrInvalidModel)
	}
	b := sts.NewBuilder()
	for _, src := range f.Init {
		e, err := scope.ParseBoolExpr(src)
		if err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
		b.AddInit(e)
	}
	for _, src := range f.Invar {
		e, err := scope.ParseBoolExpr(src)
		if err != nil {
			return nil, fmt.Errorf("invar: %w", err)
		}
		b.AddInvar(e)
	}
	for _, src := range f.Trans {
		e, err := scope.ParseBoolExpr(src)
		if err != nil {
			return nil, fmt.Errorf("trans: %w", err)
		}
		b.AddTrans(e)
	}
	prop, err := scope.ParseBoolExpr(f.Prop)
	if err != nil {
		return nil, fmt.Errorf("prop: %w", err)
	}
	b.SetProp(prop)
	return b.Build()
}

func (f *File) buildCFA(scope Scope) (*cfa.CFA, error) {
	if len(f.Init) != 1 {
		return nil, fmt.Errorf("%w: cfa needs exactly one init location", ErrInvalidModel)
	}
	if f.Error == "" {
		return nil, fmt.Errorf("%w: cfa needs an error location", ErrInvalidModel)
	}
	b := cfa.NewBuilder()
	locs := make(map[string]*cfa.Loc, len(f.Locs))
	for _, name := range f.Locs {
		l, err := b.CreateLoc(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		locs[name] = l
	}
	loc := func(name string) (*cfa.Loc, error) {
		l, ok := locs[name]
		if !ok {
			return nil, fmt.Errorf("%w: undeclared location %q", ErrInvalidModel, name)
		}
		return l, nil
	}

	for i, e := range f.Edges {
		from, err := loc(e.From)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		to, err := loc(e.To)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		stmts := make([]stmt.Stmt, 0, len(e.Stmts))
		for _, src := range e.Stmts {
			s, err := scope.ParseStmt(src)
			if err != nil {
				return nil, fmt.Errorf("edge %d: %w", i, err)
			}
			stmts = append(stmts, s)
		}
		if _, err := b.CreateEdge(from, to, stmts...); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	init, err := loc(f.Init[0])
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	b.SetInit(init)
	errLoc, err := loc(f.Error)
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}
	b.SetError(errLoc)
	if f.Final != "" {
		final, err := loc(f.Final)
		if err != nil {
			return nil, fmt.Errorf("final: %w", err)
		}
		b.SetFinal(final)
	}
	return b.Build()
}
