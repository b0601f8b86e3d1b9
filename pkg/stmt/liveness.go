package stmt

import "github.com/l3aro/go-cegar/pkg/expr"

// VarSet is a set of variables.
type VarSet map[*expr.Decl]struct{}

// Has reports whether v is in the set.
func (s VarSet) Has(v *expr.Decl) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members ordered by name.
func (s VarSet) Sorted() []*expr.Decl {
	out := make([]*expr.Decl, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	expr.SortDecls(out)
	return out
}

func (s VarSet) clone() VarSet {
	out := make(VarSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func (s VarSet) addAll(vs []*expr.Decl) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s VarSet) removeAll(vs []*expr.Decl) {
	for _, v := range vs {
		delete(s, v)
	}
}

// FutureLive returns, for each of the len(blocks)+1 positions between
// blocks, the variables whose current value may still be read later on.
func FutureLive(blocks [][]Stmt) []VarSet {
	out := make([]VarSet, len(blocks)+1)
	out[len(blocks)] = VarSet{}
	for i := len(blocks) - 1; i >= 0; i-- {
		live := out[i+1].clone()
		for j := len(blocks[i]) - 1; j >= 0; j-- {
			s := blocks[i][j]
			live.removeAll(Writes(s))
			live.removeAll(Havocs(s))
			live.addAll(Reads(s))
		}
		out[i] = live
	}
	return out
}

// PastLive returns, for each position between blocks, the variables whose
// current value has been constrained by an earlier statement.
func PastLive(blocks [][]Stmt) []VarSet {
	out := make([]VarSet, len(blocks)+1)
	out[0] = VarSet{}
	for i, block := range blocks {
		live := out[i].clone()
		for _, s := range block {
			live.addAll(Reads(s))
			live.addAll(Writes(s))
			live.removeAll(Havocs(s))
		}
		out[i+1] = live
	}
	return out
}
