package expr

import (
	"fmt"
	"strings"
)

// VarIndexing maps each variable to its current SSA version along a path.
// Variables without an explicit entry have the default index. The zero
// value maps every variable to 0.
type VarIndexing struct {
	def     int
	indices map[*Decl]int
}

// AllIndexing maps every variable to n.
func AllIndexing(n int) VarIndexing {
	return VarIndexing{def: n}
}

// Get returns the index of d.
func (vi VarIndexing) Get(d *Decl) int {
	if i, ok := vi.indices[d]; ok {
		return i
	}
	return vi.def
}

// Inc returns a copy with the index of d increased by n.
func (vi VarIndexing) Inc(d *Decl, n int) VarIndexing {
	out := vi.clone()
	out.indices[d] = vi.Get(d) + n
	return out
}

// Add returns the pointwise sum of two indexings.
func (vi VarIndexing) Add(o VarIndexing) VarIndexing {
	return vi.combine(o, func(a, b int) int { return a + b })
}

// Sub returns the pointwise difference of two indexings.
func (vi VarIndexing) Sub(o VarIndexing) VarIndexing {
	return vi.combine(o, func(a, b int) int { return a - b })
}

// Join returns the pointwise maximum of two indexings.
func (vi VarIndexing) Join(o VarIndexing) VarIndexing {
	return vi.combine(o, func(a, b int) int { return max(a, b) })
}

func (vi VarIndexing) combine(o VarIndexing, fn func(a, b int) int) VarIndexing {
	out := VarIndexing{def: fn(vi.def, o.def), indices: make(map[*Decl]int)}
	for d := range vi.indices {
		out.indices[d] = fn(vi.Get(d), o.Get(d))
	}
	for d := range o.indices {
		out.indices[d] = fn(vi.Get(d), o.Get(d))
	}
	return out
}

func (vi VarIndexing) clone() VarIndexing {
	out := VarIndexing{def: vi.def, indices: make(map[*Decl]int, len(vi.indices)+1)}
	for d, i := range vi.indices {
		out.indices[d] = i
	}
	return out
}

func (vi VarIndexing) String() string {
	decls := make([]*Decl, 0, len(vi.indices))
	for d := range vi.indices {
		decls = append(decls, d)
	}
	SortDecls(decls)
	var sb strings.Builder
	fmt.Fprintf(&sb, "[default=%d", vi.def)
	for _, d := range decls {
		fmt.Fprintf(&sb, ", %s=%d", d.name, vi.indices[d])
	}
	sb.WriteByte(']')
	return sb.String()
}
