package bitblast

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// circuit is a hash-consed and-inverter graph whose gates are emitted to a
// gini instance as Tseitin clauses on creation. Gate definitions are
// unconditional, so they stay valid across scopes.
type circuit struct {
	g     *gini.Gini
	width int
	t     z.Lit
	ands  map[[2]z.Lit]z.Lit
}

type bitvec []z.Lit

func newCircuit(width int) *circuit {
	c := &circuit{
		g:     gini.New(),
		width: width,
		ands:  make(map[[2]z.Lit]z.Lit),
	}
	c.t = c.g.Lit()
	c.clause(c.t)
	return c
}

func (c *circuit) f() z.Lit { return c.t.Not() }

func (c *circuit) fresh() z.Lit { return c.g.Lit() }

func (c *circuit) clause(ms ...z.Lit) {
	for _, m := range ms {
		c.g.Add(m)
	}
	c.g.Add(z.LitNull)
}

func (c *circuit) and(a, b z.Lit) z.Lit {
	switch {
	case a == c.f() || b == c.f() || a == b.Not():
		return c.f()
	case a == c.t || a == b:
		return b
	case b == c.t:
		return a
	}
	if a > b {
		a, b = b, a
	}
	key := [2]z.Lit{a, b}
	if m, ok := c.ands[key]; ok {
		return m
	}
	m := c.fresh()
	c.clause(m.Not(), a)
	c.clause(m.Not(), b)
	c.clause(a.Not(), b.Not(), m)
	c.ands[key] = m
	return m
}

func (c *circuit) or(a, b z.Lit) z.Lit { return c.and(a.Not(), b.Not()).Not() }

func (c *circuit) xor(a, b z.Lit) z.Lit { return c.and(c.or(a, b), c.and(a, b).Not()) }

func (c *circuit) iff(a, b z.Lit) z.Lit { return c.xor(a, b).Not() }

func (c *circuit) mux(s, a, b z.Lit) z.Lit { return c.or(c.and(s, a), c.and(s.Not(), b)) }

func (c *circuit) andAll(ms []z.Lit) z.Lit {
	acc := c.t
	for _, m := range ms {
		acc = c.and(acc, m)
	}
	return acc
}

func (c *circuit) freshVec() bitvec {
	v := make(bitvec, c.width)
	for i := range v {
		v[i] = c.fresh()
	}
	return v
}

func (c *circuit) constVec(val int64) bitvec {
	v := make(bitvec, c.width)
	for i := range v {
		if (val>>uint(i))&1 == 1 {
			v[i] = c.t
		} else {
			v[i] = c.f()
		}
	}
	return v
}

func (c *circuit) notVec(a bitvec) bitvec {
	out := make(bitvec, len(a))
	for i, m := range a {
		out[i] = m.Not()
	}
	return out
}

// addVec is a ripple-carry adder truncated to the width.
func (c *circuit) addVec(a, b bitvec, carry z.Lit) bitvec {
	out := make(bitvec, c.width)
	for i := range out {
		ab := c.xor(a[i], b[i])
		out[i] = c.xor(ab, carry)
		carry = c.or(c.and(a[i], b[i]), c.and(carry, ab))
	}
	return out
}

func (c *circuit) subVec(a, b bitvec) bitvec { return c.addVec(a, c.notVec(b), c.t) }

func (c *circuit) negVec(a bitvec) bitvec { return c.subVec(c.constVec(0), a) }

// mulVec is a shift-and-add multiplier truncated to the width.
func (c *circuit) mulVec(a, b bitvec) bitvec {
	acc := c.constVec(0)
	for i := 0; i < c.width; i++ {
		partial := c.constVec(0)
		for j := 0; i+j < c.width; j++ {
			partial[i+j] = c.and(a[j], b[i])
		}
		acc = c.addVec(acc, partial, c.f())
	}
	return acc
}

func (c *circuit) muxVec(s z.Lit, a, b bitvec) bitvec {
	out := make(bitvec, c.width)
	for i := range out {
		out[i] = c.mux(s, a[i], b[i])
	}
	return out
}

func (c *circuit) eqVec(a, b bitvec) z.Lit {
	eqs := make([]z.Lit, len(a))
	for i := range a {
		eqs[i] = c.iff(a[i], b[i])
	}
	return c.andAll(eqs)
}

// ultVec is unsigned less-than, scanning from the least significant bit.
func (c *circuit) ultVec(a, b bitvec) z.Lit {
	lt := c.f()
	for i := range a {
		lt = c.or(c.and(a[i].Not(), b[i]), c.and(c.iff(a[i], b[i]), lt))
	}
	return lt
}

// sltVec is signed less-than: flipping the sign bits reduces it to the
// unsigned comparison.
func (c *circuit) sltVec(a, b bitvec) z.Lit {
	msb := c.width - 1
	fa := append(bitvec(nil), a...)
	fb := append(bitvec(nil), b...)
	fa[msb], fb[msb] = a[msb].Not(), b[msb].Not()
	return c.ultVec(fa, fb)
}

// decode reads a signed value from the current model.
func (c *circuit) decode(v bitvec) int64 {
	var val uint64
	for i, m := range v {
		if c.g.Value(m) {
			val |= 1 << uint(i)
		}
	}
	shift := uint(64 - c.width)
	return int64(val<<shift) >> shift
}

func (c *circuit) minInt() int64 { return -(int64(1) << uint(c.width-1)) }
func (c *circuit) maxInt() int64 { return int64(1)<<uint(c.width-1) - 1 }
