package zone

import (
	"fmt"
	"strings"
)

// bound encodes a difference bound (c, <) as 2c and (c, <=) as 2c+1, so
// that bounds compare as integers.
type bound int64

const inf bound = 1 << 62

func le(c int64) bound { return bound(c<<1 | 1) }
func lt(c int64) bound { return bound(c << 1) }

func (b bound) value() int64 { return int64(b) >> 1 }
func (b bound) strict() bool { return b&1 == 0 }
func (b bound) isInf() bool  { return b >= inf }
func (b bound) String() string {
	switch {
	case b.isInf():
		return "inf"
	case b.strict():
		return fmt.Sprintf("<%d", b.value())
	default:
		return fmt.Sprintf("<=%d", b.value())
	}
}

func add(a, b bound) bound {
	if a.isInf() || b.isInf() {
		return inf
	}
	return bound((a.value()+b.value())<<1 | int64(a&b&1))
}

// dbm is a difference-bound matrix over n clocks plus the reference clock
// at index 0; m[i][j] bounds x_i - x_j.
type dbm struct {
	n int
	m [][]bound
}

func newDBM(n int, fill bound) *dbm {
	d := &dbm{n: n, m: make([][]bound, n+1)}
	for i := range d.m {
		d.m[i] = make([]bound, n+1)
		for j := range d.m[i] {
			d.m[i][j] = fill
		}
		d.m[i][i] = le(0)
	}
	return d
}

// topDBM has every clock non-negative and otherwise unconstrained.
func topDBM(n int) *dbm {
	d := newDBM(n, inf)
	for j := 1; j <= n; j++ {
		d.m[0][j] = le(0)
	}
	return d
}

// zeroDBM has every clock equal to zero.
func zeroDBM(n int) *dbm { return newDBM(n, le(0)) }

func (d *dbm) clone() *dbm {
	c := &dbm{n: d.n, m: make([][]bound, len(d.m))}
	for i := range d.m {
		c.m[i] = append([]bound(nil), d.m[i]...)
	}
	return c
}

// canonicalize tightens every bound with Floyd-Warshall.
func (d *dbm) canonicalize() {
	for k := 0; k <= d.n; k++ {
		for i := 0; i <= d.n; i++ {
			if d.m[i][k].isInf() {
				continue
			}
			for j := 0; j <= d.n; j++ {
				if s := add(d.m[i][k], d.m[k][j]); s < d.m[i][j] {
					d.m[i][j] = s
				}
			}
		}
	}
}

// consistent reports whether the canonical matrix is non-empty.
func (d *dbm) consistent() bool {
	for i := 0; i <= d.n; i++ {
		if d.m[i][i] < le(0) {
			return false
		}
	}
	return true
}

// up removes the upper bounds of all clocks.
func (d *dbm) up() {
	for i := 1; i <= d.n; i++ {
		d.m[i][0] = inf
	}
}

// reset sets clock x to v in a canonical matrix.
func (d *dbm) reset(x int, v int64) {
	for j := 0; j <= d.n; j++ {
		d.m[x][j] = add(le(v), d.m[0][j])
		d.m[j][x] = add(d.m[j][0], le(-v))
	}
	d.m[x][x] = le(0)
}

// free removes every constraint on clock x in a canonical matrix.
func (d *dbm) free(x int) {
	for j := 0; j <= d.n; j++ {
		if j == x {
			continue
		}
		d.m[x][j] = inf
		d.m[j][x] = d.m[j][0]
	}
}

// constrain intersects with x_i - x_j bounded by b and restores canonical
// form.
func (d *dbm) constrain(i, j int, b bound) {
	if b >= d.m[i][j] {
		return
	}
	d.m[i][j] = b
	d.canonicalize()
}

func (d *dbm) leq(o *dbm) bool {
	for i := range d.m {
		for j := range d.m[i] {
			if d.m[i][j] > o.m[i][j] {
				return false
			}
		}
	}
	return true
}

// join is the convex hull of two canonical matrices.
func (d *dbm) join(o *dbm) *dbm {
	c := d.clone()
	for i := range c.m {
		for j := range c.m[i] {
			c.m[i][j] = max(d.m[i][j], o.m[i][j])
		}
	}
	return c
}

// extrapolate widens bounds beyond the maximal constants k, indexed like
// the clocks with k[0] = 0, and restores canonical form.
func (d *dbm) extrapolate(k []int64) {
	changed := false
	for i := 0; i <= d.n; i++ {
		for j := 0; j <= d.n; j++ {
			if i == j || d.m[i][j].isInf() {
				continue
			}
			switch {
			case d.m[i][j] > le(k[i]):
				d.m[i][j] = inf
				changed = true
			case d.m[i][j] < lt(-k[j]):
				d.m[i][j] = lt(-k[j])
				changed = true
			}
		}
	}
	if changed {
		d.canonicalize()
	}
}

func (d *dbm) String() string {
	var sb strings.Builder
	for i, row := range d.m {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, b := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(b.String())
		}
	}
	return sb.String()
}
