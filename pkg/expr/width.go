package expr

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for integer literals wider than the integer sort.
var ErrOutOfRange = errors.New("integer literal out of range")

// Width is the bit width of the integer sort. Integers are two's complement
// and arithmetic wraps around modulo 2^Width.
type Width int

// MaxWidth is the width of int64.
const MaxWidth Width = 64

// Min returns the smallest representable integer.
func (w Width) Min() int64 {
	if w >= MaxWidth {
		return -1 << 63
	}
	return -1 << (w - 1)
}

// Max returns the largest representable integer.
func (w Width) Max() int64 {
	if w >= MaxWidth {
		return 1<<63 - 1
	}
	return 1<<(w-1) - 1
}

// Fits reports whether v is representable without wrapping.
func (w Width) Fits(v int64) bool { return v >= w.Min() && v <= w.Max() }

// Wrap reduces v modulo 2^w into [w.Min(), w.Max()].
func (w Width) Wrap(v int64) int64 {
	if w >= MaxWidth {
		return v
	}
	shift := uint(MaxWidth - w)
	return v << shift >> shift
}

// PartialEval substitutes the valuation into e and simplifies at width w.
func (w Width) PartialEval(e Expr, v Valuation) Expr {
	return w.Simplify(Substitute(e, v.values))
}

// Eval evaluates e to a literal under v at width w.
func (w Width) Eval(e Expr, v Valuation) (Expr, error) {
	r := w.PartialEval(e, v)
	switch r.(type) {
	case *BoolLit, *IntLit:
		return r, nil
	}
	return nil, fmt.Errorf("evaluating %s: %w", e, ErrNotEvaluable)
}

// CheckLiterals returns an error naming the first integer literal of e that
// does not fit in w.
func (w Width) CheckLiterals(e Expr) error {
	if lit := w.outOfRange(e); lit != nil {
		return fmt.Errorf("literal %d in %s does not fit in %d-bit integers: %w", lit.Value, e, w, ErrOutOfRange)
	}
	return nil
}

func (w Width) outOfRange(e Expr) *IntLit {
	if lit, ok := e.(*IntLit); ok && !w.Fits(lit.Value) {
		return lit
	}
	for _, c := range Children(e) {
		if lit := w.outOfRange(c); lit != nil {
			return lit
		}
	}
	return nil
}
