// Package scale contains the numeric building blocks shared by the passes:
// linear maps, easing curves and "nice" tick generation.
package scale

import (
	"math"
	"sort"
)

// Linear maps a continuous domain onto a continuous range.
// Both the domain and the range may be decreasing.
type Linear struct {
	d0, d1 float64
	r0, r1 float64

	clamp bool
}

// NewLinear returns a linear scale from [d0, d1] to [r0, r1].
func NewLinear(d0, d1, r0, r1 float64) *Linear {
	return &Linear{
		d0: d0,
		d1: d1,
		r0: r0,
		r1: r1,
	}
}

// NewClampedLinear returns a linear scale that never extrapolates
// outside of its range.
func NewClampedLinear(d0, d1, r0, r1 float64) *Linear {
	l := NewLinear(d0, d1, r0, r1)
	l.clamp = true
	return l
}

// Map returns the range value for x.
// A degenerate domain maps every input to the middle of the range.
func (l *Linear) Map(x float64) float64 {
	if l.d0 == l.d1 {
		return (l.r0 + l.r1) / 2
	}

	t := (x - l.d0) / (l.d1 - l.d0)
	if l.clamp {
		t = clamp01(t)
	}

	return l.r0 + t*(l.r1-l.r0)
}

// Lerp interpolates between a and b at t, without clamping.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clamp01(t float64) float64 {
	return Clamp(t, 0, 1)
}

// Piecewise is a linear interpolator over sorted (x, y) knots.
// Outside of the knots it extrapolates from the closest segment.
type Piecewise struct {
	xs []float64
	ys []float64
}

// NewPiecewise returns a piecewise linear interpolator.
// The xs must be sorted in increasing order and have the same length as ys.
func NewPiecewise(xs, ys []float64) *Piecewise {
	return &Piecewise{
		xs: xs,
		ys: ys,
	}
}

// At evaluates the interpolator at x.
func (p *Piecewise) At(x float64) float64 {
	n := len(p.xs)

	switch n {
	case 0:
		return math.NaN()
	case 1:
		return p.ys[0]
	}

	// Find the segment containing x
	i := min(max(sort.SearchFloat64s(p.xs, x), 1), n-1)

	x0, x1 := p.xs[i-1], p.xs[i]
	y0, y1 := p.ys[i-1], p.ys[i]

	if x == x1 || x1 == x0 {
		return y1
	}
	if x == x0 {
		return y0
	}

	return Lerp(y0, y1, (x-x0)/(x1-x0))
}

