// Package overlap scores how well two channels' uncertainty intervals agree
// once one channel is multiplied by a scale factor R, and searches R for the
// best agreement and for the edges of the region where every interval still
// overlaps every other.
//
// The score is a Jaccard-style ratio over the combined interval set:
//
//	JK = (min hi - max lo) / (max hi - min lo)
//
// It is positive while all intervals share a common point and crosses zero
// where that common part shrinks to a single point.
package overlap

import (
	"fmt"
	"math"

	"github.com/banshee-data/rcal/internal/interval"
)

// Ratio returns the overlap ratio of the combined set scaledA ∪ b.
// An empty combined set returns ErrInvalidInput and a zero-width union
// returns ErrDegenerateInterval. The ratio is negative when the intervals
// have no common point.
func Ratio(scaledA, b []interval.Interval) (float64, error) {
	inner, ok := interval.Intersection(scaledA, b)
	if !ok {
		return 0, fmt.Errorf("%w: overlap ratio of an empty interval set", ErrInvalidInput)
	}
	outer, _ := interval.Union(scaledA, b)
	return ratio(inner, outer)
}

func ratio(inner, outer interval.Interval) (float64, error) {
	span := outer.Width()
	if span == 0 {
		return 0, fmt.Errorf("%w: union envelope %v has zero width", ErrDegenerateInterval, outer)
	}
	jk := inner.Width() / span
	if math.IsNaN(jk) || math.IsInf(jk, 0) {
		return 0, fmt.Errorf("%w: ratio of %v over %v is %g", ErrDegenerateInterval, inner, outer, jk)
	}
	return jk, nil
}

// RatioAt returns Ratio(Scale(a, r), b).
func RatioAt(a, b []interval.Interval, r float64) (float64, error) {
	return Ratio(interval.Scale(a, r), b)
}

// Objective evaluates the overlap ratio as a function of R for a fixed pair
// of interval sets. The envelopes of both sets are reduced once, so each
// evaluation is O(1): scaling by r maps the extreme bounds of a onto the
// extreme bounds of the scaled set.
//
// An Objective is immutable and safe for concurrent use.
type Objective struct {
	n int

	// Envelopes of a: max lo, min hi, min lo, max hi.
	aMaxLo, aMinHi, aMinLo, aMaxHi float64
	hasA                           bool

	bInner, bOuter interval.Interval
	hasB           bool
}

// NewObjective prepares the ratio of Scale(a, R) ∪ b. At least one of the
// sets must be non-empty.
func NewObjective(a, b []interval.Interval) (*Objective, error) {
	o := &Objective{n: len(a) + len(b)}
	if o.n == 0 {
		return nil, fmt.Errorf("%w: both interval sets are empty", ErrInvalidInput)
	}

	if inner, ok := interval.Intersection(a); ok {
		outer, _ := interval.Union(a)
		o.aMaxLo, o.aMinHi = inner.Lo, inner.Hi
		o.aMinLo, o.aMaxHi = outer.Lo, outer.Hi
		o.hasA = true
	}
	if inner, ok := interval.Intersection(b); ok {
		o.bInner = inner
		o.bOuter, _ = interval.Union(b)
		o.hasB = true
	}
	return o, nil
}

// Len returns the number of intervals in the combined set.
func (o *Objective) Len() int {
	return o.n
}

// Eval returns the overlap ratio at scale factor r.
func (o *Objective) Eval(r float64) (float64, error) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("%w: scale factor %g", ErrInvalidInput, r)
	}

	inner := interval.Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}
	outer := interval.Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}
	if o.hasA {
		// Multiplying by a negative r reverses order, so the extremes swap.
		maxLo, minHi, minLo, maxHi := o.aMaxLo*r, o.aMinHi*r, o.aMinLo*r, o.aMaxHi*r
		if r < 0 {
			maxLo, minHi = o.aMinHi*r, o.aMaxLo*r
			minLo, maxHi = o.aMaxHi*r, o.aMinLo*r
		}
		inner = interval.Interval{Lo: maxLo, Hi: minHi}
		outer = interval.Interval{Lo: minLo, Hi: maxHi}
	}
	if o.hasB {
		inner.Lo = math.Max(inner.Lo, o.bInner.Lo)
		inner.Hi = math.Min(inner.Hi, o.bInner.Hi)
		outer.Lo = math.Min(outer.Lo, o.bOuter.Lo)
		outer.Hi = math.Max(outer.Hi, o.bOuter.Hi)
	}
	return ratio(inner, outer)
}

// Func is a scalar function of the scale factor, as consumed by the solvers.
type Func func(r float64) (float64, error)

// Func returns o.Eval as a Func.
func (o *Objective) Func() Func {
	return o.Eval
}

// RatioFunc returns the overlap ratio of Scale(a, R) ∪ b as a function of R.
func RatioFunc(a, b []interval.Interval) (Func, error) {
	o, err := NewObjective(a, b)
	if err != nil {
		return nil, err
	}
	return o.Eval, nil
}
