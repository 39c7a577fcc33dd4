// Package interval builds per-sample uncertainty intervals for a measurement
// channel and removes a fitted linear drift from them. It also provides the
// envelope and histogram helpers used when comparing two channels.
package interval

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when samples, weights or the half-width scale
// cannot produce well-formed intervals.
var ErrInvalidInput = errors.New("invalid input")

// Interval is a closed range [Lo, Hi] describing the uncertainty of one
// sample. Lo <= Hi holds for every interval produced by this package.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Width returns Hi - Lo.
func (iv Interval) Width() float64 {
	return iv.Hi - iv.Lo
}

// Mid returns the centre of the interval.
func (iv Interval) Mid() float64 {
	return (iv.Lo + iv.Hi) / 2
}

// Contains reports whether x lies inside the closed interval.
func (iv Interval) Contains(x float64) bool {
	return x >= iv.Lo && x <= iv.Hi
}

// Empty reports whether the interval is inverted. Only envelopes returned by
// Intersection can be empty.
func (iv Interval) Empty() bool {
	return iv.Lo > iv.Hi
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g]", iv.Lo, iv.Hi)
}

// DriftModel is a fitted line value(n) = Intercept + Slope*n over the 1-based
// sample index n. It is estimated upstream; this package only applies it.
type DriftModel struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// At evaluates the fitted line at sample index n.
func (d DriftModel) At(n int) float64 {
	return d.Intercept + d.Slope*float64(n)
}

// Build returns one interval [s - eps*w, s + eps*w] per sample.
// samples and weights must have the same length, eps must be positive and
// every weight must be a finite non-negative number. A zero weight yields a
// point interval.
func Build(samples, weights []float64, eps float64) ([]Interval, error) {
	if len(samples) != len(weights) {
		return nil, fmt.Errorf("%w: %d samples but %d weights", ErrInvalidInput, len(samples), len(weights))
	}
	if err := checkEps(eps); err != nil {
		return nil, err
	}

	out := make([]Interval, len(samples))
	for i, s := range samples {
		w := weights[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight %d is %g, must be finite and non-negative", ErrInvalidInput, i, w)
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: sample %d is %g", ErrInvalidInput, i, s)
		}
		half := eps * w
		out[i] = Interval{Lo: s - half, Hi: s + half}
	}
	return out, nil
}

// BuildUniform returns [s - eps, s + eps] for every sample, i.e. Build with
// all weights equal to one.
func BuildUniform(samples []float64, eps float64) ([]Interval, error) {
	weights := make([]float64, len(samples))
	for i := range weights {
		weights[i] = 1
	}
	return Build(samples, weights, eps)
}

func checkEps(eps float64) error {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		return fmt.Errorf("%w: eps must be a positive finite number, got %g", ErrInvalidInput, eps)
	}
	return nil
}

// ApplyDriftCorrection subtracts drift.Slope*n from both bounds of the n-th
// interval (n is 1-based). The intercept is left in place so the corrected
// intervals sit around the drift-free baseline. The input is not modified.
func ApplyDriftCorrection(ivs []Interval, drift DriftModel) []Interval {
	out := make([]Interval, len(ivs))
	for i, iv := range ivs {
		shift := drift.Slope * float64(i+1)
		out[i] = Interval{Lo: iv.Lo - shift, Hi: iv.Hi - shift}
	}
	return out
}

// Scale multiplies both bounds of every interval by r. A negative r swaps the
// bounds so that Lo <= Hi still holds.
func Scale(ivs []Interval, r float64) []Interval {
	out := make([]Interval, len(ivs))
	for i, iv := range ivs {
		lo, hi := iv.Lo*r, iv.Hi*r
		if r < 0 {
			lo, hi = hi, lo
		}
		out[i] = Interval{Lo: lo, Hi: hi}
	}
	return out
}

// Intersection returns [max lo, min hi] over every interval of every set.
// The result is inverted (Empty) when the intervals do not share a common
// point. ok is false when the combined set has no intervals.
func Intersection(sets ...[]Interval) (inner Interval, ok bool) {
	inner = Interval{Lo: math.Inf(-1), Hi: math.Inf(1)}
	for _, set := range sets {
		for _, iv := range set {
			inner.Lo = math.Max(inner.Lo, iv.Lo)
			inner.Hi = math.Min(inner.Hi, iv.Hi)
			ok = true
		}
	}
	if !ok {
		return Interval{}, false
	}
	return inner, true
}

// Union returns the outer envelope [min lo, max hi] over every interval of
// every set. ok is false when the combined set has no intervals.
func Union(sets ...[]Interval) (outer Interval, ok bool) {
	outer = Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, set := range sets {
		for _, iv := range set {
			outer.Lo = math.Min(outer.Lo, iv.Lo)
			outer.Hi = math.Max(outer.Hi, iv.Hi)
			ok = true
		}
	}
	if !ok {
		return Interval{}, false
	}
	return outer, true
}

// Concat returns a new slice holding the intervals of every set in order.
func Concat(sets ...[]Interval) []Interval {
	n := 0
	for _, set := range sets {
		n += len(set)
	}
	out := make([]Interval, 0, n)
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}

// Midpoints returns the centre of each interval.
func Midpoints(ivs []Interval) []float64 {
	out := make([]float64, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.Mid()
	}
	return out
}
