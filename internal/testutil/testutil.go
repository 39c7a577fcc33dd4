// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the numeric assertions and synthetic channel data
// used by the interval, overlap and calibration tests.
package testutil

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/rcal/internal/interval"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// AssertClose fails the test if got and want differ by more than tol.
func AssertClose(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %.12g, want %.12g (tol %g)", name, got, want, tol)
	}
}

// Paired is a two-interval case with a closed-form overlap curve. With
// A = [1, 3] scaled by R and B = [2, 4]:
//
//	JK(R) = (3R-2)/(4-R)   for R <= 4/3
//	JK(R) = 1/R            for 4/3 <= R <= 2
//	JK(R) = (4-R)/(3R-2)   for R >= 2
//
// so the ratio peaks at R = 4/3 with value 3/4 and crosses zero at R = 2/3
// and R = 4.
var Paired = struct {
	A, B         []interval.Interval
	OptimumR     float64
	OptimumRatio float64
	MinR, MaxR   float64
	SampleA      float64
	SampleB      float64
	Eps          float64
	Ratio        func(r float64) float64
}{
	A:            []interval.Interval{{Lo: 1, Hi: 3}},
	B:            []interval.Interval{{Lo: 2, Hi: 4}},
	OptimumR:     4.0 / 3.0,
	OptimumRatio: 0.75,
	MinR:         2.0 / 3.0,
	MaxR:         4,
	SampleA:      2,
	SampleB:      3,
	Eps:          1,
	Ratio: func(r float64) float64 {
		switch {
		case r <= 4.0/3.0:
			return (3*r - 2) / (4 - r)
		case r <= 2:
			return 1 / r
		default:
			return (4 - r) / (3*r - 2)
		}
	},
}

// Channel is raw input for one synthetic instrument channel.
type Channel struct {
	Samples []float64
	Weights []float64
	Drift   interval.DriftModel
}

// SyntheticPair generates two channels of n samples whose drift-corrected
// intervals coincide exactly once the first is multiplied by ratio, so the
// overlap ratio peaks at ratio. The first channel's weights are 1/ratio so
// that scaling also matches the interval widths. Sample noise is a
// deterministic sine of amplitude noise around baseline.
func SyntheticPair(n int, ratio, baseline, noise, slope1, slope2 float64) (Channel, Channel) {
	ch1 := Channel{
		Samples: make([]float64, n),
		Weights: make([]float64, n),
		Drift:   interval.DriftModel{Intercept: baseline, Slope: slope1},
	}
	ch2 := Channel{
		Samples: make([]float64, n),
		Weights: make([]float64, n),
		Drift:   interval.DriftModel{Intercept: ratio * baseline, Slope: slope2},
	}
	for i := 0; i < n; i++ {
		idx := float64(i + 1)
		x := baseline + noise*math.Sin(1.7*idx)
		ch1.Samples[i] = x + slope1*idx
		ch1.Weights[i] = 1 / ratio
		ch2.Samples[i] = ratio*x + slope2*idx
		ch2.Weights[i] = 1
	}
	return ch1, ch2
}
