package testutil

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/rcal/internal/interval"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))
}

func TestAssertErrorIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	AssertErrorIs(t, errors.Join(errors.New("other"), sentinel), sentinel)
}

func TestAssertClose(t *testing.T) {
	t.Parallel()

	AssertClose(t, "value", 1.0+1e-10, 1.0, 1e-9)
}

func TestPairedClosedForm(t *testing.T) {
	t.Parallel()

	ivs, err := interval.BuildUniform([]float64{Paired.SampleA, Paired.SampleB}, Paired.Eps)
	AssertNoError(t, err)
	if ivs[0] != Paired.A[0] || ivs[1] != Paired.B[0] {
		t.Fatalf("samples build %v, want %v and %v", ivs, Paired.A, Paired.B)
	}

	AssertClose(t, "peak", Paired.Ratio(Paired.OptimumR), Paired.OptimumRatio, 1e-12)
	AssertClose(t, "left root", Paired.Ratio(Paired.MinR), 0, 1e-12)
	AssertClose(t, "right root", Paired.Ratio(Paired.MaxR), 0, 1e-12)
	// Branches meet at R = 2.
	AssertClose(t, "continuity", Paired.Ratio(2), 0.5, 1e-12)
}

func TestSyntheticPair(t *testing.T) {
	t.Parallel()

	const ratio = 1.05
	ch1, ch2 := SyntheticPair(50, ratio, 10, 0.002, 0.01, -0.005)
	if len(ch1.Samples) != 50 || len(ch2.Weights) != 50 {
		t.Fatalf("lengths = %d, %d, want 50", len(ch1.Samples), len(ch2.Weights))
	}

	a := interval.ApplyDriftCorrection(mustBuild(t, ch1, 0.01), ch1.Drift)
	b := interval.ApplyDriftCorrection(mustBuild(t, ch2, 0.01), ch2.Drift)
	scaled := interval.Scale(a, ratio)
	for i := range scaled {
		if math.Abs(scaled[i].Lo-b[i].Lo) > 1e-9 || math.Abs(scaled[i].Hi-b[i].Hi) > 1e-9 {
			t.Fatalf("interval %d: scaled %v != %v", i, scaled[i], b[i])
		}
	}
}

func mustBuild(t *testing.T, ch Channel, eps float64) []interval.Interval {
	t.Helper()
	ivs, err := interval.Build(ch.Samples, ch.Weights, eps)
	AssertNoError(t, err)
	return ivs
}
