package overlap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rcal/internal/interval"
	"github.com/banshee-data/rcal/internal/testutil"
)

func pairedFunc(t *testing.T) Func {
	t.Helper()
	fn, err := RatioFunc(testutil.Paired.A, testutil.Paired.B)
	require.NoError(t, err)
	return fn
}

func TestFindOptimum(t *testing.T) {
	t.Parallel()

	fn := pairedFunc(t)
	for _, seed := range []float64{1.2, 1.3, 1.5} {
		r, err := FindOptimum(fn, seed, DefaultSolverOptions())
		require.NoError(t, err, "seed %g", seed)
		testutil.AssertClose(t, "optimum R", r, testutil.Paired.OptimumR, 1e-5)

		jk, err := fn(r)
		require.NoError(t, err)
		assert.InDelta(t, testutil.Paired.OptimumRatio, jk, 1e-5)
	}
}

func TestFindOptimum_IterationLimit(t *testing.T) {
	t.Parallel()

	_, err := FindOptimum(pairedFunc(t), 1.0, SolverOptions{MaxIterations: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonConvergence), "got %v", err)

	var nce *NonConvergenceError
	require.True(t, errors.As(err, &nce))
	assert.Equal(t, "optimum", nce.Op)
	assert.Greater(t, nce.Estimate, 0.0)
}

func TestFindOptimum_Errors(t *testing.T) {
	t.Parallel()

	_, err := FindOptimum(pairedFunc(t), -1, DefaultSolverOptions())
	testutil.AssertErrorIs(t, err, ErrInvalidInput)

	degenerate, err := RatioFunc([]interval.Interval{{Lo: 0, Hi: 0}}, []interval.Interval{{Lo: 0, Hi: 0}})
	require.NoError(t, err)
	_, err = FindOptimum(degenerate, 1, DefaultSolverOptions())
	testutil.AssertErrorIs(t, err, ErrDegenerateInterval)
}

func TestFindRoot(t *testing.T) {
	t.Parallel()

	fn := pairedFunc(t)
	testCases := []struct {
		name string
		seed float64
		want float64
	}{
		{"seeded_at_root", 4, 4},
		{"below_right_root", 3.9, 4},
		{"above_right_root", 4.2, 4},
		{"near_left_root", 0.7, 2.0 / 3.0},
		{"below_left_root", 0.6, 2.0 / 3.0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := FindRoot(fn, tc.seed, DefaultSolverOptions())
			require.NoError(t, err)
			testutil.AssertClose(t, "root", r, tc.want, 1e-6)
		})
	}
}

func TestFindRoot_NonConvergence(t *testing.T) {
	t.Parallel()

	flat := func(r float64) (float64, error) { return 0.5, nil }
	_, err := FindRoot(flat, 1.05, DefaultSolverOptions())
	require.Error(t, err)
	var nce *NonConvergenceError
	require.True(t, errors.As(err, &nce), "got %v", err)
	assert.Equal(t, "root", nce.Op)
	assert.InDelta(t, 1.05*1.001, nce.Estimate, 1e-12)
	assert.Contains(t, nce.Error(), "flat")

	// The only root is at R = -1.
	negative := func(r float64) (float64, error) { return r + 1, nil }
	_, err = FindRoot(negative, 1, DefaultSolverOptions())
	testutil.AssertErrorIs(t, err, ErrNonConvergence)

	_, err = FindRoot(negative, 0, DefaultSolverOptions())
	testutil.AssertErrorIs(t, err, ErrInvalidInput)
}

func TestFindRoot_PropagatesEvaluationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fails := func(r float64) (float64, error) { return 0, boom }
	_, err := FindRoot(fails, 1, DefaultSolverOptions())
	assert.ErrorIs(t, err, boom)
}

func TestFindRootInBracket(t *testing.T) {
	t.Parallel()

	fn := pairedFunc(t)
	r, err := FindRootInBracket(fn, 3.9, 4.1, DefaultSolverOptions())
	require.NoError(t, err)
	testutil.AssertClose(t, "right root", r, 4, 1e-8)

	r, err = FindRootInBracket(fn, 0.5, 1.0, DefaultSolverOptions())
	require.NoError(t, err)
	testutil.AssertClose(t, "left root", r, 2.0/3.0, 1e-8)

	// Brackets may be given in either order.
	r, err = FindRootInBracket(fn, 1.0, 0.5, DefaultSolverOptions())
	require.NoError(t, err)
	testutil.AssertClose(t, "left root, reversed", r, 2.0/3.0, 1e-8)

	r, err = FindRootInBracket(fn, 4, 5, DefaultSolverOptions())
	require.NoError(t, err)
	assert.Equal(t, 4.0, r)

	_, err = FindRootInBracket(fn, 1, 2, DefaultSolverOptions())
	testutil.AssertErrorIs(t, err, ErrInvalidInput)
}

func TestNonConvergenceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := error(&NonConvergenceError{Op: "root", Estimate: 1.04, Iterations: 3, Reason: "stalled", Err: cause})
	assert.True(t, errors.Is(err, ErrNonConvergence))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrDegenerateInterval))
	assert.Equal(t, "root search did not converge after 3 iterations (last estimate R=1.04): stalled: cause", err.Error())
}
