package overlap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// SolverOptions bounds the local searches.
type SolverOptions struct {
	// MaxIterations caps solver iterations. Defaults to 500.
	MaxIterations int
	// Tolerance is the convergence tolerance on R (and on the ratio for the
	// optimum search). Defaults to 1e-9.
	Tolerance float64
	// Step is the relative offset of the secant method's second point from
	// the seed. Defaults to 1e-3.
	Step float64
}

// DefaultSolverOptions returns the default solver budgets.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{MaxIterations: 500, Tolerance: 1e-9, Step: 1e-3}
}

func (o SolverOptions) withDefaults() SolverOptions {
	def := DefaultSolverOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if !(o.Tolerance > 0) {
		o.Tolerance = def.Tolerance
	}
	if !(o.Step > 0) {
		o.Step = def.Step
	}
	return o
}

func checkSeed(seed float64) error {
	if math.IsNaN(seed) || math.IsInf(seed, 0) || seed <= 0 {
		return fmt.Errorf("%w: seed must be a positive finite R, got %g", ErrInvalidInput, seed)
	}
	return nil
}

// FindOptimum maximizes fn with a Nelder–Mead simplex started at seed. The
// initial simplex spans 5% of the seed.
//
// The ratio is only piecewise smooth and in general has several local
// maxima, so the result is the maximum nearest to seed. Seeding from the
// grid argmax of a Scan gives the global one to within a grid step.
func FindOptimum(fn Func, seed float64, opts SolverOptions) (float64, error) {
	opts = opts.withDefaults()
	if err := checkSeed(seed); err != nil {
		return 0, err
	}

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			jk, err := fn(x[0])
			if err != nil {
				if evalErr == nil {
					evalErr = fmt.Errorf("optimum search at R=%g: %w", x[0], err)
				}
				return math.Inf(1)
			}
			return -jk
		},
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Relative:   opts.Tolerance,
			Iterations: 20,
		},
	}
	method := &optimize.NelderMead{SimplexSize: 0.05 * seed}

	res, err := optimize.Minimize(problem, []float64{seed}, settings, method)
	if evalErr != nil {
		return 0, evalErr
	}

	estimate, iterations := seed, 0
	if res != nil && len(res.X) == 1 {
		estimate, iterations = res.X[0], res.MajorIterations
	}
	if err != nil {
		return 0, &NonConvergenceError{Op: "optimum", Estimate: estimate, Iterations: iterations, Err: err}
	}
	switch res.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit, optimize.Failure:
		return 0, &NonConvergenceError{Op: "optimum", Estimate: estimate, Iterations: iterations, Reason: res.Status.String()}
	}
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) || estimate <= 0 {
		return 0, &NonConvergenceError{Op: "optimum", Estimate: estimate, Iterations: iterations, Reason: "estimate left the range R > 0"}
	}
	return estimate, nil
}

// FindRoot locates a zero of fn with the secant method started from seed and
// seed*(1+opts.Step). Like FindOptimum it is a local search: a seed far from
// a crossing may converge to an unrelated root or not at all, which is
// reported as a NonConvergenceError.
func FindRoot(fn Func, seed float64, opts SolverOptions) (float64, error) {
	opts = opts.withDefaults()
	if err := checkSeed(seed); err != nil {
		return 0, err
	}

	x0 := seed
	f0, err := fn(x0)
	if err != nil {
		return 0, fmt.Errorf("root search at R=%g: %w", x0, err)
	}
	if f0 == 0 {
		return x0, nil
	}
	x1 := seed * (1 + opts.Step)
	f1, err := fn(x1)
	if err != nil {
		return 0, fmt.Errorf("root search at R=%g: %w", x1, err)
	}

	// The ratio is bounded by 1, so a residual at this level is as close to
	// zero as a step of Tolerance in R can get it.
	fTol := math.Sqrt(opts.Tolerance)

	for it := 1; it <= opts.MaxIterations; it++ {
		if f1 == 0 {
			return x1, nil
		}
		if f1 == f0 {
			return 0, &NonConvergenceError{Op: "root", Estimate: x1, Iterations: it, Reason: "ratio is flat between the last two estimates"}
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if math.IsNaN(x2) || math.IsInf(x2, 0) || x2 <= 0 {
			return 0, &NonConvergenceError{Op: "root", Estimate: x1, Iterations: it, Reason: fmt.Sprintf("step to R=%g left the range R > 0", x2)}
		}
		f2, err := fn(x2)
		if err != nil {
			return 0, &NonConvergenceError{Op: "root", Estimate: x1, Iterations: it, Err: err}
		}
		if math.Abs(x2-x1) <= opts.Tolerance*math.Max(1, math.Abs(x2)) && math.Abs(f2) <= fTol {
			return x2, nil
		}
		x0, f0, x1, f1 = x1, f1, x2, f2
	}
	return 0, &NonConvergenceError{Op: "root", Estimate: x1, Iterations: opts.MaxIterations, Reason: "iteration limit"}
}

// FindRootInBracket locates a zero of fn between lo and hi with Brent's
// method. fn(lo) and fn(hi) must not have the same sign.
func FindRootInBracket(fn Func, lo, hi float64, opts SolverOptions) (float64, error) {
	opts = opts.withDefaults()
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, fmt.Errorf("%w: bracket [%g, %g]", ErrInvalidInput, lo, hi)
	}

	a, b := lo, hi
	fa, err := fn(a)
	if err != nil {
		return 0, fmt.Errorf("root search at R=%g: %w", a, err)
	}
	fb, err := fn(b)
	if err != nil {
		return 0, fmt.Errorf("root search at R=%g: %w", b, err)
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, fmt.Errorf("%w: ratio has the same sign at R=%g (%g) and R=%g (%g)", ErrInvalidInput, a, fa, b, fb)
	}

	c, fc := b, fb
	var d, e float64
	for it := 1; it <= opts.MaxIterations; it++ {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*epsilon*math.Abs(b) + 0.5*opts.Tolerance
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			// Inverse quadratic interpolation, or secant when only two
			// distinct points are known.
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*m*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = d
			}
		} else {
			d = m
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, m)
		}
		fb, err = fn(b)
		if err != nil {
			return 0, &NonConvergenceError{Op: "root", Estimate: a, Iterations: it, Err: err}
		}
	}
	return 0, &NonConvergenceError{Op: "root", Estimate: b, Iterations: opts.MaxIterations, Reason: "iteration limit"}
}

// epsilon is the spacing of float64 values around 1.
const epsilon = 2.220446049250313e-16
