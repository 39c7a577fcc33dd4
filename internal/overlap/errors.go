package overlap

import (
	"errors"
	"fmt"

	"github.com/banshee-data/rcal/internal/interval"
)

var (
	// ErrInvalidInput reports empty interval sets, bad grids or brackets.
	ErrInvalidInput = interval.ErrInvalidInput

	// ErrDegenerateInterval reports a combined interval set whose union
	// envelope has zero width, which leaves the overlap ratio undefined.
	ErrDegenerateInterval = errors.New("degenerate interval set")

	// ErrNonConvergence reports a local solver that ran out of iterations,
	// stalled, or left the physically meaningful range R > 0.
	ErrNonConvergence = errors.New("solver did not converge")
)

// NonConvergenceError carries the last estimate of a solver that failed.
// errors.Is(err, ErrNonConvergence) holds for every NonConvergenceError.
type NonConvergenceError struct {
	Op         string  // "optimum" or "root"
	Estimate   float64 // last best R
	Iterations int
	Reason     string
	Err        error // underlying cause, may be nil
}

func (e *NonConvergenceError) Error() string {
	msg := fmt.Sprintf("%s search did not converge after %d iterations (last estimate R=%g)", e.Op, e.Iterations, e.Estimate)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrNonConvergence) succeed.
func (e *NonConvergenceError) Is(target error) bool {
	return target == ErrNonConvergence
}

func (e *NonConvergenceError) Unwrap() error {
	return e.Err
}
