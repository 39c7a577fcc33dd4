package overlap

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/rcal/internal/interval"
)

// cancelCheckEvery bounds how many evaluations a scan worker performs between
// context checks.
const cancelCheckEvery = 512

// Point is one sample of the ratio curve.
type Point struct {
	R     float64 `json:"r"`
	Ratio float64 `json:"ratio"`
}

// Curve is the ratio sampled over a grid, in grid order.
type Curve []Point

// Bracket is a pair of adjacent curve indices whose ratios have opposite
// signs. Lo == Hi marks a grid point where the ratio is exactly zero.
type Bracket struct {
	Lo, Hi int
}

// Grid returns n linearly spaced values from lo to hi inclusive.
func Grid(lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2 points, got %d", ErrInvalidInput, n)
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(hi > lo) {
		return nil, fmt.Errorf("%w: grid range [%g, %g] is empty", ErrInvalidInput, lo, hi)
	}
	g := floats.Span(make([]float64, n), lo, hi)
	g[n-1] = hi
	return g, nil
}

// Scan evaluates fn at every grid value and returns the curve in grid order.
// The grid is split into contiguous chunks evaluated by up to workers
// goroutines; workers <= 0 uses GOMAXPROCS. The first evaluation error stops
// the scan and is returned together with the R at which it occurred.
func Scan(ctx context.Context, fn Func, grid []float64, workers int) (Curve, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: empty scan grid", ErrInvalidInput)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(grid) {
		workers = len(grid)
	}

	curve := make(Curve, len(grid))
	chunk := (len(grid) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(grid); start += chunk {
		end := min(start+chunk, len(grid))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%cancelCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				r := grid[i]
				jk, err := fn(r)
				if err != nil {
					return fmt.Errorf("scan at R=%g: %w", r, err)
				}
				curve[i] = Point{R: r, Ratio: jk}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return curve, nil
}

// ScanIntervals scans the overlap ratio of Scale(a, R) ∪ b over grid.
func ScanIntervals(ctx context.Context, a, b []interval.Interval, grid []float64, workers int) (Curve, error) {
	o, err := NewObjective(a, b)
	if err != nil {
		return nil, err
	}
	return Scan(ctx, o.Eval, grid, workers)
}

// Rs returns the grid values of the curve.
func (c Curve) Rs() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.R
	}
	return out
}

// Ratios returns the ratio values of the curve.
func (c Curve) Ratios() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Ratio
	}
	return out
}

// ArgMax returns the first point with the largest ratio and its index.
// It returns index -1 for an empty curve.
func (c Curve) ArgMax() (Point, int) {
	if len(c) == 0 {
		return Point{}, -1
	}
	i := floats.MaxIdx(c.Ratios())
	return c[i], i
}

// SignChanges returns, in grid order, every place where the ratio crosses
// or touches zero.
func (c Curve) SignChanges() []Bracket {
	var out []Bracket
	for i, p := range c {
		if p.Ratio == 0 {
			out = append(out, Bracket{Lo: i, Hi: i})
			continue
		}
		if i+1 < len(c) {
			next := c[i+1].Ratio
			if next != 0 && math.Signbit(next) != math.Signbit(p.Ratio) {
				out = append(out, Bracket{Lo: i, Hi: i + 1})
			}
		}
	}
	return out
}

// Crossings returns the nearest sign change at or below index k and the
// nearest one at or above it. ok is false for a side with no crossing.
func (c Curve) Crossings(k int) (left Bracket, leftOK bool, right Bracket, rightOK bool) {
	for _, br := range c.SignChanges() {
		if br.Hi <= k {
			left, leftOK = br, true
		}
		if br.Lo >= k && !rightOK {
			right, rightOK = br, true
		}
	}
	return left, leftOK, right, rightOK
}
