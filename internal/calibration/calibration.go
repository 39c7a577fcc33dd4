// Package calibration estimates the scale ratio R between two instrument
// channels that measure the same quantity at different gains.
//
// Each channel's samples become uncertainty intervals, the channel's fitted
// linear drift is removed, and R is chosen to maximize the overlap ratio of
// the first channel scaled by R against the second. The two R values where
// the ratio falls to zero bound the region in which every interval still
// overlaps every other.
//
// The result is returned as plain data for a reporting layer to render.
package calibration

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/rcal/internal/config"
	"github.com/banshee-data/rcal/internal/interval"
	"github.com/banshee-data/rcal/internal/monitoring"
	"github.com/banshee-data/rcal/internal/overlap"
	"github.com/banshee-data/rcal/internal/version"
)

var logf = monitoring.Component("calibration")

// Channel is the input for one instrument channel. Drift is fitted upstream.
type Channel struct {
	Name    string
	Samples []float64
	Weights []float64
	Drift   interval.DriftModel
}

// ChannelReport holds the interval views of one channel.
type ChannelReport struct {
	Name  string              `json:"name"`
	Drift interval.DriftModel `json:"drift"`
	// Plain intervals use eps alone, before weights are applied.
	Plain     []interval.Interval `json:"plain"`
	Weighted  []interval.Interval `json:"weighted"`
	Corrected []interval.Interval `json:"corrected"`

	WeightHistogram interval.Histogram `json:"weight_histogram"`
	// CorrectedHistogram bins the midpoints of the corrected intervals.
	CorrectedHistogram interval.Histogram `json:"corrected_histogram"`
}

// Report is the outcome of a calibration run.
type Report struct {
	Version  string           `json:"version"`
	Eps      float64          `json:"eps"`
	Channels [2]ChannelReport `json:"channels"`

	Curve    overlap.Curve `json:"curve"`
	GridPeak overlap.Point `json:"grid_peak"`

	// Optimum is the refined maximum. When the optimizer fails it equals
	// GridPeak and OptimumErr holds the failure.
	Optimum    overlap.Point `json:"optimum"`
	OptimumErr error         `json:"-"`

	// MinR and MaxR are the zero crossings left and right of the optimum.
	// A failed search leaves the last estimate in place and the error in
	// MinRErr or MaxRErr.
	MinR    float64 `json:"min_r"`
	MaxR    float64 `json:"max_r"`
	MinRErr error   `json:"-"`
	MaxRErr error   `json:"-"`

	// Combined is the first channel scaled by the optimum R followed by the
	// second channel, as compared by the overlap ratio.
	Combined          []interval.Interval `json:"combined"`
	CombinedHistogram interval.Histogram  `json:"combined_histogram"`
}

// Err joins the solver errors of the report, or returns nil when the
// optimum and both roots were found.
func (r *Report) Err() error {
	return errors.Join(r.OptimumErr, r.MinRErr, r.MaxRErr)
}

// Calibrate runs the full pipeline for two channels. A nil cfg uses the
// defaults.
//
// Input errors are always returned. Solver failures are returned only when
// cfg is strict; otherwise they are logged and recorded on the Report so
// that the caller can still render the curve.
func Calibrate(ctx context.Context, ch1, ch2 Channel, cfg *config.CalibrationConfig) (*Report, error) {
	if cfg == nil {
		cfg = config.EmptyCalibrationConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	eps := cfg.GetEps()
	bins := cfg.GetHistogramBins()
	rep := &Report{Version: version.String(), Eps: eps}

	for i, ch := range [2]Channel{ch1, ch2} {
		cr, err := buildChannel(ch, eps, bins)
		if err != nil {
			return nil, err
		}
		rep.Channels[i] = cr
	}
	a, b := rep.Channels[0].Corrected, rep.Channels[1].Corrected

	obj, err := overlap.NewObjective(a, b)
	if err != nil {
		return nil, err
	}
	fn := obj.Func()

	grid, err := overlap.Grid(cfg.GetRMin(), cfg.GetRMax(), cfg.GetGridPoints())
	if err != nil {
		return nil, err
	}
	rep.Curve, err = overlap.Scan(ctx, fn, grid, cfg.GetWorkers())
	if err != nil {
		return nil, err
	}
	peak, peakIdx := rep.Curve.ArgMax()
	rep.GridPeak = peak
	logf("scanned %d points over R=[%g, %g]: grid peak JK=%.6f at R=%.6f",
		len(grid), grid[0], grid[len(grid)-1], peak.Ratio, peak.R)

	opts := overlap.SolverOptions{
		MaxIterations: cfg.GetMaxIterations(),
		Tolerance:     cfg.GetTolerance(),
		Step:          cfg.GetRootStep(),
	}

	rep.Optimum, rep.OptimumErr = refineOptimum(fn, peak, cfg, opts)
	rep.MinR, rep.MinRErr, rep.MaxR, rep.MaxRErr = findRoots(fn, rep.Curve, peakIdx, cfg, opts)

	rep.Combined = interval.Concat(interval.Scale(a, rep.Optimum.R), b)
	rep.CombinedHistogram, err = interval.MidpointHistogram(rep.Combined, bins)
	if err != nil {
		return nil, err
	}

	if err := rep.Err(); err != nil {
		if cfg.GetStrict() {
			return rep, err
		}
		logf("calibration incomplete: %v", err)
	}
	logf("optimal R=%.9g (JK=%.6f), zero crossings R=[%.9g, %.9g]",
		rep.Optimum.R, rep.Optimum.Ratio, rep.MinR, rep.MaxR)
	return rep, nil
}

func buildChannel(ch Channel, eps float64, bins int) (ChannelReport, error) {
	cr := ChannelReport{Name: ch.Name, Drift: ch.Drift}

	var err error
	if cr.Plain, err = interval.BuildUniform(ch.Samples, eps); err != nil {
		return cr, fmt.Errorf("channel %q: %w", ch.Name, err)
	}
	if cr.Weighted, err = interval.Build(ch.Samples, ch.Weights, eps); err != nil {
		return cr, fmt.Errorf("channel %q: %w", ch.Name, err)
	}
	cr.Corrected = interval.ApplyDriftCorrection(cr.Weighted, ch.Drift)

	// Histograms are only meaningful for non-empty channels.
	if len(ch.Samples) > 0 {
		if cr.WeightHistogram, err = interval.ValueHistogram(ch.Weights, bins); err != nil {
			return cr, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		if cr.CorrectedHistogram, err = interval.MidpointHistogram(cr.Corrected, bins); err != nil {
			return cr, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
	}
	return cr, nil
}

// refineOptimum polishes the grid peak with the local optimizer. A failed
// search falls back to the grid peak and returns the error alongside it.
func refineOptimum(fn overlap.Func, peak overlap.Point, cfg *config.CalibrationConfig, opts overlap.SolverOptions) (overlap.Point, error) {
	seed, explicit := cfg.GetOptimumSeed()
	if !explicit {
		seed = peak.R
	}

	r, err := overlap.FindOptimum(fn, seed, opts)
	if err != nil {
		return peak, fmt.Errorf("optimum from seed R=%g: %w", seed, err)
	}
	jk, err := fn(r)
	if err != nil {
		return peak, fmt.Errorf("optimum at R=%g: %w", r, err)
	}
	// A local search from an explicit seed can land on a lower local
	// maximum; never report something worse than the grid already found.
	if jk < peak.Ratio {
		if explicit {
			logf("optimizer from seed R=%g reached JK=%.6f below grid peak %.6f", seed, jk, peak.Ratio)
		}
		return peak, nil
	}
	return overlap.Point{R: r, Ratio: jk}, nil
}

// findRoots locates the zero crossings left and right of the grid peak.
func findRoots(fn overlap.Func, curve overlap.Curve, peakIdx int, cfg *config.CalibrationConfig, opts overlap.SolverOptions) (minR float64, minErr error, maxR float64, maxErr error) {
	if seeds, ok := cfg.GetRootSeeds(); ok {
		minR, minErr = seededRoot(fn, seeds[0], opts)
		maxR, maxErr = seededRoot(fn, seeds[1], opts)
		return minR, minErr, maxR, maxErr
	}

	left, leftOK, right, rightOK := curve.Crossings(peakIdx)
	if leftOK {
		minR, minErr = bracketedRoot(fn, curve, left, opts)
	} else {
		minR, minErr = curve[0].R, noCrossing("below", curve[0])
	}
	if rightOK {
		maxR, maxErr = bracketedRoot(fn, curve, right, opts)
	} else {
		last := curve[len(curve)-1]
		maxR, maxErr = last.R, noCrossing("above", last)
	}
	return minR, minErr, maxR, maxErr
}

func seededRoot(fn overlap.Func, seed float64, opts overlap.SolverOptions) (float64, error) {
	r, err := overlap.FindRoot(fn, seed, opts)
	if err != nil {
		var nce *overlap.NonConvergenceError
		if errors.As(err, &nce) {
			return nce.Estimate, fmt.Errorf("root from seed R=%g: %w", seed, err)
		}
		return seed, fmt.Errorf("root from seed R=%g: %w", seed, err)
	}
	return r, nil
}

func bracketedRoot(fn overlap.Func, curve overlap.Curve, br overlap.Bracket, opts overlap.SolverOptions) (float64, error) {
	lo, hi := curve[br.Lo], curve[br.Hi]
	if br.Lo == br.Hi {
		return lo.R, nil
	}
	r, err := overlap.FindRootInBracket(fn, lo.R, hi.R, opts)
	if err != nil {
		return (lo.R + hi.R) / 2, fmt.Errorf("root in [%g, %g]: %w", lo.R, hi.R, err)
	}
	return r, nil
}

func noCrossing(side string, edge overlap.Point) error {
	return &overlap.NonConvergenceError{
		Op:       "root",
		Estimate: edge.R,
		Reason:   fmt.Sprintf("ratio does not cross zero %s the optimum within the grid (JK=%g at R=%g)", side, edge.Ratio, edge.R),
	}
}
