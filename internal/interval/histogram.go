package interval

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistogramBins matches the bin count of the reporting charts.
const DefaultHistogramBins = 10

// Histogram holds equal-width bin edges and the number of values per bin.
// len(Dividers) == len(Counts)+1. The last edge is nudged just above the
// maximum so that the largest value is counted.
type Histogram struct {
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

// Total returns the number of values counted.
func (h Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// ValueHistogram bins values into the given number of equal-width bins
// spanning [min(values), max(values)].
func ValueHistogram(values []float64, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, fmt.Errorf("%w: histogram needs at least one bin, got %d", ErrInvalidInput, bins)
	}
	if len(values) == 0 {
		return Histogram{}, fmt.Errorf("%w: histogram of no values", ErrInvalidInput)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Histogram{}, fmt.Errorf("%w: value %d is %g", ErrInvalidInput, i, v)
		}
	}

	x := append([]float64(nil), values...)
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	return Histogram{Dividers: dividers, Counts: counts}, nil
}

// MidpointHistogram bins the interval centres.
func MidpointHistogram(ivs []Interval, bins int) (Histogram, error) {
	return ValueHistogram(Midpoints(ivs), bins)
}
