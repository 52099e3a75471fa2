// Package change implements offline changepoint detection over univariate
// series: a CUSUM/GLR single-change test, threshold calibration, and
// multiple-changepoint segmentation by binary segmentation and optimal
// partitioning over pluggable per-segment cost functions.
//
// Index convention: a changepoint tau in {1,...,n-1} counts the observations
// before the boundary, so a series y splits as y[:tau], y[tau:]. Segments are
// half-open [start, end) throughout.
package change

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Series is an immutable ordered sequence of observations, optionally with a
// known noise variance.
type Series struct {
	values []float64
	sigma2 float64
}

// NewSeries validates and copies values into a Series. The series must hold
// at least two finite observations.
func NewSeries(values []float64) (*Series, error) {
	if len(values) < 2 {
		return nil, errors.Wrapf(ErrInvalidInput, "series of length %d is below the minimum of 2", len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrInvalidInput, "non-finite observation %v at index %d", v, i)
		}
	}

	s := &Series{values: make([]float64, len(values))}
	copy(s.values, values)
	return s, nil
}

// NewSeriesWithVariance is NewSeries for data whose noise variance is known
// ahead of time. The variance must be positive.
func NewSeriesWithVariance(values []float64, sigma2 float64) (*Series, error) {
	if sigma2 <= 0 || math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "known variance must be positive, got %v", sigma2)
	}

	s, err := NewSeries(values)
	if err != nil {
		return nil, err
	}
	s.sigma2 = sigma2
	return s, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.values) }

// Values returns the underlying observations. Callers must not modify the
// returned slice.
func (s *Series) Values() []float64 { return s.values }

// KnownVariance returns the noise variance and whether one was supplied.
func (s *Series) KnownVariance() (float64, bool) {
	if s.sigma2 > 0 {
		return s.sigma2, true
	}
	return 0, false
}

// Preprocessed caches the sufficient statistics of a series: prefix sums,
// prefix sums of squares, prefix sums of t*y for slope fits, and a sorted
// copy for quantile and rank queries. It is built once, never mutated, and
// safe for concurrent readers.
type Preprocessed struct {
	values []float64
	sigma2 float64
	sum    []float64
	sumSq  []float64
	sumTY  []float64
	sorted []float64
}

// Preprocess derives the cached statistics for the series. Cost functions
// and detectors answer every segment query from these arrays without
// re-scanning the raw data.
func (s *Series) Preprocess() *Preprocessed {
	n := len(s.values)
	p := &Preprocessed{
		values: s.values,
		sigma2: s.sigma2,
		sum:    make([]float64, n+1),
		sumSq:  make([]float64, n+1),
		sumTY:  make([]float64, n+1),
		sorted: make([]float64, n),
	}

	for i, v := range s.values {
		p.sum[i+1] = p.sum[i] + v
		p.sumSq[i+1] = p.sumSq[i] + v*v
		p.sumTY[i+1] = p.sumTY[i] + float64(i)*v
	}

	copy(p.sorted, s.values)
	sort.Float64s(p.sorted)

	return p
}

// Len returns the number of observations.
func (p *Preprocessed) Len() int { return len(p.values) }

// Values returns the underlying observations. Callers must not modify the
// returned slice.
func (p *Preprocessed) Values() []float64 { return p.values }

// KnownVariance returns the noise variance and whether one was supplied.
func (p *Preprocessed) KnownVariance() (float64, bool) {
	if p.sigma2 > 0 {
		return p.sigma2, true
	}
	return 0, false
}

func (p *Preprocessed) segSum(start, end int) float64 { return p.sum[end] - p.sum[start] }

func (p *Preprocessed) segSumSq(start, end int) float64 { return p.sumSq[end] - p.sumSq[start] }

func (p *Preprocessed) segSumTY(start, end int) float64 { return p.sumTY[end] - p.sumTY[start] }

func (p *Preprocessed) segMean(start, end int) float64 {
	return p.segSum(start, end) / float64(end-start)
}

// checkSegment validates a half-open [start, end) segment against the series
// bounds and a minimum length.
func (p *Preprocessed) checkSegment(start, end, minLen int) error {
	if start < 0 || end > len(p.values) || start >= end {
		return errors.Wrapf(ErrInvalidInput, "segment [%d,%d) out of range for series of length %d", start, end, len(p.values))
	}
	if end-start < minLen {
		return errors.Wrapf(ErrInvalidInput, "segment [%d,%d) is shorter than the family minimum of %d", start, end, minLen)
	}
	return nil
}
