package change

import (
	"math"

	"github.com/pkg/errors"
)

// CUSUMResult holds the single-change scan of a series under the Gaussian
// mean-shift model.
type CUSUMResult struct {
	// Trace holds C_tau for tau = 1..n-1 at Trace[tau-1], where
	// C_tau = sqrt(tau*(n-tau)/n) * |mean(y[:tau]) - mean(y[tau:])|.
	Trace []float64

	// MaxStat is the largest C_tau and Tau its boundary, the smallest
	// such boundary on ties.
	MaxStat float64
	Tau     int

	// MeanShift estimates the size of the change,
	// mean(y[Tau:]) - mean(y[:Tau]).
	MeanShift float64

	sigma2 float64
}

// CUSUMScan computes the generalized likelihood-ratio statistic for a single
// mean shift at every interior boundary of the series in one forward pass
// over the cached prefix sums. The scan uses the series' known noise
// variance when present and 1 otherwise.
func CUSUMScan(p *Preprocessed) (*CUSUMResult, error) {
	n := p.Len()
	if n < 2 {
		return nil, errors.Wrapf(ErrInvalidInput, "series of length %d is below the minimum of 2", n)
	}

	sigma2, ok := p.KnownVariance()
	if !ok {
		sigma2 = 1
	}

	result := &CUSUMResult{
		Trace:  make([]float64, n-1),
		Tau:    1,
		sigma2: sigma2,
	}

	total := p.segSum(0, n)
	for tau := 1; tau < n; tau++ {
		left := p.sum[tau] / float64(tau)
		right := (total - p.sum[tau]) / float64(n-tau)
		c := math.Sqrt(float64(tau)*float64(n-tau)/float64(n)) * math.Abs(right-left)

		result.Trace[tau-1] = c
		if c > result.MaxStat {
			result.MaxStat = c
			result.Tau = tau
		}
	}

	result.MeanShift = p.segMean(result.Tau, n) - p.segMean(0, result.Tau)

	return result, nil
}

// DecisionStat returns the statistic compared against calibrated
// thresholds, MaxStat^2 / sigma^2.
func (r *CUSUMResult) DecisionStat() float64 {
	return r.MaxStat * r.MaxStat / r.sigma2
}

// Decide reports whether the scan found a change at the given threshold:
// true exactly when DecisionStat exceeds it.
func (r *CUSUMResult) Decide(threshold float64) bool {
	return r.DecisionStat() > threshold
}
