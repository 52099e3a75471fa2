package change

import (
	"math"

	"github.com/pkg/errors"
)

// Family identifies the model family a cost function evaluates.
type Family string

const (
	FamilyMean          Family = "mean"
	FamilyVariance      Family = "variance"
	FamilyMeanVariance  Family = "mean_variance"
	FamilySlope         Family = "slope"
	FamilyNonparametric Family = "nonparametric"
)

// Validate checks that the family is one this package implements.
func (f Family) Validate() error {
	switch f {
	case FamilyMean, FamilyVariance, FamilyMeanVariance, FamilySlope, FamilyNonparametric:
		return nil
	default:
		return errors.Wrapf(ErrInvalidParameter, "unrecognized cost family '%s'", string(f))
	}
}

// varianceFloor bounds maximum-likelihood variance estimates away from zero
// so constant segments yield finite costs instead of arithmetic errors.
const varianceFloor = 1e-8

// Cost evaluates segments of one preprocessed series under a model family.
// Implementations are stateless beyond the cached statistics, so a single
// value may serve any number of concurrent queries.
type Cost interface {
	// Family returns the model family.
	Family() Family

	// Len returns the length of the underlying series.
	Len() int

	// MinSegmentLength returns the shortest segment the family's
	// estimates are defined on.
	MinSegmentLength() int

	// Cost returns the negative log-likelihood of the half-open segment
	// [start, end) at the family's maximum-likelihood parameters.
	// degenerate reports that a variance or probability estimate was
	// floored to keep the value finite.
	Cost(start, end int) (value float64, degenerate bool, err error)

	// Fit returns the family's parameter estimates for the segment:
	// Mean {mean}; Variance {variance}; MeanVariance {mean, variance};
	// Slope {intercept, slope}; Nonparametric {median}.
	Fit(start, end int) ([]float64, error)
}

type baseCost struct {
	p *Preprocessed
}

func (c baseCost) Len() int { return c.p.Len() }

// meanCost scores mean shifts with the noise variance held known. When the
// series does not carry one, the variance defaults to 1 so costs remain on
// the residual-sum-of-squares scale.
type meanCost struct {
	baseCost
	sigma2 float64
}

// NewMeanCost returns the known-variance Gaussian mean-shift cost.
func NewMeanCost(p *Preprocessed) Cost {
	sigma2, ok := p.KnownVariance()
	if !ok {
		sigma2 = 1
	}
	return &meanCost{baseCost: baseCost{p: p}, sigma2: sigma2}
}

func (c *meanCost) Family() Family        { return FamilyMean }
func (c *meanCost) MinSegmentLength() int { return 1 }

func (c *meanCost) Cost(start, end int) (float64, bool, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return 0, false, err
	}

	length := float64(end - start)
	sum := c.p.segSum(start, end)
	return (c.p.segSumSq(start, end) - sum*sum/length) / c.sigma2, false, nil
}

func (c *meanCost) Fit(start, end int) ([]float64, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return nil, err
	}
	return []float64{c.p.segMean(start, end)}, nil
}

// varianceCost scores variance changes around a known mean.
type varianceCost struct {
	baseCost
	mean float64
}

// NewVarianceCost returns the known-mean Gaussian variance-change cost. Data
// centered in advance uses mean 0.
func NewVarianceCost(p *Preprocessed, mean float64) Cost {
	return &varianceCost{baseCost: baseCost{p: p}, mean: mean}
}

func (c *varianceCost) Family() Family        { return FamilyVariance }
func (c *varianceCost) MinSegmentLength() int { return 1 }

// theta returns the maximum-likelihood variance of the segment around the
// known mean, floored, plus whether the floor applied.
func (c *varianceCost) theta(start, end int) (float64, bool) {
	length := float64(end - start)
	rss := c.p.segSumSq(start, end) - 2*c.mean*c.p.segSum(start, end) + length*c.mean*c.mean
	theta := rss / length
	if theta < varianceFloor {
		return varianceFloor, true
	}
	return theta, false
}

func (c *varianceCost) Cost(start, end int) (float64, bool, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return 0, false, err
	}

	length := float64(end - start)
	theta, floored := c.theta(start, end)
	return length*math.Log(theta) + length, floored, nil
}

func (c *varianceCost) Fit(start, end int) ([]float64, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return nil, err
	}
	theta, _ := c.theta(start, end)
	return []float64{theta}, nil
}

// meanVarianceCost scores joint mean and variance changes.
type meanVarianceCost struct {
	baseCost
}

// NewMeanVarianceCost returns the two-parameter Gaussian cost, twice the
// negative log-likelihood at the jointly fitted mean and variance.
func NewMeanVarianceCost(p *Preprocessed) Cost {
	return &meanVarianceCost{baseCost: baseCost{p: p}}
}

func (c *meanVarianceCost) Family() Family        { return FamilyMeanVariance }
func (c *meanVarianceCost) MinSegmentLength() int { return 2 }

func (c *meanVarianceCost) estimate(start, end int) (mean, theta float64, floored bool) {
	length := float64(end - start)
	sum := c.p.segSum(start, end)
	mean = sum / length
	theta = (c.p.segSumSq(start, end) - sum*sum/length) / length
	if theta < varianceFloor {
		return mean, varianceFloor, true
	}
	return mean, theta, false
}

func (c *meanVarianceCost) Cost(start, end int) (float64, bool, error) {
	if err := c.p.checkSegment(start, end, c.MinSegmentLength()); err != nil {
		return 0, false, err
	}

	length := float64(end - start)
	_, theta, floored := c.estimate(start, end)
	return length * (math.Log(2*math.Pi*theta) + 1), floored, nil
}

func (c *meanVarianceCost) Fit(start, end int) ([]float64, error) {
	if err := c.p.checkSegment(start, end, c.MinSegmentLength()); err != nil {
		return nil, err
	}
	mean, theta, _ := c.estimate(start, end)
	return []float64{mean, theta}, nil
}

// slopeCost scores changes in a linear trend fit against the global time
// index, with the noise variance fixed to 1 by convention.
type slopeCost struct {
	baseCost
}

// NewSlopeCost returns the least-squares linear trend cost; the segment cost
// is its residual sum of squares.
func NewSlopeCost(p *Preprocessed) Cost {
	return &slopeCost{baseCost: baseCost{p: p}}
}

func (c *slopeCost) Family() Family        { return FamilySlope }
func (c *slopeCost) MinSegmentLength() int { return 2 }

// sumT and sumT2 are the closed-form sums of t and t^2 over [start, end).
func sumT(start, end int) float64 {
	return float64(end-start) * float64(start+end-1) / 2
}

func sumT2(start, end int) float64 {
	cube := func(m int) float64 {
		f := float64(m)
		return f * (f + 1) * (2*f + 1) / 6
	}
	return cube(end-1) - cube(start-1)
}

func (c *slopeCost) moments(start, end int) (sxx, sxy, syy float64) {
	length := float64(end - start)
	st := sumT(start, end)
	sy := c.p.segSum(start, end)
	sxx = sumT2(start, end) - st*st/length
	sxy = c.p.segSumTY(start, end) - st*sy/length
	syy = c.p.segSumSq(start, end) - sy*sy/length
	return sxx, sxy, syy
}

func (c *slopeCost) Cost(start, end int) (float64, bool, error) {
	if err := c.p.checkSegment(start, end, c.MinSegmentLength()); err != nil {
		return 0, false, err
	}

	sxx, sxy, syy := c.moments(start, end)
	return syy - sxy*sxy/sxx, false, nil
}

func (c *slopeCost) Fit(start, end int) ([]float64, error) {
	if err := c.p.checkSegment(start, end, c.MinSegmentLength()); err != nil {
		return nil, err
	}

	sxx, sxy, _ := c.moments(start, end)
	slope := sxy / sxx
	length := float64(end - start)
	intercept := (c.p.segSum(start, end) - slope*sumT(start, end)) / length
	return []float64{intercept, slope}, nil
}
