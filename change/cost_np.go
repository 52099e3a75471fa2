package change

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// probabilityFloor bounds empirical CDF values away from 0 and 1 so the
// entropy terms stay finite.
const probabilityFloor = 1e-8

// DefaultQuantileGridSize returns the grid size used when the caller does
// not choose one: ceil(4*log n), capped at n.
func DefaultQuantileGridSize(n int) int {
	k := int(math.Ceil(4 * math.Log(float64(n))))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// npCost scores segments by the empirical distribution evaluated on a fixed
// grid of quantiles of the whole series, after Haynes, Fearnhead and Eckley.
// One pass per grid point precomputes prefix rank counts, so a segment query
// costs O(K) with no re-scan of the raw data.
type npCost struct {
	baseCost
	grid   []float64
	counts [][]float64
}

// NewNonparametricCost returns the empirical-CDF cost on a grid of gridSize
// quantiles. gridSize 0 selects DefaultQuantileGridSize(n); negative values
// are rejected.
func NewNonparametricCost(p *Preprocessed, gridSize int) (Cost, error) {
	if gridSize < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "quantile grid size %d must not be negative", gridSize)
	}
	if gridSize == 0 {
		gridSize = DefaultQuantileGridSize(p.Len())
	}

	c := &npCost{
		baseCost: baseCost{p: p},
		grid:     make([]float64, gridSize),
		counts:   make([][]float64, gridSize),
	}

	for k := range c.grid {
		prob := float64(k+1) / float64(gridSize+1)
		c.grid[k] = stat.Quantile(prob, stat.Empirical, p.sorted, nil)
	}

	for k, q := range c.grid {
		counts := make([]float64, p.Len()+1)
		for i, v := range p.values {
			weight := 0.0
			switch {
			case v < q:
				weight = 1
			case v == q:
				weight = 0.5
			}
			counts[i+1] = counts[i] + weight
		}
		c.counts[k] = counts
	}

	return c, nil
}

func (c *npCost) Family() Family        { return FamilyNonparametric }
func (c *npCost) MinSegmentLength() int { return 1 }

// GridSize returns the number of quantile grid points in use.
func (c *npCost) GridSize() int { return len(c.grid) }

func (c *npCost) Cost(start, end int) (float64, bool, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return 0, false, err
	}

	length := float64(end - start)
	total := 0.0
	degenerate := false
	for k := range c.grid {
		f := (c.counts[k][end] - c.counts[k][start]) / length
		if f < probabilityFloor {
			f = probabilityFloor
			degenerate = true
		} else if f > 1-probabilityFloor {
			f = 1 - probabilityFloor
			degenerate = true
		}
		total += f*math.Log(f) + (1-f)*math.Log(1-f)
	}

	return -length * total, degenerate, nil
}

func (c *npCost) Fit(start, end int) ([]float64, error) {
	if err := c.p.checkSegment(start, end, 1); err != nil {
		return nil, err
	}

	segment := make([]float64, end-start)
	copy(segment, c.p.values[start:end])
	sort.Float64s(segment)
	return []float64{stat.Quantile(0.5, stat.Empirical, segment, nil)}, nil
}
