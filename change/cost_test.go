package change

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyValidate(t *testing.T) {
	for _, family := range []Family{FamilyMean, FamilyVariance, FamilyMeanVariance, FamilySlope, FamilyNonparametric} {
		assert.NoError(t, family.Validate())
	}
	assert.Error(t, Family("bogus").Validate())
	assert.True(t, IsInvalidParameter(Family("").Validate()))
}

func TestMeanCost(t *testing.T) {
	p := mustPreprocess(t, []float64{1, 2, 3, 4})
	cost := NewMeanCost(p)

	t.Run("WholeSegment", func(t *testing.T) {
		// Q - S^2/n = 30 - 100/4 with unit variance.
		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 5.0, value, 1e-12)
	})
	t.Run("SplitReducesCost", func(t *testing.T) {
		left, _, err := cost.Cost(0, 2)
		require.NoError(t, err)
		right, _, err := cost.Cost(2, 4)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, left, 1e-12)
		assert.InDelta(t, 0.5, right, 1e-12)

		whole, _, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.Less(t, left+right, whole)
	})
	t.Run("KnownVarianceScales", func(t *testing.T) {
		series, err := NewSeriesWithVariance([]float64{1, 2, 3, 4}, 4.0)
		require.NoError(t, err)
		scaled := NewMeanCost(series.Preprocess())

		value, _, err := scaled.Cost(0, 4)
		require.NoError(t, err)
		assert.InDelta(t, 1.25, value, 1e-12)
	})
	t.Run("Fit", func(t *testing.T) {
		fit, err := cost.Fit(1, 4)
		require.NoError(t, err)
		require.Len(t, fit, 1)
		assert.InDelta(t, 3.0, fit[0], 1e-12)
	})
	t.Run("SingletonSegment", func(t *testing.T) {
		value, degenerate, err := cost.Cost(2, 3)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 0.0, value, 1e-12)
	})
}

func TestVarianceCost(t *testing.T) {
	t.Run("KnownMeanZero", func(t *testing.T) {
		p := mustPreprocess(t, []float64{1, -1, 2, -2})
		cost := NewVarianceCost(p, 0)

		// theta = 10/4, cost = 4*log(2.5) + 4.
		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 4*math.Log(2.5)+4, value, 1e-12)

		fit, err := cost.Fit(0, 4)
		require.NoError(t, err)
		require.Len(t, fit, 1)
		assert.InDelta(t, 2.5, fit[0], 1e-12)
	})
	t.Run("NonzeroMean", func(t *testing.T) {
		p := mustPreprocess(t, []float64{4, 6, 2, 8})
		cost := NewVarianceCost(p, 5)

		// Residuals about the known mean: -1, 1, -3, 3 so theta = 20/4.
		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 4*math.Log(5.0)+4, value, 1e-12)
	})
	t.Run("DegenerateSegment", func(t *testing.T) {
		p := mustPreprocess(t, []float64{3, 3, 3, 3})
		cost := NewVarianceCost(p, 3)

		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.True(t, degenerate)
		assert.False(t, math.IsInf(value, 0))
		assert.False(t, math.IsNaN(value))
	})
}

func TestMeanVarianceCost(t *testing.T) {
	p := mustPreprocess(t, []float64{1, 2, 3, 4})
	cost := NewMeanVarianceCost(p)

	t.Run("WholeSegment", func(t *testing.T) {
		// theta = (30 - 100/4)/4 = 1.25.
		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 4*(math.Log(2*math.Pi*1.25)+1), value, 1e-12)
	})
	t.Run("Fit", func(t *testing.T) {
		fit, err := cost.Fit(0, 4)
		require.NoError(t, err)
		require.Len(t, fit, 2)
		assert.InDelta(t, 2.5, fit[0], 1e-12)
		assert.InDelta(t, 1.25, fit[1], 1e-12)
	})
	t.Run("MinSegmentLength", func(t *testing.T) {
		assert.Equal(t, 2, cost.MinSegmentLength())
		_, _, err := cost.Cost(0, 1)
		assert.True(t, IsInvalidInput(err))
	})
	t.Run("DegenerateSegment", func(t *testing.T) {
		q := mustPreprocess(t, []float64{5, 5, 5})
		flat := NewMeanVarianceCost(q)

		value, degenerate, err := flat.Cost(0, 3)
		require.NoError(t, err)
		assert.True(t, degenerate)
		assert.False(t, math.IsInf(value, 0))
	})
}

func TestSlopeCost(t *testing.T) {
	t.Run("PerfectLine", func(t *testing.T) {
		p := mustPreprocess(t, []float64{0, 1, 2, 3})
		cost := NewSlopeCost(p)

		value, degenerate, err := cost.Cost(0, 4)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 0.0, value, 1e-9)

		fit, err := cost.Fit(0, 4)
		require.NoError(t, err)
		require.Len(t, fit, 2)
		assert.InDelta(t, 0.0, fit[0], 1e-9)
		assert.InDelta(t, 1.0, fit[1], 1e-9)
	})
	t.Run("SubsegmentUsesGlobalIndex", func(t *testing.T) {
		// On [1, 3) the values 5, 7 sit at positions 1 and 2, so the
		// exact fit is y = 3 + 2t.
		p := mustPreprocess(t, []float64{0, 5, 7, 0})
		cost := NewSlopeCost(p)

		value, _, err := cost.Cost(1, 3)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, value, 1e-9)

		fit, err := cost.Fit(1, 3)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, fit[0], 1e-9)
		assert.InDelta(t, 2.0, fit[1], 1e-9)
	})
	t.Run("ResidualSumOfSquares", func(t *testing.T) {
		// Regressing (0,0), (1,1), (2,0) leaves RSS = 2/3.
		p := mustPreprocess(t, []float64{0, 1, 0})
		cost := NewSlopeCost(p)

		value, degenerate, err := cost.Cost(0, 3)
		require.NoError(t, err)
		assert.False(t, degenerate)
		assert.InDelta(t, 2.0/3.0, value, 1e-9)
	})
	t.Run("MinSegmentLength", func(t *testing.T) {
		p := mustPreprocess(t, []float64{1, 2, 3})
		cost := NewSlopeCost(p)
		assert.Equal(t, 2, cost.MinSegmentLength())
		_, _, err := cost.Cost(0, 1)
		assert.True(t, IsInvalidInput(err))
	})
}
