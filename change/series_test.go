package change

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	t.Run("RejectsTooShort", func(t *testing.T) {
		for _, values := range [][]float64{nil, {}, {1.0}} {
			_, err := NewSeries(values)
			assert.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		}
	})
	t.Run("RejectsNonFinite", func(t *testing.T) {
		for _, values := range [][]float64{
			{1, math.NaN(), 3},
			{1, 2, math.Inf(1)},
			{math.Inf(-1), 2, 3},
		} {
			_, err := NewSeries(values)
			assert.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		}
	})
	t.Run("CopiesInput", func(t *testing.T) {
		values := []float64{1, 2, 3}
		series, err := NewSeries(values)
		require.NoError(t, err)
		values[0] = 100
		assert.Equal(t, 1.0, series.Values()[0])
	})
	t.Run("KnownVariance", func(t *testing.T) {
		series, err := NewSeriesWithVariance([]float64{1, 2, 3}, 2.5)
		require.NoError(t, err)
		sigma2, ok := series.KnownVariance()
		assert.True(t, ok)
		assert.Equal(t, 2.5, sigma2)

		series, err = NewSeries([]float64{1, 2, 3})
		require.NoError(t, err)
		_, ok = series.KnownVariance()
		assert.False(t, ok)
	})
	t.Run("RejectsBadVariance", func(t *testing.T) {
		for _, sigma2 := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			_, err := NewSeriesWithVariance([]float64{1, 2, 3}, sigma2)
			assert.Error(t, err)
			assert.True(t, IsInvalidParameter(err), "sigma2=%v", sigma2)
		}
	})
}

func TestPreprocess(t *testing.T) {
	p := mustPreprocess(t, []float64{1, 2, 3, 4})

	t.Run("PrefixSums", func(t *testing.T) {
		assert.Equal(t, 4, p.Len())
		assert.InDelta(t, 10.0, p.segSum(0, 4), 1e-12)
		assert.InDelta(t, 30.0, p.segSumSq(0, 4), 1e-12)
		assert.InDelta(t, 5.0, p.segSum(1, 3), 1e-12)
		assert.InDelta(t, 13.0, p.segSumSq(1, 3), 1e-12)
		// ty-products use positions in the full series: 0*1 + 1*2 + 2*3 + 3*4.
		assert.InDelta(t, 20.0, p.segSumTY(0, 4), 1e-12)
		assert.InDelta(t, 8.0, p.segSumTY(1, 3), 1e-12)
	})
	t.Run("SegmentMean", func(t *testing.T) {
		assert.InDelta(t, 2.5, p.segMean(0, 4), 1e-12)
		assert.InDelta(t, 3.5, p.segMean(2, 4), 1e-12)
	})
	t.Run("SortedCopy", func(t *testing.T) {
		q := mustPreprocess(t, []float64{3, 1, 4, 1, 5})
		assert.Equal(t, []float64{1, 1, 3, 4, 5}, q.sorted)
	})
}

func TestCheckSegment(t *testing.T) {
	p := mustPreprocess(t, []float64{1, 2, 3, 4})
	cost := NewMeanCost(p)

	for _, test := range []struct {
		name       string
		start, end int
	}{
		{name: "NegativeStart", start: -1, end: 2},
		{name: "EndPastLength", start: 0, end: 5},
		{name: "EmptySegment", start: 2, end: 2},
		{name: "Inverted", start: 3, end: 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := cost.Cost(test.start, test.end)
			assert.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		})
	}

	t.Run("BelowMinSegmentLength", func(t *testing.T) {
		short := NewMeanVarianceCost(p)
		_, _, err := short.Cost(1, 2)
		assert.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})
}
