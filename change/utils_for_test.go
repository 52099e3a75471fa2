package change

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepSeries concatenates constant blocks, one per level, blockLen values
// each.
func stepSeries(blockLen int, levels ...float64) []float64 {
	out := make([]float64, 0, blockLen*len(levels))
	for _, level := range levels {
		for i := 0; i < blockLen; i++ {
			out = append(out, level)
		}
	}
	return out
}

// noisyStepSeries is stepSeries plus deterministic N(0, sd^2) noise.
func noisyStepSeries(seed int64, blockLen int, sd float64, levels ...float64) []float64 {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	out := stepSeries(blockLen, levels...)
	for i := range out {
		out[i] += sd * rng.NormFloat64()
	}
	return out
}

// increasing returns 0, 1, ..., n-1 as floats.
func increasing(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func mustPreprocess(t *testing.T, values []float64) *Preprocessed {
	t.Helper()
	series, err := NewSeries(values)
	require.NoError(t, err)
	return series.Preprocess()
}

// assertPartition checks the segmentation tiles [0, n) with ascending,
// unique interior boundaries.
func assertPartition(t *testing.T, seg *Segmentation, n int) {
	t.Helper()
	require.NotEmpty(t, seg.Segments)

	at := 0
	for _, s := range seg.Segments {
		assert.Equal(t, at, s.Start)
		assert.Greater(t, s.End, s.Start)
		at = s.End
	}
	assert.Equal(t, n, at)

	require.Len(t, seg.Changepoints, len(seg.Segments)-1)
	for i, tau := range seg.Changepoints {
		assert.Equal(t, seg.Segments[i].End, tau)
		if i > 0 {
			assert.Greater(t, tau, seg.Changepoints[i-1])
		}
	}
}
