package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceSeriesInfoID(t *testing.T) {
	info := PerformanceSeriesInfo{
		Project:     "sys-perf",
		Variant:     "linux-standalone",
		Task:        "ycsb",
		Test:        "load",
		Measurement: "ops_per_sec",
	}

	same := info
	assert.Equal(t, info.ID(), same.ID())

	other := info
	other.Measurement = "latency"
	assert.NotEqual(t, info.ID(), other.ID())

	assert.Contains(t, info.String(), "sys-perf")
	assert.Contains(t, info.String(), "ops_per_sec")
}

func TestCreatePerformanceSeries(t *testing.T) {
	info := PerformanceSeriesInfo{Project: "sys-perf", Test: "load"}
	values := []float64{1, 2, 3}

	series := CreatePerformanceSeries(info, values, 2.5)
	values[0] = 100

	assert.Equal(t, info.ID(), series.ID)
	assert.False(t, series.IsNil())
	assert.Equal(t, []float64{1, 2, 3}, series.Values)
	assert.Equal(t, 2.5, series.Variance)
	assert.True(t, series.AnalysisRequested)
	assert.False(t, series.CreatedAt.IsZero())
}

func TestPerformanceSeriesOperations(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	ctx, cancel := env.Context()
	defer cancel()

	info := PerformanceSeriesInfo{
		Project:     "sys-perf",
		Variant:     "linux-standalone",
		Task:        "ycsb",
		Test:        "load",
		Measurement: "ops_per_sec",
	}
	series := CreatePerformanceSeries(info, []float64{10, 11, 12}, 0)
	series.Setup(env)
	require.NoError(t, series.SaveNew())

	t.Run("DuplicateSaveFails", func(t *testing.T) {
		dup := CreatePerformanceSeries(info, []float64{1}, 0)
		dup.Setup(env)
		assert.Error(t, dup.SaveNew())
	})
	t.Run("FindRoundTrip", func(t *testing.T) {
		found := &PerformanceSeries{Info: info}
		found.Setup(env)
		require.NoError(t, found.Find())

		assert.False(t, found.IsNil())
		assert.Equal(t, series.ID, found.ID)
		assert.Equal(t, []float64{10, 11, 12}, found.Values)
		assert.True(t, found.AnalysisRequested)
		assert.Equal(t, "sys-perf", found.Info.Project)
	})
	t.Run("AppendValues", func(t *testing.T) {
		require.NoError(t, series.AppendValues([]float64{13, 14}))
		assert.Equal(t, []float64{10, 11, 12, 13, 14}, series.Values)

		found := &PerformanceSeries{ID: series.ID}
		found.Setup(env)
		require.NoError(t, found.Find())
		assert.Equal(t, []float64{10, 11, 12, 13, 14}, found.Values)
		assert.True(t, found.AnalysisRequested)
	})
	t.Run("AppendValuesNoValuesNoops", func(t *testing.T) {
		assert.NoError(t, series.AppendValues(nil))
	})
	t.Run("AppendValuesMissingSeries", func(t *testing.T) {
		missing := &PerformanceSeries{ID: "DNE"}
		missing.Setup(env)
		assert.Error(t, missing.AppendValues([]float64{1}))
	})
	t.Run("UnanalyzedLifecycle", func(t *testing.T) {
		pending, err := FindUnanalyzedSeries(ctx, env)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, series.ID, pending[0].ID)

		require.NoError(t, MarkSeriesAnalyzed(ctx, env, series.ID))

		pending, err = FindUnanalyzedSeries(ctx, env)
		require.NoError(t, err)
		assert.Empty(t, pending)

		found := &PerformanceSeries{ID: series.ID}
		found.Setup(env)
		require.NoError(t, found.Find())
		assert.False(t, found.AnalysisRequested)
		assert.False(t, found.ProcessedAt.IsZero())
	})
	t.Run("AppendValuesRequestsReanalysis", func(t *testing.T) {
		require.NoError(t, series.AppendValues([]float64{15}))

		pending, err := FindUnanalyzedSeries(ctx, env)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, series.ID, pending[0].ID)
	})
}
