package units

import (
	"testing"
	"time"

	"github.com/deltalab-io/cusp/model"
	"github.com/mongodb/amboy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicDetectJobRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env, cleanup := newTestEnv(t)
	defer cleanup()

	ctx, cancel := env.Context()
	defer cancel()

	values := make([]float64, 30)
	for i := 15; i < 30; i++ {
		values[i] = 25
	}

	pending := model.CreatePerformanceSeries(model.PerformanceSeriesInfo{
		Project: "sys-perf",
		Test:    "periodic-pending",
	}, values, 0)
	pending.Setup(env)
	require.NoError(t, pending.SaveNew())

	analyzed := model.CreatePerformanceSeries(model.PerformanceSeriesInfo{
		Project: "sys-perf",
		Test:    "periodic-analyzed",
	}, values, 0)
	analyzed.Setup(env)
	require.NoError(t, analyzed.SaveNew())
	require.NoError(t, model.MarkSeriesAnalyzed(ctx, env, analyzed.ID))

	j := NewPeriodicDetectJob(env, "ts")
	assert.Equal(t, "periodic-detect.ts", j.ID())
	j.Run(ctx)
	require.NoError(t, j.Error())

	queue := env.GetQueue()
	require.NotNil(t, queue)
	assert.True(t, amboy.WaitInterval(ctx, queue, 10*time.Millisecond))

	results, err := model.FindAnalysisResults(ctx, env, pending.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Changepoints, 1)
	assert.Equal(t, 15, results[0].Changepoints[0].Index)

	require.NoError(t, pending.Find())
	assert.False(t, pending.AnalysisRequested)

	unrelated, err := model.FindAnalysisResults(ctx, env, analyzed.ID)
	require.NoError(t, err)
	assert.Empty(t, unrelated)

	noMore, err := model.FindUnanalyzedSeries(ctx, env)
	require.NoError(t, err)
	assert.Empty(t, noMore)
}
