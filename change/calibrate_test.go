package change

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestAsymptoticThreshold(t *testing.T) {
	t.Run("ClosedForm", func(t *testing.T) {
		// The Gumbel quantile reduces to c = (a_n*u + b_n)^2 with
		// u = -log(-log(1-alpha) * sqrt(2*pi)).
		for _, test := range []struct {
			n     int
			alpha float64
		}{
			{n: 10, alpha: 0.05},
			{n: 500, alpha: 0.05},
			{n: 500, alpha: 0.01},
			{n: 100000, alpha: 0.1},
		} {
			got, err := AsymptoticThreshold(test.n, test.alpha)
			require.NoError(t, err)

			loglog := math.Log(math.Log(float64(test.n)))
			an := 1 / math.Sqrt(2*loglog)
			bn := 1/an + 0.5*an*math.Log(loglog)
			u := -math.Log(-math.Log(1-test.alpha) * math.Sqrt(2*math.Pi))
			critical := an*u + bn
			assert.InDelta(t, critical*critical, got, 1e-9, "n=%d alpha=%v", test.n, test.alpha)
		}
	})
	t.Run("ReferenceValue", func(t *testing.T) {
		got, err := AsymptoticThreshold(500, 0.05)
		require.NoError(t, err)
		assert.InDelta(t, 9.8737, got, 0.02)
	})
	t.Run("DecreasesWithAlpha", func(t *testing.T) {
		strict, err := AsymptoticThreshold(500, 0.01)
		require.NoError(t, err)
		loose, err := AsymptoticThreshold(500, 0.2)
		require.NoError(t, err)
		assert.Greater(t, strict, loose)
	})
	t.Run("Errors", func(t *testing.T) {
		_, err := AsymptoticThreshold(1, 0.05)
		assert.True(t, IsInvalidInput(err))

		// The iterated logarithm needs at least three observations.
		_, err = AsymptoticThreshold(2, 0.05)
		assert.True(t, IsInvalidInput(err))

		for _, alpha := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
			_, err = AsymptoticThreshold(500, alpha)
			assert.True(t, IsInvalidParameter(err), "alpha=%v", alpha)
		}
	})
}

func TestMonteCarloThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("DeterministicAcrossWorkerCounts", func(t *testing.T) {
		var results []*Calibration
		for _, workers := range []int{1, 4, 9} {
			result, err := MonteCarloThreshold(ctx, 60, 0.05, MonteCarloOptions{
				Replicates: 200,
				Seed:       99,
				Workers:    workers,
			})
			require.NoError(t, err)
			results = append(results, result)
		}

		for _, other := range results[1:] {
			assert.Equal(t, results[0].Threshold, other.Threshold)
			assert.Equal(t, results[0].Maxima, other.Maxima)
		}
	})
	t.Run("ThresholdWithinNullMaxima", func(t *testing.T) {
		result, err := MonteCarloThreshold(ctx, 60, 0.05, MonteCarloOptions{Replicates: 200})
		require.NoError(t, err)

		require.Len(t, result.Maxima, 200)
		low, high := math.Inf(1), math.Inf(-1)
		for _, m := range result.Maxima {
			assert.Greater(t, m, 0.0)
			low = math.Min(low, m)
			high = math.Max(high, m)
		}
		assert.GreaterOrEqual(t, result.Threshold, low)
		assert.LessOrEqual(t, result.Threshold, high)
		assert.Equal(t, CalibrationMonteCarlo, result.Method)
		assert.Empty(t, result.Warning)
	})
	t.Run("FewReplicatesWarn", func(t *testing.T) {
		result, err := MonteCarloThreshold(ctx, 60, 0.05, MonteCarloOptions{Replicates: 50})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Warning)
	})
	t.Run("Errors", func(t *testing.T) {
		_, err := MonteCarloThreshold(ctx, 60, 0.05, MonteCarloOptions{Replicates: -5})
		assert.True(t, IsInvalidParameter(err))

		_, err = MonteCarloThreshold(ctx, 60, 2, MonteCarloOptions{})
		assert.True(t, IsInvalidParameter(err))

		_, err = MonteCarloThreshold(ctx, 1, 0.05, MonteCarloOptions{})
		assert.True(t, IsInvalidInput(err))
	})
	t.Run("Cancellation", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := MonteCarloThreshold(canceled, 60, 0.05, MonteCarloOptions{Replicates: 200})
		require.Error(t, err)
		assert.Equal(t, context.Canceled, errors.Cause(err))
	})
	t.Run("SharperThanAsymptotic", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping simulation test in short mode")
		}

		// The Gumbel limit converges slowly from above, so simulation
		// should land below it at moderate lengths.
		asymptotic, err := AsymptoticThreshold(200, 0.05)
		require.NoError(t, err)

		mc, err := MonteCarloThreshold(ctx, 200, 0.05, MonteCarloOptions{Replicates: 500})
		require.NoError(t, err)
		assert.Less(t, mc.Threshold, asymptotic)
	})
	t.Run("EstimateStabilizesWithReplicates", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping simulation test in short mode")
		}

		estimate := func(replicates int) []float64 {
			thresholds := make([]float64, 0, 8)
			for seed := int64(1); seed <= 8; seed++ {
				result, err := MonteCarloThreshold(ctx, 50, 0.05, MonteCarloOptions{
					Replicates: replicates,
					Seed:       seed,
				})
				require.NoError(t, err)
				thresholds = append(thresholds, result.Threshold)
			}
			return thresholds
		}

		coarse := stat.Variance(estimate(50), nil)
		fine := stat.Variance(estimate(1600), nil)
		assert.Less(t, fine, coarse)
	})
}

func TestCalibrate(t *testing.T) {
	ctx := context.Background()

	t.Run("Asymptotic", func(t *testing.T) {
		result, err := Calibrate(ctx, CalibrationAsymptotic, 500, 0.05, MonteCarloOptions{})
		require.NoError(t, err)
		assert.Equal(t, CalibrationAsymptotic, result.Method)
		assert.Empty(t, result.Maxima)

		direct, err := AsymptoticThreshold(500, 0.05)
		require.NoError(t, err)
		assert.Equal(t, direct, result.Threshold)
	})
	t.Run("MonteCarlo", func(t *testing.T) {
		result, err := Calibrate(ctx, CalibrationMonteCarlo, 60, 0.05, MonteCarloOptions{Replicates: 150})
		require.NoError(t, err)
		assert.Equal(t, CalibrationMonteCarlo, result.Method)
		assert.Len(t, result.Maxima, 150)
	})
	t.Run("UnknownMethod", func(t *testing.T) {
		_, err := Calibrate(ctx, CalibrationMethod("bootstrap"), 60, 0.05, MonteCarloOptions{})
		assert.True(t, IsInvalidParameter(err))
	})
}
