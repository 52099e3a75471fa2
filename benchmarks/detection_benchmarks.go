package benchmarks

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/deltalab-io/cusp/change"
	"github.com/evergreen-ci/poplar"
	"github.com/pkg/errors"
)

const benchmarkSeed = 20250301

// RunDetectionBenchmark runs a poplar benchmark suite for the detection
// algorithms over synthetic shifted-Gaussian series of increasing length.
func RunDetectionBenchmark(ctx context.Context) error {
	prefix := filepath.Join(
		"build",
		fmt.Sprintf("detection_benchmark_report_%d", time.Now().Unix()),
	)
	if err := os.MkdirAll(prefix, os.ModePerm); err != nil {
		return errors.Wrap(err, "problem creating top level directory")
	}

	seriesLengths := []int{1e4, 1e5}
	var combinedReports string
	for _, n := range seriesLengths {
		suitePrefix := filepath.Join(prefix, fmt.Sprintf("%d", n))
		if err := os.Mkdir(suitePrefix, os.ModePerm); err != nil {
			return errors.Wrap(err, "problem creating subdirectory")
		}

		suite := getDetectionSuite(newShiftedSeries(n))
		results, err := suite.Run(ctx, suitePrefix)
		if err != nil {
			combinedReports += fmt.Sprintf("Series Length: %d\n===============\nError:\n%s\n", n, err)
			continue
		}

		combinedReports += fmt.Sprintf("Series Length: %d\n===============\n%s\n", n, results.Report())
	}

	f, err := os.Create(filepath.Join(prefix, "results.txt"))
	if err != nil {
		return errors.Wrap(err, "problem creating new file")
	}
	defer f.Close()

	_, err = f.WriteString(combinedReports)
	if err != nil {
		return errors.Wrap(err, "problem writing to file")
	}

	return nil
}

// newShiftedSeries builds a deterministic unit-variance Gaussian series with
// a mean shift at each quarter, so every algorithm has changes to find.
func newShiftedSeries(n int) []float64 {
	rng := rand.New(rand.NewSource(benchmarkSeed))
	segment := n / 4

	values := make([]float64, n)
	for i := range values {
		values[i] = 10*float64(1+i/segment) + rng.NormFloat64()
	}

	return values
}

func getDetectionSuite(values []float64) poplar.BenchmarkSuite {
	return poplar.BenchmarkSuite{
		{
			CaseName: "CUSUMAsymptotic",
			Bench: getDetectionBenchmark(values, change.Options{
				Method: change.MethodCUSUM,
			}),
			MinRuntime:       time.Millisecond,
			MaxRuntime:       10 * time.Minute,
			Timeout:          20 * time.Minute,
			IterationTimeout: 10 * time.Minute,
			Count:            1,
			MinIterations:    1,
			MaxIterations:    2,
			Recorder:         poplar.RecorderPerf,
		},
		{

			CaseName: "BinarySegmentation",
			Bench: getDetectionBenchmark(values, change.Options{
				Method: change.MethodBinSeg,
			}),
			MinRuntime:       time.Millisecond,
			MaxRuntime:       10 * time.Minute,
			Timeout:          20 * time.Minute,
			IterationTimeout: 10 * time.Minute,
			Count:            1,
			MinIterations:    1,
			MaxIterations:    2,
			Recorder:         poplar.RecorderPerf,
		},
		{

			CaseName: "OptimalPartitioning",
			Bench: getDetectionBenchmark(values, change.Options{
				Method: change.MethodOptPart,
			}),
			MinRuntime:       time.Millisecond,
			MaxRuntime:       10 * time.Minute,
			Timeout:          20 * time.Minute,
			IterationTimeout: 10 * time.Minute,
			Count:            1,
			MinIterations:    1,
			MaxIterations:    2,
			Recorder:         poplar.RecorderPerf,
		},
		{

			CaseName: "OptimalPartitioningPruned",
			Bench: getDetectionBenchmark(values, change.Options{
				Method: change.MethodOptPart,
				Pruned: true,
			}),
			MinRuntime:       time.Millisecond,
			MaxRuntime:       10 * time.Minute,
			Timeout:          20 * time.Minute,
			IterationTimeout: 10 * time.Minute,
			Count:            1,
			MinIterations:    1,
			MaxIterations:    2,
			Recorder:         poplar.RecorderPerf,
		},
	}
}

func getDetectionBenchmark(values []float64, opts change.Options) poplar.Benchmark {
	opts.Penalty = change.DefaultPenalty(len(values))

	return func(ctx context.Context, r poplar.Recorder, _ int) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "context error before detection")
		}

		startAt := time.Now()
		r.BeginIteration()
		result, err := change.Detect(ctx, values, opts)
		r.EndIteration(time.Since(startAt))
		if err != nil {
			return errors.Wrap(err, "problem running detection")
		}
		r.IncOperations(1)

		r.SetState(int64(len(result.Segmentation.Changepoints)))
		return nil
	}
}
