package change

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CalibrationMethod selects a threshold-calibration strategy.
type CalibrationMethod string

const (
	// CalibrationAsymptotic uses the closed-form Gumbel limit of the
	// scan maximum.
	CalibrationAsymptotic CalibrationMethod = "asymptotic"
	// CalibrationMonteCarlo simulates the null distribution of the scan
	// maximum.
	CalibrationMonteCarlo CalibrationMethod = "montecarlo"
)

// Validate checks that the method is one this package implements.
func (m CalibrationMethod) Validate() error {
	switch m {
	case CalibrationAsymptotic, CalibrationMonteCarlo:
		return nil
	default:
		return errors.Wrapf(ErrInvalidParameter, "unrecognized calibration method '%s'", string(m))
	}
}

const (
	// DefaultSeed seeds Monte Carlo calibration when the caller does not
	// choose a seed.
	DefaultSeed int64 = 12345678

	// DefaultReplicates is the Monte Carlo replicate count used by the
	// command line and service surfaces.
	DefaultReplicates = 1000

	// minStableReplicates is the replicate count under which Monte Carlo
	// results carry an advisory warning.
	minStableReplicates = 100
)

// Calibration is a resolved decision threshold for the single-change test,
// on the squared scale compared against CUSUMResult.DecisionStat.
type Calibration struct {
	Method    CalibrationMethod
	Threshold float64

	// Maxima holds the per-replicate null maxima (squared scale, by
	// replicate index) for Monte Carlo calibrations, for diagnostics
	// such as null-distribution histograms. Empty for asymptotic ones.
	Maxima []float64

	// Warning carries an advisory note when the estimate may not have
	// converged. It never accompanies an error.
	Warning string
}

func checkCalibrationArgs(n int, alpha float64) error {
	if n < 2 {
		return errors.Wrapf(ErrInvalidInput, "series length %d is below the minimum of 2", n)
	}
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) {
		return errors.Wrapf(ErrInvalidParameter, "false-positive level %v outside the open interval (0,1)", alpha)
	}
	return nil
}

// AsymptoticThreshold returns the extreme-value critical value for the scan
// maximum at level alpha and series length n. With
// a_n = (2 log log n)^(-1/2) and b_n = 1/a_n + 0.5*a_n*log log log n, the
// value is the square of the 1-alpha quantile of
// Gumbel(b_n - 0.5*a_n*log 2pi, a_n). The limit converges slowly, so the
// result tends to sit above the finite-sample threshold; Monte Carlo
// calibration is the sharper choice when simulation time is available.
// Requires n >= 3 for the iterated logarithm to be defined.
func AsymptoticThreshold(n int, alpha float64) (float64, error) {
	if err := checkCalibrationArgs(n, alpha); err != nil {
		return 0, err
	}
	if n < 3 {
		return 0, errors.Wrapf(ErrInvalidInput, "series length %d is below the asymptotic minimum of 3", n)
	}

	loglog := math.Log(math.Log(float64(n)))
	an := 1 / math.Sqrt(2*loglog)
	bn := 1/an + 0.5*an*math.Log(loglog)

	gumbel := distuv.GumbelRight{Mu: bn - 0.5*an*math.Log(2*math.Pi), Beta: an}
	critical := gumbel.Quantile(1 - alpha)
	return critical * critical, nil
}

// MonteCarloOptions tunes Monte Carlo calibration. The zero value selects
// DefaultReplicates, DefaultSeed, and one worker per CPU.
type MonteCarloOptions struct {
	Replicates int
	Seed       int64
	Workers    int
}

func (opts *MonteCarloOptions) validate() error {
	if opts.Replicates == 0 {
		opts.Replicates = DefaultReplicates
	}
	if opts.Replicates < 1 {
		return errors.Wrapf(ErrInvalidParameter, "replicate count %d is below the minimum of 1", opts.Replicates)
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return nil
}

// MonteCarloThreshold estimates the level-alpha critical value for series
// length n by simulating R standard normal series under the no-change null,
// scanning each, and taking the empirical 1-alpha quantile of the maxima.
// Each replicate draws from its own PCG stream keyed by (seed, replicate),
// so results are identical for any worker count. A failed replicate aborts
// the calibration and reports the replicate index.
func MonteCarloThreshold(ctx context.Context, n int, alpha float64, opts MonteCarloOptions) (*Calibration, error) {
	if err := checkCalibrationArgs(n, alpha); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	maxima := make([]float64, opts.Replicates)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(replicate int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = errors.Wrapf(err, "replicate %d", replicate)
		}
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	replicates := make(chan int, opts.Replicates)
	for r := 0; r < opts.Replicates; r++ {
		replicates <- r
	}
	close(replicates)

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range replicates {
				if err := ctx.Err(); err != nil {
					fail(r, err)
					return
				}
				if failed() {
					return
				}

				statMax, err := nullScanMax(n, opts.Seed, r)
				if err != nil {
					fail(r, err)
					return
				}
				maxima[r] = statMax
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, errors.Wrap(firstErr, "monte carlo calibration aborted")
	}

	sorted := make([]float64, len(maxima))
	copy(sorted, maxima)
	sort.Float64s(sorted)

	result := &Calibration{
		Method:    CalibrationMonteCarlo,
		Threshold: stat.Quantile(1-alpha, stat.Empirical, sorted, nil),
		Maxima:    maxima,
	}
	if opts.Replicates < minStableReplicates {
		result.Warning = fmt.Sprintf("threshold estimated from %d replicates, below the %d needed for a stable quantile", opts.Replicates, minStableReplicates)
	}

	return result, nil
}

// nullScanMax draws one standard normal series and returns the squared scan
// maximum.
func nullScanMax(n int, seed int64, replicate int) (float64, error) {
	normal := distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(uint64(seed), uint64(replicate)),
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = normal.Rand()
	}

	series, err := NewSeriesWithVariance(values, 1)
	if err != nil {
		return 0, errors.Wrap(err, "building null series")
	}
	scan, err := CUSUMScan(series.Preprocess())
	if err != nil {
		return 0, errors.Wrap(err, "scanning null series")
	}
	return scan.DecisionStat(), nil
}

// Calibrate resolves a threshold with the requested strategy. Monte Carlo
// options are ignored for the asymptotic method.
func Calibrate(ctx context.Context, method CalibrationMethod, n int, alpha float64, opts MonteCarloOptions) (*Calibration, error) {
	switch method {
	case CalibrationAsymptotic:
		threshold, err := AsymptoticThreshold(n, alpha)
		if err != nil {
			return nil, err
		}
		return &Calibration{Method: CalibrationAsymptotic, Threshold: threshold}, nil
	case CalibrationMonteCarlo:
		return MonteCarloThreshold(ctx, n, alpha, opts)
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unrecognized calibration method '%s'", string(method))
	}
}
