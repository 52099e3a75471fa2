package change

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Method selects a detection algorithm.
type Method string

const (
	// MethodCUSUM runs the single-change scan against a calibrated or
	// explicit threshold.
	MethodCUSUM Method = "cusum"
	// MethodBinSeg runs greedy binary segmentation.
	MethodBinSeg Method = "binseg"
	// MethodOptPart runs exact optimal partitioning.
	MethodOptPart Method = "optpart"
)

// Validate checks that the method is one this package implements.
func (m Method) Validate() error {
	switch m {
	case MethodCUSUM, MethodBinSeg, MethodOptPart:
		return nil
	default:
		return errors.Wrapf(ErrInvalidParameter, "unrecognized detection method '%s'", string(m))
	}
}

// DefaultAlpha is the false-positive level used when a CUSUM run does not
// choose one.
const DefaultAlpha = 0.05

// DefaultPenalty returns the SIC-style segmentation penalty for a series of
// length n, 2 log n, matched to the twice-negative-log-likelihood scale the
// cost families share.
func DefaultPenalty(n int) float64 {
	return 2 * math.Log(float64(n))
}

// AlgorithmInfo describes the algorithm that produced a result, for
// reporting and persistence.
type AlgorithmInfo struct {
	Name    string
	Version int
	Options []AlgorithmOption
}

// AlgorithmOption is one named algorithm setting.
type AlgorithmOption struct {
	Name  string
	Value interface{}
}

// Options configures a Detect run. Zero values select the documented
// defaults; numeric settings are otherwise taken literally.
type Options struct {
	// Family selects the cost model; default FamilyMean.
	Family Family
	// Method selects the algorithm; default MethodOptPart.
	Method Method

	// Penalty is the per-changepoint penalty for the segmentation
	// methods, taken literally (non-positive values admit every split;
	// see DefaultPenalty for the conventional choice).
	Penalty float64

	// Threshold is the explicit CUSUM decision threshold. When zero the
	// threshold is calibrated at level Alpha with Calibration.
	Threshold   float64
	Alpha       float64
	Calibration CalibrationMethod
	Replicates  int
	Seed        int64
	Workers     int

	// Sigma2 is the known noise variance, 0 when unknown.
	Sigma2 float64

	// Mean is the known mean for the variance family. The default of 0
	// suits data centered in advance.
	Mean float64

	// GridSize is the nonparametric quantile grid size, 0 for the
	// default.
	GridSize int

	// Pruned plugs PELT pruning into optimal partitioning.
	Pruned bool
}

// Validate applies defaults and checks the option combination.
func (opts *Options) Validate() error {
	if opts.Family == "" {
		opts.Family = FamilyMean
	}
	if err := opts.Family.Validate(); err != nil {
		return err
	}

	if opts.Method == "" {
		opts.Method = MethodOptPart
	}
	if err := opts.Method.Validate(); err != nil {
		return err
	}

	if opts.Sigma2 < 0 || math.IsNaN(opts.Sigma2) || math.IsInf(opts.Sigma2, 0) {
		return errors.Wrapf(ErrInvalidParameter, "known variance %v must be positive or zero for unknown", opts.Sigma2)
	}
	if math.IsNaN(opts.Mean) || math.IsInf(opts.Mean, 0) {
		return errors.Wrapf(ErrInvalidParameter, "known mean %v is not finite", opts.Mean)
	}
	if math.IsNaN(opts.Penalty) || math.IsInf(opts.Penalty, 0) {
		return errors.Wrapf(ErrInvalidParameter, "penalty %v is not finite", opts.Penalty)
	}

	if opts.Method == MethodCUSUM {
		if opts.Family != FamilyMean {
			return errors.Wrapf(ErrInvalidParameter, "the cusum scan is specific to the mean family, got '%s'", string(opts.Family))
		}
		if opts.Threshold < 0 || math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) {
			return errors.Wrapf(ErrInvalidParameter, "threshold %v must be positive or zero to calibrate", opts.Threshold)
		}
		if opts.Threshold == 0 {
			if opts.Alpha == 0 {
				opts.Alpha = DefaultAlpha
			}
			if opts.Calibration == "" {
				opts.Calibration = CalibrationAsymptotic
			}
			if err := opts.Calibration.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Result is the outcome of a Detect run. Segmentation is always set; Scan,
// Calibration, and Threshold accompany CUSUM runs.
type Result struct {
	Algorithm    AlgorithmInfo
	Segmentation *Segmentation

	Scan        *CUSUMResult
	Calibration *Calibration
	Threshold   float64
}

// Detect runs the configured detection pipeline on raw values: build and
// preprocess the series, resolve the cost function and, for CUSUM runs, the
// threshold, then hand off to the selected algorithm.
func Detect(ctx context.Context, values []float64, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		series *Series
		err    error
	)
	if opts.Sigma2 > 0 {
		series, err = NewSeriesWithVariance(values, opts.Sigma2)
	} else {
		series, err = NewSeries(values)
	}
	if err != nil {
		return nil, err
	}

	p := series.Preprocess()
	cost, err := costForFamily(p, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{Algorithm: opts.algorithmInfo()}

	switch opts.Method {
	case MethodCUSUM:
		result.Scan, err = CUSUMScan(p)
		if err != nil {
			return nil, err
		}

		result.Threshold = opts.Threshold
		if result.Threshold == 0 {
			mc := MonteCarloOptions{Replicates: opts.Replicates, Seed: opts.Seed, Workers: opts.Workers}
			result.Calibration, err = Calibrate(ctx, opts.Calibration, p.Len(), opts.Alpha, mc)
			if err != nil {
				return nil, errors.Wrap(err, "calibrating threshold")
			}
			result.Threshold = result.Calibration.Threshold
		}

		var changepoints []int
		if result.Scan.Decide(result.Threshold) {
			changepoints = []int{result.Scan.Tau}
		}
		result.Segmentation, err = buildSegmentation(cost, 0, changepoints)
		if err != nil {
			return nil, err
		}
	case MethodBinSeg:
		result.Segmentation, err = BinarySegmentation(ctx, cost, opts.Penalty)
		if err != nil {
			return nil, err
		}
	case MethodOptPart:
		var pruner Pruner
		if opts.Pruned {
			pruner = NewPELTPruner()
		}
		result.Segmentation, err = OptimalPartitioningPruned(ctx, cost, opts.Penalty, pruner)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func costForFamily(p *Preprocessed, opts Options) (Cost, error) {
	switch opts.Family {
	case FamilyMean:
		return NewMeanCost(p), nil
	case FamilyVariance:
		return NewVarianceCost(p, opts.Mean), nil
	case FamilyMeanVariance:
		return NewMeanVarianceCost(p), nil
	case FamilySlope:
		return NewSlopeCost(p), nil
	case FamilyNonparametric:
		return NewNonparametricCost(p, opts.GridSize)
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unrecognized cost family '%s'", string(opts.Family))
	}
}

func (opts Options) algorithmInfo() AlgorithmInfo {
	info := AlgorithmInfo{
		Version: 1,
		Options: []AlgorithmOption{
			{Name: "family", Value: string(opts.Family)},
		},
	}

	switch opts.Method {
	case MethodCUSUM:
		info.Name = "cusum_glr"
		if opts.Threshold > 0 {
			info.Options = append(info.Options, AlgorithmOption{Name: "threshold", Value: opts.Threshold})
		} else {
			info.Options = append(info.Options,
				AlgorithmOption{Name: "alpha", Value: opts.Alpha},
				AlgorithmOption{Name: "calibration", Value: string(opts.Calibration)},
			)
		}
	case MethodBinSeg:
		info.Name = "binary_segmentation"
		info.Options = append(info.Options, AlgorithmOption{Name: "penalty", Value: opts.Penalty})
	case MethodOptPart:
		info.Name = "optimal_partitioning"
		info.Options = append(info.Options,
			AlgorithmOption{Name: "penalty", Value: opts.Penalty},
			AlgorithmOption{Name: "pruned", Value: opts.Pruned},
		)
	}

	if opts.Family == FamilyNonparametric && opts.GridSize > 0 {
		info.Options = append(info.Options, AlgorithmOption{Name: "grid_size", Value: opts.GridSize})
	}
	if opts.Family == FamilyVariance {
		info.Options = append(info.Options, AlgorithmOption{Name: "mean", Value: opts.Mean})
	}
	if opts.Sigma2 > 0 {
		info.Options = append(info.Options, AlgorithmOption{Name: "sigma2", Value: opts.Sigma2})
	}

	return info
}
