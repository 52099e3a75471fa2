package operations

import (
	"strings"

	"github.com/deltalab-io/cusp/change"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	csvFlagName  = "csv"
	ftdcFlagName = "ftdc"
	jsonFlagName = "json"

	columnFlagName = "column"
	metricFlagName = "metric"

	outputFlagName  = "output"
	parquetFlagName = "parquet"

	familyFlagName      = "family"
	methodFlagName      = "method"
	penaltyFlagName     = "penalty"
	thresholdFlagName   = "threshold"
	alphaFlagName       = "alpha"
	calibrationFlagName = "calibration"
	replicatesFlagName  = "replicates"
	seedFlagName        = "seed"
	sigma2FlagName      = "sigma2"
	gridFlagName        = "grid"
	prunedFlagName      = "pruned"
	lengthFlagName      = "length"

	varianceFlagName    = "variance"
	projectFlagName     = "project"
	variantFlagName     = "variant"
	taskFlagName        = "task"
	testFlagName        = "test"
	measurementFlagName = "measurement"

	fileFlagName = "file"

	numWorkersFlag    = "workers"
	artifactsPathFlag = "artifacts"

	dbURIFlag  = "dbUri"
	dbNameFlag = "dbName"

	clientHostFlag = "host"
	clientPortFlag = "port"

	servicePortFlag = "port"
	corsOriginFlag  = "corsOrigin"
	prefixFlagName  = "prefix"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func baseFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "specify the number of worker jobs this process will have",
			Value: 2,
		},
		cli.StringFlag{
			Name:   artifactsPathFlag,
			Usage:  "specify a local path to use for archiving analysis artifacts",
			EnvVar: "CUSP_ARTIFACTS_PATH",
			Value:  "cusp-artifacts",
		})
}

func dbFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   dbURIFlag,
			Usage:  "specify a mongodb connection string",
			Value:  "mongodb://localhost:27017",
			EnvVar: "CUSP_MONGODB_URL",
		},
		cli.StringFlag{
			Name:   dbNameFlag,
			Usage:  "specify a database name to use",
			Value:  "cusp",
			EnvVar: "CUSP_DATABASE_NAME",
		})
}

func restServiceFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  clientHostFlag,
			Usage: "host for the remote cusp instance.",
			Value: "http://localhost",
		},
		cli.IntFlag{
			Name:  clientPortFlag,
			Usage: "port for the remote cusp service.",
			Value: 3000,
		},
	)
}

// seriesInputFlags describe where a command reads its series from: exactly
// one of the three file flags, plus the column or metric selectors the csv
// and ftdc formats need.
func seriesInputFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  csvFlagName,
			Usage: "path to a csv input file",
		},
		cli.StringFlag{
			Name:  ftdcFlagName,
			Usage: "path to an ftdc input file",
		},
		cli.StringFlag{
			Name:  jsonFlagName,
			Usage: "path to a json input file holding an array of numbers",
		},
		cli.StringFlag{
			Name:  columnFlagName,
			Usage: "csv column to read, by zero-based index or header name",
		},
		cli.StringFlag{
			Name:  metricFlagName,
			Usage: "dotted key of the ftdc metric to read",
		})
}

func detectionFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  familyFlagName,
			Usage: "cost family: 'mean', 'variance', or 'nonparametric'",
			Value: string(change.FamilyMean),
		},
		cli.StringFlag{
			Name:  methodFlagName,
			Usage: "detection method: 'cusum', 'binseg', or 'optpart'",
			Value: string(change.MethodOptPart),
		},
		cli.Float64Flag{
			Name:  penaltyFlagName,
			Usage: "per-changepoint penalty for the segmentation methods; 0 selects 2 log n",
		},
		cli.Float64Flag{
			Name:  thresholdFlagName,
			Usage: "explicit cusum decision threshold; 0 calibrates one at the alpha level",
		},
		cli.Float64Flag{
			Name:  alphaFlagName,
			Usage: "false-positive level for calibrated cusum thresholds",
			Value: change.DefaultAlpha,
		},
		cli.StringFlag{
			Name:  calibrationFlagName,
			Usage: "threshold calibration strategy: 'asymptotic' or 'montecarlo'",
			Value: string(change.CalibrationAsymptotic),
		},
		cli.IntFlag{
			Name:  replicatesFlagName,
			Usage: "monte carlo replicate count; 0 selects the default of 1000",
		},
		cli.Int64Flag{
			Name:  seedFlagName,
			Usage: "monte carlo rng seed; 0 selects the fixed default",
		},
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "monte carlo simulation workers; 0 selects one per cpu",
		},
		cli.Float64Flag{
			Name:  sigma2FlagName,
			Usage: "known noise variance; 0 estimates it from the data",
		},
		cli.IntFlag{
			Name:  gridFlagName,
			Usage: "quantile grid size for the nonparametric family; 0 selects the default",
		},
		cli.BoolFlag{
			Name:  prunedFlagName,
			Usage: "prune the optimal partitioning search",
		})
}

func calibrationFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:  joinFlagNames(lengthFlagName, "n"),
			Usage: "length of the series the threshold is calibrated for",
		},
		cli.Float64Flag{
			Name:  alphaFlagName,
			Usage: "false-positive level for the threshold",
			Value: change.DefaultAlpha,
		},
		cli.StringFlag{
			Name:  methodFlagName,
			Usage: "calibration strategy: 'asymptotic' or 'montecarlo'",
			Value: string(change.CalibrationAsymptotic),
		},
		cli.IntFlag{
			Name:  replicatesFlagName,
			Usage: "monte carlo replicate count; 0 selects the default of 1000",
		},
		cli.Int64Flag{
			Name:  seedFlagName,
			Usage: "monte carlo rng seed; 0 selects the fixed default",
		},
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "monte carlo simulation workers; 0 selects one per cpu",
		})
}

func addOutputFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  joinFlagNames(outputFlagName, "o"),
			Usage: "path to the json output file; writes to standard output when unset",
		},
		cli.StringFlag{
			Name:  parquetFlagName,
			Usage: "path to an optional parquet output file",
		})
}

func setFlagOrFirstPositional(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		val := c.String(name)
		if val == "" {
			if c.NArg() != 1 {
				return errors.Errorf("must specify exactly one positional argument for '%s'", name)
			}

			val = c.Args().Get(0)
		}

		return c.Set(name, val)
	}
}
