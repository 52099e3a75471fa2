package operations

import (
	"context"

	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Calibrate returns the ./cusp calibrate command, which resolves a decision
// threshold for the single-change scan at a given series length.
func Calibrate() cli.Command {
	return cli.Command{
		Name:  "calibrate",
		Usage: "resolve a cusum decision threshold for a series length",
		Flags: addOutputFlags(calibrationFlags()...),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			n := c.Int(lengthFlagName)
			alpha := c.Float64(alphaFlagName)
			method := change.CalibrationMethod(c.String(methodFlagName))
			mc := change.MonteCarloOptions{
				Replicates: c.Int(replicatesFlagName),
				Seed:       c.Int64(seedFlagName),
				Workers:    c.Int(numWorkersFlag),
			}

			calibration, err := change.Calibrate(ctx, method, n, alpha, mc)
			if err != nil {
				return errors.Wrap(err, "problem calibrating threshold")
			}

			grip.Info(message.Fields{
				"message":   "calibration complete",
				"method":    string(calibration.Method),
				"length":    n,
				"alpha":     alpha,
				"threshold": calibration.Threshold,
			})
			grip.WarningWhen(calibration.Warning != "", message.Fields{
				"message": calibration.Warning,
				"method":  string(calibration.Method),
			})

			if fn := c.String(parquetFlagName); fn != "" {
				if err := util.WriteMaximaParquet(fn, calibration.Maxima); err != nil {
					return errors.Wrap(err, "problem writing parquet output")
				}
			}

			return writeOutput(c, calibration)
		},
	}
}
