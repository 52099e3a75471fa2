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

// Detect returns the ./cusp detect command, which runs changepoint
// detection over a series read from a local file without touching the
// database.
func Detect() cli.Command {
	return cli.Command{
		Name:   "detect",
		Usage:  "detect changepoints in a series read from a csv, ftdc, or json file",
		Flags:  addOutputFlags(detectionFlags(seriesInputFlags()...)...),
		Before: requireOneFlag(csvFlagName, ftdcFlagName, jsonFlagName),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			values, err := loadSeries(ctx, c)
			if err != nil {
				return errors.Wrap(err, "problem loading input series")
			}

			opts := change.Options{
				Family:      change.Family(c.String(familyFlagName)),
				Method:      change.Method(c.String(methodFlagName)),
				Penalty:     c.Float64(penaltyFlagName),
				Threshold:   c.Float64(thresholdFlagName),
				Alpha:       c.Float64(alphaFlagName),
				Calibration: change.CalibrationMethod(c.String(calibrationFlagName)),
				Replicates:  c.Int(replicatesFlagName),
				Seed:        c.Int64(seedFlagName),
				Workers:     c.Int(numWorkersFlag),
				Sigma2:      c.Float64(sigma2FlagName),
				GridSize:    c.Int(gridFlagName),
				Pruned:      c.Bool(prunedFlagName),
			}
			if opts.Penalty == 0 && len(values) > 0 {
				opts.Penalty = change.DefaultPenalty(len(values))
			}

			result, err := change.Detect(ctx, values, opts)
			if err != nil {
				return errors.Wrap(err, "problem detecting changepoints")
			}

			grip.Info(message.Fields{
				"message":      "detection complete",
				"input":        inputName(c),
				"observations": len(values),
				"algorithm":    result.Algorithm.Name,
				"changepoints": result.Segmentation.Changepoints,
				"total_cost":   result.Segmentation.TotalCost,
			})

			if fn := c.String(parquetFlagName); fn != "" {
				if err := util.WriteSegmentsParquet(fn, segmentRows(inputName(c), result.Segmentation)); err != nil {
					return errors.Wrap(err, "problem writing parquet output")
				}
			}

			return writeOutput(c, result)
		},
	}
}

func segmentRows(seriesID string, seg *change.Segmentation) []util.SegmentRow {
	rows := make([]util.SegmentRow, 0, len(seg.Segments))
	for _, s := range seg.Segments {
		rows = append(rows, util.SegmentRow{
			SeriesID: seriesID,
			Start:    int64(s.Start),
			End:      int64(s.End),
			Cost:     s.Cost,
			Fit:      s.Fit,
		})
	}

	return rows
}
