package units

import (
	"context"
	"fmt"
	"time"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/model"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const calibrateThresholdJobName = "calibrate-threshold"

type calibrateThresholdJob struct {
	SeriesLength int     `bson:"series_length" json:"series_length" yaml:"series_length"`
	Alpha        float64 `bson:"alpha" json:"alpha" yaml:"alpha"`
	Method       string  `bson:"method" json:"method" yaml:"method"`
	Replicates   int     `bson:"replicates" json:"replicates" yaml:"replicates"`
	Seed         int64   `bson:"seed" json:"seed" yaml:"seed"`

	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	env      cusp.Environment
}

func init() {
	registry.AddJobType(calibrateThresholdJobName, func() amboy.Job { return makeCalibrateThresholdJob() })
}

func makeCalibrateThresholdJob() *calibrateThresholdJob {
	j := &calibrateThresholdJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    calibrateThresholdJobName,
				Version: 1,
			},
		},
	}

	j.SetDependency(dependency.NewAlways())
	return j
}

func (j *calibrateThresholdJob) validate() error {
	if j.SeriesLength == 0 {
		return errors.New("no series length given")
	}

	if j.Method == "" {
		return errors.New("no calibration method given")
	}

	return nil
}

// NewCalibrateThresholdJob makes a job that resolves the decision threshold
// for a series length and false-positive level, stores the calibration
// record, and warms the environment threshold cache.
func NewCalibrateThresholdJob(env cusp.Environment, n int, alpha float64, method change.CalibrationMethod, replicates int, seed int64) (amboy.Job, error) {
	j := makeCalibrateThresholdJob()
	j.env = env
	j.SeriesLength = n
	j.Alpha = alpha
	j.Method = string(method)
	j.Replicates = replicates
	j.Seed = seed

	if err := j.validate(); err != nil {
		return nil, errors.Wrap(err, "failed to create new calibrate threshold job")
	}

	j.SetID(fmt.Sprintf("%s.%s.%d.%g", calibrateThresholdJobName, j.Method, n, alpha))

	return j, nil
}

func (j *calibrateThresholdJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = cusp.GetEnvironment()
	}

	startAt := time.Now()

	info := model.CalibrationRecordInfo{
		SeriesLength: j.SeriesLength,
		Alpha:        j.Alpha,
		Method:       j.Method,
		Replicates:   j.Replicates,
		Seed:         j.Seed,
	}

	record := &model.CalibrationRecord{ID: info.ID()}
	record.Setup(j.env)
	if err := record.Find(); err == nil {
		j.env.GetCache().PutNew(cusp.ThresholdCacheKey(j.SeriesLength, j.Alpha, j.Method), record.Threshold)
		grip.Debug(message.Fields{
			"job_id":        j.ID(),
			"record_id":     record.ID,
			"series_length": j.SeriesLength,
			"alpha":         j.Alpha,
			"op":            "calibration already recorded",
		})
		return
	}

	calibration, err := change.Calibrate(ctx, change.CalibrationMethod(j.Method), j.SeriesLength, j.Alpha, change.MonteCarloOptions{
		Replicates: j.Replicates,
		Seed:       j.Seed,
	})
	if err != nil {
		j.AddError(errors.Wrapf(err, "problem calibrating threshold for n=%d alpha=%g", j.SeriesLength, j.Alpha))
		return
	}

	record = model.CreateCalibrationRecord(info, calibration.Threshold, calibration.Warning, calibration.Maxima)
	record.Setup(j.env)
	if err = record.SaveNew(); err != nil {
		j.AddError(errors.Wrapf(err, "problem saving calibration record '%s'", record.ID))
		return
	}

	j.env.GetCache().PutNew(cusp.ThresholdCacheKey(j.SeriesLength, j.Alpha, j.Method), calibration.Threshold)

	recordCalibrationStat(j.env, cusp.Stat{
		Count:  j.Replicates,
		Family: j.Method,
		Series: fmt.Sprintf("n=%d/alpha=%g", j.SeriesLength, j.Alpha),
	})

	grip.Debug(message.Fields{
		"job_id":        j.ID(),
		"record_id":     record.ID,
		"series_length": j.SeriesLength,
		"alpha":         j.Alpha,
		"threshold":     calibration.Threshold,
		"warning":       calibration.Warning,
		"duration_ms":   int64(time.Since(startAt) / time.Millisecond),
		"op":            "calibrate threshold",
	})
}

func recordCalibrationStat(env cusp.Environment, stat cusp.Stat) {
	cache, err := env.GetStatsCache(cusp.StatsCacheCalibrations)
	if err != nil {
		grip.Warning(message.WrapError(err, "finding calibrations stats cache"))
		return
	}

	grip.Warning(message.WrapError(cache.AddStat(stat), "adding calibration stat"))
}
