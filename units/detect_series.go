package units

import (
	"context"
	"fmt"
	"time"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const detectSeriesJobName = "detect-series"

type detectSeriesJob struct {
	SeriesID string         `bson:"series_id" json:"series_id" yaml:"series_id"`
	Options  change.Options `bson:"options" json:"options" yaml:"options"`

	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	env      cusp.Environment
}

func init() {
	registry.AddJobType(detectSeriesJobName, func() amboy.Job { return makeDetectSeriesJob() })
}

func makeDetectSeriesJob() *detectSeriesJob {
	j := &detectSeriesJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    detectSeriesJobName,
				Version: 1,
			},
		},
	}

	j.SetDependency(dependency.NewAlways())
	return j
}

func (j *detectSeriesJob) validate() error {
	if j.SeriesID == "" {
		return errors.New("no series id given")
	}

	return nil
}

// NewDetectSeriesJob makes a job that runs changepoint detection over a
// stored performance series and persists the outcome. The series id is a
// content hash, so the job id dedupes resubmissions of the same series
// within a ten minute window.
func NewDetectSeriesJob(env cusp.Environment, seriesID string, opts change.Options) (amboy.Job, error) {
	j := makeDetectSeriesJob()
	j.env = env
	j.SeriesID = seriesID
	j.Options = opts

	if err := j.validate(); err != nil {
		return nil, errors.Wrap(err, "failed to create new detect series job")
	}

	timestamp := util.RoundPartOfHour(10)
	j.SetID(fmt.Sprintf("%s.%s.%s", detectSeriesJobName, seriesID, timestamp.Format(cusp.ShortDateFormat)))

	return j, nil
}

func (j *detectSeriesJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = cusp.GetEnvironment()
	}

	startAt := time.Now()

	series := &model.PerformanceSeries{ID: j.SeriesID}
	series.Setup(j.env)
	if err := series.Find(); err != nil {
		j.AddError(errors.Wrapf(err, "problem finding performance series '%s'", j.SeriesID))
		return
	}

	opts := j.Options
	if opts.Sigma2 == 0 {
		opts.Sigma2 = series.Variance
	}
	if opts.Penalty == 0 {
		opts.Penalty = change.DefaultPenalty(len(series.Values))
	}
	if err := opts.Validate(); err != nil {
		j.AddError(errors.Wrapf(err, "invalid detection options for series '%s'", j.SeriesID))
		return
	}

	if opts.Method == change.MethodCUSUM && opts.Threshold == 0 {
		key := cusp.ThresholdCacheKey(len(series.Values), opts.Alpha, string(opts.Calibration))
		if cached, ok := j.env.GetCache().Get(key); ok {
			if threshold, ok := cached.(float64); ok {
				opts.Threshold = threshold
			}
		}
	}

	result, err := change.Detect(ctx, series.Values, opts)
	if err != nil {
		j.AddError(errors.Wrapf(err, "problem detecting changepoints in series '%s'", j.SeriesID))
		return
	}

	analysis := model.CreateAnalysisResult(model.AnalysisResultInfo{
		SeriesID:  j.SeriesID,
		Algorithm: model.MakeAlgorithmInfo(result.Algorithm),
	}, result.Segmentation)
	analysis.CompletedAt = time.Now()
	analysis.Setup(j.env)
	if err = analysis.SaveNew(); err != nil {
		j.AddError(errors.Wrapf(err, "problem saving analysis of series '%s'", j.SeriesID))
		return
	}

	if err = model.ArchiveAnalysis(ctx, j.env, series, analysis); err != nil {
		j.AddError(errors.Wrapf(err, "problem archiving analysis '%s'", analysis.ID))
		return
	}

	if err = model.MarkSeriesAnalyzed(ctx, j.env, j.SeriesID); err != nil {
		j.AddError(errors.Wrapf(err, "problem marking series '%s' analyzed", j.SeriesID))
		return
	}

	recordDetectionStat(j.env, cusp.Stat{
		Count:   len(analysis.Changepoints),
		Project: series.Info.Project,
		Family:  string(opts.Family),
		Series:  j.SeriesID,
	})

	grip.Debug(message.Fields{
		"job_id":       j.ID(),
		"series_id":    j.SeriesID,
		"method":       string(opts.Method),
		"changepoints": len(analysis.Changepoints),
		"duration_ms":  int64(time.Since(startAt) / time.Millisecond),
		"op":           "detect series",
	})
}

func recordDetectionStat(env cusp.Environment, stat cusp.Stat) {
	cache, err := env.GetStatsCache(cusp.StatsCacheDetections)
	if err != nil {
		grip.Warning(message.WrapError(err, "finding detections stats cache"))
		return
	}

	grip.Warning(message.WrapError(cache.AddStat(stat), "adding detection stat"))
}
