package units

import (
	"context"
	"fmt"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/model"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

const periodicDetectJobName = "periodic-detect"

type periodicDetectJob struct {
	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	env      cusp.Environment
	queue    amboy.Queue
}

func init() {
	registry.AddJobType(periodicDetectJobName, func() amboy.Job { return makePeriodicDetectJob() })
}

func makePeriodicDetectJob() *periodicDetectJob {
	j := &periodicDetectJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    periodicDetectJobName,
				Version: 1,
			},
		},
	}

	j.SetDependency(dependency.NewAlways())
	return j
}

// NewPeriodicDetectJob makes a job that scans for stored series awaiting
// analysis and enqueues a detection job for each one.
func NewPeriodicDetectJob(env cusp.Environment, id string) amboy.Job {
	j := makePeriodicDetectJob()
	j.env = env
	j.SetID(fmt.Sprintf("%s.%s", periodicDetectJobName, id))
	return j
}

func (j *periodicDetectJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = cusp.GetEnvironment()
	}
	if j.queue == nil {
		j.queue = j.env.GetQueue()
	}
	if j.queue == nil {
		j.AddError(errors.New("environment has no queue"))
		return
	}

	grip.Info("scanning for performance series in need of analysis")
	pending, err := model.FindUnanalyzedSeries(ctx, j.env)
	if err != nil {
		j.AddError(errors.Wrap(err, "unable to get series needing changepoint detection"))
		return
	}

	for _, series := range pending {
		detect, err := NewDetectSeriesJob(j.env, series.ID, change.Options{})
		if err != nil {
			j.AddError(err)
			continue
		}
		j.AddError(j.queue.Put(ctx, detect))
	}
}
