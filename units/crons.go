package units

import (
	"context"
	"time"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/mongodb/amboy"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const tsFormat = "2006-01-02.15-04-05"

// StartCrons schedules the recurring background work on the environment's
// queue: the periodic scan for series awaiting analysis and queue stats
// reporting.
func StartCrons(ctx context.Context, env cusp.Environment) error {
	if env == nil {
		return errors.New("cannot start crons without an environment")
	}

	queue := env.GetQueue()
	if queue == nil {
		return errors.New("environment has no queue")
	}

	opts := amboy.QueueOperationConfig{
		ContinueOnError: true,
		LogErrors:       false,
		DebugLogging:    false,
	}

	grip.Info(message.Fields{
		"message": "starting background cron jobs",
		"opts":    opts,
		"started": queue.Info().Started,
		"stats":   queue.Stats(ctx),
	})

	amboy.IntervalQueueOperation(ctx, queue, time.Minute, time.Now(), opts, func(ctx context.Context, queue amboy.Queue) error {
		ts := util.RoundPartOfMinute(0).Format(tsFormat)
		catcher := grip.NewBasicCatcher()
		catcher.Add(queue.Put(ctx, NewPeriodicDetectJob(env, ts)))
		catcher.Add(queue.Put(ctx, NewAmboyStatsCollector(env, ts)))
		return catcher.Resolve()
	})

	grip.Warning(errors.Wrap(warmThresholds(ctx, env, queue), "problem warming decision thresholds"))

	return nil
}

// warmThresholds enqueues a calibration job for every series length the
// service configuration asks to have ready. Configuration changes take
// effect on the next restart.
func warmThresholds(ctx context.Context, env cusp.Environment, queue amboy.Queue) error {
	conf := &model.CuspServiceConfig{}
	conf.Setup(env)
	if err := conf.Find(); err != nil {
		grip.Debug(message.WrapError(err, "no service configuration; skipping threshold warmup"))
		return nil
	}

	defaults := conf.Calibration
	method := change.CalibrationMethod(defaults.Method)
	if method == "" {
		method = change.CalibrationAsymptotic
	}
	alpha := defaults.Alpha
	if alpha == 0 {
		alpha = change.DefaultAlpha
	}

	catcher := grip.NewBasicCatcher()
	for _, n := range defaults.WarmLengths {
		j, err := NewCalibrateThresholdJob(env, n, alpha, method, defaults.Replicates, defaults.Seed)
		if err != nil {
			catcher.Add(err)
			continue
		}
		catcher.Add(queue.Put(ctx, j))
	}

	return catcher.Resolve()
}
