package operations

import (
	"context"
	"strings"
	"time"

	"github.com/deltalab-io/cusp/units"
	"github.com/deltalab-io/cusp/util"
	"github.com/mongodb/amboy"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Worker returns the ./cusp worker command, which is responsible for
// draining the analysis backlog without hosting the REST API.
func Worker() cli.Command {
	return cli.Command{
		Name: "worker",
		Usage: strings.Join([]string{
			"run a detection node without a web front-end",
			"scans for series awaiting analysis and runs jobs until there is no more pending work",
		}, "\n\t"),
		Flags: mergeFlags(baseFlags(), dbFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go signalListener(ctx, cancel)

			sc := newServiceConf(c.Int(numWorkersFlag), true,
				c.String(dbURIFlag), c.String(dbNameFlag), c.String(artifactsPathFlag))
			env, err := sc.setup(ctx, "cusp.worker")
			if err != nil {
				return errors.WithStack(err)
			}

			q := env.GetQueue()
			ts := util.RoundPartOfMinute(0).Format("2006-01-02.15-04-05")
			if err := q.Put(ctx, units.NewPeriodicDetectJob(env, ts)); err != nil {
				return errors.Wrap(err, "problem scheduling backlog scan")
			}

			grip.Info(q.Stats(ctx))
			amboy.WaitInterval(ctx, q, time.Second)
			grip.Notice("no pending work; shutting worker down.")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Minute)
			defer shutdownCancel()
			return errors.Wrap(env.Close(shutdownCtx), "problem closing environment")
		},
	}
}
