package operations

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deltalab-io/cusp/rest"
	"github.com/deltalab-io/cusp/units"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Service returns the ./cusp service command, which is responsible for
// starting the rest api service and the background detection crons.
func Service() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "run the cusp api service",
		Flags: mergeFlags(baseFlags(), dbFlags(
			cli.IntFlag{
				Name:   joinFlagNames(servicePortFlag, "p"),
				Usage:  "specify a port to run the service on",
				Value:  3000,
				EnvVar: "CUSP_SERVICE_PORT",
			},
			cli.StringFlag{
				Name:  prefixFlagName,
				Usage: "url prefix for the rest routes",
			},
			cli.StringSliceFlag{
				Name:  corsOriginFlag,
				Usage: "cors origins allowed to call the service",
			})),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go signalListener(ctx, cancel)

			sc := newServiceConf(c.Int(numWorkersFlag), true,
				c.String(dbURIFlag), c.String(dbNameFlag), c.String(artifactsPathFlag))
			env, err := sc.setup(ctx, "cusp.service")
			if err != nil {
				return errors.WithStack(err)
			}

			service := &rest.Service{
				Port:        c.Int(servicePortFlag),
				Prefix:      c.String(prefixFlagName),
				CORSOrigins: c.StringSlice(corsOriginFlag),
				Environment: env,
			}
			if err := service.Validate(); err != nil {
				return errors.Wrap(err, "problem validating service")
			}

			if err := units.StartCrons(ctx, env); err != nil {
				return errors.Wrap(err, "problem starting background jobs")
			}

			grip.Noticef("starting cusp service on :%d", service.Port)
			if err := service.Start(ctx); err != nil && errors.Cause(err) != context.Canceled {
				return errors.Wrap(err, "problem running service")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Minute)
			defer shutdownCancel()
			grip.Warning(errors.Wrap(env.Close(shutdownCtx), "problem closing environment"))

			grip.Info("completed service, terminating.")
			return nil
		},
	}
}

func signalListener(ctx context.Context, trigger context.CancelFunc) {
	defer recovery.LogStackTraceAndContinue("graceful shutdown")
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGTERM, os.Interrupt)

	select {
	case <-sigChan:
		grip.Debug("received signal")
	case <-ctx.Done():
		grip.Debug("context canceled")
	}

	trigger()
}
