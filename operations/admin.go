package operations

import (
	"context"

	"github.com/deltalab-io/cusp/benchmarks"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Admin returns the ./cusp admin command, for managing a deployed cusp
// application.
func Admin() cli.Command {
	return cli.Command{
		Name:  "admin",
		Usage: "manage a deployed cusp application",
		Subcommands: []cli.Command{
			{
				Name:  "conf",
				Usage: "cusp application configuration",
				Subcommands: []cli.Command{
					loadCuspConfig(),
					dumpCuspConfig(),
				},
			},
			runBenchmarks(),
		},
	}
}

func runBenchmarks() cli.Command {
	return cli.Command{
		Name:  "benchmark",
		Usage: "run the detection benchmark suite and write poplar reports",
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			grip.Log(level.Info, "running detection benchmarks...")
			return errors.WithStack(benchmarks.RunDetectionBenchmark(ctx))
		},
	}
}
