package operations

import (
	"context"
	"time"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// this file is responsible for managing application level configuration
// (calibration defaults, artifact storage) which is saved in the database.

func dumpCuspConfig() cli.Command {
	return cli.Command{
		Name:  "dump-config",
		Usage: "write current cusp application configuration to a file",
		Flags: dbFlags(
			cli.StringFlag{
				Name:  fileFlagName,
				Usage: "specify path to a cusp application config file",
			}),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(fileFlagName), requireStringFlag(fileFlagName)),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sc := newServiceConf(2, false, c.String(dbURIFlag), c.String(dbNameFlag), "")
			env, err := sc.setup(ctx, "cusp.admin")
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			conf := &model.CuspServiceConfig{}
			conf.Setup(env)

			if err := conf.Find(); err != nil {
				return errors.WithStack(err)
			}

			return errors.WithStack(util.WriteJSON(c.String(fileFlagName), conf))
		},
	}
}

func loadCuspConfig() cli.Command {
	return cli.Command{
		Name:  "load-config",
		Usage: "loads cusp application configuration from a file",
		Flags: dbFlags(
			cli.StringFlag{
				Name:  fileFlagName,
				Usage: "specify path to a cusp application config file",
			}),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(fileFlagName), requireStringFlag(fileFlagName), requireFileExists(fileFlagName)),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			mongodbURI := c.String(dbURIFlag)

			sc := newServiceConf(2, false, mongodbURI, c.String(dbNameFlag), "")
			env, err := sc.setup(ctx, "cusp.admin")
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			conf, err := model.LoadCuspServiceConfig(c.String(fileFlagName))
			if err != nil {
				return errors.WithStack(err)
			}
			conf.Setup(env)

			if err = conf.Save(); err != nil {
				return errors.WithStack(err)
			}

			grip.Infoln("successfully loaded application configuration to database at:", mongodbURI)
			return nil
		},
	}
}

func closeEnvironment(env cusp.Environment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	grip.Warning(errors.Wrap(env.Close(ctx), "problem closing environment"))
}
