package operations

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deltalab-io/cusp/rest"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Client returns the ./cusp client command, a thin wrapper over the rest
// api for scripting and smoke checks.
func Client() cli.Command {
	return cli.Command{
		Name:  "client",
		Usage: "run a simple cusp api client",
		Flags: restServiceFlags(),
		Subcommands: []cli.Command{
			printStatus(),
			submitSeries(),
		},
	}
}

func printStatus() cli.Command {
	return cli.Command{
		Name:   "status",
		Usage:  "prints json document for the status of the service",
		Before: mergeBeforeFuncs(requireClientHostFlag, requireClientPortFlag),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			httpClient := util.GetHTTPClient()
			defer util.PutHTTPClient(httpClient)

			client, err := rest.NewClientFromExisting(httpClient,
				c.Parent().String(clientHostFlag), c.Parent().Int(clientPortFlag), "")
			if err != nil {
				return errors.Wrap(err, "problem creating REST client")
			}

			status, err := client.GetStatus(ctx)
			if err != nil {
				return errors.Wrap(err, "problem getting status")
			}

			grip.Debug(status)
			out, err := json.MarshalIndent(status, "", "   ")
			if err != nil {
				return errors.Wrap(err, "problem rendering status result")
			}

			fmt.Println(string(out))
			return nil
		},
	}
}

func submitSeries() cli.Command {
	return cli.Command{
		Name:  "submit",
		Usage: "submit a series for storage and background analysis",
		Flags: seriesInputFlags(
			cli.StringFlag{
				Name:  projectFlagName,
				Usage: "project the series belongs to",
			},
			cli.StringFlag{
				Name:  variantFlagName,
				Usage: "build variant the series was measured on",
			},
			cli.StringFlag{
				Name:  taskFlagName,
				Usage: "task that produced the series",
			},
			cli.StringFlag{
				Name:  testFlagName,
				Usage: "test that produced the series",
			},
			cli.StringFlag{
				Name:  measurementFlagName,
				Usage: "name of the measurement",
			},
			cli.Float64Flag{
				Name:  varianceFlagName,
				Usage: "known noise variance of the series; 0 when unknown",
			}),
		Before: mergeBeforeFuncs(requireClientHostFlag, requireClientPortFlag,
			requireOneFlag(csvFlagName, ftdcFlagName, jsonFlagName)),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			values, err := loadSeries(ctx, c)
			if err != nil {
				return errors.Wrap(err, "problem loading input series")
			}

			httpClient := util.GetHTTPClient()
			defer util.PutHTTPClient(httpClient)

			client, err := rest.NewClientFromExisting(httpClient,
				c.Parent().String(clientHostFlag), c.Parent().Int(clientPortFlag), "")
			if err != nil {
				return errors.Wrap(err, "problem creating REST client")
			}

			info := dataModel.APIPerformanceSeriesInfo{
				Project:     utility.ToStringPtr(c.String(projectFlagName)),
				Variant:     utility.ToStringPtr(c.String(variantFlagName)),
				Task:        utility.ToStringPtr(c.String(taskFlagName)),
				Test:        utility.ToStringPtr(c.String(testFlagName)),
				Measurement: utility.ToStringPtr(c.String(measurementFlagName)),
			}

			resp, err := client.SubmitSeries(ctx, info, values, c.Float64(varianceFlagName), util.TimeRange{})
			if err != nil {
				return errors.Wrap(err, "problem submitting series")
			}

			grip.Infof("submitted %d observations from %s", len(values), inputName(c))
			out, err := json.MarshalIndent(resp, "", "   ")
			if err != nil {
				return errors.Wrap(err, "problem rendering submit result")
			}

			fmt.Println(string(out))
			return nil
		},
	}
}
