package operations

import (
	"context"
	"encoding/json"
	"os"

	"github.com/deltalab-io/cusp/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// loadSeries reads the series named by whichever input flag the command was
// invoked with. The loaders reject inputs with no usable values, so a
// successful return carries at least one observation.
func loadSeries(ctx context.Context, c *cli.Context) ([]float64, error) {
	switch {
	case c.IsSet(csvFlagName):
		return util.LoadSeriesCSV(c.String(csvFlagName), c.String(columnFlagName))
	case c.IsSet(ftdcFlagName):
		return util.LoadSeriesFTDC(ctx, c.String(ftdcFlagName), c.String(metricFlagName))
	case c.IsSet(jsonFlagName):
		return loadSeriesJSON(c.String(jsonFlagName))
	default:
		return nil, errors.New("no input file specified")
	}
}

func loadSeriesJSON(path string) ([]float64, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "problem opening %s", path)
	}

	var values []float64
	if err := json.Unmarshal(doc, &values); err != nil {
		return nil, errors.Wrapf(err, "file %s does not hold a json array of numbers", path)
	}
	if len(values) == 0 {
		return nil, errors.Errorf("no values in %s", path)
	}

	return values, nil
}

// writeOutput renders data as json to the output flag's path, or to
// standard output when the flag is unset.
func writeOutput(c *cli.Context, data interface{}) error {
	if fn := c.String(outputFlagName); fn != "" {
		return errors.WithStack(util.WriteJSON(fn, data))
	}

	return errors.WithStack(util.PrintJSON(data))
}

// inputName reports the path the series was read from, for logging.
func inputName(c *cli.Context) string {
	for _, name := range []string{csvFlagName, ftdcFlagName, jsonFlagName} {
		if c.IsSet(name) {
			return c.String(name)
		}
	}

	return ""
}
