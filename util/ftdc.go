package util

import (
	"context"
	"os"

	"github.com/mongodb/ftdc"
	"github.com/pkg/errors"
)

// LoadSeriesFTDC extracts one metric from an FTDC file as a float series,
// selected by its dotted key name, concatenating values across chunks in
// order.
func LoadSeriesFTDC(ctx context.Context, path, metric string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "problem opening %s", path)
	}
	defer f.Close()

	var values []float64
	found := false

	iter := ftdc.ReadChunks(ctx, f)
	defer iter.Close()
	for iter.Next() {
		chunk := iter.Chunk()
		for _, m := range chunk.Metrics {
			if m.Key() != metric {
				continue
			}

			found = true
			for _, v := range m.Values {
				values = append(values, float64(v))
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "problem reading ftdc data from %s", path)
	}
	if !found {
		return nil, errors.Errorf("metric '%s' not present in %s", metric, path)
	}

	return values, nil
}
