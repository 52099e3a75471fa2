package util

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LoadSeriesCSV reads one numeric column out of a CSV file. The column is
// selected by zero-based index or, when the file opens with a header row, by
// name; an empty selector means the first column. A header row is recognized
// by its selected cell not parsing as a number.
func LoadSeriesCSV(path, column string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "problem opening %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Errorf("file %s is empty", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "problem reading %s", path)
	}

	if column == "" {
		column = "0"
	}

	var values []float64
	idx, err := strconv.Atoi(column)
	if err != nil {
		// Selection by name, so the first row must be a header.
		idx = -1
		for i, name := range first {
			if name == column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errors.Errorf("no column named '%s' in %s", column, path)
		}
	} else {
		if idx < 0 || idx >= len(first) {
			return nil, errors.Errorf("column %d out of range for %d-column file %s", idx, len(first), path)
		}
		if v, convErr := strconv.ParseFloat(first[idx], 64); convErr == nil {
			values = append(values, v)
		}
	}

	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "problem reading row %d of %s", row, path)
		}
		if idx >= len(record) {
			return nil, errors.Errorf("row %d of %s has no column %d", row, path, idx)
		}

		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d of %s is not numeric", row, path)
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, errors.Errorf("no numeric values in column '%s' of %s", column, path)
	}

	return values, nil
}
