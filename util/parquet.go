package util

import (
	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/floor"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"
	"github.com/pkg/errors"
)

const segmentsSchema = `message segments {
	required binary series_id (STRING);
	required int64 start;
	required int64 end;
	required double cost;
	optional group fit (LIST) {
		repeated group list {
			required double element;
		}
	}
}`

const maximaSchema = `message replicate_maxima {
	required int64 replicate;
	required double max;
}`

// SegmentRow is one segment of a detection result flattened for columnar
// export.
type SegmentRow struct {
	SeriesID string    `parquet:"series_id"`
	Start    int64     `parquet:"start"`
	End      int64     `parquet:"end"`
	Cost     float64   `parquet:"cost"`
	Fit      []float64 `parquet:"fit"`
}

// WriteSegmentsParquet writes one row per segment to a snappy-compressed
// Parquet file.
func WriteSegmentsParquet(path string, rows []SegmentRow) error {
	sd, err := parquetschema.ParseSchemaDefinition(segmentsSchema)
	if err != nil {
		return errors.Wrap(err, "problem parsing segments schema")
	}

	w, err := floor.NewFileWriter(path,
		goparquet.WithSchemaDefinition(sd),
		goparquet.WithCompressionCodec(parquet.CompressionCodec_SNAPPY),
	)
	if err != nil {
		return errors.Wrapf(err, "problem creating parquet writer for %s", path)
	}

	for i, row := range rows {
		if err := w.Write(row); err != nil {
			w.Close()
			return errors.Wrapf(err, "problem writing segment row %d", i)
		}
	}

	return errors.Wrapf(w.Close(), "problem closing parquet writer for %s", path)
}

type maximaRow struct {
	Replicate int64   `parquet:"replicate"`
	Max       float64 `parquet:"max"`
}

// WriteMaximaParquet writes Monte Carlo replicate maxima, one row per
// replicate in replicate order, to a snappy-compressed Parquet file.
func WriteMaximaParquet(path string, maxima []float64) error {
	sd, err := parquetschema.ParseSchemaDefinition(maximaSchema)
	if err != nil {
		return errors.Wrap(err, "problem parsing maxima schema")
	}

	w, err := floor.NewFileWriter(path,
		goparquet.WithSchemaDefinition(sd),
		goparquet.WithCompressionCodec(parquet.CompressionCodec_SNAPPY),
	)
	if err != nil {
		return errors.Wrapf(err, "problem creating parquet writer for %s", path)
	}

	for i, m := range maxima {
		if err := w.Write(maximaRow{Replicate: int64(i), Max: m}); err != nil {
			w.Close()
			return errors.Wrapf(err, "problem writing replicate %d", i)
		}
	}

	return errors.Wrapf(w.Close(), "problem closing parquet writer for %s", path)
}
