package model

import (
	"crypto/sha1"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/deltalab-io/cusp"
)

const calibrationCollection = "calibration_records"

// CalibrationRecord stores a calibrated CUSUM decision threshold so the
// service can reuse it for series of the same length.
type CalibrationRecord struct {
	ID        string                `bson:"_id,omitempty" json:"id" yaml:"id"`
	Info      CalibrationRecordInfo `bson:"info,omitempty" json:"info" yaml:"info"`
	CreatedAt time.Time             `bson:"created_at" json:"created_at" yaml:"created_at"`

	Threshold float64 `bson:"threshold" json:"threshold" yaml:"threshold"`
	Warning   string  `bson:"warning,omitempty" json:"warning,omitempty" yaml:"warning,omitempty"`

	// Maxima summarizes the simulated null statistics behind a Monte
	// Carlo threshold; it is zero for asymptotic thresholds.
	Maxima ReplicateMaximaSummary `bson:"maxima,omitempty" json:"maxima" yaml:"maxima"`

	env       cusp.Environment
	populated bool
}

var (
	calibrationRecordIDKey        = bsonutil.MustHaveTag(CalibrationRecord{}, "ID")
	calibrationRecordInfoKey      = bsonutil.MustHaveTag(CalibrationRecord{}, "Info")
	calibrationRecordCreatedAtKey = bsonutil.MustHaveTag(CalibrationRecord{}, "CreatedAt")
	calibrationRecordThresholdKey = bsonutil.MustHaveTag(CalibrationRecord{}, "Threshold")
	calibrationRecordWarningKey   = bsonutil.MustHaveTag(CalibrationRecord{}, "Warning")
	calibrationRecordMaximaKey    = bsonutil.MustHaveTag(CalibrationRecord{}, "Maxima")
)

// CalibrationRecordInfo identifies the calibration a threshold belongs to.
type CalibrationRecordInfo struct {
	SeriesLength int     `bson:"series_length" json:"series_length" yaml:"series_length"`
	Alpha        float64 `bson:"alpha" json:"alpha" yaml:"alpha"`
	Method       string  `bson:"method" json:"method" yaml:"method"`
	Replicates   int     `bson:"replicates,omitempty" json:"replicates,omitempty" yaml:"replicates,omitempty"`
	Seed         int64   `bson:"seed,omitempty" json:"seed,omitempty" yaml:"seed,omitempty"`
}

var (
	calibrationRecordInfoSeriesLengthKey = bsonutil.MustHaveTag(CalibrationRecordInfo{}, "SeriesLength")
	calibrationRecordInfoAlphaKey        = bsonutil.MustHaveTag(CalibrationRecordInfo{}, "Alpha")
	calibrationRecordInfoMethodKey       = bsonutil.MustHaveTag(CalibrationRecordInfo{}, "Method")
	calibrationRecordInfoReplicatesKey   = bsonutil.MustHaveTag(CalibrationRecordInfo{}, "Replicates")
	calibrationRecordInfoSeedKey         = bsonutil.MustHaveTag(CalibrationRecordInfo{}, "Seed")
)

// ID creates a unique hash for a calibration record.
func (id *CalibrationRecordInfo) ID() string {
	var hash hash.Hash = sha1.New()

	_, _ = io.WriteString(hash, fmt.Sprint(id.SeriesLength))
	_, _ = io.WriteString(hash, fmt.Sprint(id.Alpha))
	_, _ = io.WriteString(hash, id.Method)
	_, _ = io.WriteString(hash, fmt.Sprint(id.Replicates))
	_, _ = io.WriteString(hash, fmt.Sprint(id.Seed))

	return fmt.Sprintf("%x", hash.Sum(nil))
}

// ReplicateMaximaSummary condenses the per-replicate null maxima of a Monte
// Carlo calibration.
type ReplicateMaximaSummary struct {
	Count int     `bson:"count" json:"count" yaml:"count"`
	Min   float64 `bson:"min" json:"min" yaml:"min"`
	Max   float64 `bson:"max" json:"max" yaml:"max"`
	Mean  float64 `bson:"mean" json:"mean" yaml:"mean"`
}

// SummarizeReplicateMaxima reduces raw replicate maxima to their summary.
func SummarizeReplicateMaxima(maxima []float64) ReplicateMaximaSummary {
	if len(maxima) == 0 {
		return ReplicateMaximaSummary{}
	}

	return ReplicateMaximaSummary{
		Count: len(maxima),
		Min:   floats.Min(maxima),
		Max:   floats.Max(maxima),
		Mean:  stat.Mean(maxima, nil),
	}
}

// CreateCalibrationRecord builds a populated record for a calibrated
// threshold.
func CreateCalibrationRecord(info CalibrationRecordInfo, threshold float64, warning string, maxima []float64) *CalibrationRecord {
	return &CalibrationRecord{
		ID:        info.ID(),
		Info:      info,
		CreatedAt: time.Now(),
		Threshold: threshold,
		Warning:   warning,
		Maxima:    SummarizeReplicateMaxima(maxima),
		populated: true,
	}
}

// Setup sets the environment for the calibration record. The environment is
// required for numerous functions on CalibrationRecord.
func (record *CalibrationRecord) Setup(e cusp.Environment) { record.env = e }

// IsNil returns if the calibration record is populated or not.
func (record *CalibrationRecord) IsNil() bool { return !record.populated }

// Find searches the database for the calibration record. The environment
// should not be nil.
func (record *CalibrationRecord) Find() error {
	if record.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	ctx, cancel := record.env.Context()
	defer cancel()

	if record.ID == "" {
		record.ID = record.Info.ID()
	}

	record.populated = false
	err := record.env.GetDB().Collection(calibrationCollection).FindOne(ctx, bson.M{"_id": record.ID}).Decode(record)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find calibration record with id %s in the database", record.ID)
	} else if err != nil {
		return errors.Wrap(err, "problem finding calibration record")
	}
	record.populated = true

	return nil
}

// SaveNew saves a new calibration record to the database, if a record with
// the same ID already exists an error is returned. The record should be
// populated and the environment should not be nil.
func (record *CalibrationRecord) SaveNew() error {
	if !record.populated {
		return errors.New("cannot save unpopulated calibration record")
	}
	if record.env == nil {
		return errors.New("cannot save with a nil environment")
	}
	ctx, cancel := record.env.Context()
	defer cancel()

	if record.ID == "" {
		record.ID = record.Info.ID()
	}

	insertResult, err := record.env.GetDB().Collection(calibrationCollection).InsertOne(ctx, record)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   calibrationCollection,
		"id":           record.ID,
		"insertResult": insertResult,
		"op":           "save new calibration record",
	})

	return errors.Wrapf(err, "problem saving new calibration record %s", record.ID)
}
