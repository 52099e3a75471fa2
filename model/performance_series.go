package model

import (
	"context"
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

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/util"
)

const perfSeriesCollection = "performance_series"

// PerformanceSeries is one ordered series of measurement values submitted
// for changepoint analysis.
type PerformanceSeries struct {
	ID        string                `bson:"_id,omitempty" json:"id" yaml:"id"`
	Info      PerformanceSeriesInfo `bson:"info,omitempty" json:"info" yaml:"info"`
	CreatedAt time.Time             `bson:"created_at" json:"created_at" yaml:"created_at"`

	Values []float64 `bson:"values" json:"values" yaml:"values"`

	// Variance is the known noise variance of the series, 0 when
	// unknown.
	Variance float64 `bson:"variance,omitempty" json:"variance" yaml:"variance"`

	// ObservedRange is the wall-clock span the values were collected
	// over, when the submitter knows it.
	ObservedRange util.TimeRange `bson:"observed_range,omitempty" json:"observed_range" yaml:"observed_range"`

	AnalysisRequested bool      `bson:"analysis_requested" json:"analysis_requested" yaml:"analysis_requested"`
	ProcessedAt       time.Time `bson:"processed_at,omitempty" json:"processed_at" yaml:"processed_at"`

	env       cusp.Environment
	populated bool
}

var (
	perfSeriesIDKey                = bsonutil.MustHaveTag(PerformanceSeries{}, "ID")
	perfSeriesInfoKey              = bsonutil.MustHaveTag(PerformanceSeries{}, "Info")
	perfSeriesCreatedAtKey         = bsonutil.MustHaveTag(PerformanceSeries{}, "CreatedAt")
	perfSeriesValuesKey            = bsonutil.MustHaveTag(PerformanceSeries{}, "Values")
	perfSeriesVarianceKey          = bsonutil.MustHaveTag(PerformanceSeries{}, "Variance")
	perfSeriesObservedRangeKey     = bsonutil.MustHaveTag(PerformanceSeries{}, "ObservedRange")
	perfSeriesAnalysisRequestedKey = bsonutil.MustHaveTag(PerformanceSeries{}, "AnalysisRequested")
	perfSeriesProcessedAtKey       = bsonutil.MustHaveTag(PerformanceSeries{}, "ProcessedAt")
)

// PerformanceSeriesInfo describes the rollup identity a series was collected
// from.
type PerformanceSeriesInfo struct {
	Project     string `bson:"project,omitempty" json:"project" yaml:"project"`
	Variant     string `bson:"variant,omitempty" json:"variant" yaml:"variant"`
	Task        string `bson:"task,omitempty" json:"task" yaml:"task"`
	Test        string `bson:"test,omitempty" json:"test" yaml:"test"`
	Measurement string `bson:"measurement,omitempty" json:"measurement" yaml:"measurement"`
}

var (
	perfSeriesInfoProjectKey     = bsonutil.MustHaveTag(PerformanceSeriesInfo{}, "Project")
	perfSeriesInfoVariantKey     = bsonutil.MustHaveTag(PerformanceSeriesInfo{}, "Variant")
	perfSeriesInfoTaskKey        = bsonutil.MustHaveTag(PerformanceSeriesInfo{}, "Task")
	perfSeriesInfoTestKey        = bsonutil.MustHaveTag(PerformanceSeriesInfo{}, "Test")
	perfSeriesInfoMeasurementKey = bsonutil.MustHaveTag(PerformanceSeriesInfo{}, "Measurement")
)

// String creates a human readable representation of the series identity.
func (id PerformanceSeriesInfo) String() string {
	return fmt.Sprintf("%s %s %s %s %s", id.Project, id.Variant, id.Task, id.Test, id.Measurement)
}

// ID creates a unique hash for a performance series.
func (id *PerformanceSeriesInfo) ID() string {
	var hash hash.Hash = sha1.New()

	_, _ = io.WriteString(hash, id.Project)
	_, _ = io.WriteString(hash, id.Variant)
	_, _ = io.WriteString(hash, id.Task)
	_, _ = io.WriteString(hash, id.Test)
	_, _ = io.WriteString(hash, id.Measurement)

	return fmt.Sprintf("%x", hash.Sum(nil))
}

// CreatePerformanceSeries builds a populated series pending analysis.
func CreatePerformanceSeries(info PerformanceSeriesInfo, values []float64, variance float64) *PerformanceSeries {
	return &PerformanceSeries{
		ID:                info.ID(),
		Info:              info,
		CreatedAt:         time.Now(),
		Values:            append([]float64{}, values...),
		Variance:          variance,
		AnalysisRequested: true,
		populated:         true,
	}
}

// Setup sets the environment for the performance series. The environment is
// required for numerous functions on PerformanceSeries.
func (series *PerformanceSeries) Setup(e cusp.Environment) { series.env = e }

// IsNil returns if the performance series is populated or not.
func (series *PerformanceSeries) IsNil() bool { return !series.populated }

// Find searches the database for the performance series. The environment
// should not be nil.
func (series *PerformanceSeries) Find() error {
	if series.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	ctx, cancel := series.env.Context()
	defer cancel()

	if series.ID == "" {
		series.ID = series.Info.ID()
	}

	series.populated = false
	err := series.env.GetDB().Collection(perfSeriesCollection).FindOne(ctx, bson.M{"_id": series.ID}).Decode(series)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find performance series record with id %s in the database", series.ID)
	} else if err != nil {
		return errors.Wrap(err, "problem finding performance series record")
	}
	series.populated = true

	return nil
}

// SaveNew saves a new performance series to the database, if a series with
// the same ID already exists an error is returned. The series should be
// populated and the environment should not be nil.
func (series *PerformanceSeries) SaveNew() error {
	if !series.populated {
		return errors.New("cannot save unpopulated performance series")
	}
	if series.env == nil {
		return errors.New("cannot save with a nil environment")
	}
	ctx, cancel := series.env.Context()
	defer cancel()

	if series.ID == "" {
		series.ID = series.Info.ID()
	}

	insertResult, err := series.env.GetDB().Collection(perfSeriesCollection).InsertOne(ctx, series)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   perfSeriesCollection,
		"id":           series.ID,
		"insertResult": insertResult,
		"op":           "save new performance series",
	})

	return errors.Wrapf(err, "problem saving new performance series %s", series.ID)
}

// AppendValues appends new observations to an existing performance series
// and requests a fresh analysis. The environment should not be nil.
func (series *PerformanceSeries) AppendValues(values []float64) error {
	if series.env == nil {
		return errors.New("cannot append values with a nil environment")
	}
	if series.ID == "" {
		series.ID = series.Info.ID()
	}
	if len(values) == 0 {
		grip.Warning(message.Fields{
			"collection": perfSeriesCollection,
			"id":         series.ID,
			"message":    "append values called with no values",
		})
		return nil
	}
	ctx, cancel := series.env.Context()
	defer cancel()

	updateResult, err := series.env.GetDB().Collection(perfSeriesCollection).UpdateOne(
		ctx,
		bson.M{"_id": series.ID},
		bson.M{
			"$push": bson.M{
				perfSeriesValuesKey: bson.M{"$each": values},
			},
			"$set": bson.M{
				perfSeriesAnalysisRequestedKey: true,
			},
		},
	)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   perfSeriesCollection,
		"id":           series.ID,
		"updateResult": updateResult,
		"count":        len(values),
		"op":           "append values to a performance series",
	})
	if err == nil && updateResult.MatchedCount == 0 {
		err = errors.Errorf("could not find performance series record with id %s in the database", series.ID)
	}
	if err != nil {
		return errors.Wrapf(err, "problem appending values to performance series %s", series.ID)
	}

	series.Values = append(series.Values, values...)
	series.AnalysisRequested = true

	return nil
}

// FindUnanalyzedSeries returns the series with an analysis pending, oldest
// submission first.
func FindUnanalyzedSeries(ctx context.Context, env cusp.Environment) ([]PerformanceSeries, error) {
	cur, err := env.GetDB().Collection(perfSeriesCollection).Aggregate(ctx, []bson.M{
		{
			"$match": bson.M{
				perfSeriesAnalysisRequestedKey: true,
			},
		},
		{
			"$sort": bson.M{
				perfSeriesCreatedAtKey: 1,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to get series needing changepoint detection")
	}
	defer cur.Close(ctx)

	var res []PerformanceSeries
	if err := cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "unable to decode series needing changepoint detection")
	}

	return res, nil
}

// MarkSeriesAnalyzed clears the analysis request on the series and stamps
// the time it was processed.
func MarkSeriesAnalyzed(ctx context.Context, env cusp.Environment, seriesID string) error {
	update := bson.M{
		"$set": bson.M{
			perfSeriesAnalysisRequestedKey: false,
		},
		"$currentDate": bson.M{
			perfSeriesProcessedAtKey: true,
		},
	}

	_, err := env.GetDB().Collection(perfSeriesCollection).UpdateOne(ctx, bson.M{"_id": seriesID}, update)
	if err != nil {
		return errors.Wrapf(err, "unable to mark performance series %s as analyzed", seriesID)
	}

	return nil
}
