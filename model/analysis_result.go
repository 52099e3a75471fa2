package model

import (
	"context"
	"crypto/sha1"
	"fmt"
	"hash"
	"io"
	"sort"
	"time"

	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
)

const analysisResultCollection = "analysis_results"

// AnalysisResult describes the stored outcome of a single detection run on a
// performance series.
type AnalysisResult struct {
	ID          string             `bson:"_id,omitempty" json:"id" yaml:"id"`
	Info        AnalysisResultInfo `bson:"info,omitempty" json:"info" yaml:"info"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at" yaml:"created_at"`
	CompletedAt time.Time          `bson:"completed_at" json:"completed_at" yaml:"completed_at"`

	Changepoints []Changepoint `bson:"changepoints" json:"changepoints" yaml:"changepoints"`
	TotalCost    float64       `bson:"total_cost" json:"total_cost" yaml:"total_cost"`
	Degenerate   bool          `bson:"degenerate,omitempty" json:"degenerate" yaml:"degenerate"`

	env       cusp.Environment
	populated bool
}

var (
	analysisResultIDKey           = bsonutil.MustHaveTag(AnalysisResult{}, "ID")
	analysisResultInfoKey         = bsonutil.MustHaveTag(AnalysisResult{}, "Info")
	analysisResultCreatedAtKey    = bsonutil.MustHaveTag(AnalysisResult{}, "CreatedAt")
	analysisResultCompletedAtKey  = bsonutil.MustHaveTag(AnalysisResult{}, "CompletedAt")
	analysisResultChangepointsKey = bsonutil.MustHaveTag(AnalysisResult{}, "Changepoints")
	analysisResultTotalCostKey    = bsonutil.MustHaveTag(AnalysisResult{}, "TotalCost")
	analysisResultDegenerateKey   = bsonutil.MustHaveTag(AnalysisResult{}, "Degenerate")
)

// AnalysisResultInfo identifies a detection run by the series it analyzed
// and the algorithm configuration that produced it.
type AnalysisResultInfo struct {
	SeriesID  string        `bson:"series_id,omitempty" json:"series_id" yaml:"series_id"`
	Algorithm AlgorithmInfo `bson:"algorithm,omitempty" json:"algorithm" yaml:"algorithm"`
}

var (
	analysisResultInfoSeriesIDKey  = bsonutil.MustHaveTag(AnalysisResultInfo{}, "SeriesID")
	analysisResultInfoAlgorithmKey = bsonutil.MustHaveTag(AnalysisResultInfo{}, "Algorithm")
)

// ID creates a unique hash for an analysis result.
func (id *AnalysisResultInfo) ID() string {
	var hash hash.Hash = sha1.New()

	_, _ = io.WriteString(hash, id.SeriesID)
	_, _ = io.WriteString(hash, id.Algorithm.Name)
	_, _ = io.WriteString(hash, fmt.Sprint(id.Algorithm.Version))

	opts := make([]string, 0, len(id.Algorithm.Options))
	for _, opt := range id.Algorithm.Options {
		opts = append(opts, fmt.Sprintf("%s=%v", opt.Name, opt.Value))
	}
	sort.Strings(opts)
	for _, str := range opts {
		_, _ = io.WriteString(hash, str)
	}

	return fmt.Sprintf("%x", hash.Sum(nil))
}

// AlgorithmInfo describes the detection algorithm and the options it ran
// with.
type AlgorithmInfo struct {
	Name    string            `bson:"name" json:"name" yaml:"name"`
	Version int               `bson:"version" json:"version" yaml:"version"`
	Options []AlgorithmOption `bson:"options" json:"options" yaml:"options"`
}

var (
	algorithmNameKey    = bsonutil.MustHaveTag(AlgorithmInfo{}, "Name")
	algorithmVersionKey = bsonutil.MustHaveTag(AlgorithmInfo{}, "Version")
	algorithmOptionsKey = bsonutil.MustHaveTag(AlgorithmInfo{}, "Options")
)

// AlgorithmOption is one named algorithm setting.
type AlgorithmOption struct {
	Name  string      `bson:"name" json:"name" yaml:"name"`
	Value interface{} `bson:"value" json:"value" yaml:"value"`
}

var (
	algorithmOptionNameKey  = bsonutil.MustHaveTag(AlgorithmOption{}, "Name")
	algorithmOptionValueKey = bsonutil.MustHaveTag(AlgorithmOption{}, "Value")
)

// MakeAlgorithmInfo converts the detection engine's algorithm description
// into its stored form.
func MakeAlgorithmInfo(info change.AlgorithmInfo) AlgorithmInfo {
	out := AlgorithmInfo{
		Name:    info.Name,
		Version: info.Version,
	}
	for _, opt := range info.Options {
		out.Options = append(out.Options, AlgorithmOption{Name: opt.Name, Value: opt.Value})
	}

	return out
}

// Changepoint is one detected change, located at the first index of the new
// regime, with the fitted parameters of that regime.
type Changepoint struct {
	Index  int        `bson:"index" json:"index" yaml:"index"`
	Fit    []float64  `bson:"fit,omitempty" json:"fit,omitempty" yaml:"fit,omitempty"`
	Triage TriageInfo `bson:"triage" json:"triage" yaml:"triage"`
}

var (
	changepointIndexKey  = bsonutil.MustHaveTag(Changepoint{}, "Index")
	changepointFitKey    = bsonutil.MustHaveTag(Changepoint{}, "Fit")
	changepointTriageKey = bsonutil.MustHaveTag(Changepoint{}, "Triage")
)

// CreateChangepoint builds an untriaged changepoint.
func CreateChangepoint(index int, fit []float64) Changepoint {
	return Changepoint{
		Index: index,
		Fit:   fit,
		Triage: TriageInfo{
			Status: TriageStatusUntriaged,
		},
	}
}

// TriageInfo records the human disposition of a changepoint.
type TriageInfo struct {
	TriagedOn time.Time    `bson:"triaged_on" json:"triaged_on" yaml:"triaged_on"`
	Status    TriageStatus `bson:"triage_status" json:"triage_status" yaml:"triage_status"`
}

var (
	triageInfoTriagedOnKey = bsonutil.MustHaveTag(TriageInfo{}, "TriagedOn")
	triageInfoStatusKey    = bsonutil.MustHaveTag(TriageInfo{}, "Status")
)

type TriageStatus string

const (
	TriageStatusUntriaged          TriageStatus = "untriaged"
	TriageStatusTruePositive       TriageStatus = "true_positive"
	TriageStatusFalsePositive      TriageStatus = "false_positive"
	TriageStatusUnderInvestigation TriageStatus = "under_investigation"
)

func (ts TriageStatus) Validate() error {
	switch ts {
	case TriageStatusUntriaged, TriageStatusTruePositive, TriageStatusFalsePositive, TriageStatusUnderInvestigation:
		return nil
	default:
		return errors.New("invalid triage status")
	}
}

func TriageStatuses() []TriageStatus {
	return []TriageStatus{TriageStatusUntriaged, TriageStatusTruePositive, TriageStatusFalsePositive, TriageStatusUnderInvestigation}
}

// CreateAnalysisResult builds a populated result from a segmentation. Each
// changepoint carries the fit of the segment it opens.
func CreateAnalysisResult(info AnalysisResultInfo, seg *change.Segmentation) *AnalysisResult {
	result := &AnalysisResult{
		ID:        info.ID(),
		Info:      info,
		CreatedAt: time.Now(),
		populated: true,
	}

	if seg != nil {
		result.TotalCost = seg.TotalCost
		result.Degenerate = seg.Degenerate
		for i, index := range seg.Changepoints {
			cp := CreateChangepoint(index, nil)
			if i+1 < len(seg.Segments) {
				cp.Fit = seg.Segments[i+1].Fit
			}
			result.Changepoints = append(result.Changepoints, cp)
		}
	}

	return result
}

// Setup sets the environment for the analysis result. The environment is
// required for numerous functions on AnalysisResult.
func (result *AnalysisResult) Setup(e cusp.Environment) { result.env = e }

// IsNil returns if the analysis result is populated or not.
func (result *AnalysisResult) IsNil() bool { return !result.populated }

// Find searches the database for the analysis result. The environment should
// not be nil.
func (result *AnalysisResult) Find() error {
	if result.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	ctx, cancel := result.env.Context()
	defer cancel()

	if result.ID == "" {
		result.ID = result.Info.ID()
	}

	result.populated = false
	err := result.env.GetDB().Collection(analysisResultCollection).FindOne(ctx, bson.M{"_id": result.ID}).Decode(result)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find analysis result record with id %s in the database", result.ID)
	} else if err != nil {
		return errors.Wrap(err, "problem finding analysis result record")
	}
	result.populated = true

	return nil
}

// SaveNew saves a new analysis result to the database, if a result with the
// same ID already exists an error is returned. The result should be
// populated and the environment should not be nil.
func (result *AnalysisResult) SaveNew() error {
	if !result.populated {
		return errors.New("cannot save unpopulated analysis result")
	}
	if result.env == nil {
		return errors.New("cannot save with a nil environment")
	}
	ctx, cancel := result.env.Context()
	defer cancel()

	if result.ID == "" {
		result.ID = result.Info.ID()
	}

	insertResult, err := result.env.GetDB().Collection(analysisResultCollection).InsertOne(ctx, result)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   analysisResultCollection,
		"id":           result.ID,
		"insertResult": insertResult,
		"op":           "save new analysis result",
	})

	return errors.Wrapf(err, "problem saving new analysis result %s", result.ID)
}

// Remove removes the analysis result from the database. The environment
// should not be nil.
func (result *AnalysisResult) Remove() error {
	if result.env == nil {
		return errors.New("cannot remove an analysis result with a nil environment")
	}
	ctx, cancel := result.env.Context()
	defer cancel()

	if result.ID == "" {
		result.ID = result.Info.ID()
	}

	deleteResult, err := result.env.GetDB().Collection(analysisResultCollection).DeleteOne(ctx, bson.M{"_id": result.ID})
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   analysisResultCollection,
		"id":           result.ID,
		"deleteResult": deleteResult,
		"op":           "remove analysis result",
	})

	return errors.Wrapf(err, "problem removing analysis result %s", result.ID)
}

// SetTriageStatus updates the triage status of the changepoints at the given
// indexes, both in the database and in memory. The result should be
// populated and the environment should not be nil.
func (result *AnalysisResult) SetTriageStatus(indexes []int, status TriageStatus) error {
	if err := status.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if result.env == nil {
		return errors.New("cannot triage with a nil environment")
	}
	if result.ID == "" {
		result.ID = result.Info.ID()
	}
	if len(indexes) == 0 {
		grip.Warning(message.Fields{
			"collection": analysisResultCollection,
			"id":         result.ID,
			"message":    "set triage status called with no changepoint indexes",
		})
		return nil
	}
	ctx, cancel := result.env.Context()
	defer cancel()

	triagedOn := time.Now()
	update := bson.M{
		"$set": bson.M{
			bsonutil.GetDottedKeyName(analysisResultChangepointsKey, "$[elem]", changepointTriageKey, triageInfoStatusKey):    status,
			bsonutil.GetDottedKeyName(analysisResultChangepointsKey, "$[elem]", changepointTriageKey, triageInfoTriagedOnKey): triagedOn,
		},
	}
	updateOpts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{bsonutil.GetDottedKeyName("elem", changepointIndexKey): bson.M{"$in": indexes}},
		},
	})

	updateResult, err := result.env.GetDB().Collection(analysisResultCollection).UpdateOne(ctx, bson.M{"_id": result.ID}, update, updateOpts)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   analysisResultCollection,
		"id":           result.ID,
		"indexes":      indexes,
		"status":       status,
		"updateResult": updateResult,
		"op":           "triage changepoints",
	})
	if err == nil && updateResult.MatchedCount == 0 {
		err = errors.Errorf("could not find analysis result record with id %s in the database", result.ID)
	}
	if err != nil {
		return errors.Wrapf(err, "problem triaging changepoints on analysis result %s", result.ID)
	}

	for i := range result.Changepoints {
		for _, index := range indexes {
			if result.Changepoints[i].Index == index {
				result.Changepoints[i].Triage.Status = status
				result.Changepoints[i].Triage.TriagedOn = triagedOn
			}
		}
	}

	return nil
}

// FindAnalysisResults returns all stored results for the given series,
// newest first.
func FindAnalysisResults(ctx context.Context, env cusp.Environment, seriesID string) ([]AnalysisResult, error) {
	cur, err := env.GetDB().Collection(analysisResultCollection).Aggregate(ctx, []bson.M{
		{
			"$match": bson.M{
				bsonutil.GetDottedKeyName(analysisResultInfoKey, analysisResultInfoSeriesIDKey): seriesID,
			},
		},
		{
			"$sort": bson.M{
				analysisResultCreatedAtKey: -1,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "problem finding analysis results for series %s", seriesID)
	}
	defer cur.Close(ctx)

	var results []AnalysisResult
	if err := cur.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "problem decoding analysis results")
	}

	return results, nil
}
