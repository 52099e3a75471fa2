package data

import (
	"context"

	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/util"
)

// Connector abstracts the link between the service and API layers,
// allowing for changes in the service architecture without forcing changes
// to the API.
type Connector interface {
	////////////////////
	// PerformanceSeries
	////////////////////
	// SubmitSeries stores a performance series, or appends to an
	// existing one, and schedules its analysis.
	SubmitSeries(context.Context, SubmitSeriesOptions) (*model.APISubmitSeriesResponse, error)
	// FindPerformanceSeries returns the stored series with the given
	// id.
	FindPerformanceSeries(context.Context, string) (*model.APIPerformanceSeries, error)

	//////////////////
	// AnalysisResults
	//////////////////
	// FindAnalysisResults returns the stored analyses of the given
	// series, newest first.
	FindAnalysisResults(context.Context, string) ([]model.APIAnalysisResult, error)
	// TriageChangepoints sets the triage status on the indexed
	// changepoints of an analysis result.
	TriageChangepoints(context.Context, TriageChangepointsOptions) error

	////////////
	// Detection
	////////////
	// DetectChanges runs changepoint detection over an inline series.
	DetectChanges(context.Context, []float64, change.Options) (*model.APIDetectResponse, error)
	// CalibrateThreshold resolves the decision threshold for a series
	// length and false-positive level, reusing a stored calibration
	// when one exists.
	CalibrateThreshold(context.Context, CalibrateOptions) (*model.APICalibration, error)
}

// SubmitSeriesOptions describes a series submission.
type SubmitSeriesOptions struct {
	Info          model.APIPerformanceSeriesInfo
	Values        []float64
	Variance      float64
	ObservedRange util.TimeRange
}

// TriageChangepointsOptions describes a triage status change for the
// changepoints of an analysis result.
type TriageChangepointsOptions struct {
	ResultID string
	Indexes  []int
	Status   string
}

// CalibrateOptions identifies the calibration to resolve.
type CalibrateOptions struct {
	SeriesLength int
	Alpha        float64
	Method       string
	Replicates   int
	Seed         int64
}
