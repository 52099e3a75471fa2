package model

import (
	dbmodel "github.com/deltalab-io/cusp/model"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// APIPerformanceSeries describes a stored performance series and its
// analysis bookkeeping.
type APIPerformanceSeries struct {
	ID                *string                  `json:"id"`
	Info              APIPerformanceSeriesInfo `json:"info"`
	CreatedAt         APITime                  `json:"created_at"`
	Values            []float64                `json:"values"`
	Variance          float64                  `json:"variance,omitempty"`
	ObservedRange     APITimeRange             `json:"observed_range"`
	AnalysisRequested bool                     `json:"analysis_requested"`
	ProcessedAt       APITime                  `json:"processed_at"`
}

// APITimeRange is the observed wall-clock window of a series.
type APITimeRange struct {
	StartAt APITime `json:"start"`
	EndAt   APITime `json:"end"`
}

// Import transforms a PerformanceSeries object into an
// APIPerformanceSeries object.
func (apiSeries *APIPerformanceSeries) Import(i interface{}) error {
	switch s := i.(type) {
	case dbmodel.PerformanceSeries:
		apiSeries.ID = utility.ToStringPtr(s.ID)
		apiSeries.Info = getPerformanceSeriesInfo(s.Info)
		apiSeries.CreatedAt = NewTime(s.CreatedAt)
		apiSeries.Values = s.Values
		apiSeries.Variance = s.Variance
		apiSeries.ObservedRange = APITimeRange{
			StartAt: NewTime(s.ObservedRange.StartAt),
			EndAt:   NewTime(s.ObservedRange.EndAt),
		}
		apiSeries.AnalysisRequested = s.AnalysisRequested
		apiSeries.ProcessedAt = NewTime(s.ProcessedAt)
	default:
		return errors.New("incorrect type when converting performance series")
	}
	return nil
}

// APIPerformanceSeriesInfo describes the rollup identity a series was
// collected from.
type APIPerformanceSeriesInfo struct {
	Project     *string `json:"project"`
	Variant     *string `json:"variant"`
	Task        *string `json:"task"`
	Test        *string `json:"test"`
	Measurement *string `json:"measurement"`
}

func getPerformanceSeriesInfo(info dbmodel.PerformanceSeriesInfo) APIPerformanceSeriesInfo {
	return APIPerformanceSeriesInfo{
		Project:     utility.ToStringPtr(info.Project),
		Variant:     utility.ToStringPtr(info.Variant),
		Task:        utility.ToStringPtr(info.Task),
		Test:        utility.ToStringPtr(info.Test),
		Measurement: utility.ToStringPtr(info.Measurement),
	}
}

// Import transforms a PerformanceSeriesInfo object into an
// APIPerformanceSeriesInfo object.
func (apiInfo *APIPerformanceSeriesInfo) Import(i interface{}) error {
	switch info := i.(type) {
	case dbmodel.PerformanceSeriesInfo:
		*apiInfo = getPerformanceSeriesInfo(info)
	default:
		return errors.New("incorrect type when converting performance series info")
	}
	return nil
}

// Export transforms an APIPerformanceSeriesInfo object into a
// PerformanceSeriesInfo object.
func (apiInfo *APIPerformanceSeriesInfo) Export() (interface{}, error) {
	return dbmodel.PerformanceSeriesInfo{
		Project:     utility.FromStringPtr(apiInfo.Project),
		Variant:     utility.FromStringPtr(apiInfo.Variant),
		Task:        utility.FromStringPtr(apiInfo.Task),
		Test:        utility.FromStringPtr(apiInfo.Test),
		Measurement: utility.FromStringPtr(apiInfo.Measurement),
	}, nil
}

// APISubmitSeriesResponse reports the identifiers assigned to a series
// submission.
type APISubmitSeriesResponse struct {
	SeriesID *string `json:"series_id"`
	JobID    *string `json:"job_id,omitempty"`
}
