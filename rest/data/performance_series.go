package data

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deltalab-io/cusp/change"
	dbModel "github.com/deltalab-io/cusp/model"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/units"
	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

func exportSeries(opts SubmitSeriesOptions) (*dbModel.PerformanceSeries, error) {
	if opts.Variance < 0 {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("variance %g must be positive or zero for unknown", opts.Variance),
		}
	}

	exported, err := opts.Info.Export()
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "invalid series info",
		}
	}
	info, ok := exported.(dbModel.PerformanceSeriesInfo)
	if !ok {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	series := dbModel.CreatePerformanceSeries(info, opts.Values, opts.Variance)
	series.ObservedRange = opts.ObservedRange
	return series, nil
}

/////////////////////////////
// DBConnector Implementation
/////////////////////////////

// SubmitSeries stores the given series, appending the values when the same
// series identity was submitted before, and enqueues its analysis.
func (dbc *DBConnector) SubmitSeries(ctx context.Context, opts SubmitSeriesOptions) (*dataModel.APISubmitSeriesResponse, error) {
	series, err := exportSeries(opts)
	if err != nil {
		return nil, err
	}
	series.Setup(dbc.env)

	existing := &dbModel.PerformanceSeries{ID: series.ID}
	existing.Setup(dbc.env)
	if err = existing.Find(); err == nil {
		if err = existing.AppendValues(opts.Values); err != nil {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Message:    fmt.Sprintf("Error appending to series '%s'", series.ID),
			}
		}
	} else if err = series.SaveNew(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("Error saving series '%s'", series.ID),
		}
	}

	resp := &dataModel.APISubmitSeriesResponse{
		SeriesID: utility.ToStringPtr(series.ID),
	}

	job, err := units.NewDetectSeriesJob(dbc.env, series.ID, change.Options{})
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("Error creating detection job for series '%s'", series.ID),
		}
	}
	resp.JobID = utility.ToStringPtr(job.ID())

	// The series stays marked for analysis until a detection run
	// completes, so the periodic scan covers any enqueue failure here.
	if queue := dbc.env.GetQueue(); queue != nil {
		grip.Warning(message.WrapError(queue.Put(ctx, job), message.Fields{
			"message": "problem enqueueing detection job",
			"series":  series.ID,
			"job_id":  job.ID(),
		}))
	}

	return resp, nil
}

// FindPerformanceSeries returns the stored series with the given id.
func (dbc *DBConnector) FindPerformanceSeries(ctx context.Context, seriesID string) (*dataModel.APIPerformanceSeries, error) {
	series := &dbModel.PerformanceSeries{ID: seriesID}
	series.Setup(dbc.env)
	if err := series.Find(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("performance series with id '%s' not found", seriesID),
		}
	}

	apiSeries := &dataModel.APIPerformanceSeries{}
	if err := apiSeries.Import(*series); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	return apiSeries, nil
}

///////////////////////////////
// MockConnector Implementation
///////////////////////////////

// SubmitSeries stores the given series in the mock cache, appending the
// values when the same series identity was submitted before.
func (mc *MockConnector) SubmitSeries(_ context.Context, opts SubmitSeriesOptions) (*dataModel.APISubmitSeriesResponse, error) {
	series, err := exportSeries(opts)
	if err != nil {
		return nil, err
	}

	if existing, ok := mc.CachedSeries[series.ID]; ok {
		existing.Values = append(existing.Values, opts.Values...)
		existing.AnalysisRequested = true
		mc.CachedSeries[series.ID] = existing
	} else {
		mc.CachedSeries[series.ID] = *series
	}

	return &dataModel.APISubmitSeriesResponse{
		SeriesID: utility.ToStringPtr(series.ID),
	}, nil
}

// FindPerformanceSeries returns the cached series with the given id.
func (mc *MockConnector) FindPerformanceSeries(_ context.Context, seriesID string) (*dataModel.APIPerformanceSeries, error) {
	series, ok := mc.CachedSeries[seriesID]
	if !ok {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("performance series with id '%s' not found", seriesID),
		}
	}

	apiSeries := &dataModel.APIPerformanceSeries{}
	if err := apiSeries.Import(series); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	return apiSeries, nil
}
