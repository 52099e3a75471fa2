package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	dbModel "github.com/deltalab-io/cusp/model"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/evergreen-ci/gimlet"
)

func importAnalysisResults(results []dbModel.AnalysisResult, seriesID string) ([]dataModel.APIAnalysisResult, error) {
	if len(results) == 0 {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("no analyses of series '%s' found", seriesID),
		}
	}

	apiResults := make([]dataModel.APIAnalysisResult, len(results))
	for idx, result := range results {
		if err := apiResults[idx].Import(result); err != nil {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Message:    "corrupt data",
			}
		}
	}

	return apiResults, nil
}

/////////////////////////////
// DBConnector Implementation
/////////////////////////////

// FindAnalysisResults returns the stored analyses of the given series,
// newest first.
func (dbc *DBConnector) FindAnalysisResults(ctx context.Context, seriesID string) ([]dataModel.APIAnalysisResult, error) {
	results, err := dbModel.FindAnalysisResults(ctx, dbc.env, seriesID)
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("Error finding analyses of series '%s'", seriesID),
		}
	}

	return importAnalysisResults(results, seriesID)
}

// TriageChangepoints sets the triage status on the indexed changepoints of
// an analysis result.
func (dbc *DBConnector) TriageChangepoints(_ context.Context, opts TriageChangepointsOptions) error {
	status := dbModel.TriageStatus(opts.Status)
	if err := status.Validate(); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
	}

	result := &dbModel.AnalysisResult{ID: opts.ResultID}
	result.Setup(dbc.env)
	if err := result.Find(); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("analysis result with id '%s' not found", opts.ResultID),
		}
	}

	if err := result.SetTriageStatus(opts.Indexes, status); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    fmt.Sprintf("Error triaging changepoints of analysis result '%s'", opts.ResultID),
		}
	}

	return nil
}

///////////////////////////////
// MockConnector Implementation
///////////////////////////////

// FindAnalysisResults returns the cached analyses of the given series.
func (mc *MockConnector) FindAnalysisResults(_ context.Context, seriesID string) ([]dataModel.APIAnalysisResult, error) {
	return importAnalysisResults(mc.CachedAnalyses[seriesID], seriesID)
}

// TriageChangepoints sets the triage status on the indexed changepoints of
// a cached analysis result.
func (mc *MockConnector) TriageChangepoints(_ context.Context, opts TriageChangepointsOptions) error {
	status := dbModel.TriageStatus(opts.Status)
	if err := status.Validate(); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
	}

	indexes := map[int]bool{}
	for _, index := range opts.Indexes {
		indexes[index] = true
	}

	for seriesID, results := range mc.CachedAnalyses {
		for i := range results {
			if results[i].ID != opts.ResultID {
				continue
			}

			for k := range results[i].Changepoints {
				if indexes[results[i].Changepoints[k].Index] {
					results[i].Changepoints[k].Triage.Status = status
					results[i].Changepoints[k].Triage.TriagedOn = time.Now()
				}
			}
			mc.CachedAnalyses[seriesID] = results
			return nil
		}
	}

	return gimlet.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("analysis result with id '%s' not found", opts.ResultID),
	}
}
