package model

import (
	"github.com/deltalab-io/cusp/change"
	dbmodel "github.com/deltalab-io/cusp/model"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// APIAnalysisResult describes one stored changepoint analysis of a series.
type APIAnalysisResult struct {
	ID           *string          `json:"id"`
	SeriesID     *string          `json:"series_id"`
	Algorithm    APIAlgorithmInfo `json:"algorithm"`
	CreatedAt    APITime          `json:"created_at"`
	CompletedAt  APITime          `json:"completed_at"`
	Changepoints []APIChangepoint `json:"changepoints"`
	TotalCost    float64          `json:"total_cost"`
	Degenerate   bool             `json:"degenerate,omitempty"`
}

// Import transforms an AnalysisResult object into an APIAnalysisResult
// object.
func (apiResult *APIAnalysisResult) Import(i interface{}) error {
	switch r := i.(type) {
	case dbmodel.AnalysisResult:
		apiResult.ID = utility.ToStringPtr(r.ID)
		apiResult.SeriesID = utility.ToStringPtr(r.Info.SeriesID)
		apiResult.Algorithm = getAlgorithmInfo(r.Info.Algorithm)
		apiResult.CreatedAt = NewTime(r.CreatedAt)
		apiResult.CompletedAt = NewTime(r.CompletedAt)
		apiResult.TotalCost = r.TotalCost
		apiResult.Degenerate = r.Degenerate

		changepoints := make([]APIChangepoint, len(r.Changepoints))
		for idx, cp := range r.Changepoints {
			changepoints[idx] = getChangepoint(cp)
		}
		apiResult.Changepoints = changepoints
	default:
		return errors.New("incorrect type when converting analysis result")
	}
	return nil
}

// APIAlgorithmInfo describes the detection algorithm and settings behind an
// analysis.
type APIAlgorithmInfo struct {
	Name    *string              `json:"name"`
	Version int                  `json:"version"`
	Options []APIAlgorithmOption `json:"options"`
}

type APIAlgorithmOption struct {
	Name  *string     `json:"name"`
	Value interface{} `json:"value"`
}

func getAlgorithmInfo(info dbmodel.AlgorithmInfo) APIAlgorithmInfo {
	apiInfo := APIAlgorithmInfo{
		Name:    utility.ToStringPtr(info.Name),
		Version: info.Version,
	}
	for _, opt := range info.Options {
		apiInfo.Options = append(apiInfo.Options, APIAlgorithmOption{
			Name:  utility.ToStringPtr(opt.Name),
			Value: opt.Value,
		})
	}
	return apiInfo
}

// MakeAPIAlgorithmInfo converts the detector's algorithm description for
// responses that never touch the database.
func MakeAPIAlgorithmInfo(info change.AlgorithmInfo) APIAlgorithmInfo {
	return getAlgorithmInfo(dbmodel.MakeAlgorithmInfo(info))
}

// APIChangepoint is a detected change and its triage state.
type APIChangepoint struct {
	Index  int           `json:"index"`
	Fit    []float64     `json:"fit,omitempty"`
	Triage APITriageInfo `json:"triage"`
}

// APITriageInfo describes the review state of a changepoint.
type APITriageInfo struct {
	TriagedOn APITime `json:"triaged_on"`
	Status    *string `json:"triage_status"`
}

func getChangepoint(cp dbmodel.Changepoint) APIChangepoint {
	return APIChangepoint{
		Index: cp.Index,
		Fit:   cp.Fit,
		Triage: APITriageInfo{
			TriagedOn: NewTime(cp.Triage.TriagedOn),
			Status:    utility.ToStringPtr(string(cp.Triage.Status)),
		},
	}
}
