package model

import (
	"github.com/deltalab-io/cusp/change"
	"github.com/pkg/errors"
)

// APIDetectResponse is the outcome of a synchronous detection run.
type APIDetectResponse struct {
	Algorithm    APIAlgorithmInfo `json:"algorithm"`
	Changepoints []int            `json:"changepoints"`
	Segments     []APISegment     `json:"segments"`
	TotalCost    float64          `json:"total_cost"`
	Degenerate   bool             `json:"degenerate,omitempty"`

	// Scan and Threshold accompany cusum runs.
	Scan      *APICUSUMScan `json:"scan,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	Warning   string        `json:"warning,omitempty"`
}

// APISegment is one fitted segment of a segmentation.
type APISegment struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Cost  float64   `json:"cost"`
	Fit   []float64 `json:"fit"`
}

// APICUSUMScan carries the scan statistics of a cusum run.
type APICUSUMScan struct {
	Trace        []float64 `json:"trace"`
	MaxStat      float64   `json:"max_stat"`
	Tau          int       `json:"tau"`
	MeanShift    float64   `json:"mean_shift"`
	DecisionStat float64   `json:"decision_stat"`
}

// Import transforms a detection Result into an APIDetectResponse.
func (apiResp *APIDetectResponse) Import(i interface{}) error {
	switch r := i.(type) {
	case *change.Result:
		if r == nil || r.Segmentation == nil {
			return errors.New("cannot convert an empty detection result")
		}

		apiResp.Algorithm = MakeAPIAlgorithmInfo(r.Algorithm)
		apiResp.Changepoints = r.Segmentation.Changepoints
		apiResp.TotalCost = r.Segmentation.TotalCost
		apiResp.Degenerate = r.Segmentation.Degenerate

		segments := make([]APISegment, len(r.Segmentation.Segments))
		for idx, seg := range r.Segmentation.Segments {
			segments[idx] = APISegment{
				Start: seg.Start,
				End:   seg.End,
				Cost:  seg.Cost,
				Fit:   seg.Fit,
			}
		}
		apiResp.Segments = segments

		if r.Scan != nil {
			apiResp.Scan = &APICUSUMScan{
				Trace:        r.Scan.Trace,
				MaxStat:      r.Scan.MaxStat,
				Tau:          r.Scan.Tau,
				MeanShift:    r.Scan.MeanShift,
				DecisionStat: r.Scan.DecisionStat(),
			}
			apiResp.Threshold = r.Threshold
		}
		if r.Calibration != nil {
			apiResp.Warning = r.Calibration.Warning
		}
	default:
		return errors.New("incorrect type when converting detection result")
	}
	return nil
}
