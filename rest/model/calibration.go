package model

import (
	dbmodel "github.com/deltalab-io/cusp/model"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// APICalibration is a resolved decision threshold for a series length and
// false-positive level.
type APICalibration struct {
	ID           *string                   `json:"id,omitempty"`
	SeriesLength int                       `json:"series_length"`
	Alpha        float64                   `json:"alpha"`
	Method       *string                   `json:"method"`
	Replicates   int                       `json:"replicates,omitempty"`
	Seed         int64                     `json:"seed,omitempty"`
	Threshold    float64                   `json:"threshold"`
	Warning      string                    `json:"warning,omitempty"`
	Maxima       APIReplicateMaximaSummary `json:"maxima"`
}

// APIReplicateMaximaSummary summarizes the simulated null maxima behind a
// Monte Carlo threshold.
type APIReplicateMaximaSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Import transforms a CalibrationRecord object into an APICalibration
// object.
func (apiCal *APICalibration) Import(i interface{}) error {
	switch record := i.(type) {
	case dbmodel.CalibrationRecord:
		apiCal.ID = utility.ToStringPtr(record.ID)
		apiCal.SeriesLength = record.Info.SeriesLength
		apiCal.Alpha = record.Info.Alpha
		apiCal.Method = utility.ToStringPtr(record.Info.Method)
		apiCal.Replicates = record.Info.Replicates
		apiCal.Seed = record.Info.Seed
		apiCal.Threshold = record.Threshold
		apiCal.Warning = record.Warning
		apiCal.Maxima = APIReplicateMaximaSummary{
			Count: record.Maxima.Count,
			Min:   record.Maxima.Min,
			Max:   record.Maxima.Max,
			Mean:  record.Maxima.Mean,
		}
	default:
		return errors.New("incorrect type when converting calibration record")
	}
	return nil
}
