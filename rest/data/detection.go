package data

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/change"
	dbModel "github.com/deltalab-io/cusp/model"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// runDetection resolves service level defaults, consults the environment
// threshold cache for calibrated cusum runs, and maps detector errors onto
// response codes.
func runDetection(ctx context.Context, env cusp.Environment, values []float64, opts change.Options) (*dataModel.APIDetectResponse, error) {
	if opts.Penalty == 0 && len(values) > 0 {
		opts.Penalty = change.DefaultPenalty(len(values))
	}
	if err := opts.Validate(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
	}

	if opts.Method == change.MethodCUSUM && opts.Threshold == 0 && env != nil {
		key := cusp.ThresholdCacheKey(len(values), opts.Alpha, string(opts.Calibration))
		if cached, ok := env.GetCache().Get(key); ok {
			if threshold, ok := cached.(float64); ok {
				opts.Threshold = threshold
			}
		}
	}

	result, err := change.Detect(ctx, values, opts)
	if err != nil {
		if change.IsInvalidInput(err) || change.IsInvalidParameter(err) {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Message:    err.Error(),
			}
		}
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrap(err, "problem detecting changepoints").Error(),
		}
	}

	resp := &dataModel.APIDetectResponse{}
	if err = resp.Import(result); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	return resp, nil
}

// normalize applies the documented calibration defaults so that equivalent
// requests share one record identity.
func (opts *CalibrateOptions) normalize() {
	if opts.Method == "" {
		opts.Method = string(change.CalibrationAsymptotic)
	}
	if opts.Alpha == 0 {
		opts.Alpha = change.DefaultAlpha
	}
	if change.CalibrationMethod(opts.Method) == change.CalibrationMonteCarlo {
		if opts.Replicates == 0 {
			opts.Replicates = change.DefaultReplicates
		}
		if opts.Seed == 0 {
			opts.Seed = change.DefaultSeed
		}
	}
}

func (opts CalibrateOptions) recordInfo() dbModel.CalibrationRecordInfo {
	return dbModel.CalibrationRecordInfo{
		SeriesLength: opts.SeriesLength,
		Alpha:        opts.Alpha,
		Method:       opts.Method,
		Replicates:   opts.Replicates,
		Seed:         opts.Seed,
	}
}

// runCalibration maps calibration errors onto response codes. Callers
// normalize the options first.
func runCalibration(ctx context.Context, opts CalibrateOptions) (*change.Calibration, error) {
	calibration, err := change.Calibrate(ctx, change.CalibrationMethod(opts.Method), opts.SeriesLength, opts.Alpha, change.MonteCarloOptions{
		Replicates: opts.Replicates,
		Seed:       opts.Seed,
	})
	if err != nil {
		if change.IsInvalidInput(err) || change.IsInvalidParameter(err) {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Message:    err.Error(),
			}
		}
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrap(err, "problem calibrating threshold").Error(),
		}
	}

	return calibration, nil
}

func recordStat(env cusp.Environment, cacheName string, stat cusp.Stat) {
	if env == nil {
		return
	}

	cache, err := env.GetStatsCache(cacheName)
	if err != nil {
		grip.Warning(message.WrapError(err, "finding stats cache"))
		return
	}

	grip.Warning(message.WrapError(cache.AddStat(stat), "adding usage stat"))
}

/////////////////////////////
// DBConnector Implementation
/////////////////////////////

// DetectChanges runs changepoint detection over an inline series.
func (dbc *DBConnector) DetectChanges(ctx context.Context, values []float64, opts change.Options) (*dataModel.APIDetectResponse, error) {
	resp, err := runDetection(ctx, dbc.env, values, opts)
	if err != nil {
		return nil, err
	}

	family := string(opts.Family)
	if family == "" {
		family = string(change.FamilyMean)
	}
	recordStat(dbc.env, cusp.StatsCacheDetections, cusp.Stat{
		Count:  len(resp.Changepoints),
		Family: family,
		Series: "inline",
	})

	return resp, nil
}

// CalibrateThreshold resolves the decision threshold for a series length and
// false-positive level, reusing the stored record when one exists, and warms
// the environment threshold cache.
func (dbc *DBConnector) CalibrateThreshold(ctx context.Context, opts CalibrateOptions) (*dataModel.APICalibration, error) {
	opts.normalize()
	info := opts.recordInfo()

	record := &dbModel.CalibrationRecord{ID: info.ID()}
	record.Setup(dbc.env)
	if err := record.Find(); err != nil {
		calibration, err := runCalibration(ctx, opts)
		if err != nil {
			return nil, err
		}

		record = dbModel.CreateCalibrationRecord(info, calibration.Threshold, calibration.Warning, calibration.Maxima)
		record.Setup(dbc.env)
		if err = record.SaveNew(); err != nil {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Message:    fmt.Sprintf("Error saving calibration record '%s'", record.ID),
			}
		}

		recordStat(dbc.env, cusp.StatsCacheCalibrations, cusp.Stat{
			Count:  info.Replicates,
			Family: info.Method,
			Series: fmt.Sprintf("n=%d/alpha=%g", info.SeriesLength, info.Alpha),
		})
	}

	dbc.env.GetCache().PutNew(cusp.ThresholdCacheKey(info.SeriesLength, info.Alpha, info.Method), record.Threshold)

	apiCal := &dataModel.APICalibration{}
	if err := apiCal.Import(*record); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	return apiCal, nil
}

///////////////////////////////
// MockConnector Implementation
///////////////////////////////

// DetectChanges runs changepoint detection over an inline series.
func (mc *MockConnector) DetectChanges(ctx context.Context, values []float64, opts change.Options) (*dataModel.APIDetectResponse, error) {
	return runDetection(ctx, mc.env, values, opts)
}

// CalibrateThreshold resolves the decision threshold for a series length and
// false-positive level, reusing the cached record when one exists.
func (mc *MockConnector) CalibrateThreshold(ctx context.Context, opts CalibrateOptions) (*dataModel.APICalibration, error) {
	opts.normalize()
	info := opts.recordInfo()

	record, ok := mc.CachedCalibrations[info.ID()]
	if !ok {
		calibration, err := runCalibration(ctx, opts)
		if err != nil {
			return nil, err
		}

		record = *dbModel.CreateCalibrationRecord(info, calibration.Threshold, calibration.Warning, calibration.Maxima)
		mc.CachedCalibrations[record.ID] = record
	}

	apiCal := &dataModel.APICalibration{}
	if err := apiCal.Import(record); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "corrupt data",
		}
	}

	return apiCal, nil
}
