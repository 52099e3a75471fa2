package rest

import (
	"context"
	"net/http"

	"github.com/deltalab-io/cusp/change"
	"github.com/deltalab-io/cusp/rest/data"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

///////////////////////////////////////////////////////////////////////////////
//
// POST /detect

type detectRequest struct {
	Values      []float64 `json:"values"`
	Family      string    `json:"family,omitempty"`
	Method      string    `json:"method,omitempty"`
	Penalty     float64   `json:"penalty,omitempty"`
	Threshold   float64   `json:"threshold,omitempty"`
	Alpha       float64   `json:"alpha,omitempty"`
	Calibration string    `json:"calibration,omitempty"`
	Replicates  int       `json:"replicates,omitempty"`
	Seed        int64     `json:"seed,omitempty"`
	Sigma2      float64   `json:"sigma2,omitempty"`
	Mean        float64   `json:"mean,omitempty"`
	GridSize    int       `json:"grid_size,omitempty"`
	Pruned      bool      `json:"pruned,omitempty"`
}

type detectHandler struct {
	req detectRequest
	sc  data.Connector
}

func makeDetectChanges(sc data.Connector) gimlet.RouteHandler {
	return &detectHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new detectHandler.
func (h *detectHandler) Factory() gimlet.RouteHandler {
	return &detectHandler{
		sc: h.sc,
	}
}

// Parse reads the detection request from the request body.
func (h *detectHandler) Parse(ctx context.Context, r *http.Request) error {
	if err := gimlet.GetJSON(r.Body, &h.req); err != nil {
		err = errors.Wrap(err, "problem parsing detection request")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/detect",
		}))
		return err
	}

	if len(h.req.Values) == 0 {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "no values given",
		}
	}

	return nil
}

// Run calls DetectChanges and returns the segmentation of the inline series.
func (h *detectHandler) Run(ctx context.Context) gimlet.Responder {
	resp, err := h.sc.DetectChanges(ctx, h.req.Values, change.Options{
		Family:      change.Family(h.req.Family),
		Method:      change.Method(h.req.Method),
		Penalty:     h.req.Penalty,
		Threshold:   h.req.Threshold,
		Alpha:       h.req.Alpha,
		Calibration: change.CalibrationMethod(h.req.Calibration),
		Replicates:  h.req.Replicates,
		Seed:        h.req.Seed,
		Sigma2:      h.req.Sigma2,
		Mean:        h.req.Mean,
		GridSize:    h.req.GridSize,
		Pruned:      h.req.Pruned,
	})
	if err != nil {
		err = errors.Wrap(err, "problem detecting changepoints")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/detect",
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}
	return gimlet.NewJSONResponse(resp)
}

///////////////////////////////////////////////////////////////////////////////
//
// POST /calibrate

type calibrateRequest struct {
	SeriesLength int     `json:"series_length"`
	Alpha        float64 `json:"alpha,omitempty"`
	Method       string  `json:"method,omitempty"`
	Replicates   int     `json:"replicates,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
}

type calibrateHandler struct {
	req calibrateRequest
	sc  data.Connector
}

func makeCalibrateThreshold(sc data.Connector) gimlet.RouteHandler {
	return &calibrateHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new calibrateHandler.
func (h *calibrateHandler) Factory() gimlet.RouteHandler {
	return &calibrateHandler{
		sc: h.sc,
	}
}

// Parse reads the calibration request from the request body.
func (h *calibrateHandler) Parse(ctx context.Context, r *http.Request) error {
	if err := gimlet.GetJSON(r.Body, &h.req); err != nil {
		err = errors.Wrap(err, "problem parsing calibration request")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/calibrate",
		}))
		return err
	}

	if h.req.SeriesLength <= 0 {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "no series length given",
		}
	}

	return nil
}

// Run calls CalibrateThreshold and returns the calibrated threshold.
func (h *calibrateHandler) Run(ctx context.Context) gimlet.Responder {
	calibration, err := h.sc.CalibrateThreshold(ctx, data.CalibrateOptions{
		SeriesLength: h.req.SeriesLength,
		Alpha:        h.req.Alpha,
		Method:       h.req.Method,
		Replicates:   h.req.Replicates,
		Seed:         h.req.Seed,
	})
	if err != nil {
		err = errors.Wrap(err, "problem calibrating threshold")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/calibrate",
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}
	return gimlet.NewJSONResponse(calibration)
}
