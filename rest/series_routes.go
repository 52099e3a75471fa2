package rest

import (
	"context"
	"net/http"

	"github.com/deltalab-io/cusp/rest/data"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

///////////////////////////////////////////////////////////////////////////////
//
// POST /series

type submitSeriesRequest struct {
	Info          dataModel.APIPerformanceSeriesInfo `json:"info"`
	Values        []float64                          `json:"values"`
	Variance      float64                            `json:"variance,omitempty"`
	ObservedRange util.TimeRange                     `json:"observed_range,omitempty"`
}

type submitSeriesHandler struct {
	req submitSeriesRequest
	sc  data.Connector
}

func makeSubmitSeries(sc data.Connector) gimlet.RouteHandler {
	return &submitSeriesHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new submitSeriesHandler.
func (h *submitSeriesHandler) Factory() gimlet.RouteHandler {
	return &submitSeriesHandler{
		sc: h.sc,
	}
}

// Parse reads the series submission from the request body.
func (h *submitSeriesHandler) Parse(ctx context.Context, r *http.Request) error {
	if err := gimlet.GetJSON(r.Body, &h.req); err != nil {
		err = errors.Wrap(err, "problem parsing series submission")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/series",
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

// Run stores the series and schedules changepoint detection over it.
func (h *submitSeriesHandler) Run(ctx context.Context) gimlet.Responder {
	resp, err := h.sc.SubmitSeries(ctx, data.SubmitSeriesOptions{
		Info:          h.req.Info,
		Values:        h.req.Values,
		Variance:      h.req.Variance,
		ObservedRange: h.req.ObservedRange,
	})
	if err != nil {
		err = errors.Wrap(err, "problem submitting series")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/series",
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}

	responder := gimlet.NewJSONResponse(resp)
	if err = responder.SetStatus(http.StatusCreated); err != nil {
		return gimlet.MakeJSONInternalErrorResponder(errors.Wrapf(err, "setting status code to %d", http.StatusCreated))
	}
	return responder
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /series/{series_id}

type getSeriesHandler struct {
	seriesID string
	sc       data.Connector
}

func makeGetSeries(sc data.Connector) gimlet.RouteHandler {
	return &getSeriesHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new getSeriesHandler.
func (h *getSeriesHandler) Factory() gimlet.RouteHandler {
	return &getSeriesHandler{
		sc: h.sc,
	}
}

// Parse fetches the series id from the http request.
func (h *getSeriesHandler) Parse(_ context.Context, r *http.Request) error {
	h.seriesID = gimlet.GetVars(r)["series_id"]
	return nil
}

// Run calls FindPerformanceSeries and returns the stored series.
func (h *getSeriesHandler) Run(ctx context.Context) gimlet.Responder {
	series, err := h.sc.FindPerformanceSeries(ctx, h.seriesID)
	if err != nil {
		err = errors.Wrapf(err, "problem getting series '%s'", h.seriesID)
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "GET",
			"route":   "/series/{series_id}",
			"id":      h.seriesID,
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}
	return gimlet.NewJSONResponse(series)
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /series/{series_id}/analysis

type seriesAnalysisHandler struct {
	seriesID string
	sc       data.Connector
}

func makeGetSeriesAnalysis(sc data.Connector) gimlet.RouteHandler {
	return &seriesAnalysisHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new seriesAnalysisHandler.
func (h *seriesAnalysisHandler) Factory() gimlet.RouteHandler {
	return &seriesAnalysisHandler{
		sc: h.sc,
	}
}

// Parse fetches the series id from the http request.
func (h *seriesAnalysisHandler) Parse(_ context.Context, r *http.Request) error {
	h.seriesID = gimlet.GetVars(r)["series_id"]
	return nil
}

// Run calls FindAnalysisResults and returns the analyses of the series.
func (h *seriesAnalysisHandler) Run(ctx context.Context) gimlet.Responder {
	analyses, err := h.sc.FindAnalysisResults(ctx, h.seriesID)
	if err != nil {
		err = errors.Wrapf(err, "problem getting analyses of series '%s'", h.seriesID)
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "GET",
			"route":   "/series/{series_id}/analysis",
			"id":      h.seriesID,
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}
	return gimlet.NewJSONResponse(analyses)
}

///////////////////////////////////////////////////////////////////////////////
//
// POST /analysis/{result_id}/triage

type triageChangepointsRequest struct {
	Indexes []int  `json:"indexes"`
	Status  string `json:"status"`
}

type triageChangepointsHandler struct {
	resultID string
	req      triageChangepointsRequest
	sc       data.Connector
}

func makeTriageChangepoints(sc data.Connector) gimlet.RouteHandler {
	return &triageChangepointsHandler{
		sc: sc,
	}
}

// Factory returns a pointer to a new triageChangepointsHandler.
func (h *triageChangepointsHandler) Factory() gimlet.RouteHandler {
	return &triageChangepointsHandler{
		sc: h.sc,
	}
}

// Parse fetches the result id and reads the triage request from the body.
func (h *triageChangepointsHandler) Parse(ctx context.Context, r *http.Request) error {
	h.resultID = gimlet.GetVars(r)["result_id"]

	if err := gimlet.GetJSON(r.Body, &h.req); err != nil {
		err = errors.Wrap(err, "problem parsing triage request")
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/analysis/{result_id}/triage",
		}))
		return err
	}

	if len(h.req.Indexes) == 0 {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "no changepoint indexes given",
		}
	}

	return nil
}

// Run marks the requested changepoints with the given triage status.
func (h *triageChangepointsHandler) Run(ctx context.Context) gimlet.Responder {
	err := h.sc.TriageChangepoints(ctx, data.TriageChangepointsOptions{
		ResultID: h.resultID,
		Indexes:  h.req.Indexes,
		Status:   h.req.Status,
	})
	if err != nil {
		err = errors.Wrapf(err, "problem triaging changepoints of analysis '%s'", h.resultID)
		grip.Error(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(ctx),
			"method":  "POST",
			"route":   "/analysis/{result_id}/triage",
			"id":      h.resultID,
		}))
		return gimlet.MakeJSONErrorResponder(err)
	}
	return gimlet.NewJSONResponse(struct{}{})
}
