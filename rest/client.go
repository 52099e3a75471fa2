package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deltalab-io/cusp/change"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

const (
	defaultClientPort int = 3000
	maxClientPort         = 65535
)

// Client provides an interface for interacting with a remote changepoint
// detection service.
type Client struct {
	host   string
	prefix string
	port   int
	client *http.Client
}

// NewClient takes host, port, and URI prefix information and constructs a
// new Client.
func NewClient(host string, port int, prefix string) (*Client, error) {
	c := &Client{client: &http.Client{}}

	return c.initClient(host, port, prefix)
}

// NewClientFromExisting takes an existing http.Client object and produces a
// new Client object.
func NewClientFromExisting(client *http.Client, host string, port int, prefix string) (*Client, error) {
	if client == nil {
		return nil, errors.New("must use a non-nil existing client")
	}

	c := &Client{client: client}

	return c.initClient(host, port, prefix)
}

// Copy takes an existing Client object and returns a new client object with
// the same settings that uses a *new* http.Client.
func (c *Client) Copy() *Client {
	new := &Client{}
	*new = *c
	new.client = &http.Client{}

	return new
}

func (c *Client) initClient(host string, port int, prefix string) (*Client, error) {
	var err error

	err = c.SetHost(host)
	if err != nil {
		return nil, err
	}

	err = c.SetPort(port)
	if err != nil {
		return nil, err
	}

	err = c.SetPrefix(prefix)
	if err != nil {
		return nil, err
	}

	return c, nil
}

////////////////////////////////////////////////////////////////////////
//
// Configuration Interface
//
////////////////////////////////////////////////////////////////////////

// Client returns a pointer to embedded http.Client object.
func (c *Client) Client() *http.Client {
	return c.client
}

// SetHost allows callers to change the hostname (including leading
// "http(s)") for the Client. Returns an error if the specified host does not
// start with "http".
func (c *Client) SetHost(h string) error {
	if !strings.HasPrefix(h, "http") {
		return errors.Errorf("host '%s' is malformed. must start with 'http'", h)
	}

	if strings.HasSuffix(h, "/") {
		h = h[:len(h)-1]
	}

	c.host = h

	return nil
}

// Host returns the current host.
func (c *Client) Host() string {
	return c.host
}

// SetPort allows callers to change the port used for the client. If the port
// is invalid, returns an error and sets the port to the default value.
// (3000)
func (c *Client) SetPort(p int) error {
	if p <= 0 || p >= maxClientPort {
		c.port = defaultClientPort
		return errors.Errorf("cannot set the port to %d, using %d instead", p, defaultClientPort)
	}

	c.port = p
	return nil
}

// Port returns the current port value for the Client.
func (c *Client) Port() int {
	return c.port
}

// SetPrefix allows callers to modify the prefix, for this client,
func (c *Client) SetPrefix(p string) error {
	c.prefix = strings.Trim(p, "/")
	return nil
}

// Prefix accesses the prefix for the client, The prefix is the part of the
// URI between the end-point and the hostname, of the API.
func (c *Client) Prefix() string {
	return c.prefix
}

func (c *Client) getURL(endpoint string) string {
	var url []string

	if c.port == 80 || c.port == 0 {
		url = append(url, c.host)
	} else {
		url = append(url, fmt.Sprintf("%s:%d", c.host, c.port))
	}

	if c.prefix != "" {
		url = append(url, c.prefix)
	}

	if endpoint = strings.Trim(endpoint, "/"); endpoint != "" {
		url = append(url, endpoint)
	}

	return strings.Join(url, "/")
}

func (c *Client) doRequest(ctx context.Context, method, url string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "problem encoding request body")
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, "problem building request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	grip.Debugln(method, url)
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "problem with request to %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		restErr := gimlet.ErrorResponse{}
		if err = gimlet.GetJSON(resp.Body, &restErr); err != nil {
			return errors.Errorf("request to %s returned status %d", url, resp.StatusCode)
		}
		if restErr.StatusCode == 0 {
			restErr.StatusCode = resp.StatusCode
		}
		return restErr
	}

	if out != nil {
		if err = gimlet.GetJSON(resp.Body, out); err != nil {
			return errors.Wrap(err, "problem reading response body")
		}
	}

	return nil
}

////////////////////////////////////////////////////////////////////////
//
// Public Operations that Interact with the Service
//
////////////////////////////////////////////////////////////////////////

// GetStatus reports the build revision and queue state of the service.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	out := &StatusResponse{}
	if err := c.doRequest(ctx, http.MethodGet, c.getURL("/v1/status"), nil, out); err != nil {
		return nil, errors.Wrap(err, "problem getting service status")
	}

	return out, nil
}

// SubmitSeries stores a series on the service and schedules changepoint
// detection over it.
func (c *Client) SubmitSeries(ctx context.Context, info dataModel.APIPerformanceSeriesInfo, values []float64, variance float64, observed util.TimeRange) (*dataModel.APISubmitSeriesResponse, error) {
	payload := submitSeriesRequest{
		Info:          info,
		Values:        values,
		Variance:      variance,
		ObservedRange: observed,
	}

	out := &dataModel.APISubmitSeriesResponse{}
	if err := c.doRequest(ctx, http.MethodPost, c.getURL("/v1/series"), payload, out); err != nil {
		return nil, errors.Wrap(err, "problem submitting series")
	}

	return out, nil
}

// GetSeries fetches a stored series by id.
func (c *Client) GetSeries(ctx context.Context, seriesID string) (*dataModel.APIPerformanceSeries, error) {
	out := &dataModel.APIPerformanceSeries{}
	url := c.getURL(fmt.Sprintf("/v1/series/%s", seriesID))
	if err := c.doRequest(ctx, http.MethodGet, url, nil, out); err != nil {
		return nil, errors.Wrapf(err, "problem getting series '%s'", seriesID)
	}

	return out, nil
}

// GetSeriesAnalysis fetches the persisted analyses of a stored series.
func (c *Client) GetSeriesAnalysis(ctx context.Context, seriesID string) ([]dataModel.APIAnalysisResult, error) {
	out := []dataModel.APIAnalysisResult{}
	url := c.getURL(fmt.Sprintf("/v1/series/%s/analysis", seriesID))
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, errors.Wrapf(err, "problem getting analyses of series '%s'", seriesID)
	}

	return out, nil
}

// TriageChangepoints marks changepoints of a stored analysis with a triage
// status.
func (c *Client) TriageChangepoints(ctx context.Context, resultID string, indexes []int, status string) error {
	payload := triageChangepointsRequest{
		Indexes: indexes,
		Status:  status,
	}

	url := c.getURL(fmt.Sprintf("/v1/analysis/%s/triage", resultID))
	if err := c.doRequest(ctx, http.MethodPost, url, payload, nil); err != nil {
		return errors.Wrapf(err, "problem triaging changepoints of analysis '%s'", resultID)
	}

	return nil
}

// DetectChanges runs synchronous changepoint detection over an inline
// series.
func (c *Client) DetectChanges(ctx context.Context, values []float64, opts change.Options) (*dataModel.APIDetectResponse, error) {
	payload := detectRequest{
		Values:      values,
		Family:      string(opts.Family),
		Method:      string(opts.Method),
		Penalty:     opts.Penalty,
		Threshold:   opts.Threshold,
		Alpha:       opts.Alpha,
		Calibration: string(opts.Calibration),
		Replicates:  opts.Replicates,
		Seed:        opts.Seed,
		Sigma2:      opts.Sigma2,
		Mean:        opts.Mean,
		GridSize:    opts.GridSize,
		Pruned:      opts.Pruned,
	}

	out := &dataModel.APIDetectResponse{}
	if err := c.doRequest(ctx, http.MethodPost, c.getURL("/v1/detect"), payload, out); err != nil {
		return nil, errors.Wrap(err, "problem detecting changepoints")
	}

	return out, nil
}

// CalibrateThreshold resolves the decision threshold for a series length and
// false-positive level on the service.
func (c *Client) CalibrateThreshold(ctx context.Context, n int, alpha float64, method string, replicates int, seed int64) (*dataModel.APICalibration, error) {
	payload := calibrateRequest{
		SeriesLength: n,
		Alpha:        alpha,
		Method:       method,
		Replicates:   replicates,
		Seed:         seed,
	}

	out := &dataModel.APICalibration{}
	if err := c.doRequest(ctx, http.MethodPost, c.getURL("/v1/calibrate"), payload, out); err != nil {
		return nil, errors.Wrap(err, "problem calibrating threshold")
	}

	return out, nil
}
