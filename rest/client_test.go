package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/deltalab-io/cusp/change"
	dbModel "github.com/deltalab-io/cusp/model"
	"github.com/deltalab-io/cusp/rest/data"
	dataModel "github.com/deltalab-io/cusp/rest/model"
	"github.com/deltalab-io/cusp/util"
	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	sc     *data.MockConnector
	client *Client
	server *httptest.Server
	info   struct {
		host string
		port int
	}
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupSuite() {
	require := s.Require()

	s.sc = data.CreateMockConnector(nil)

	app := gimlet.NewApp()
	app.AddRoute("/status").Version(1).Get().Handler(func(rw http.ResponseWriter, r *http.Request) {
		gimlet.WriteJSON(rw, &StatusResponse{Revision: "test"})
	})
	app.AddRoute("/series").Version(1).Post().RouteHandler(makeSubmitSeries(s.sc))
	app.AddRoute("/series/{series_id}").Version(1).Get().RouteHandler(makeGetSeries(s.sc))
	app.AddRoute("/series/{series_id}/analysis").Version(1).Get().RouteHandler(makeGetSeriesAnalysis(s.sc))
	app.AddRoute("/analysis/{result_id}/triage").Version(1).Post().RouteHandler(makeTriageChangepoints(s.sc))
	app.AddRoute("/detect").Version(1).Post().RouteHandler(makeDetectChanges(s.sc))
	app.AddRoute("/calibrate").Version(1).Post().RouteHandler(makeCalibrateThreshold(s.sc))
	require.NoError(app.Resolve())

	router, err := app.Router()
	require.NoError(err)
	s.server = httptest.NewServer(router)

	portStart := strings.LastIndex(s.server.URL, ":")
	port, err := strconv.Atoi(s.server.URL[portStart+1:])
	require.NoError(err)
	s.info.host = s.server.URL[:portStart]
	s.info.port = port
	grip.Infof("running test REST service at '%s', on port '%d'", s.info.host, s.info.port)
}

func (s *ClientSuite) TearDownSuite() {
	grip.Infof("closing test REST service at '%s', on port '%d'", s.info.host, s.info.port)
	s.server.Close()
}

func (s *ClientSuite) SetupTest() {
	s.client = &Client{}
}

func (s *ClientSuite) connectedClient() *Client {
	client, err := NewClient(s.info.host, s.info.port, "")
	s.Require().NoError(err)

	return client
}

////////////////////////////////////////////////////////////////////////
//
// A collection of tests that exercise and test the consistency and
// validation in the configuration interface for the REST client.
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestClientGetter() {
	s.Exactly(s.client.Client(), s.client.client)
}

func (s *ClientSuite) TestSetHostRequiresHttpURL() {
	example := "http://example.com"

	s.Equal("", s.client.Host())
	s.NoError(s.client.SetHost(example))
	s.Equal(example, s.client.Host())

	badURI := []string{"foo", "1", "true", "htp", "ssh"}

	for _, uri := range badURI {
		s.Error(s.client.SetHost(uri))
		s.Equal(example, s.client.Host())
	}
}

func (s *ClientSuite) TestSetHostStripsTrailingSlash() {
	uris := []string{
		"http://foo.example.com/",
		"https://extra.example.net/bar/s/",
	}

	for _, uri := range uris {
		s.True(strings.HasSuffix(uri, "/"))
		s.NoError(s.client.SetHost(uri))
		s.Equal(uri[:len(uri)-1], s.client.Host())
		s.False(strings.HasSuffix(s.client.Host(), "/"))
	}
}

func (s *ClientSuite) TestSetHostRoundTripsValidHostWithGetter() {
	uris := []string{
		"http://foo.example.com",
		"https://extra.example.net/bar/s",
	}
	for _, uri := range uris {
		s.NoError(s.client.SetHost(uri))
		s.Equal(uri, s.client.Host())
	}
}

func (s *ClientSuite) TestPortSetterDisallowsPortsToBeZero() {
	s.Equal(0, s.client.port)
	s.Equal(0, s.client.Port())

	s.Error(s.client.SetPort(0))
	s.Equal(3000, s.client.Port())
}

func (s *ClientSuite) TestPortSetterDisallowsTooBigPorts() {
	s.Equal(0, s.client.port)
	s.Equal(0, s.client.Port())

	for _, p := range []int{65536, 70000, 1000000} {
		s.Error(s.client.SetPort(p), strconv.Itoa(p))
		s.Equal(3000, s.client.Port())
	}
}

func (s *ClientSuite) TestPortSetterRoundTripsValidPortsWithGetter() {
	for _, p := range []int{65, 8080, 1400} {
		s.NoError(s.client.SetPort(p), strconv.Itoa(p))
		s.Equal(p, s.client.Port())
	}
}

func (s *ClientSuite) TestSetPrefixRemovesTrailingAndLeadingSlashes() {
	s.Equal("", s.client.Prefix())

	for _, p := range []string{"/foo", "foo/", "/foo/"} {
		s.NoError(s.client.SetPrefix(p))
		s.Equal("foo", s.client.Prefix())
	}
}

func (s *ClientSuite) TestSetPrefixRoundTripsThroughGetter() {
	for _, p := range []string{"", "foo/bar", "foo", "foo/bar/baz"} {
		s.NoError(s.client.SetPrefix(p))
		s.Equal(p, s.client.Prefix())
	}
}

////////////////////////////////////////////////////////////////////////
//
// Client Initialization Checks/Tests
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestNewClientPropogatesValidValuesToCreatedValues() {
	nc, err := NewClient("http://example.com", 8080, "series")
	s.NoError(err)

	s.Equal(8080, nc.Port())
	s.Equal("http://example.com", nc.Host())
	s.Equal("series", nc.Prefix())
}

func (s *ClientSuite) TestNewClientConstructorPropogatesErrorStateForPort() {
	nc, err := NewClient("http://example.com", 900000000, "/series/")
	s.Error(err)
	s.Nil(nc)
}

func (s *ClientSuite) TestNewClientConstructorPropogatesErrorStateForHost() {
	nc, err := NewClient("foo", 3000, "")

	s.Nil(nc)
	s.Error(err)
}

func (s *ClientSuite) TestNewClientFromExistingUsesExistingHTTPClient() {
	client := &http.Client{}

	nc, err := NewClientFromExisting(client, "http://example.com", 2048, "series")
	s.NoError(err)
	s.Exactly(client, nc.Client())
}

func (s *ClientSuite) TestNewClientFromExistingWithNilClientReturnsError() {
	nc, err := NewClientFromExisting(nil, "http://example.com", 2048, "series")
	s.Error(err)
	s.Nil(nc)
}

func (s *ClientSuite) TestCopyConstructorUsesDifferentHTTPClient() {
	s.NotEqual(s.client.Client(), s.client.Copy().Client())
}

////////////////////////////////////////////////////////////////////////
//
// Client/Service Interaction: internals and helpers
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestURLGenerationWithoutDefaultPortInResult() {
	s.NoError(s.client.SetHost("http://cusp.example.net"))

	for _, p := range []int{0, 80} {
		s.client.port = p

		s.Equal("http://cusp.example.net/foo", s.client.getURL("foo"))
	}
}

func (s *ClientSuite) TestURLGenerationWithNonDefaultPort() {
	for _, p := range []int{82, 8080, 3000, 42420, 2048} {
		s.NoError(s.client.SetPort(p))
		host := "http://cusp.example.net"
		s.NoError(s.client.SetHost(host))
		prefix := "/series"
		s.NoError(s.client.SetPrefix(prefix))
		endpoint := "/status"
		expected := strings.Join([]string{host, ":", strconv.Itoa(p), prefix, endpoint}, "")

		s.Equal(expected, s.client.getURL(endpoint))
	}
}

func (s *ClientSuite) TestURLGenerationWithEmptyPrefix() {
	host := "http://cusp.example.net"
	endpoint := "status"

	s.NoError(s.client.SetHost(host))
	s.Equal("", s.client.Prefix())

	s.Equal(strings.Join([]string{host, endpoint}, "/"),
		s.client.getURL(endpoint))
}

////////////////////////////////////////////////////////////////////////
//
// Client/Service Interaction: Public Methods
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestGetStatusReportsServiceState() {
	ctx := context.Background()
	client := s.connectedClient()

	status, err := client.GetStatus(ctx)
	s.Require().NoError(err)
	s.Equal("test", status.Revision)
}

func (s *ClientSuite) TestDetectChangesFindsShift() {
	ctx := context.Background()
	client := s.connectedClient()

	values := make([]float64, 0, 16)
	for i := 0; i < 8; i++ {
		values = append(values, 10)
	}
	for i := 0; i < 8; i++ {
		values = append(values, 20)
	}

	resp, err := client.DetectChanges(ctx, values, change.Options{})
	s.Require().NoError(err)
	s.Equal([]int{8}, resp.Changepoints)
	s.Equal("optimal_partitioning", utility.FromStringPtr(resp.Algorithm.Name))
}

func (s *ClientSuite) TestDetectChangesReportsInvalidParameters() {
	ctx := context.Background()
	client := s.connectedClient()

	_, err := client.DetectChanges(ctx, []float64{1, 2, 3}, change.Options{Method: change.Method("bogus")})
	s.Require().Error(err)

	restErr, ok := errors.Cause(err).(gimlet.ErrorResponse)
	s.Require().True(ok)
	s.Equal(http.StatusBadRequest, restErr.StatusCode)
}

func (s *ClientSuite) TestSubmitAndFetchSeries() {
	ctx := context.Background()
	client := s.connectedClient()

	info := dataModel.APIPerformanceSeriesInfo{
		Project:     utility.ToStringPtr("sys-perf"),
		Variant:     utility.ToStringPtr("linux-standalone"),
		Task:        utility.ToStringPtr("big_update"),
		Test:        utility.ToStringPtr("15_5c_update"),
		Measurement: utility.ToStringPtr("ops_per_sec"),
	}

	resp, err := client.SubmitSeries(ctx, info, []float64{1, 2, 3}, 0, util.TimeRange{})
	s.Require().NoError(err)
	seriesID := utility.FromStringPtr(resp.SeriesID)
	s.Require().NotEmpty(seriesID)

	series, err := client.GetSeries(ctx, seriesID)
	s.Require().NoError(err)
	s.Equal([]float64{1, 2, 3}, series.Values)

	_, err = client.GetSeriesAnalysis(ctx, seriesID)
	s.Require().Error(err)
	restErr, ok := errors.Cause(err).(gimlet.ErrorResponse)
	s.Require().True(ok)
	s.Equal(http.StatusNotFound, restErr.StatusCode)
}

func (s *ClientSuite) TestTriageChangepointsUpdatesStatus() {
	ctx := context.Background()
	client := s.connectedClient()

	s.sc.CachedAnalyses["triage-series"] = []dbModel.AnalysisResult{
		{
			ID: "triage-result",
			Changepoints: []dbModel.Changepoint{
				dbModel.CreateChangepoint(4, []float64{25}),
			},
		},
	}

	s.Require().NoError(client.TriageChangepoints(ctx, "triage-result", []int{4}, "true_positive"))
	s.Equal(dbModel.TriageStatusTruePositive, s.sc.CachedAnalyses["triage-series"][0].Changepoints[0].Triage.Status)

	err := client.TriageChangepoints(ctx, "DNE", []int{4}, "true_positive")
	s.Require().Error(err)
	restErr, ok := errors.Cause(err).(gimlet.ErrorResponse)
	s.Require().True(ok)
	s.Equal(http.StatusNotFound, restErr.StatusCode)
}

func (s *ClientSuite) TestCalibrateThresholdResolvesThreshold() {
	ctx := context.Background()
	client := s.connectedClient()

	expected, err := change.AsymptoticThreshold(500, 0.05)
	s.Require().NoError(err)

	calibration, err := client.CalibrateThreshold(ctx, 500, 0.05, "asymptotic", 0, 0)
	s.Require().NoError(err)
	s.Equal(expected, calibration.Threshold)
}
