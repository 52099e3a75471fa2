package rest

import (
	"context"

	"github.com/deltalab-io/cusp"
	"github.com/deltalab-io/cusp/rest/data"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/amboy"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

type Service struct {
	Port        int
	Prefix      string
	CORSOrigins []string
	Environment cusp.Environment

	// internal settings
	queue amboy.Queue
	app   *gimlet.APIApp
	sc    data.Connector
}

func (s *Service) Validate() error {
	if s.Environment == nil {
		return errors.New("must specify an environment")
	}

	if s.queue == nil {
		s.queue = s.Environment.GetQueue()
		if s.queue == nil {
			return errors.New("no queue defined")
		}
	}

	if s.sc == nil {
		s.sc = data.CreateDBConnector(s.Environment)
	}

	if s.app == nil {
		s.app = gimlet.NewApp()
	}

	if s.Port == 0 {
		s.Port = 3000
	}

	if err := s.app.SetPort(s.Port); err != nil {
		return errors.WithStack(err)
	}

	if s.Prefix != "" {
		s.app.SetPrefix(s.Prefix)
	}

	if len(s.CORSOrigins) > 0 {
		s.app.AddMiddleware(cors.New(cors.Options{
			AllowedOrigins:   s.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if s.queue == nil || s.app == nil {
		return errors.New("application is not valid")
	}

	s.addRoutes()

	if err := s.queue.Start(ctx); err != nil {
		return errors.Wrap(err, "problem starting queue")
	}

	if err := s.app.Resolve(); err != nil {
		return errors.Wrap(err, "problem resolving routes")
	}

	return s.app.Run(ctx)
}

func (s *Service) addRoutes() {
	s.app.AddRoute("/status").Version(1).Get().Handler(s.statusHandler)
	s.app.AddRoute("/series").Version(1).Post().RouteHandler(makeSubmitSeries(s.sc))
	s.app.AddRoute("/series/{series_id}").Version(1).Get().RouteHandler(makeGetSeries(s.sc))
	s.app.AddRoute("/series/{series_id}/analysis").Version(1).Get().RouteHandler(makeGetSeriesAnalysis(s.sc))
	s.app.AddRoute("/analysis/{result_id}/triage").Version(1).Post().RouteHandler(makeTriageChangepoints(s.sc))
	s.app.AddRoute("/detect").Version(1).Post().RouteHandler(makeDetectChanges(s.sc))
	s.app.AddRoute("/calibrate").Version(1).Post().RouteHandler(makeCalibrateThreshold(s.sc))
}
