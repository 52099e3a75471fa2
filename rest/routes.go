package rest

import (
	"net/http"

	"github.com/deltalab-io/cusp"
	"github.com/evergreen-ci/gimlet"
	"github.com/mongodb/amboy"
)

////////////////////////////////////////////////////////////////////////
//
// GET /status

type StatusResponse struct {
	Revision string           `json:"revision"`
	Queue    amboy.QueueStats `json:"queue"`
}

// statusHandler reports the build revision and the state of the work queue.
func (s *Service) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.Environment.Context()
	defer cancel()

	resp := &StatusResponse{
		Revision: cusp.BuildRevision,
		Queue:    s.queue.Stats(ctx),
	}

	gimlet.WriteJSON(w, resp)
}
