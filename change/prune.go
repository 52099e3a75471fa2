package change

import (
	"math"

	"github.com/pkg/errors"
)

// Pruner narrows the candidate segment starts the optimal-partitioning
// dynamic program revisits at later right endpoints. Prune runs after the
// objective for endpoint t is final and returns the candidates to carry
// forward; implementations must only discard starts that provably cannot
// begin the last segment of any longer prefix's optimum.
type Pruner interface {
	Prune(candidates []int, t int, objective []float64, cost Cost, beta float64) ([]int, error)
}

// NewPELTPruner returns the pruning rule of Killick, Fearnhead and Eckley:
// once endpoint t is scored, a start tau with
//
//	objective[tau] + cost(tau, t) >= objective[t]
//
// cannot improve on the optimum at any endpoint beyond t, because these
// families' costs only grow when a segment is extended past a boundary that
// already failed to pay for itself. Expected near-linear total work when
// changepoints are frequent; exactness is unchanged.
func NewPELTPruner() Pruner {
	return peltPruner{}
}

type peltPruner struct{}

func (peltPruner) Prune(candidates []int, t int, objective []float64, cost Cost, beta float64) ([]int, error) {
	minLen := cost.MinSegmentLength()

	kept := candidates[:0]
	for _, tau := range candidates {
		// Starts too close to t have not been scoreable yet; their
		// turn comes at later endpoints.
		if t-tau < minLen {
			kept = append(kept, tau)
			continue
		}
		if math.IsInf(objective[tau], 1) {
			continue
		}

		value, _, err := cost.Cost(tau, t)
		if err != nil {
			return nil, errors.Wrapf(err, "scoring segment [%d,%d)", tau, t)
		}
		if objective[tau]+value < objective[t] {
			kept = append(kept, tau)
		}
	}

	return kept, nil
}
