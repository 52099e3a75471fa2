package change

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// OptimalPartitioning finds the exact minimizer of the penalized
// segmentation cost, the sum of segment costs plus beta per changepoint, by
// dynamic programming over prefix optima: with Q[0] = -beta,
//
//	Q[t] = min over tau < t of Q[tau] + cost(tau, t) + beta
//
// and back-pointers recovering the optimal boundaries from Q[n]. Ties go to
// the smallest tau. The result is never costlier than BinarySegmentation's
// on the same inputs. O(n^2) cost queries, each O(1) amortized over the
// cached statistics; cancellation is honored between right-endpoint
// iterations.
func OptimalPartitioning(ctx context.Context, cost Cost, beta float64) (*Segmentation, error) {
	return optimalPartitioning(ctx, cost, beta, nil)
}

// OptimalPartitioningPruned is OptimalPartitioning with a candidate-pruning
// strategy plugged into the inner minimization. A nil pruner keeps every
// candidate.
func OptimalPartitioningPruned(ctx context.Context, cost Cost, beta float64, pruner Pruner) (*Segmentation, error) {
	return optimalPartitioning(ctx, cost, beta, pruner)
}

func optimalPartitioning(ctx context.Context, cost Cost, beta float64, pruner Pruner) (*Segmentation, error) {
	n := cost.Len()
	minLen := cost.MinSegmentLength()
	if n < minLen {
		return nil, errors.Wrapf(ErrInvalidInput, "series of length %d cannot hold one %s segment of length %d", n, cost.Family(), minLen)
	}

	// objective[t] is the optimal penalized cost of the prefix [0, t);
	// +Inf marks prefixes no admissible segmentation can tile.
	objective := make([]float64, n+1)
	prev := make([]int, n+1)
	for t := range objective {
		objective[t] = math.Inf(1)
		prev[t] = -1
	}
	objective[0] = -beta

	candidates := make([]int, 1, n)
	candidates[0] = 0
	degenerate := false

	for t := minLen; t <= n; t++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "optimal partitioning interrupted")
		}

		for _, tau := range candidates {
			if t-tau < minLen || math.IsInf(objective[tau], 1) {
				continue
			}

			value, deg, err := cost.Cost(tau, t)
			if err != nil {
				return nil, errors.Wrapf(err, "scoring segment [%d,%d)", tau, t)
			}
			degenerate = degenerate || deg

			// Candidates ascend, so strict improvement keeps the
			// smallest tau on ties.
			if v := objective[tau] + value + beta; v < objective[t] {
				objective[t] = v
				prev[t] = tau
			}
		}

		if pruner != nil {
			var err error
			candidates, err = pruner.Prune(candidates, t, objective, cost, beta)
			if err != nil {
				return nil, errors.Wrapf(err, "pruning candidates at endpoint %d", t)
			}
		}
		if !math.IsInf(objective[t], 1) && t+minLen <= n {
			candidates = append(candidates, t)
		}
	}

	var changepoints []int
	for at := n; at > 0; at = prev[at] {
		if prev[at] > 0 {
			changepoints = append(changepoints, prev[at])
		}
	}
	sort.Ints(changepoints)

	seg, err := buildSegmentation(cost, beta, changepoints)
	if err != nil {
		return nil, err
	}
	seg.Degenerate = seg.Degenerate || degenerate
	return seg, nil
}
