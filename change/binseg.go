package change

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// BinarySegmentation finds multiple changepoints by recursive halving: on
// each interval it takes the best single split, keeps it when the split
// improves the penalized cost (strictly; an exact tie keeps the interval
// whole), and recurses into both halves through an explicit worklist. The
// search is greedy, so a split that only pays off in combination with later
// ones can be masked; OptimalPartitioning is the exact alternative.
// Cancellation is honored between worklist intervals. A non-positive
// penalty admits every admissible split.
func BinarySegmentation(ctx context.Context, cost Cost, beta float64) (*Segmentation, error) {
	n := cost.Len()
	minLen := cost.MinSegmentLength()
	if n < minLen {
		return nil, errors.Wrapf(ErrInvalidInput, "series of length %d cannot hold one %s segment of length %d", n, cost.Family(), minLen)
	}

	var (
		changepoints []int
		degenerate   bool
	)

	work := [][2]int{{0, n}}
	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "binary segmentation interrupted")
		}

		interval := work[len(work)-1]
		work = work[:len(work)-1]
		s, t := interval[0], interval[1]
		if t-s < 2*minLen {
			continue
		}

		whole, deg, err := cost.Cost(s, t)
		if err != nil {
			return nil, errors.Wrapf(err, "scoring interval [%d,%d)", s, t)
		}
		degenerate = degenerate || deg

		bestQ := math.Inf(1)
		bestTau := -1
		for tau := s + minLen; tau <= t-minLen; tau++ {
			left, degL, err := cost.Cost(s, tau)
			if err != nil {
				return nil, errors.Wrapf(err, "scoring candidate [%d,%d)", s, tau)
			}
			right, degR, err := cost.Cost(tau, t)
			if err != nil {
				return nil, errors.Wrapf(err, "scoring candidate [%d,%d)", tau, t)
			}
			degenerate = degenerate || degL || degR

			// Strict improvement keeps the smallest tau on ties.
			if q := left + right - whole + beta; q < bestQ {
				bestQ = q
				bestTau = tau
			}
		}

		if bestTau >= 0 && bestQ < 0 {
			changepoints = append(changepoints, bestTau)
			work = append(work, [2]int{s, bestTau}, [2]int{bestTau, t})
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
