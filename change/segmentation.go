package change

import "github.com/pkg/errors"

// Segment is one half-open piece [Start, End) of a segmentation, with its
// cost and the family's parameter estimates.
type Segment struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Cost  float64   `json:"cost"`
	Fit   []float64 `json:"fit"`
}

// Segmentation is the outcome of a multiple-changepoint search. Segments
// always tile [0, n) in order with no gaps or overlaps; Changepoints holds
// the interior boundaries, ascending, and is empty when no change was found.
type Segmentation struct {
	Changepoints []int     `json:"changepoints"`
	Segments     []Segment `json:"segments"`

	// TotalCost is the penalized objective, the sum of segment costs
	// plus the penalty times the number of changepoints.
	TotalCost float64 `json:"total_cost"`

	// Degenerate reports that at least one variance or probability
	// estimate was floored somewhere in the search.
	Degenerate bool `json:"degenerate,omitempty"`
}

// buildSegmentation scores and fits the segments cut by the given
// boundaries. changepoints must be ascending interior boundaries.
func buildSegmentation(cost Cost, beta float64, changepoints []int) (*Segmentation, error) {
	bounds := make([]int, 0, len(changepoints)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, changepoints...)
	bounds = append(bounds, cost.Len())

	seg := &Segmentation{
		Changepoints: changepoints,
		Segments:     make([]Segment, 0, len(bounds)-1),
		TotalCost:    beta * float64(len(changepoints)),
	}

	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		value, degenerate, err := cost.Cost(start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "scoring segment [%d,%d)", start, end)
		}
		fit, err := cost.Fit(start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "fitting segment [%d,%d)", start, end)
		}

		seg.Segments = append(seg.Segments, Segment{Start: start, End: end, Cost: value, Fit: fit})
		seg.Degenerate = seg.Degenerate || degenerate
		seg.TotalCost += value
	}

	return seg, nil
}
