package detector

import (
	"slices"

	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// DefaultNMSThreshold is the overlap ratio above which a candidate is dropped.
const DefaultNMSThreshold = 0.3

// NonMaxSuppression greedily keeps the most confident candidate and drops
// every remaining one whose overlap ratio with it exceeds threshold. The
// overlap ratio is the intersection divided by the dropped candidate's own
// area, with inclusive pixel extents. Equal confidences keep input order.
// Survivors are returned in pick order.
func NonMaxSuppression(cands []Candidate, threshold float64) []utils.Rect {
	if len(cands) == 0 {
		return nil
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ca, cb := cands[a].Confidence, cands[b].Confidence
		switch {
		case ca > cb:
			return -1
		case ca < cb:
			return 1
		default:
			return 0
		}
	})

	kept := make([]utils.Rect, 0, len(cands))
	remaining := order
	for len(remaining) > 0 {
		pick := cands[remaining[0]].Rect
		kept = append(kept, pick)

		rest := remaining[:0]
		for _, j := range remaining[1:] {
			if overlapRatio(pick, cands[j].Rect) <= threshold {
				rest = append(rest, j)
			}
		}
		remaining = rest
	}
	return kept
}

// SuppressRects runs NonMaxSuppression with equal confidences, so earlier
// rectangles win.
func SuppressRects(rects []utils.Rect, threshold float64) []utils.Rect {
	cands := make([]Candidate, len(rects))
	for i, r := range rects {
		cands[i] = Candidate{Rect: r, Confidence: 1}
	}
	return NonMaxSuppression(cands, threshold)
}

// overlapRatio returns intersection(pick, cand) / area(cand). A candidate
// with no area never counts as overlapping.
func overlapRatio(pick, cand utils.Rect) float64 {
	area := cand.InclusiveArea()
	if area == 0 {
		return 0
	}
	w := min(pick.X1, cand.X1) - max(pick.X0, cand.X0) + 1
	h := min(pick.Y1, cand.Y1) - max(pick.Y0, cand.Y0) + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(w*h) / float64(area)
}
