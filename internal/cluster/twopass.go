package cluster

import "github.com/MeKo-Tech/comicocr/internal/utils"

// TwoPass runs one greedy merge pass and then exactly one more over its
// result. Chains that need more passes to connect stay split, and the outcome
// depends on input order.
type TwoPass struct {
	Proximity float64
}

func (TwoPass) Name() string { return StrategyTwoPass }

// Merge implements Merger.
func (t TwoPass) Merge(rects []utils.Rect) []utils.Rect {
	return mergePass(mergePass(rects, t.Proximity), t.Proximity)
}

// mergePass visits rects in order. Each rectangle is unioned into every
// existing cluster it relates to, and starts a new cluster only when it
// relates to none.
func mergePass(rects []utils.Rect, proximity float64) []utils.Rect {
	clusters := make([]utils.Rect, 0, len(rects))
	for _, r := range rects {
		matched := false
		for i := range clusters {
			if Related(clusters[i], r, proximity) {
				clusters[i] = clusters[i].Union(r)
				matched = true
			}
		}
		if !matched {
			clusters = append(clusters, r)
		}
	}
	return clusters
}
