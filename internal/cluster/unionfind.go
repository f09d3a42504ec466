package cluster

import "github.com/MeKo-Tech/comicocr/internal/utils"

// Transitive merges the full transitive closure of the relation: any two
// rectangles connected by a chain of related rectangles end up in the same
// block. Blocks are ordered by their first member.
type Transitive struct {
	Proximity float64
}

func (Transitive) Name() string { return StrategyUnionFind }

// Merge implements Merger.
func (t Transitive) Merge(rects []utils.Rect) []utils.Rect {
	ds := newDisjointSet(len(rects))
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if Related(rects[i], rects[j], t.Proximity) {
				ds.union(i, j)
			}
		}
	}

	slot := make(map[int]int, len(rects))
	out := make([]utils.Rect, 0, len(rects))
	for i, r := range rects {
		root := ds.find(i)
		if k, ok := slot[root]; ok {
			out[k] = out[k].Union(r)
			continue
		}
		slot[root] = len(out)
		out = append(out, r)
	}
	return out
}

type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(i int) int {
	for ds.parent[i] != i {
		ds.parent[i] = ds.parent[ds.parent[i]]
		i = ds.parent[i]
	}
	return i
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
}
