// Package cluster merges nearby text rectangles into text blocks.
package cluster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// DefaultProximity is the gap in pixels below which two rectangles belong
// to the same block.
const DefaultProximity = 5.0

// Strategy names accepted by NewMerger.
const (
	StrategyTwoPass   = "two-pass"
	StrategyUnionFind = "union-find"
)

// ErrUnknownStrategy is returned for an unrecognized merge strategy name.
var ErrUnknownStrategy = errors.New("unknown cluster strategy")

// Related reports whether a and b are closer than proximity.
func Related(a, b utils.Rect, proximity float64) bool {
	return a.Distance(b) < proximity
}

// Rescale maps rectangles from detector space to original-image space.
func Rescale(rects []utils.Rect, ratioW, ratioH float64) []utils.Rect {
	out := make([]utils.Rect, len(rects))
	for i, r := range rects {
		out[i] = r.Scale(ratioW, ratioH)
	}
	return out
}

// Merger groups related rectangles and returns one union per group.
type Merger interface {
	Merge(rects []utils.Rect) []utils.Rect
	Name() string
}

// NewMerger returns the merger registered under name. An empty name selects
// the two-pass strategy.
func NewMerger(name string, proximity float64) (Merger, error) {
	if proximity <= 0 {
		return nil, fmt.Errorf("cluster proximity must be > 0, got %v", proximity)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyTwoPass:
		return TwoPass{Proximity: proximity}, nil
	case StrategyUnionFind:
		return Transitive{Proximity: proximity}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownStrategy, name, StrategyTwoPass, StrategyUnionFind)
	}
}

// Clusterer merges rectangles and suppresses the duplicates merging leaves.
type Clusterer struct {
	Merger            Merger
	SuppressThreshold float64
}

// NewClusterer builds a Clusterer for the named strategy.
func NewClusterer(strategy string, proximity, suppressThreshold float64) (*Clusterer, error) {
	m, err := NewMerger(strategy, proximity)
	if err != nil {
		return nil, err
	}
	return &Clusterer{Merger: m, SuppressThreshold: suppressThreshold}, nil
}

// Cluster merges rects and runs a final suppression pass over the result.
func (c *Clusterer) Cluster(rects []utils.Rect) []utils.Rect {
	if len(rects) == 0 {
		return nil
	}
	return detector.SuppressRects(c.Merger.Merge(rects), c.SuppressThreshold)
}
