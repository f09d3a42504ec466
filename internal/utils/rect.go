package utils

import (
	"image"
	"math"
)

// Rect is an axis-aligned integer rectangle given by its start (X0, Y0) and
// end (X1, Y1) corners. Detector output and cluster rectangles both use it;
// the coordinate space depends on the stage that produced it.
type Rect struct {
	X0 int `json:"x0" yaml:"x0"`
	Y0 int `json:"y0" yaml:"y0"`
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
}

// NewRect builds a rectangle from its corners without reordering them.
func NewRect(x0, y0, x1, y1 int) Rect {
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// FromImageRect converts an image.Rectangle.
func FromImageRect(r image.Rectangle) Rect {
	return Rect{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y}
}

// Width returns X1-X0.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns Y1-Y0.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

// Union returns the coordinate-wise union of r and o: min of the starts and
// max of the ends. Unlike image.Rectangle.Union, empty operands are not
// ignored, so the operation is commutative and associative for all inputs.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Distance returns the Euclidean gap between two rectangles. It is zero when
// they overlap or touch.
func (r Rect) Distance(o Rect) float64 {
	dx := max(0, o.X0-r.X1, r.X0-o.X1)
	dy := max(0, o.Y0-r.Y1, r.Y0-o.Y1)
	return math.Hypot(float64(dx), float64(dy))
}

// Scale multiplies every coordinate by the matching ratio, truncating toward
// zero.
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{
		X0: int(float64(r.X0) * sx),
		Y0: int(float64(r.Y0) * sy),
		X1: int(float64(r.X1) * sx),
		Y1: int(float64(r.Y1) * sy),
	}
}

// Inset grows the rectangle by pad pixels on every side (shrinks for
// negative pad).
func (r Rect) Inset(pad int) Rect {
	return Rect{X0: r.X0 - pad, Y0: r.Y0 - pad, X1: r.X1 + pad, Y1: r.Y1 + pad}
}

// Clip restricts r to bounds. The result may be empty.
func (r Rect) Clip(bounds Rect) Rect {
	return Rect{
		X0: max(r.X0, bounds.X0),
		Y0: max(r.Y0, bounds.Y0),
		X1: min(r.X1, bounds.X1),
		Y1: min(r.Y1, bounds.Y1),
	}
}

// InclusiveArea returns the pixel count of the rectangle when both end
// coordinates are treated as inclusive. Non-positive extents yield 0.
func (r Rect) InclusiveArea() int {
	w := r.X1 - r.X0 + 1
	h := r.Y1 - r.Y0 + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ImageRect converts to an image.Rectangle.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.X0, r.Y0, r.X1, r.Y1)
}

// Add translates the rectangle by p.
func (r Rect) Add(p image.Point) Rect {
	return Rect{X0: r.X0 + p.X, Y0: r.Y0 + p.Y, X1: r.X1 + p.X, Y1: r.Y1 + p.Y}
}
