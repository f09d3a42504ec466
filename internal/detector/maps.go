package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Stride is the number of input pixels covered by one detector cell.
const Stride = 4

// Geometry plane indices. Planes 0-3 hold the distances from the cell to the
// top, right, bottom and left box edges; plane 4 holds the rotation angle.
const (
	GeoTop = iota
	GeoRight
	GeoBottom
	GeoLeft
	GeoAngle
)

// Maps is the dense detector output for one prepared image.
type Maps struct {
	Rows     int
	Cols     int
	Scores   []float32    // row-major, Rows*Cols
	Geometry [5][]float32 // planes d0, d1, d2, d3, angle; each row-major
}

// NewMaps allocates zeroed maps for a rows x cols grid.
func NewMaps(rows, cols int) *Maps {
	m := &Maps{Rows: rows, Cols: cols, Scores: make([]float32, rows*cols)}
	for i := range m.Geometry {
		m.Geometry[i] = make([]float32, rows*cols)
	}
	return m
}

// Validate checks that every plane holds Rows*Cols values.
func (m *Maps) Validate() error {
	if m == nil {
		return errors.New("nil maps")
	}
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("invalid map size %dx%d", m.Cols, m.Rows)
	}
	n := m.Rows * m.Cols
	if len(m.Scores) != n {
		return fmt.Errorf("score map has %d values, want %d", len(m.Scores), n)
	}
	for i, plane := range m.Geometry {
		if len(plane) != n {
			return fmt.Errorf("geometry plane %d has %d values, want %d", i, len(plane), n)
		}
	}
	return nil
}

// Set writes the score and geometry of one cell.
func (m *Maps) Set(row, col int, score float32, geo [5]float32) {
	i := row*m.Cols + col
	m.Scores[i] = score
	for p := range m.Geometry {
		m.Geometry[p][i] = geo[p]
	}
}

// Model runs a dense text detector on an image whose sides are multiples
// of 32 and returns its score and geometry maps.
type Model interface {
	Detect(ctx context.Context, img image.Image) (*Maps, error)
}
