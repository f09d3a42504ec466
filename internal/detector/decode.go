package detector

import (
	"math"

	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// DefaultScoreThreshold is the minimum cell score that produces a candidate.
const DefaultScoreThreshold = 0.5

// boxScale inflates decoded boxes, which the network tends to under-size.
const boxScale = 1.2

// Candidate is a decoded box in detector-input pixel space.
type Candidate struct {
	Rect       utils.Rect
	Confidence float64
}

// Decode turns every cell scoring at least threshold into an axis-aligned
// candidate. Candidates are emitted in row-major cell order.
func Decode(m *Maps, threshold float64) []Candidate {
	if m == nil {
		return nil
	}
	var out []Candidate
	for row := range m.Rows {
		for col := range m.Cols {
			i := row*m.Cols + col
			score := float64(m.Scores[i])
			if score < threshold {
				continue
			}
			out = append(out, Candidate{
				Rect:       decodeCell(m, row, col),
				Confidence: score,
			})
		}
	}
	return out
}

func decodeCell(m *Maps, row, col int) utils.Rect {
	i := row*m.Cols + col
	d0 := float64(m.Geometry[GeoTop][i])
	d1 := float64(m.Geometry[GeoRight][i])
	d2 := float64(m.Geometry[GeoBottom][i])
	d3 := float64(m.Geometry[GeoLeft][i])
	angle := float64(m.Geometry[GeoAngle][i])

	ox := float64(col * Stride)
	oy := float64(row * Stride)
	cos, sin := math.Cos(angle), math.Sin(angle)

	h := boxScale * (d0 + d2)
	w := boxScale * (d1 + d3)

	endX := int(ox + cos*d1 + sin*d2)
	endY := int(oy - sin*d1 + cos*d2)
	startX := int(float64(endX) - w)
	startY := int(float64(endY) - h)

	return utils.NewRect(startX, startY, endX, endY)
}
