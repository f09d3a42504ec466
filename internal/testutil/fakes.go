package testutil

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/recognizer"
)

// InkDetector is a detector.Model that scores every 4x4 cell lying within
// Reach pixels of a dark pixel. Its geometry describes a box that just covers
// the cell, so decoded candidates trace the inked area. A positive Reach
// bridges the gaps between letters the way a real detector scores whole words.
type InkDetector struct {
	Luma  uint8   // Pixels darker than this count as ink (default 128)
	Score float32 // Score of inked cells (default 0.9)
	Reach int     // Extra pixels around a cell searched for ink

	calls atomic.Int64
}

var _ detector.Model = (*InkDetector)(nil)

// Detect implements detector.Model.
func (d *InkDetector) Detect(ctx context.Context, img image.Image) (*detector.Maps, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.calls.Add(1)

	luma := d.Luma
	if luma == 0 {
		luma = 128
	}
	score := d.Score
	if score == 0 {
		score = 0.9
	}

	ink := newInkIndex(img, luma)
	b := img.Bounds()
	rows, cols := b.Dy()/detector.Stride, b.Dx()/detector.Stride
	m := detector.NewMaps(rows, cols)
	for row := range rows {
		for col := range cols {
			x0, y0 := col*detector.Stride, row*detector.Stride
			if ink.any(x0-d.Reach, y0-d.Reach, x0+detector.Stride+d.Reach, y0+detector.Stride+d.Reach) {
				m.Set(row, col, score, [5]float32{0, detector.Stride, detector.Stride, 0, 0})
			}
		}
	}
	return m, nil
}

// Calls returns how many times Detect ran.
func (d *InkDetector) Calls() int { return int(d.calls.Load()) }

// inkIndex is a summed-area table of dark pixels.
type inkIndex struct {
	w, h int
	sum  []int
}

func newInkIndex(img image.Image, luma uint8) *inkIndex {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	idx := &inkIndex{w: w, h: h, sum: make([]int, (w+1)*(h+1))}
	for y := range h {
		rowSum := 0
		for x := range w {
			g, _ := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < luma {
				rowSum++
			}
			idx.sum[(y+1)*(w+1)+x+1] = idx.sum[y*(w+1)+x+1] + rowSum
		}
	}
	return idx
}

// any reports whether [x0,x1)x[y0,y1), clipped to the image, holds ink.
func (idx *inkIndex) any(x0, y0, x1, y1 int) bool {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, idx.w), min(y1, idx.h)
	if x0 >= x1 || y0 >= y1 {
		return false
	}
	stride := idx.w + 1
	n := idx.sum[y1*stride+x1] - idx.sum[y0*stride+x1] - idx.sum[y1*stride+x0] + idx.sum[y0*stride+x0]
	return n > 0
}

// FailingDetector always returns Err.
type FailingDetector struct {
	Err error
}

// Detect implements detector.Model.
func (d FailingDetector) Detect(context.Context, image.Image) (*detector.Maps, error) {
	return nil, d.Err
}

// ErrInjected is returned by LabelRecognizer for its FailOn label.
var ErrInjected = errors.New("injected recognition failure")

// LabelRecognizer is a recognizer.Recognizer that reads scenes drawn with
// distinct ink colors. It returns the labels of every ink color found in a
// crop, in row-major order of first appearance, joined by spaces.
type LabelRecognizer struct {
	Labels map[color.RGBA]string
	FailOn string // Label whose presence makes Recognize fail with ErrInjected

	mu        sync.Mutex
	whitelist []string
	calls     int
}

var _ recognizer.Recognizer = (*LabelRecognizer)(nil)

// Recognize implements recognizer.Recognizer.
func (r *LabelRecognizer) Recognize(ctx context.Context, crop image.Image, opts recognizer.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.calls++
	r.whitelist = append(r.whitelist, opts.Whitelist)
	r.mu.Unlock()

	var found []string
	b := crop.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, _ := color.RGBAModel.Convert(crop.At(x, y)).(color.RGBA)
			label, ok := r.Labels[c]
			if !ok || slices.Contains(found, label) {
				continue
			}
			if r.FailOn != "" && label == r.FailOn {
				return "", ErrInjected
			}
			found = append(found, label)
		}
	}
	return strings.Join(found, " "), nil
}

// Calls returns how many crops were recognized.
func (r *LabelRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Whitelists returns the whitelist passed to each call.
func (r *LabelRecognizer) Whitelists() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.whitelist)
}
