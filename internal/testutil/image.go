package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/comicocr/internal/utils"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Ink colors used by scenes. Each is dark enough for InkDetector and distinct
// so LabelRecognizer can tell blocks apart.
var (
	InkBlack = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	InkRed   = color.RGBA{R: 90, G: 0, B: 0, A: 255}
	InkBlue  = color.RGBA{R: 0, G: 0, B: 90, A: 255}
	InkGreen = color.RGBA{R: 0, G: 70, B: 0, A: 255}
)

// TextImageOptions describes a synthetic image with one line of text.
type TextImageOptions struct {
	Width      int
	Height     int
	Text       string
	Scale      int // Nearest-neighbour upscale of the 7x13 bitmap font (default 1)
	Foreground color.Color
	Background color.Color
}

// NewCanvas returns a white w x h image.
func NewCanvas(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// RenderText returns a canvas with opts.Text centered on it.
func RenderText(opts TextImageOptions) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	w, h := TextSize(opts.Text, opts.Scale)
	DrawText(img, (opts.Width-w)/2, (opts.Height-h)/2, opts.Text, opts.Foreground, opts.Scale)
	return img
}

// TextSize returns the pixel size of text drawn by DrawText.
func TextSize(text string, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	return font.MeasureString(face, text).Ceil() * scale, face.Metrics().Height.Ceil() * scale
}

// DrawText draws text with its top-left corner at (x, y). The glyphs are
// upscaled with nearest-neighbour sampling so the ink stays a single color.
func DrawText(dst draw.Image, x, y int, text string, fg color.Color, scale int) {
	if text == "" {
		return
	}
	if scale < 1 {
		scale = 1
	}
	if fg == nil {
		fg = InkBlack
	}
	face := basicfont.Face7x13
	w, h := TextSize(text, 1)

	glyphs := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  &image.Uniform{C: fg},
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	scaled := imaging.Resize(glyphs, w*scale, h*scale, imaging.NearestNeighbor)
	draw.Draw(dst, image.Rect(x, y, x+w*scale, y+h*scale), scaled, image.Point{}, draw.Over)
}

// FillRect paints r in c.
func FillRect(dst draw.Image, r utils.Rect, c color.Color) {
	draw.Draw(dst, r.ImageRect(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}
