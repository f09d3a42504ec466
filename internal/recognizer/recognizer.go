// Package recognizer defines the text recognition boundary and the cropping
// of cluster rectangles from the source image.
package recognizer

import (
	"context"
	"image"

	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// DefaultWhitelist is the character set recognition is restricted to.
const DefaultWhitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 .!?'"

// DefaultPadding is added on every side of a cluster before cropping.
const DefaultPadding = 10

// Options restrict a single recognition call.
type Options struct {
	Whitelist string
}

// DefaultOptions returns Options with DefaultWhitelist.
func DefaultOptions() Options {
	return Options{Whitelist: DefaultWhitelist}
}

// Recognizer turns an image crop into raw text. Implementations must be safe
// for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, crop image.Image, opts Options) (string, error)
}

// Func adapts a plain function to Recognizer.
type Func func(ctx context.Context, crop image.Image, opts Options) (string, error)

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, crop image.Image, opts Options) (string, error) {
	return f(ctx, crop, opts)
}

// CropBounds grows r by padding on every side and clips it to bounds. ok is
// false when nothing of the rectangle is left.
func CropBounds(r utils.Rect, padding int, bounds image.Rectangle) (utils.Rect, bool) {
	clipped := r.Inset(padding).Clip(utils.FromImageRect(bounds))
	if clipped.Empty() {
		return utils.Rect{}, false
	}
	return clipped, true
}

// Crop cuts rect out of img. The result starts at (0, 0).
func Crop(img image.Image, rect utils.Rect) (image.Image, error) {
	return utils.CropImage(img, rect)
}
