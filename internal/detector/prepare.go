package detector

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// sizeMultiple is the granularity the detector input sides are rounded to.
const sizeMultiple = 32

// ErrImageTooSmall is returned when a side of the image rounds down to zero.
var ErrImageTooSmall = errors.New("image too small for text detection")

// Prepared is an image resized for the detector together with the ratios
// that map detector-space coordinates back to the original image.
type Prepared struct {
	Image  image.Image
	Width  int
	Height int
	RatioW float64
	RatioH float64
}

// Prepare rounds both sides of img down to a multiple of 32 and resizes it
// when that changes its size.
func Prepare(img image.Image) (Prepared, error) {
	if img == nil {
		return Prepared{}, &utils.ImageProcessingError{Operation: "prepare", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	newW := utils.FloorToMultiple(w, sizeMultiple)
	newH := utils.FloorToMultiple(h, sizeMultiple)
	if newW == 0 || newH == 0 {
		return Prepared{}, fmt.Errorf("%w: %dx%d", ErrImageTooSmall, w, h)
	}

	resized, err := utils.ResizeExact(img, newW, newH)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{
		Image:  resized,
		Width:  newW,
		Height: newH,
		RatioW: float64(w) / float64(newW),
		RatioH: float64(h) / float64(newH),
	}, nil
}
