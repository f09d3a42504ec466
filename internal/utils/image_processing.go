package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// FloorToMultiple rounds v down to the nearest multiple of m (m must be a
// power of two).
func FloorToMultiple(v, m int) int {
	return v &^ (m - 1)
}

// ResizeExact resizes img to exactly width x height with bilinear
// interpolation.
// When the size already matches, img is returned unchanged.
func ResizeExact(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

// CropImage returns the part of img covered by r. r is given in the image's
// own coordinate space.
func CropImage(img image.Image, r Rect) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	if r.Empty() {
		return nil, &ImageProcessingError{Operation: "crop", Err: fmt.Errorf("empty crop rectangle %v", r)}
	}
	return imaging.Crop(img, r.ImageRect()), nil
}
