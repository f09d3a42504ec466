//go:build !tesseract

package tesseract

import (
	"context"
	"image"

	"github.com/MeKo-Tech/comicocr/internal/recognizer"
)

// Available reports whether the Tesseract engine is compiled in.
func Available() bool { return false }

// Version returns an empty string when Tesseract is not compiled in.
func Version() string { return "" }

// Engine is a placeholder that cannot be constructed.
type Engine struct{}

var _ recognizer.Recognizer = (*Engine)(nil)

// NewEngine always fails with ErrUnavailable.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

// Recognize implements recognizer.Recognizer.
func (*Engine) Recognize(context.Context, image.Image, recognizer.Options) (string, error) {
	return "", ErrUnavailable
}

// Close is a no-op.
func (*Engine) Close() error { return nil }
