package onnx

import (
	"errors"
	"fmt"
	"strings"
)

// Layout names the memory order of a rank-4 image tensor.
type Layout string

const (
	LayoutNCHW Layout = "nchw"
	LayoutNHWC Layout = "nhwc"
)

// ParseLayout accepts "nchw" or "nhwc" in any case.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutNCHW:
		return LayoutNCHW, nil
	case LayoutNHWC:
		return LayoutNHWC, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q (want nchw or nhwc)", s)
	}
}

// Tensor represents a simple float32 tensor prepared for ONNX input.
// Data layout is row-major in the order given by Shape.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor builds a single-image tensor. data must hold c*h*w values
// already arranged in the requested layout.
func NewImageTensor(data []float32, c, h, w int, layout Layout) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	expected := c * h * w
	if len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	var shape []int64
	switch layout {
	case LayoutNCHW:
		shape = []int64{1, int64(c), int64(h), int64(w)}
	case LayoutNHWC:
		shape = []int64{1, int64(h), int64(w), int64(c)}
	default:
		return Tensor{}, fmt.Errorf("unknown tensor layout %q", layout)
	}
	return Tensor{Data: data, Shape: shape}, nil
}

// ValidateRank4 ensures a shape has four positive dimensions.
func ValidateRank4(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// Planes splits the first batch item of a rank-4 tensor into per-channel
// row-major planes of h*w values. The channel count must equal channels.
// The returned planes never alias data.
func Planes(data []float32, shape []int64, layout Layout, channels int) ([][]float32, int, int, error) {
	if err := ValidateRank4(shape); err != nil {
		return nil, 0, 0, err
	}
	var c, h, w int
	switch layout {
	case LayoutNCHW:
		c, h, w = int(shape[1]), int(shape[2]), int(shape[3])
	case LayoutNHWC:
		h, w, c = int(shape[1]), int(shape[2]), int(shape[3])
	default:
		return nil, 0, 0, fmt.Errorf("unknown tensor layout %q", layout)
	}
	if c != channels {
		return nil, 0, 0, fmt.Errorf("expected %d channels, got %d (shape %v, layout %s)", channels, c, shape, layout)
	}
	if len(data) < c*h*w {
		return nil, 0, 0, fmt.Errorf("tensor data length %d < %d for shape %v", len(data), c*h*w, shape)
	}

	planes := make([][]float32, c)
	for ch := range planes {
		planes[ch] = make([]float32, h*w)
	}
	if layout == LayoutNCHW {
		for ch := range c {
			copy(planes[ch], data[ch*h*w:(ch+1)*h*w])
		}
		return planes, h, w, nil
	}
	for i := range h * w {
		for ch := range c {
			planes[ch][i] = data[i*c+ch]
		}
	}
	return planes, h, w, nil
}

// DetectLayout infers the layout of a rank-4 output from its channel count.
// A shape whose dimension 1 equals channels is NCHW; one whose last dimension
// equals channels is NHWC. NCHW wins when both match.
func DetectLayout(shape []int64, channels int) (Layout, error) {
	if err := ValidateRank4(shape); err != nil {
		return "", err
	}
	switch {
	case int(shape[1]) == channels:
		return LayoutNCHW, nil
	case int(shape[3]) == channels:
		return LayoutNHWC, nil
	default:
		return "", fmt.Errorf("cannot infer layout of shape %v for %d channels", shape, channels)
	}
}
