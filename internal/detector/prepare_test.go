package detector

import (
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/comicocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		wantW, wantH  int
		ratioW, ratio float64
	}{
		{name: "already aligned", w: 64, h: 96, wantW: 64, wantH: 96, ratioW: 1, ratio: 1},
		{name: "rounds down", w: 100, h: 70, wantW: 96, wantH: 64, ratioW: 100.0 / 96.0, ratio: 70.0 / 64.0},
		{name: "exactly 32", w: 32, h: 63, wantW: 32, wantH: 32, ratioW: 1, ratio: 63.0 / 32.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			p, err := Prepare(img)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, p.Width)
			assert.Equal(t, tt.wantH, p.Height)
			assert.Equal(t, tt.wantW, p.Image.Bounds().Dx())
			assert.Equal(t, tt.wantH, p.Image.Bounds().Dy())
			assert.InDelta(t, tt.ratioW, p.RatioW, 1e-12)
			assert.InDelta(t, tt.ratio, p.RatioH, 1e-12)
		})
	}
}

func TestPrepareKeepsAlignedImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	p, err := Prepare(img)
	require.NoError(t, err)
	assert.Same(t, img, p.Image)
}

func TestPrepareTooSmall(t *testing.T) {
	for _, size := range [][2]int{{31, 100}, {100, 31}, {0, 0}} {
		_, err := Prepare(image.NewRGBA(image.Rect(0, 0, size[0], size[1])))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrImageTooSmall)
	}
}

func TestPrepareNil(t *testing.T) {
	_, err := Prepare(nil)
	require.Error(t, err)
	var ipe *utils.ImageProcessingError
	assert.True(t, errors.As(err, &ipe))
}
