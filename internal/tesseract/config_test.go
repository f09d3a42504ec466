package tesseract

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "eng", c.Language)
	assert.Equal(t, 1, c.EngineMode)
	require.NoError(t, c.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty language", func(c *Config) { c.Language = "" }},
		{"engine mode too low", func(c *Config) { c.EngineMode = -1 }},
		{"engine mode too high", func(c *Config) { c.EngineMode = 4 }},
		{"page seg mode too high", func(c *Config) { c.PageSegMode = 14 }},
		{"missing tessdata", func(c *Config) { c.TessdataPrefix = "/definitely/not/here" }},
		{"negative pool size", func(c *Config) { c.PoolSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	c := DefaultConfig()
	c.TessdataPrefix = t.TempDir()
	c.PageSegMode = 7
	assert.NoError(t, c.Validate())
}

func TestConfigPoolSize(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), c.poolSize())
	c.PoolSize = 3
	assert.Equal(t, 3, c.poolSize())
}

func TestWriteConfigFile(t *testing.T) {
	c := DefaultConfig()
	c.EngineMode = 0

	path, err := writeConfigFile(c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tessedit_ocr_engine_mode 0\n", string(data))
}

func TestEncodeTIFF(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 7, 5))
	img.Set(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	data, err := EncodeTIFF(img)
	require.NoError(t, err)

	decoded, err := tiff.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	r, g, b, _ := decoded.At(3, 2).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})

	_, err = EncodeTIFF(nil)
	assert.Error(t, err)
}
