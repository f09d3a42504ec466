package testutil

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/comicocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteImageCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "panels")
	src := image.NewRGBA(image.Rect(0, 0, 12, 7))

	path := WriteImage(t, dir, "panel.png", src)
	assert.Equal(t, filepath.Join(dir, "panel.png"), path)

	img, meta, err := utils.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, src.Bounds().Size(), img.Bounds().Size())
}
