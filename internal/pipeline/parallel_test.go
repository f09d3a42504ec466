package pipeline

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProgress captures progress callbacks for assertions.
type recordingProgress struct {
	mu        sync.Mutex
	total     int
	updates   []int
	errors    []int
	completed bool
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, current)
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, index)
}

func sceneImages() ([]image.Image, [][]string) {
	var images []image.Image
	var expected [][]string
	for _, s := range []testutil.Scene{testutil.TwoBlocksScene(), testutil.BlankScene(), testutil.TwoLinesScene()} {
		images = append(images, s.Image)
		expected = append(expected, s.Expected)
	}
	return images, expected
}

func allLabelsRecognizer() *testutil.LabelRecognizer {
	return &testutil.LabelRecognizer{Labels: map[color.RGBA]string{
		testutil.InkRed:   "BOOM",
		testutil.InkBlue:  "POW",
		testutil.InkBlack: "HELLO",
	}}
}

func TestScanImagesParallelKeepsOrder(t *testing.T) {
	images, _ := sceneImages()
	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: allLabelsRecognizer()}, DefaultConfig())
	require.NoError(t, err)

	progress := &recordingProgress{}
	results, err := p.ScanImagesParallel(context.Background(), images, ParallelConfig{MaxWorkers: 3, ProgressCallback: progress})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"boom", "pow"}, results[0].Tokens)
	assert.Empty(t, results[1].Tokens)
	assert.Equal(t, []string{"boom pow"}, results[2].Tokens)

	assert.Equal(t, 3, progress.total)
	assert.Equal(t, []int{1, 2, 3}, progress.updates)
	assert.True(t, progress.completed)
	assert.Empty(t, progress.errors)
}

func TestScanImagesParallelMatchesSequential(t *testing.T) {
	images, _ := sceneImages()
	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: allLabelsRecognizer()}, DefaultConfig())
	require.NoError(t, err)

	parallel, err := p.ScanImagesParallel(context.Background(), images, ParallelConfig{MaxWorkers: 4})
	require.NoError(t, err)
	for i, img := range images {
		seq, err := p.ScanAll(context.Background(), img)
		require.NoError(t, err)
		if len(seq) == 0 {
			assert.Empty(t, parallel[i].Tokens)
			continue
		}
		assert.Equal(t, seq, parallel[i].Tokens)
	}
}

func TestScanImagesParallelCollectsErrors(t *testing.T) {
	images, _ := sceneImages()
	rec := allLabelsRecognizer()
	rec.FailOn = "POW"
	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: rec}, DefaultConfig())
	require.NoError(t, err)

	progress := &recordingProgress{}
	results, err := p.ScanImagesParallel(context.Background(), images, ParallelConfig{MaxWorkers: 2, ProgressCallback: progress})
	require.Error(t, err)
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.Contains(t, err.Error(), "image 0")
	assert.Contains(t, err.Error(), "image 2")

	require.Len(t, results, 3)
	assert.Nil(t, results[0])
	assert.NotNil(t, results[1])
	assert.Nil(t, results[2])
	assert.ElementsMatch(t, []int{0, 2}, progress.errors)
}

func TestScanImagesParallelEmpty(t *testing.T) {
	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: allLabelsRecognizer()}, DefaultConfig())
	require.NoError(t, err)
	_, err = p.ScanImagesParallel(context.Background(), nil, DefaultParallelConfig())
	require.Error(t, err)
}

func TestScanImagesParallelCancelled(t *testing.T) {
	images, _ := sceneImages()
	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: allLabelsRecognizer()}, DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := p.ScanImagesParallel(ctx, images, ParallelConfig{MaxWorkers: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestScanFilesParallel(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		testutil.WriteImage(t, dir, "blocks.png", testutil.TwoBlocksScene().Image),
		testutil.WriteImage(t, dir, "blank.png", testutil.BlankScene().Image),
	}
	missing := filepath.Join(dir, "missing.png")

	p, err := New(Components{Detector: &testutil.InkDetector{}, Recognizer: allLabelsRecognizer()}, DefaultConfig())
	require.NoError(t, err)

	results, err := p.ScanFilesParallel(context.Background(), append(paths, missing), ParallelConfig{MaxWorkers: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.png")
	require.Len(t, results, 3)
	assert.Equal(t, paths[0], results[0].Path)
	assert.Equal(t, []string{"boom", "pow"}, results[0].Tokens)
	assert.Equal(t, paths[1], results[1].Path)
	assert.Nil(t, results[2])
}

func TestCalculateParallelStats(t *testing.T) {
	results := []*ImageResult{
		{Tokens: []string{"a", "b"}},
		nil,
		{Tokens: []string{"c"}},
	}
	stats := CalculateParallelStats(results, 2*time.Second, 4)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.ScannedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Equal(t, 3, stats.Tokens)
	assert.Equal(t, time.Second, stats.AveragePerImage)
	assert.InDelta(t, 1.0, stats.ThroughputPerSec, 1e-9)

	empty := CalculateParallelStats(nil, 0, 1)
	assert.Zero(t, empty.ThroughputPerSec)
}
