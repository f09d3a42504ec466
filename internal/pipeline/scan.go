package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/cluster"
	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/metrics"
	"github.com/MeKo-Tech/comicocr/internal/recognizer"
	"github.com/MeKo-Tech/comicocr/internal/utils"
)

// ImageResult is the scan output of one image.
type ImageResult struct {
	Path       string       `json:"path,omitempty" yaml:"path,omitempty"`
	Width      int          `json:"width" yaml:"width"`
	Height     int          `json:"height" yaml:"height"`
	Clusters   []utils.Rect `json:"clusters" yaml:"clusters"`
	Tokens     []string     `json:"tokens" yaml:"tokens"`
	Processing struct {
		DetectionNs   int64 `json:"detection_ns" yaml:"detection_ns"`
		RecognitionNs int64 `json:"recognition_ns" yaml:"recognition_ns"`
		TotalNs       int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// Regions runs detection, suppression and clustering on img and returns the
// text blocks in original-image coordinates relative to img.Bounds().Min.
// An image too small for the detector has no regions.
func (p *Pipeline) Regions(ctx context.Context, img image.Image) ([]utils.Rect, error) {
	blocks, _, err := p.regions(ctx, img)
	return blocks, err
}

// regions implements Regions and reports whether the image was skipped as too
// small.
func (p *Pipeline) regions(ctx context.Context, img image.Image) ([]utils.Rect, bool, error) {
	if img == nil {
		return nil, false, &utils.ImageProcessingError{Operation: "scan", Err: errors.New("input image is nil")}
	}

	start := time.Now()
	prep, err := detector.Prepare(img)
	p.metrics.Since(metrics.StagePrepare, start)
	if errors.Is(err, detector.ErrImageTooSmall) {
		slog.Debug("Image too small for detection", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	start = time.Now()
	maps, err := p.detector.Detect(ctx, prep.Image)
	p.metrics.Since(metrics.StageDetect, start)
	if err != nil {
		return nil, false, fmt.Errorf("text detection failed: %w", err)
	}
	if err := maps.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid detector output: %w", err)
	}

	start = time.Now()
	cands := detector.Decode(maps, p.cfg.ScoreThreshold)
	p.metrics.Since(metrics.StageDecode, start)
	p.metrics.Candidates(len(cands))

	start = time.Now()
	rects := detector.NonMaxSuppression(cands, p.cfg.NMSThreshold)
	p.metrics.Since(metrics.StageSuppress, start)

	start = time.Now()
	blocks := p.clusterer.Cluster(cluster.Rescale(rects, prep.RatioW, prep.RatioH))
	p.metrics.Since(metrics.StageCluster, start)
	p.metrics.Clusters(len(blocks))

	slog.Debug("Detected text blocks",
		"candidates", len(cands),
		"survivors", len(rects),
		"clusters", len(blocks),
		"strategy", p.clusterer.Merger.Name())
	return blocks, false, nil
}

// ScanImage returns the text tokens of img, one per text block, in block
// order. Detection runs on the first pull; every further pull reads one
// block. A recognition failure is yielded once as ("", err) and ends the
// sequence unless SkipFailedCrops is set, in which case the block yields an
// empty token. Stopping the range loop early stops the work.
func (p *Pipeline) ScanImage(ctx context.Context, img image.Image) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		blocks, skipped, err := p.regions(ctx, img)
		if err != nil {
			p.metrics.ImageScanned(metrics.StatusError)
			yield("", err)
			return
		}
		if skipped {
			p.metrics.ImageScanned(metrics.StatusSkipped)
			return
		}
		for text, err := range p.readBlocks(ctx, img, blocks) {
			if !yield(text, err) {
				return
			}
		}
	}
}

// readBlocks recognizes each block of img in turn and records the outcome of
// the whole image once the sequence ends.
func (p *Pipeline) readBlocks(ctx context.Context, img image.Image, blocks []utils.Rect) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		status := metrics.StatusOK
		if len(blocks) == 0 {
			status = metrics.StatusEmpty
		}
		defer func() { p.metrics.ImageScanned(status) }()

		for i, block := range blocks {
			if err := ctx.Err(); err != nil {
				status = metrics.StatusError
				yield("", err)
				return
			}
			text, err := p.readBlock(ctx, img, block)
			if err != nil {
				if !p.cfg.SkipFailedCrops || ctx.Err() != nil {
					status = metrics.StatusError
					yield("", fmt.Errorf("block %d: %w", i, err))
					return
				}
				slog.Warn("Recognition failed, skipping block", "block", i, "error", err)
				p.metrics.FailedCrop()
				text = ""
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// readBlock crops one block with padding, recognizes it and normalizes the
// text. A block that is empty after clipping reads as "".
func (p *Pipeline) readBlock(ctx context.Context, img image.Image, block utils.Rect) (string, error) {
	b := img.Bounds()
	local := image.Rect(0, 0, b.Dx(), b.Dy())
	rect, ok := recognizer.CropBounds(block, p.cfg.Padding, local)
	if !ok {
		slog.Debug("Skipping zero-area crop", "block", block)
		return "", nil
	}
	crop, err := recognizer.Crop(img, rect.Add(b.Min))
	if err != nil {
		return "", err
	}

	start := time.Now()
	raw, err := p.recognizer.Recognize(ctx, crop, recognizer.Options{Whitelist: p.cfg.Whitelist})
	p.metrics.Since(metrics.StageRecognize, start)
	if err != nil {
		return "", err
	}
	text := p.normalizer.Normalize(raw)
	p.metrics.Token(text)
	return text, nil
}

// ScanAll collects the tokens of ScanImage.
func (p *Pipeline) ScanAll(ctx context.Context, img image.Image) ([]string, error) {
	var tokens []string
	for text, err := range p.ScanImage(ctx, img) {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, text)
	}
	return tokens, nil
}

// Scan reads every block of img and reports the blocks with their tokens.
func (p *Pipeline) Scan(ctx context.Context, img image.Image) (*ImageResult, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "scan", Err: errors.New("input image is nil")}
	}
	start := time.Now()
	b := img.Bounds()
	res := &ImageResult{Width: b.Dx(), Height: b.Dy(), Clusters: []utils.Rect{}, Tokens: []string{}}

	blocks, skipped, err := p.regions(ctx, img)
	if err != nil {
		p.metrics.ImageScanned(metrics.StatusError)
		return nil, err
	}
	res.Processing.DetectionNs = time.Since(start).Nanoseconds()
	if skipped {
		p.metrics.ImageScanned(metrics.StatusSkipped)
		res.Processing.TotalNs = res.Processing.DetectionNs
		return res, nil
	}
	if len(blocks) > 0 {
		res.Clusters = blocks
	}

	recStart := time.Now()
	for text, err := range p.readBlocks(ctx, img, blocks) {
		if err != nil {
			return nil, err
		}
		res.Tokens = append(res.Tokens, text)
	}
	res.Processing.RecognitionNs = time.Since(recStart).Nanoseconds()
	res.Processing.TotalNs = time.Since(start).Nanoseconds()
	return res, nil
}

// ScanFile loads the image at path and scans it.
func (p *Pipeline) ScanFile(ctx context.Context, path string) (*ImageResult, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		p.metrics.ImageScanned(metrics.StatusError)
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res, err := p.Scan(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("scan failed for %s: %w", path, err)
	}
	res.Path = path
	slog.Debug("Scanned image", "image", path, "clusters", len(res.Clusters),
		"duration", time.Duration(res.Processing.TotalNs))
	return res, nil
}
