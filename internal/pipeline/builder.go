package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/metrics"
	"github.com/MeKo-Tech/comicocr/internal/models"
	"github.com/MeKo-Tech/comicocr/internal/spelling"
	"github.com/MeKo-Tech/comicocr/internal/tesseract"
)

// Builder constructs a Pipeline backed by the EAST detector and the
// Tesseract engine with fluent configuration.
type Builder struct {
	cfg     Config
	metrics *metrics.Recorder
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFromConfig creates a builder starting from cfg.
func NewBuilderFromConfig(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithModelsDir sets the models directory and updates the model and
// dictionary paths.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	b.cfg.Detector.UpdateModelPath(b.cfg.ModelsDir)
	b.cfg.Spelling.DictionaryPath = models.GetSpellingDictionaryPath(b.cfg.ModelsDir)
	return b
}

// WithScoreThreshold sets the minimum detector score of a cell.
func (b *Builder) WithScoreThreshold(th float64) *Builder {
	if th > 0 {
		b.cfg.ScoreThreshold = th
	}
	return b
}

// WithNMSThreshold sets the overlap ratio used by candidate suppression.
func (b *Builder) WithNMSThreshold(th float64) *Builder {
	if th > 0 {
		b.cfg.NMSThreshold = th
	}
	return b
}

// WithClusterStrategy selects the merge strategy by name.
func (b *Builder) WithClusterStrategy(name string) *Builder {
	if name != "" {
		b.cfg.Cluster.Strategy = name
	}
	return b
}

// WithClusterProximity sets the distance below which rectangles merge.
func (b *Builder) WithClusterProximity(px float64) *Builder {
	if px > 0 {
		b.cfg.Cluster.Proximity = px
	}
	return b
}

// WithPadding sets the pixels added around each block before cropping.
func (b *Builder) WithPadding(px int) *Builder {
	if px >= 0 {
		b.cfg.Padding = px
	}
	return b
}

// WithWhitelist restricts the characters the recognizer may return.
func (b *Builder) WithWhitelist(chars string) *Builder {
	if chars != "" {
		b.cfg.Whitelist = chars
	}
	return b
}

// WithSkipFailedCrops makes recognition failures yield empty tokens.
func (b *Builder) WithSkipFailedCrops(skip bool) *Builder {
	b.cfg.SkipFailedCrops = skip
	return b
}

// WithTesseract replaces the Tesseract engine settings.
func (b *Builder) WithTesseract(cfg tesseract.Config) *Builder {
	b.cfg.Tesseract = cfg
	return b
}

// WithSpellingDictionary enables spelling correction with the given
// word-frequency file. An empty path keeps the default dictionary.
func (b *Builder) WithSpellingDictionary(path string) *Builder {
	b.cfg.Spelling.Enabled = true
	if path != "" {
		b.cfg.Spelling.DictionaryPath = path
	}
	return b
}

// WithSpelling enables or disables spelling correction.
func (b *Builder) WithSpelling(enabled bool) *Builder {
	b.cfg.Spelling.Enabled = enabled
	return b
}

// WithThreads sets detector intra-op threads (if >0).
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.cfg.Detector.NumThreads = n
	}
	return b
}

// WithWarmupIterations sets detector warmup runs.
func (b *Builder) WithWarmupIterations(n int) *Builder {
	if n >= 0 {
		b.cfg.Detector.WarmupIterations = n
	}
	return b
}

// WithParallelWorkers sets the number of workers for batch scanning.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithGPU enables CUDA for the detector.
func (b *Builder) WithGPU(enabled bool) *Builder {
	b.cfg.Detector.GPU.UseGPU = enabled
	return b
}

// WithGPUDevice sets the CUDA device ID.
func (b *Builder) WithGPUDevice(deviceID int) *Builder {
	b.cfg.Detector.GPU.DeviceID = deviceID
	return b
}

// WithMetrics records scan metrics into r.
func (b *Builder) WithMetrics(r *metrics.Recorder) *Builder {
	b.metrics = r
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that model files exist and configuration looks sane.
func (b *Builder) Validate() error {
	if err := b.cfg.Validate(); err != nil {
		return err
	}
	if err := b.cfg.Detector.Validate(); err != nil {
		return fmt.Errorf("invalid detector config: %w", err)
	}
	if err := b.cfg.Tesseract.Validate(); err != nil {
		return fmt.Errorf("invalid tesseract config: %w", err)
	}
	if _, err := os.Stat(b.cfg.Detector.ModelPath); err != nil {
		return fmt.Errorf("detector model not found: %s", b.cfg.Detector.ModelPath)
	}
	if b.cfg.Spelling.Enabled {
		if b.cfg.Spelling.DictionaryPath == "" {
			return errors.New("spelling dictionary path is empty")
		}
		if _, err := os.Stat(b.cfg.Spelling.DictionaryPath); err != nil {
			return fmt.Errorf("spelling dictionary not found: %s", b.cfg.Spelling.DictionaryPath)
		}
	}
	return nil
}

// tesseractConfig returns the engine settings with one client per parallel
// worker unless a pool size was set.
func (b *Builder) tesseractConfig() tesseract.Config {
	cfg := b.cfg.Tesseract
	if cfg.PoolSize == 0 {
		cfg.PoolSize = b.cfg.Parallel.MaxWorkers
	}
	return cfg
}

// Build loads the detector model, starts the Tesseract engine and loads the
// spelling dictionary when enabled. The returned Pipeline owns them and
// releases them on Close.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	det, err := detector.NewEASTDetector(b.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	rec, err := tesseract.NewEngine(b.tesseractConfig())
	if err != nil {
		_ = det.Close()
		return nil, fmt.Errorf("init recognizer: %w", err)
	}

	var corrector spelling.Corrector
	if b.cfg.Spelling.Enabled {
		fz, err := spelling.LoadFrequencyFile(b.cfg.Spelling.DictionaryPath, b.cfg.Spelling.Depth)
		if err != nil {
			_ = rec.Close()
			_ = det.Close()
			return nil, fmt.Errorf("init spelling: %w", err)
		}
		slog.Debug("Spelling dictionary loaded", "path", b.cfg.Spelling.DictionaryPath, "words", fz.Len())
		corrector = fz
	}

	p, err := New(Components{Detector: det, Recognizer: rec, Corrector: corrector, Metrics: b.metrics}, b.cfg)
	if err != nil {
		_ = rec.Close()
		_ = det.Close()
		return nil, err
	}
	p.closers = append(p.closers, det, rec)
	return p, nil
}
