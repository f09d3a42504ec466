// Package pipeline turns comic panel images into text tokens: it detects text
// cells, suppresses overlapping candidates, clusters the survivors into text
// blocks and reads one normalized token per block.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/MeKo-Tech/comicocr/internal/cluster"
	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/metrics"
	"github.com/MeKo-Tech/comicocr/internal/models"
	"github.com/MeKo-Tech/comicocr/internal/normalize"
	"github.com/MeKo-Tech/comicocr/internal/recognizer"
	"github.com/MeKo-Tech/comicocr/internal/spelling"
	"github.com/MeKo-Tech/comicocr/internal/tesseract"
)

// ClusterConfig selects how candidate rectangles are grouped into blocks.
type ClusterConfig struct {
	Strategy          string  // two-pass (default) or union-find
	Proximity         float64 // Rectangles closer than this are related
	SuppressThreshold float64 // Overlap ratio for the final suppression pass
}

// SpellingConfig controls dictionary-based correction of tokens.
type SpellingConfig struct {
	Enabled        bool
	DictionaryPath string
	Depth          int
}

// Config holds configuration for the scan pipeline and its components.
type Config struct {
	ModelsDir       string
	Detector        detector.Config
	ScoreThreshold  float64 // Minimum detector score of a cell
	NMSThreshold    float64 // Overlap ratio above which a candidate is dropped
	Cluster         ClusterConfig
	Padding         int    // Pixels added around each block before cropping
	Whitelist       string // Characters the recognizer may return
	SkipFailedCrops bool   // Yield an empty token instead of stopping on a recognition error
	Tesseract       tesseract.Config
	Spelling        SpellingConfig
	Parallel        ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	modelsDir := models.GetModelsDir("")
	det := detector.DefaultConfig()
	det.UpdateModelPath(modelsDir)
	return Config{
		ModelsDir:      modelsDir,
		Detector:       det,
		ScoreThreshold: detector.DefaultScoreThreshold,
		NMSThreshold:   detector.DefaultNMSThreshold,
		Cluster: ClusterConfig{
			Strategy:          cluster.StrategyTwoPass,
			Proximity:         cluster.DefaultProximity,
			SuppressThreshold: detector.DefaultNMSThreshold,
		},
		Padding:   recognizer.DefaultPadding,
		Whitelist: recognizer.DefaultWhitelist,
		Tesseract: tesseract.DefaultConfig(),
		Spelling: SpellingConfig{
			Enabled:        false,
			DictionaryPath: models.GetSpellingDictionaryPath(modelsDir),
			Depth:          spelling.DefaultDepth,
		},
		Parallel: DefaultParallelConfig(),
	}
}

// Validate checks the thresholds and sizes that do not depend on model files.
func (c Config) Validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold must be in [0,1], got %v", c.ScoreThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be in [0,1], got %v", c.NMSThreshold)
	}
	if c.Cluster.SuppressThreshold < 0 || c.Cluster.SuppressThreshold > 1 {
		return fmt.Errorf("cluster suppress threshold must be in [0,1], got %v", c.Cluster.SuppressThreshold)
	}
	if _, err := cluster.NewMerger(c.Cluster.Strategy, c.Cluster.Proximity); err != nil {
		return err
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must be >= 0, got %d", c.Padding)
	}
	if c.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("max workers must be >= 0, got %d", c.Parallel.MaxWorkers)
	}
	return nil
}

// Components are the collaborators a Pipeline runs. Detector and Recognizer
// are required; a nil Corrector disables spelling correction and a nil
// Metrics records nothing.
type Components struct {
	Detector   detector.Model
	Recognizer recognizer.Recognizer
	Corrector  spelling.Corrector
	Metrics    *metrics.Recorder
}

// Pipeline wires the detector, clusterer, recognizer and normalizer together.
// It is safe for concurrent use when its components are.
type Pipeline struct {
	cfg        Config
	detector   detector.Model
	recognizer recognizer.Recognizer
	clusterer  *cluster.Clusterer
	normalizer *normalize.Normalizer
	metrics    *metrics.Recorder
	closers    []io.Closer
}

// New creates a Pipeline from explicit components.
func New(c Components, cfg Config) (*Pipeline, error) {
	if c.Detector == nil {
		return nil, errors.New("pipeline requires a detector")
	}
	if c.Recognizer == nil {
		return nil, errors.New("pipeline requires a recognizer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	cl, err := cluster.NewClusterer(cfg.Cluster.Strategy, cfg.Cluster.Proximity, cfg.Cluster.SuppressThreshold)
	if err != nil {
		return nil, err
	}
	if cfg.Parallel.MaxWorkers == 0 {
		cfg.Parallel.MaxWorkers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg:        cfg,
		detector:   c.Detector,
		recognizer: c.Recognizer,
		clusterer:  cl,
		normalizer: normalize.New(c.Corrector),
		metrics:    c.Metrics,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// ClusterStrategy returns the name of the merge strategy in use.
func (p *Pipeline) ClusterStrategy() string { return p.clusterer.Merger.Name() }

// Close releases the components the pipeline owns. Components passed to New
// stay owned by the caller.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	if err := errors.Join(errs...); err != nil {
		slog.Warn("Failed to release pipeline components", "error", err)
		return err
	}
	return nil
}

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	return map[string]any{
		"models_dir":        p.cfg.ModelsDir,
		"detector_model":    p.cfg.Detector.ModelPath,
		"score_threshold":   p.cfg.ScoreThreshold,
		"nms_threshold":     p.cfg.NMSThreshold,
		"cluster_strategy":  p.ClusterStrategy(),
		"cluster_proximity": p.cfg.Cluster.Proximity,
		"padding":           p.cfg.Padding,
		"skip_failed_crops": p.cfg.SkipFailedCrops,
		"spelling":          p.cfg.Spelling.Enabled,
		"tesseract":         tesseract.Available(),
		"max_workers":       p.cfg.Parallel.MaxWorkers,
	}
}
