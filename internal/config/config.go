package config

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/batch"
	"github.com/MeKo-Tech/comicocr/internal/cluster"
	"github.com/MeKo-Tech/comicocr/internal/detector"
	"github.com/MeKo-Tech/comicocr/internal/models"
	"github.com/MeKo-Tech/comicocr/internal/onnx"
	"github.com/MeKo-Tech/comicocr/internal/pipeline"
	"github.com/MeKo-Tech/comicocr/internal/recognizer"
	"github.com/MeKo-Tech/comicocr/internal/results"
	"github.com/MeKo-Tech/comicocr/internal/spelling"
	"github.com/MeKo-Tech/comicocr/internal/tesseract"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with the scanner defaults. ModelsDir
// is left empty so models.GetModelsDir can resolve it.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	tess := tesseract.DefaultConfig()
	return Config{
		LogLevel: "info",
		Detector: DetectorConfig{
			ScoreOutput:    det.ScoreOutput,
			GeometryOutput: det.GeometryOutput,
			InputLayout:    string(det.InputLayout),
			ScoreThreshold: detector.DefaultScoreThreshold,
			NMSThreshold:   detector.DefaultNMSThreshold,
		},
		Cluster: ClusterConfig{
			Strategy:          cluster.StrategyTwoPass,
			Proximity:         cluster.DefaultProximity,
			SuppressThreshold: detector.DefaultNMSThreshold,
		},
		Recognizer: RecognizerConfig{
			Whitelist:  recognizer.DefaultWhitelist,
			Padding:    recognizer.DefaultPadding,
			Language:   tess.Language,
			EngineMode: tess.EngineMode,
		},
		Spelling: SpellingConfig{
			Depth: spelling.DefaultDepth,
		},
		Output: OutputConfig{
			Format: string(results.FormatText),
		},
		Parallel: ParallelConfig{
			MaxWorkers: runtime.NumCPU(),
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if _, err := results.ParseFormat(c.Output.Format); err != nil {
		return err
	}

	if err := validateThreshold(c.Detector.ScoreThreshold, "detector.score_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Detector.NMSThreshold, "detector.nms_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Cluster.SuppressThreshold, "cluster.suppress_threshold"); err != nil {
		return err
	}
	if c.Detector.InputLayout != "" {
		if _, err := onnx.ParseLayout(c.Detector.InputLayout); err != nil {
			return fmt.Errorf("invalid detector.input_layout: %w", err)
		}
	}
	if c.Detector.NumThreads < 0 {
		return fmt.Errorf("invalid detector.num_threads: %d (must be >= 0)", c.Detector.NumThreads)
	}
	if c.Detector.WarmupIterations < 0 {
		return fmt.Errorf("invalid detector.warmup_iterations: %d (must be >= 0)", c.Detector.WarmupIterations)
	}

	if _, err := cluster.NewMerger(c.Cluster.Strategy, c.Cluster.Proximity); err != nil {
		return fmt.Errorf("invalid cluster config: %w", err)
	}

	if c.Recognizer.Padding < 0 {
		return fmt.Errorf("invalid recognizer.padding: %d (must be >= 0)", c.Recognizer.Padding)
	}
	if c.Recognizer.EngineMode < 0 || c.Recognizer.EngineMode > 3 {
		return fmt.Errorf("invalid recognizer.engine_mode: %d (must be between 0 and 3)", c.Recognizer.EngineMode)
	}
	if c.Recognizer.PageSegMode < 0 || c.Recognizer.PageSegMode > 13 {
		return fmt.Errorf("invalid recognizer.page_seg_mode: %d (must be between 0 and 13)", c.Recognizer.PageSegMode)
	}
	if c.Spelling.Depth < 0 {
		return fmt.Errorf("invalid spelling.depth: %d (must be >= 0)", c.Spelling.Depth)
	}

	if c.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Parallel.MaxWorkers)
	}

	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.ModelsDir = models.GetModelsDir(c.ModelsDir)
	cfg.Detector = c.toDetectorConfig(cfg.ModelsDir)
	cfg.ScoreThreshold = c.Detector.ScoreThreshold
	cfg.NMSThreshold = c.Detector.NMSThreshold
	cfg.Cluster = pipeline.ClusterConfig{
		Strategy:          c.Cluster.Strategy,
		Proximity:         c.Cluster.Proximity,
		SuppressThreshold: c.Cluster.SuppressThreshold,
	}
	cfg.Padding = c.Recognizer.Padding
	cfg.Whitelist = c.Recognizer.Whitelist
	cfg.SkipFailedCrops = c.Recognizer.SkipFailedCrops
	cfg.Tesseract = tesseract.Config{
		Language:       c.Recognizer.Language,
		EngineMode:     c.Recognizer.EngineMode,
		PageSegMode:    c.Recognizer.PageSegMode,
		TessdataPrefix: c.Recognizer.TessdataPrefix,
		PoolSize:       c.Parallel.MaxWorkers,
	}
	cfg.Spelling = pipeline.SpellingConfig{
		Enabled:        c.Spelling.Enabled,
		DictionaryPath: models.GetSpellingDictionaryPath(cfg.ModelsDir),
		Depth:          c.Spelling.Depth,
	}
	if c.Spelling.DictionaryPath != "" {
		cfg.Spelling.DictionaryPath = c.Spelling.DictionaryPath
	}
	cfg.Parallel = pipeline.ParallelConfig{MaxWorkers: c.Parallel.MaxWorkers}
	return cfg
}

// toDetectorConfig converts to detector.Config.
func (c *Config) toDetectorConfig(modelsDir string) detector.Config {
	cfg := detector.DefaultConfig()
	cfg.UpdateModelPath(modelsDir)
	if c.Detector.ModelPath != "" {
		cfg.ModelPath = c.Detector.ModelPath
	}
	cfg.InputName = c.Detector.InputName
	if c.Detector.ScoreOutput != "" {
		cfg.ScoreOutput = c.Detector.ScoreOutput
	}
	if c.Detector.GeometryOutput != "" {
		cfg.GeometryOutput = c.Detector.GeometryOutput
	}
	if layout, err := onnx.ParseLayout(c.Detector.InputLayout); err == nil {
		cfg.InputLayout = layout
	}
	cfg.NumThreads = c.Detector.NumThreads
	cfg.WarmupIterations = c.Detector.WarmupIterations
	cfg.GPU.UseGPU = c.GPU.Enabled
	cfg.GPU.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPU.GPUMemLimit = limit
	}
	return cfg
}

// ToBatchConfig converts the config to the batch scan configuration.
func (c *Config) ToBatchConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Recursive = c.Batch.Recursive
	cfg.IncludePatterns = c.Batch.IncludePatterns
	cfg.ExcludePatterns = c.Batch.ExcludePatterns
	cfg.ShowProgress = c.Batch.ShowProgress
	cfg.ShowStats = c.Batch.ShowStats
	cfg.Workers = c.Parallel.MaxWorkers
	cfg.OutputFile = c.Output.File
	if f, err := results.ParseFormat(c.Output.Format); err == nil {
		cfg.Format = f
	}
	cfg.ProgressInterval = 100 * time.Millisecond
	return cfg
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit parses a memory limit such as "1GB" or "512MB" into bytes.
// "auto" and the empty string mean no limit.
func parseMemoryLimit(limit string) (uint64, error) {
	limit = strings.TrimSpace(strings.ToUpper(limit))
	if limit == "" || limit == "AUTO" {
		return 0, nil
	}

	// Longest suffix first so "MB" is not read as "B".
	units := []struct {
		suffix     string
		multiplier uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(limit, u.suffix) {
			continue
		}
		num, err := strconv.ParseFloat(strings.TrimSuffix(limit, u.suffix), 64)
		if err != nil || num < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(num * float64(u.multiplier)), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB, TB (got %s)", limit)
}
