//nolint:lll
package config

// Config represents the complete configuration of the comicocr scanner. It is
// loaded from a configuration file, environment variables and command-line
// flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector" json:"detector"`
	Cluster    ClusterConfig    `mapstructure:"cluster" yaml:"cluster" json:"cluster"`
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	Spelling   SpellingConfig   `mapstructure:"spelling" yaml:"spelling" json:"spelling"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Parallel   ParallelConfig   `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch" json:"batch"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	GPU        GPUConfig        `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// DetectorConfig contains EAST detection and candidate suppression settings.
type DetectorConfig struct {
	ModelPath        string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputName        string  `mapstructure:"input_name" yaml:"input_name" json:"input_name"`
	ScoreOutput      string  `mapstructure:"score_output" yaml:"score_output" json:"score_output"`
	GeometryOutput   string  `mapstructure:"geometry_output" yaml:"geometry_output" json:"geometry_output"`
	InputLayout      string  `mapstructure:"input_layout" yaml:"input_layout" json:"input_layout"`
	ScoreThreshold   float64 `mapstructure:"score_threshold" yaml:"score_threshold" json:"score_threshold"`
	NMSThreshold     float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	NumThreads       int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	WarmupIterations int     `mapstructure:"warmup_iterations" yaml:"warmup_iterations" json:"warmup_iterations"`
}

// ClusterConfig contains text block clustering settings.
type ClusterConfig struct {
	Strategy          string  `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	Proximity         float64 `mapstructure:"proximity" yaml:"proximity" json:"proximity"`
	SuppressThreshold float64 `mapstructure:"suppress_threshold" yaml:"suppress_threshold" json:"suppress_threshold"`
}

// RecognizerConfig contains crop and Tesseract settings.
type RecognizerConfig struct {
	Whitelist       string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Padding         int    `mapstructure:"padding" yaml:"padding" json:"padding"`
	SkipFailedCrops bool   `mapstructure:"skip_failed_crops" yaml:"skip_failed_crops" json:"skip_failed_crops"`
	Language        string `mapstructure:"language" yaml:"language" json:"language"`
	EngineMode      int    `mapstructure:"engine_mode" yaml:"engine_mode" json:"engine_mode"`
	PageSegMode     int    `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	TessdataPrefix  string `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
}

// SpellingConfig contains dictionary correction settings.
type SpellingConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DictionaryPath string `mapstructure:"dictionary_path" yaml:"dictionary_path" json:"dictionary_path"`
	Depth          int    `mapstructure:"depth" yaml:"depth" json:"depth"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// BatchConfig contains file discovery and progress settings.
type BatchConfig struct {
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	IncludePatterns []string `mapstructure:"include" yaml:"include" json:"include"`
	ExcludePatterns []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ShowProgress    bool     `mapstructure:"show_progress" yaml:"show_progress" json:"show_progress"`
	ShowStats       bool     `mapstructure:"show_stats" yaml:"show_stats" json:"show_stats"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// GPUConfig contains GPU acceleration settings for the detector.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
