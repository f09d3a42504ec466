package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/comicocr/internal/mempool"
	"github.com/MeKo-Tech/comicocr/internal/models"
	"github.com/MeKo-Tech/comicocr/internal/onnx"
	"github.com/disintegration/imaging"
	"github.com/yalue/onnxruntime_go"
)

// Output names of the tf2onnx export of the frozen EAST graph.
const (
	DefaultScoreOutput    = "feature_fusion/Conv_7/Sigmoid:0"
	DefaultGeometryOutput = "feature_fusion/concat_3:0"
)

// Per-channel means subtracted from RGB input values.
var channelMeans = [3]float32{123.68, 116.78, 103.94}

// Config holds configuration for the EAST detector.
type Config struct {
	ModelPath        string         // Path to the ONNX model
	InputName        string         // Input tensor name; empty uses the model's only input
	ScoreOutput      string         // Score map output name
	GeometryOutput   string         // Geometry map output name
	InputLayout      onnx.Layout    // nhwc (tf2onnx default) or nchw
	NumThreads       int            // Intra-op threads (0 = runtime default)
	WarmupIterations int            // Blank forward passes run after loading
	GPU              onnx.GPUConfig // CUDA settings
}

// DefaultConfig returns the detector configuration for the default model location.
func DefaultConfig() Config {
	return Config{
		ModelPath:      models.GetDetectionModelPath(""),
		ScoreOutput:    DefaultScoreOutput,
		GeometryOutput: DefaultGeometryOutput,
		InputLayout:    onnx.LayoutNHWC,
		GPU:            onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath points ModelPath at the EAST model under modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetDetectionModelPath(modelsDir)
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.ScoreOutput == "" || c.GeometryOutput == "" {
		return errors.New("score and geometry output names are required")
	}
	if c.ScoreOutput == c.GeometryOutput {
		return fmt.Errorf("score and geometry outputs must differ, both are %q", c.ScoreOutput)
	}
	if _, err := onnx.ParseLayout(string(c.InputLayout)); err != nil {
		return err
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num threads must be >= 0, got %d", c.NumThreads)
	}
	if c.WarmupIterations < 0 {
		return fmt.Errorf("warmup iterations must be >= 0, got %d", c.WarmupIterations)
	}
	return onnx.ValidateGPUConfig(c.GPU)
}

// EASTDetector runs the EAST text detector through ONNX Runtime.
type EASTDetector struct {
	config  Config
	session *onnxruntime_go.DynamicAdvancedSession
	mu      sync.RWMutex
}

var _ Model = (*EASTDetector)(nil)

// NewEASTDetector loads the model and creates an inference session.
func NewEASTDetector(config Config) (*EASTDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	if err := models.ValidateModelExists(config.ModelPath); err != nil {
		return nil, err
	}

	slog.Debug("Initializing EAST detector",
		"model_path", config.ModelPath,
		"input_layout", config.InputLayout,
		"gpu_enabled", config.GPU.UseGPU)

	if err := onnx.InitializeRuntime(config.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputName, err := resolveInputName(config)
	if err != nil {
		return nil, err
	}

	session, err := createSession(config, inputName)
	if err != nil {
		return nil, err
	}

	d := &EASTDetector{config: config, session: session}
	if err := d.Warmup(config.WarmupIterations); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("detector warmup failed: %w", err)
	}

	slog.Debug("EAST detector initialized", "input", inputName)
	return d, nil
}

func resolveInputName(config Config) (string, error) {
	if config.InputName != "" {
		return config.InputName, nil
	}
	inputs, _, err := onnxruntime_go.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return "", fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return "", fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return "", fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}
	return inputs[0].Name, nil
}

func createSession(config Config, inputName string) (*onnxruntime_go.DynamicAdvancedSession, error) {
	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(sessionOptions, config.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(config.ModelPath,
		[]string{inputName}, []string{config.ScoreOutput, config.GeometryOutput}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Config returns a copy of the detector's configuration.
func (d *EASTDetector) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Close releases the inference session. The ONNX Runtime environment stays
// initialized for the rest of the process.
func (d *EASTDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy detector session: %w", err)
	}
	return nil
}

// Detect runs the network on img, whose sides must be multiples of 32.
func (d *EASTDetector) Detect(ctx context.Context, img image.Image) (*Maps, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w%sizeMultiple != 0 || h%sizeMultiple != 0 || w == 0 || h == 0 {
		return nil, fmt.Errorf("detector input %dx%d is not a positive multiple of %d", w, h, sizeMultiple)
	}

	blob := mempool.GetFloat32(3 * w * h)
	defer mempool.PutFloat32(blob)
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}
	fillBlob(nrgba, blob, d.config.InputLayout)

	tensor, err := onnx.NewImageTensor(blob, 3, h, w, d.config.InputLayout)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil {
		return nil, errors.New("detector session is closed")
	}
	return d.run(tensor)
}

func (d *EASTDetector) run(tensor onnx.Tensor) (*Maps, error) {
	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer destroyValue(input, "input")

	outputs := []onnxruntime_go.Value{nil, nil}
	if err := d.session.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	for _, o := range outputs {
		if o != nil {
			defer destroyValue(o, "output")
		}
	}

	score, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 score tensor, got %T", outputs[0])
	}
	geometry, ok := outputs[1].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 geometry tensor, got %T", outputs[1])
	}
	return mapsFromOutputs(score.GetData(), score.GetShape(), geometry.GetData(), geometry.GetShape())
}

func destroyValue(v onnxruntime_go.Value, what string) {
	if err := v.Destroy(); err != nil {
		slog.Warn("Failed to destroy tensor", "tensor", what, "error", err)
	}
}

// Warmup runs a number of forward passes on a blank image to reduce
// first-call latency.
func (d *EASTDetector) Warmup(iterations int) error {
	if iterations <= 0 {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, 320, 320))
	for range iterations {
		if _, err := d.Detect(context.Background(), img); err != nil {
			return err
		}
	}
	return nil
}

// fillBlob writes the mean-subtracted RGB values of img into dst using the
// given layout. dst must hold 3*w*h values.
func fillBlob(img *image.NRGBA, dst []float32, layout onnx.Layout) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := range w {
			px := row[x*4 : x*4+3]
			for c := range 3 {
				v := float32(px[c]) - channelMeans[c]
				if layout == onnx.LayoutNCHW {
					dst[c*plane+y*w+x] = v
				} else {
					dst[(y*w+x)*3+c] = v
				}
			}
		}
	}
}

// mapsFromOutputs converts the raw score and geometry tensors, in either
// layout, into planar maps.
func mapsFromOutputs(scoreData []float32, scoreShape []int64, geoData []float32, geoShape []int64) (*Maps, error) {
	scoreLayout, err := onnx.DetectLayout(scoreShape, 1)
	if err != nil {
		return nil, fmt.Errorf("score output: %w", err)
	}
	geoLayout, err := onnx.DetectLayout(geoShape, 5)
	if err != nil {
		return nil, fmt.Errorf("geometry output: %w", err)
	}

	scorePlanes, rows, cols, err := onnx.Planes(scoreData, scoreShape, scoreLayout, 1)
	if err != nil {
		return nil, fmt.Errorf("score output: %w", err)
	}
	geoPlanes, gRows, gCols, err := onnx.Planes(geoData, geoShape, geoLayout, 5)
	if err != nil {
		return nil, fmt.Errorf("geometry output: %w", err)
	}
	if rows != gRows || cols != gCols {
		return nil, fmt.Errorf("score map %dx%d and geometry map %dx%d differ", cols, rows, gCols, gRows)
	}

	m := &Maps{Rows: rows, Cols: cols, Scores: scorePlanes[0]}
	copy(m.Geometry[:], geoPlanes)
	return m, nil
}
