// Package tesseract recognizes text in image crops with the Tesseract engine
// through gosseract. The engine is only compiled with the "tesseract" build
// tag; other builds get a stub whose constructor returns ErrUnavailable.
package tesseract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"

	"golang.org/x/image/tiff"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// Config controls the Tesseract clients.
type Config struct {
	Language       string // Traineddata language, "eng" by default
	EngineMode     int    // tessedit_ocr_engine_mode: 0 legacy, 1 LSTM, 2 both, 3 default
	PageSegMode    int    // Page segmentation mode (0 keeps Tesseract's default)
	TessdataPrefix string // Directory containing tessdata; empty uses the system default
	PoolSize       int    // Maximum number of clients (0 = runtime.NumCPU())
}

// DefaultConfig returns the settings the scanner uses out of the box. The
// engine mode is 1 (LSTM only), the same as running tesseract with --oem 1.
func DefaultConfig() Config {
	return Config{
		Language:   "eng",
		EngineMode: 1,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Language == "" {
		return errors.New("tesseract language cannot be empty")
	}
	if c.EngineMode < 0 || c.EngineMode > 3 {
		return fmt.Errorf("tesseract engine mode must be in [0,3], got %d", c.EngineMode)
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("tesseract page segmentation mode must be in [0,13], got %d", c.PageSegMode)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("tesseract pool size must be >= 0, got %d", c.PoolSize)
	}
	if c.TessdataPrefix != "" {
		if st, err := os.Stat(c.TessdataPrefix); err != nil || !st.IsDir() {
			return fmt.Errorf("tessdata prefix %q is not a directory", c.TessdataPrefix)
		}
	}
	return nil
}

func (c Config) poolSize() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return runtime.NumCPU()
}

// configFileContents renders the Tesseract config file passed to each client.
func (c Config) configFileContents() string {
	return fmt.Sprintf("tessedit_ocr_engine_mode %d\n", c.EngineMode)
}

// writeConfigFile stores the rendered config in a temporary file and returns
// its path. The caller removes it.
func writeConfigFile(c Config) (string, error) {
	f, err := os.CreateTemp("", "comicocr-tesseract-*.cfg")
	if err != nil {
		return "", fmt.Errorf("failed to create tesseract config file: %w", err)
	}
	if _, err := f.WriteString(c.configFileContents()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write tesseract config file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close tesseract config file: %w", err)
	}
	return f.Name(), nil
}

// EncodeTIFF encodes img as an uncompressed TIFF, the format Tesseract reads
// without any further conversion.
func EncodeTIFF(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	buf := bytes.NewBuffer(make([]byte, 0, b.Dx()*b.Dy()*4+200))
	if err := tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		return nil, fmt.Errorf("failed to encode crop as TIFF: %w", err)
	}
	return buf.Bytes(), nil
}
