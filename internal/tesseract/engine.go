//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/MeKo-Tech/comicocr/internal/recognizer"
	"github.com/otiai10/gosseract/v2"
)

// Available reports whether the Tesseract engine is compiled in.
func Available() bool { return true }

// Version returns the linked Tesseract version.
func Version() string { return gosseract.Version() }

// client is a pooled gosseract client together with the whitelist it was
// last configured with.
type client struct {
	*gosseract.Client
	whitelist string
}

// Engine recognizes text with a bounded pool of gosseract clients. Each
// concurrent caller gets its own client; callers beyond the pool size wait.
type Engine struct {
	config     Config
	configPath string
	clients    *pool[*client]
}

var _ recognizer.Recognizer = (*Engine)(nil)

// NewEngine validates the configuration by creating one client and prepares
// a pool of up to config.PoolSize clients.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tesseract config: %w", err)
	}
	configPath, err := writeConfigFile(config)
	if err != nil {
		return nil, err
	}

	e := &Engine{config: config, configPath: configPath}
	first, err := e.newClient()
	if err != nil {
		_ = os.Remove(configPath)
		return nil, err
	}
	e.clients = newPool(config.poolSize(), e.newClient)
	e.clients.add(first)

	slog.Debug("Tesseract engine initialized",
		"version", gosseract.Version(),
		"language", config.Language,
		"engine_mode", config.EngineMode,
		"pool_size", config.poolSize())
	return e, nil
}

func (e *Engine) newClient() (*client, error) {
	c := &client{Client: gosseract.NewClient()}
	if e.config.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.config.TessdataPrefix); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.config.Language); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set language %q: %w", e.config.Language, err)
	}
	if err := c.SetConfigFile(e.configPath); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}
	if e.config.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.config.PageSegMode)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode %d: %w", e.config.PageSegMode, err)
		}
	}
	return c, nil
}

type result struct {
	text string
	err  error
}

// Recognize implements recognizer.Recognizer. The call returns early when
// ctx is done; the client stays checked out until Tesseract finishes, and
// Close waits for it.
func (e *Engine) Recognize(ctx context.Context, crop image.Image, opts recognizer.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := EncodeTIFF(crop)
	if err != nil {
		return "", err
	}

	c, err := e.clients.acquire(ctx)
	if err != nil {
		return "", err
	}

	resultCh := make(chan result, 1)
	go func() {
		defer e.clients.release(c)
		text, err := c.recognize(data, opts.Whitelist)
		resultCh <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		return res.text, res.err
	}
}

func (c *client) recognize(data []byte, whitelist string) (string, error) {
	if whitelist != c.whitelist {
		if err := c.SetWhitelist(whitelist); err != nil {
			return "", fmt.Errorf("failed to set whitelist: %w", err)
		}
		c.whitelist = whitelist
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return strings.TrimRight(text, "\n\f"), nil
}

// Close waits for running recognitions, releases every client and removes
// the generated config file. Calling it again is a no-op.
func (e *Engine) Close() error {
	if err := e.clients.close(); err != nil {
		return err
	}
	if err := os.Remove(e.configPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
