// Package batch scans many comic images with one pipeline and writes the
// combined results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/pipeline"
)

// Scanner scans image files in parallel. *pipeline.Pipeline implements it.
type Scanner interface {
	ScanFilesParallel(ctx context.Context, paths []string, config pipeline.ParallelConfig) ([]*pipeline.ImageResult, error)
}

// ProcessBatch discovers the images named by args and scans them with sc.
// A failed image does not fail the batch; its error is kept in Result.Errors.
func ProcessBatch(ctx context.Context, sc Scanner, args []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	files, err := discoverImageFiles(args, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	var progress pipeline.ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progress = pipeline.NewConsoleProgressCallback(os.Stderr, "Scanning: ").
			WithUpdateInterval(config.ProgressInterval)
	}
	collector := newErrorCollector(len(files), progress)

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	res, err := sc.ScanFilesParallel(ctx, files, pipeline.ParallelConfig{MaxWorkers: workers, ProgressCallback: collector})
	duration := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("batch scan interrupted: %w", ctxErr)
	}
	if err != nil {
		slog.Warn("Some images failed", "failed", collector.count(), "total", len(files))
	}
	if len(res) != len(files) {
		return nil, fmt.Errorf("batch scan failed: %w", err)
	}

	return &Result{
		Results:     res,
		ImagePaths:  files,
		Errors:      collector.errors(),
		Duration:    duration,
		WorkerCount: min(workers, len(files)),
	}, nil
}

// errorCollector records per-image errors by index and forwards every
// update to an optional inner callback.
type errorCollector struct {
	inner pipeline.ProgressCallback

	mu   sync.Mutex
	errs []error
	n    int
}

func newErrorCollector(total int, inner pipeline.ProgressCallback) *errorCollector {
	if inner == nil {
		inner = pipeline.NoOpProgressCallback{}
	}
	return &errorCollector{inner: inner, errs: make([]error, total)}
}

func (c *errorCollector) OnStart(total int)             { c.inner.OnStart(total) }
func (c *errorCollector) OnProgress(current, total int) { c.inner.OnProgress(current, total) }
func (c *errorCollector) OnComplete()                   { c.inner.OnComplete() }

func (c *errorCollector) OnError(index int, err error) {
	c.mu.Lock()
	if index >= 0 && index < len(c.errs) {
		c.errs[index] = err
		c.n++
	}
	c.mu.Unlock()
	c.inner.OnError(index, err)
}

func (c *errorCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// errors returns the per-index errors, or nil when every image succeeded.
func (c *errorCollector) errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return nil
	}
	return append([]error(nil), c.errs...)
}
