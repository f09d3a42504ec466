package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for scanning many images at once.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
}

// DefaultParallelConfig returns defaults for parallel scanning.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type job[T any] struct {
	index int
	input T
}

type outcome struct {
	index  int
	result *ImageResult
	err    error
}

// ScanImagesParallel scans images with a bounded worker pool. Results come
// back in input order; a failed image leaves a nil entry and contributes to
// the joined error.
func (p *Pipeline) ScanImagesParallel(ctx context.Context, images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	return runParallel(ctx, images, config, p.Scan)
}

// ScanFilesParallel loads and scans image files with a bounded worker pool.
// Results come back in input order.
func (p *Pipeline) ScanFilesParallel(ctx context.Context, paths []string, config ParallelConfig) ([]*ImageResult, error) {
	return runParallel(ctx, paths, config, p.ScanFile)
}

func runParallel[T any](
	ctx context.Context,
	inputs []T,
	config ParallelConfig,
	scan func(context.Context, T) (*ImageResult, error),
) ([]*ImageResult, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no images provided")
	}
	workers := config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(inputs))

	progress := config.ProgressCallback
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(inputs))
	defer progress.OnComplete()

	jobs := make(chan job[T])
	outcomes := make(chan outcome, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := scan(ctx, j.input)
				outcomes <- outcome{index: j.index, result: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- job[T]{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]*ImageResult, len(inputs))
	var errs []error
	done := 0
	for o := range outcomes {
		done++
		if o.err != nil {
			progress.OnError(o.index, o.err)
			errs = append(errs, fmt.Errorf("image %d: %w", o.index, o.err))
		} else {
			results[o.index] = o.result
		}
		progress.OnProgress(done, len(inputs))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

// ParallelStats holds statistics about a parallel scan.
type ParallelStats struct {
	TotalImages      int           `json:"total_images" yaml:"total_images"`
	ScannedImages    int           `json:"scanned_images" yaml:"scanned_images"`
	FailedImages     int           `json:"failed_images" yaml:"failed_images"`
	Tokens           int           `json:"tokens" yaml:"tokens"`
	WorkerCount      int           `json:"worker_count" yaml:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns" yaml:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns" yaml:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// CalculateParallelStats summarizes the results of a parallel scan.
func CalculateParallelStats(results []*ImageResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ScannedImages++
		stats.Tokens += len(r.Tokens)
	}
	if stats.ScannedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ScannedImages)
		stats.ThroughputPerSec = float64(stats.ScannedImages) / duration.Seconds()
	}
	return stats
}
