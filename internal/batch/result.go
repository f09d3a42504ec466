package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/pipeline"
	"github.com/MeKo-Tech/comicocr/internal/results"
)

// Result holds the outcome of a batch scan. Results, ImagePaths and Errors
// share indices; a failed image has a nil result and a non-nil error.
type Result struct {
	Results     []*pipeline.ImageResult
	ImagePaths  []string
	Errors      []error
	Duration    time.Duration
	WorkerCount int
}

// Failed returns the number of images that could not be scanned.
func (r *Result) Failed() int {
	n := 0
	for _, err := range r.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// Stats summarizes the batch.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
}

// Document converts the batch into the structured output document.
func (r *Result) Document(withStats bool) results.Document {
	doc := results.NewDocument(r.Results, r.ImagePaths, r.Errors)
	if withStats {
		stats := r.Stats()
		doc.Stats = &stats
	}
	return doc
}

// FormatResults renders the batch in the given format.
func (r *Result) FormatResults(format results.Format) (string, error) {
	return results.Render(r.Document(false), format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format results.Format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nScan Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Scanned: %d\n", stats.ScannedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Tokens: %d\n", stats.Tokens)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
