package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/comicocr/internal/batch"
	"github.com/MeKo-Tech/comicocr/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newScanCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan comic images and print one token per text block",
		Long: `Scan comic images and print the text of every detected text block.

Paths may be image files or directories. Each image prints its tokens in
block order; when several images are scanned each block of tokens is
preceded by a "# path" header.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  comicocr scan panel.png
  comicocr scan issue1/ --recursive --workers 4
  comicocr scan page.png --format yaml --output page.yaml
  comicocr scan pages/ --metrics-addr :9090 --progress --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringP("format", "f", "text", "output format (text, json, yaml, csv)")
	f.StringP("output", "o", "", "write results to this file instead of stdout")
	f.IntP("workers", "w", 0, "number of images scanned in parallel (default: number of CPUs)")
	f.String("cluster-strategy", "two-pass", "block merge strategy (two-pass, union-find)")
	f.String("spelling-dict", "", "word-frequency file; enables spelling correction")
	f.Bool("spelling", false, "enable spelling correction with the default dictionary")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while scanning")
	f.BoolP("recursive", "r", false, "scan directories recursively")
	f.StringSlice("include", nil, "only scan files matching these patterns")
	f.StringSlice("exclude", nil, "skip files matching these patterns")
	f.Bool("progress", false, "show a progress line on stderr")
	f.Bool("stats", false, "print scan statistics on stderr")
	f.BoolP("quiet", "q", false, "suppress progress and status messages")
	f.Bool("skip-failed-crops", false, "read a block that fails recognition as an empty token")
	f.Int("padding", 10, "pixels added around each block before recognition")
	f.Float64("score-threshold", 0.5, "minimum detector score of a text cell")
	f.String("detector-model", "", "path to the EAST ONNX model")
	f.String("lang", "eng", "Tesseract language")
	f.Bool("gpu", false, "run the detector on CUDA")

	for key, name := range map[string]string{
		"output.format":                "format",
		"output.file":                  "output",
		"parallel.max_workers":         "workers",
		"cluster.strategy":             "cluster-strategy",
		"spelling.dictionary_path":     "spelling-dict",
		"spelling.enabled":             "spelling",
		"metrics.addr":                 "metrics-addr",
		"batch.recursive":              "recursive",
		"batch.include":                "include",
		"batch.exclude":                "exclude",
		"batch.show_progress":          "progress",
		"batch.show_stats":             "stats",
		"recognizer.skip_failed_crops": "skip-failed-crops",
		"recognizer.padding":           "padding",
		"detector.score_threshold":     "score-threshold",
		"detector.model_path":          "detector-model",
		"recognizer.language":          "lang",
		"gpu.enabled":                  "gpu",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	if cmd.Flags().Changed("spelling-dict") {
		cfg.Spelling.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	bc := cfg.ToBatchConfig()
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	if cfg.Metrics.Addr != "" {
		srv, err := startMetricsServer(cfg.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		defer srv.shutdown()
	}

	p, err := a.newPipeline(cfg.ToPipelineConfig(), rec)
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Error closing pipeline", "error", err)
		}
	}()
	slog.Debug("Pipeline ready", "info", p.Info())

	res, err := batch.ProcessBatch(cmd.Context(), p, args, bc)
	if err != nil {
		return err
	}
	if err := res.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats && !bc.Quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}

	if n := res.Failed(); n > 0 {
		var errs []error
		for i, e := range res.Errors {
			if e != nil {
				slog.Error("Image could not be scanned", "image", res.ImagePaths[i], "error", e)
				errs = append(errs, e)
			}
		}
		return fmt.Errorf("%d of %d images could not be scanned: %w", n, len(res.ImagePaths), errors.Join(errs...))
	}
	return nil
}
