// Package cmd implements the comicocr command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/comicocr/internal/config"
	"github.com/MeKo-Tech/comicocr/internal/metrics"
	"github.com/MeKo-Tech/comicocr/internal/pipeline"
	"github.com/MeKo-Tech/comicocr/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PipelineFactory builds the scan pipeline from the resolved configuration.
type PipelineFactory func(cfg pipeline.Config, rec *metrics.Recorder) (*pipeline.Pipeline, error)

// buildPipeline loads the EAST model and starts Tesseract.
func buildPipeline(cfg pipeline.Config, rec *metrics.Recorder) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilderFromConfig(cfg).WithMetrics(rec).Build()
}

// app holds the state shared by the commands of one command tree.
type app struct {
	v           *viper.Viper
	cfgFile     string
	cfg         *config.Config
	loader      *config.Loader
	newPipeline PipelineFactory
}

// rootCmd is the command tree used by Execute.
var rootCmd = NewRootCommand(nil)

// NewRootCommand builds a fresh command tree with its own viper instance. A
// nil factory builds the real EAST and Tesseract pipeline.
func NewRootCommand(factory PipelineFactory) *cobra.Command {
	if factory == nil {
		factory = buildPipeline
	}
	a := &app{v: viper.New(), newPipeline: factory}

	root := &cobra.Command{
		Use:   "comicocr",
		Short: "Read the text of comic panels",
		Long: `comicocr finds the text blocks of comic panels with the EAST text detector,
merges nearby detections into speech-bubble sized blocks and reads each
block with Tesseract, printing one normalized token per block.

Examples:
  comicocr scan panel.png
  comicocr scan issue1/ --recursive --format json --output issue1.json
  comicocr scan pages/*.png --cluster-strategy union-find --spelling-dict words.txt`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.PersistentFlags().GetBool("version"); v {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "comicocr version %s\n", version.String())
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: a.initialize,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/comicocr, /etc/comicocr)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("models-dir", "", "directory containing models (also COMICOCR_MODELS_DIR)")
	flags.Bool("version", false, "print version information and exit")

	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("models_dir", flags.Lookup("models-dir"))

	root.AddCommand(newScanCommand(a), newConfigCommand(a), newModelsCommand(a))
	return root
}

// Execute runs the command tree and exits non-zero on failure. SIGINT and
// SIGTERM cancel a running scan.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// initialize loads the configuration and installs the JSON logger on stderr.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	a.loader = config.NewLoaderWithViper(a.v)
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
	return nil
}

// newLogger returns a JSON logger at the configured level. Verbose forces
// debug.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
