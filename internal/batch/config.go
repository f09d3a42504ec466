package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/comicocr/internal/results"
)

// Config holds the settings of a batch scan.
type Config struct {
	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output
	Format     results.Format
	OutputFile string

	// Parallel processing
	Workers int

	// Progress
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns the batch defaults: text output, one worker per CPU
// and a progress line redrawn every 100ms when enabled.
func DefaultConfig() *Config {
	return &Config{
		Format:           results.FormatText,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the batch settings.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("batch config is nil")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := results.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval must be >= 0, got %v", c.ProgressInterval)
	}
	return nil
}
