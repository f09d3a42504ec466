package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(t.TempDir())
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.NotNil(t, l)
	assert.Same(t, viper.GetViper(), l.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	l := newTestLoader(t)
	cfg, err := l.Load()
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 0.5, cfg.Detector.ScoreThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.Detector.NMSThreshold, 1e-9)
	assert.Equal(t, "two-pass", cfg.Cluster.Strategy)
	assert.Equal(t, 10, cfg.Recognizer.Padding)
	assert.Equal(t, d.Recognizer.Whitelist, cfg.Recognizer.Whitelist)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, d.Parallel.MaxWorkers, cfg.Parallel.MaxWorkers)
	assert.Empty(t, l.GetConfigFileUsed())
}

func TestLoadFromSearchPath(t *testing.T) {
	l := newTestLoader(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	writeConfig(t, cwd, `
log_level: debug
cluster:
  strategy: union-find
  proximity: 8
recognizer:
  skip_failed_crops: true
  padding: 4
batch:
  recursive: true
  include: ["*.png", "*.jpg"]
`)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "union-find", cfg.Cluster.Strategy)
	assert.InDelta(t, 8.0, cfg.Cluster.Proximity, 1e-9)
	assert.True(t, cfg.Recognizer.SkipFailedCrops)
	assert.Equal(t, 4, cfg.Recognizer.Padding)
	assert.True(t, cfg.Batch.Recursive)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Batch.IncludePatterns)
	assert.Equal(t, "eng", cfg.Recognizer.Language, "unset keys keep defaults")
	assert.NotEmpty(t, l.GetConfigFileUsed())
}

func TestLoadWithFile(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), `
detector:
  score_threshold: 0.7
  input_layout: nchw
output:
  format: yaml
metrics:
  addr: ":9090"
`)

	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cfg.Detector.ScoreThreshold, 1e-9)
	assert.Equal(t, "nchw", cfg.Detector.InputLayout)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, path, l.GetConfigFileUsed())
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), "log_level: [unclosed\n")
	_, err := l.LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadWithNonExistentFile(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "cluster:\n  strategy: greedy\n")

	_, err := newTestLoader(t).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := newTestLoader(t).LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "greedy", cfg.Cluster.Strategy)
}

func TestLoadWithoutValidationUsesDefaults(t *testing.T) {
	cfg, err := newTestLoader(t).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	l := newTestLoader(t)
	t.Setenv("COMICOCR_LOG_LEVEL", "warn")
	t.Setenv("COMICOCR_CLUSTER_STRATEGY", "union-find")
	t.Setenv("COMICOCR_RECOGNIZER_SKIP_FAILED_CROPS", "true")
	t.Setenv("COMICOCR_PARALLEL_MAX_WORKERS", "3")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "union-find", cfg.Cluster.Strategy)
	assert.True(t, cfg.Recognizer.SkipFailedCrops)
	assert.Equal(t, 3, cfg.Parallel.MaxWorkers)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), "log_level: debug\n")
	t.Setenv("COMICOCR_LOG_LEVEL", "error")

	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestGetSetConfigValues(t *testing.T) {
	l := NewLoaderWithViper(viper.New())
	l.Set("output.format", "json")
	assert.Equal(t, "json", l.GetString("output.format"))
	assert.Equal(t, "json", l.Get("output.format"))
}

func TestGetResolvedConfig(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.Load()
	require.NoError(t, err)
	settings := l.GetResolvedConfig()
	assert.Contains(t, settings, "detector")
	assert.Contains(t, settings, "cluster")
}

func TestWriteConfigToFileRoundTrips(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.Load()
	require.NoError(t, err)
	l.Set("cluster.strategy", "union-find")
	l.Set("recognizer.padding", 4)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, l.WriteConfigToFile(path))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "union-find", cfg.Cluster.Strategy)
	assert.Equal(t, 4, cfg.Recognizer.Padding)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two-pass", cfg.Cluster.Strategy)
	assert.Equal(t, 10, cfg.Recognizer.Padding)
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	newTestLoader(t)
	require.NoError(t, GenerateDefaultConfigFile(""))
	_, err := os.Stat(ConfigFileName + ".yaml")
	require.NoError(t, err)
}

func TestGetConfigSearchPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	assert.Equal(t, []string{".", home, filepath.Join(home, ".config", "comicocr"), "/etc/comicocr"}, GetConfigSearchPaths())

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Contains(t, GetConfigSearchPaths(), "/xdg/comicocr")
}

func TestPrintConfigInfo(t *testing.T) {
	var buf bytes.Buffer
	NewLoaderWithViper(viper.New()).PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Environment prefix: COMICOCR")
}
