package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/comicocr/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigShow(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, nil, "--log-level", "warn", "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "two-pass", cfg.Cluster.Strategy)
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	out, _, err := execute(t, nil, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to comicocr.yaml")

	path := filepath.Join(dir, "comicocr.yaml")
	cfg, err := config.NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Recognizer.Padding)

	_, _, err = execute(t, nil, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, nil, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigInitCustomPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	_, _, err := execute(t, nil, "config", "init", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestConfigPaths(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, nil, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment prefix: COMICOCR")
	assert.Contains(t, out, "/etc/comicocr")
}
