package cmd

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/comicocr/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writePanels(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	blocks := testutil.WriteImage(t, dir, "01.png", testutil.TwoBlocksScene().Image)
	blank := testutil.WriteImage(t, dir, "02.png", testutil.BlankScene().Image)
	return dir, blocks, blank
}

func TestScanSingleImage(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)

	out, _, err := execute(t, nil, "scan", blocks)
	require.NoError(t, err)
	assert.Equal(t, "boom\npow\n", out)
}

func TestScanDirectoryPrintsHeaders(t *testing.T) {
	isolate(t)
	dir, blocks, blank := writePanels(t)

	out, _, err := execute(t, nil, "scan", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Equal(t, "# "+blocks+"\nboom\npow\n\n# "+blank+"\n", out)
}

func TestScanJSONToFile(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	outFile := filepath.Join(t.TempDir(), "out.json")

	out, _, err := execute(t, nil, "scan", "--format", "json", "--output", outFile, blocks)
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+outFile)

	data, err := os.ReadFile(outFile) //nolint:gosec // test output
	require.NoError(t, err)
	var doc struct {
		Images []struct {
			File   string `json:"file"`
			Result struct {
				Tokens []string `json:"tokens"`
			} `json:"result"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Images, 1)
	assert.Equal(t, blocks, doc.Images[0].File)
	assert.Equal(t, []string{"boom", "pow"}, doc.Images[0].Result.Tokens)
}

func TestScanYAMLQuiet(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	outFile := filepath.Join(t.TempDir(), "out.yaml")

	out, _, err := execute(t, nil, "scan", "-q", "-f", "yaml", "-o", outFile, blocks)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile) //nolint:gosec // test output
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Contains(t, doc, "images")
}

func TestScanFlagsReachPipelineConfig(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	f := &fakeFactory{}

	_, _, err := execute(t, f, "scan",
		"--cluster-strategy", "union-find",
		"--skip-failed-crops",
		"--padding", "4",
		"--score-threshold", "0.6",
		"--lang", "deu",
		"--workers", "3",
		blocks)
	require.NoError(t, err)
	require.Len(t, f.built, 1)
	cfg := f.built[0]
	assert.Equal(t, "union-find", cfg.Cluster.Strategy)
	assert.True(t, cfg.SkipFailedCrops)
	assert.Equal(t, 4, cfg.Padding)
	assert.InDelta(t, 0.6, cfg.ScoreThreshold, 1e-9)
	assert.Equal(t, "deu", cfg.Tesseract.Language)
	assert.Equal(t, 3, cfg.Parallel.MaxWorkers)
	assert.False(t, cfg.Spelling.Enabled)
}

func TestScanSpellingDictEnablesSpelling(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	f := &fakeFactory{}

	_, _, err := execute(t, f, "scan", "--spelling-dict", "/tmp/words.txt", blocks)
	require.NoError(t, err)
	require.Len(t, f.built, 1)
	assert.True(t, f.built[0].Spelling.Enabled)
	assert.Equal(t, "/tmp/words.txt", f.built[0].Spelling.DictionaryPath)
}

func TestScanConfigFile(t *testing.T) {
	dir := isolate(t)
	_, blocks, _ := writePanels(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comicocr.yaml"),
		[]byte("cluster:\n  strategy: union-find\nrecognizer:\n  padding: 2\n"), 0o600))
	f := &fakeFactory{}

	_, _, err := execute(t, f, "scan", "--padding", "6", blocks)
	require.NoError(t, err)
	require.Len(t, f.built, 1)
	assert.Equal(t, "union-find", f.built[0].Cluster.Strategy)
	assert.Equal(t, 6, f.built[0].Padding, "flags override the file")
}

func TestScanEnvironment(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	t.Setenv("COMICOCR_CLUSTER_STRATEGY", "union-find")
	f := &fakeFactory{}

	_, _, err := execute(t, f, "scan", blocks)
	require.NoError(t, err)
	assert.Equal(t, "union-find", f.built[0].Cluster.Strategy)
}

func TestScanInvalidStrategy(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	_, _, err := execute(t, nil, "scan", "--cluster-strategy", "greedy", blocks)
	require.Error(t, err)
}

func TestScanMissingFileFailsAfterOutput(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	missing := filepath.Join(t.TempDir(), "missing.png")

	out, errOut, err := execute(t, nil, "scan", blocks, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 images could not be scanned")
	assert.Contains(t, out, "boom\npow\n")
	assert.Contains(t, out, "# "+missing)
	assert.Contains(t, errOut, "Image could not be scanned")
}

func TestScanStats(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	_, errOut, err := execute(t, nil, "scan", "--stats", blocks)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Scan Statistics:")
	assert.Contains(t, errOut, "Tokens: 2")
}

func TestScanRequiresPath(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, nil, "scan")
	require.Error(t, err)
}

func TestScanWithMetricsServer(t *testing.T) {
	isolate(t)
	_, blocks, _ := writePanels(t)
	_, _, err := execute(t, nil, "scan", "--metrics-addr", "127.0.0.1:0", blocks)
	require.NoError(t, err)
}

func TestMetricsServerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "comicocr_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv, err := startMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer srv.shutdown()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics") //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "comicocr_test_total 1"))
}

func TestMetricsServerBadAddress(t *testing.T) {
	_, err := startMetricsServer("not-an-address", prometheus.NewRegistry())
	require.Error(t, err)
}
