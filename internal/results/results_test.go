package results

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/MeKo-Tech/comicocr/internal/pipeline"
	"github.com/MeKo-Tech/comicocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResults() ([]*pipeline.ImageResult, []string) {
	first := &pipeline.ImageResult{
		Path:     "a.png",
		Width:    320,
		Height:   192,
		Clusters: []utils.Rect{utils.NewRect(16, 16, 112, 48), utils.NewRect(192, 128, 300, 168)},
		Tokens:   []string{"boom", "pow"},
	}
	second := &pipeline.ImageResult{Path: "b.png", Width: 64, Height: 64, Clusters: []utils.Rect{}, Tokens: []string{}}
	return []*pipeline.ImageResult{first, second}, []string{"a.png", "b.png"}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"JSON", FormatJSON},
		{" yaml ", FormatYAML},
		{"yml", FormatYAML},
		{"csv", FormatCSV},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
	assert.Len(t, Formats(), 4)
}

func TestNewDocument(t *testing.T) {
	res, paths := sampleResults()
	res[1] = nil
	doc := NewDocument(res, paths, []error{nil, errors.New("failed to load b.png")})

	require.Len(t, doc.Images, 2)
	assert.Equal(t, "a.png", doc.Images[0].File)
	assert.Empty(t, doc.Images[0].Error)
	assert.NotNil(t, doc.Images[0].Result)
	assert.Nil(t, doc.Images[1].Result)
	assert.Equal(t, "failed to load b.png", doc.Images[1].Error)
}

func TestWriteTextSingleImage(t *testing.T) {
	res, paths := sampleResults()
	out, err := Render(NewDocument(res[:1], paths[:1], nil), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "boom\npow\n", out)
}

func TestWriteTextManyImages(t *testing.T) {
	res, paths := sampleResults()
	out, err := Render(NewDocument(res, paths, nil), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "# a.png\nboom\npow\n\n# b.png\n", out)
}

func TestWriteTextKeepsEmptyTokens(t *testing.T) {
	res := []*pipeline.ImageResult{{Tokens: []string{"", "pow"}}}
	out, err := Render(NewDocument(res, []string{"x.png"}, nil), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "\npow\n", out)
}

func TestWriteJSON(t *testing.T) {
	res, paths := sampleResults()
	doc := NewDocument(res, paths, nil)
	doc.Stats = &pipeline.ParallelStats{TotalImages: 2, ScannedImages: 2, Tokens: 2, WorkerCount: 1}

	out, err := Render(doc, FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Images []struct {
			File   string `json:"file"`
			Result struct {
				Tokens   []string `json:"tokens"`
				Clusters []struct {
					X0 int `json:"x0"`
				} `json:"clusters"`
			} `json:"result"`
		} `json:"images"`
		Stats struct {
			Tokens int `json:"tokens"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Images, 2)
	assert.Equal(t, []string{"boom", "pow"}, decoded.Images[0].Result.Tokens)
	assert.Equal(t, 192, decoded.Images[0].Result.Clusters[1].X0)
	assert.Empty(t, decoded.Images[1].Result.Tokens)
	assert.NotNil(t, decoded.Images[1].Result.Tokens)
	assert.Equal(t, 2, decoded.Stats.Tokens)
	assert.NotContains(t, out, `"error"`)
}

func TestWriteYAML(t *testing.T) {
	res, paths := sampleResults()
	out, err := Render(NewDocument(res, paths, []error{nil, errors.New("boom")}), FormatYAML)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	images, ok := decoded["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 2)
	first := images[0].(map[string]any)
	assert.Equal(t, "a.png", first["file"])
	result := first["result"].(map[string]any)
	assert.Equal(t, []any{"boom", "pow"}, result["tokens"])
	assert.Equal(t, "boom", images[1].(map[string]any)["error"])
	assert.NotContains(t, out, "stats:")
	assert.True(t, strings.HasPrefix(out, "images:\n"))
}

func TestWriteCSV(t *testing.T) {
	res, paths := sampleResults()
	out, err := Render(NewDocument(res, paths, nil), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"file", "block", "text", "x0", "y0", "x1", "y1"}, rows[0])
	assert.Equal(t, []string{"a.png", "0", "boom", "16", "16", "112", "48"}, rows[1])
	assert.Equal(t, []string{"a.png", "1", "pow", "192", "128", "300", "168"}, rows[2])
}

func TestWriteUnknownFormat(t *testing.T) {
	_, err := Render(Document{}, Format("xml"))
	require.Error(t, err)
}
