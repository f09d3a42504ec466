// Package results renders scan results as text, JSON, YAML or CSV.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/comicocr/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatText, FormatJSON, FormatYAML, FormatCSV} }

// ParseFormat resolves a format name. The empty string means text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json, yaml or csv)", name)
	}
}

// Entry pairs a scanned file with its result or failure.
type Entry struct {
	File   string                `json:"file" yaml:"file"`
	Error  string                `json:"error,omitempty" yaml:"error,omitempty"`
	Result *pipeline.ImageResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// Document is the structured form written by the JSON and YAML formats.
type Document struct {
	Images []Entry                 `json:"images" yaml:"images"`
	Stats  *pipeline.ParallelStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// NewDocument builds a Document from results in input order. errs may be nil
// or hold one error per path.
func NewDocument(results []*pipeline.ImageResult, paths []string, errs []error) Document {
	doc := Document{Images: make([]Entry, len(paths))}
	for i, path := range paths {
		e := Entry{File: path}
		if i < len(results) {
			e.Result = results[i]
		}
		if i < len(errs) && errs[i] != nil {
			e.Error = errs[i].Error()
		}
		doc.Images[i] = e
	}
	return doc
}

// Write renders doc to w in format f.
func Write(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, doc)
	case FormatText, "":
		return writeText(w, doc)
	default:
		return fmt.Errorf("unsupported output format %q", f)
	}
}

// Render returns doc encoded in format f.
func Render(doc Document, f Format) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, doc, f); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// writeText prints one token per line. With more than one image each block of
// tokens is preceded by a "# path" header and separated by a blank line.
func writeText(w io.Writer, doc Document) error {
	headers := len(doc.Images) > 1
	for i, e := range doc.Images {
		if headers {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "# %s\n", e.File); err != nil {
				return err
			}
		}
		if e.Result == nil {
			continue
		}
		for _, token := range e.Result.Tokens {
			if _, err := fmt.Fprintln(w, token); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"file", "block", "text", "x0", "y0", "x1", "y1"}); err != nil {
		return err
	}
	for _, e := range doc.Images {
		if e.Result == nil {
			continue
		}
		for j, token := range e.Result.Tokens {
			row := []string{e.File, strconv.Itoa(j), token, "", "", "", ""}
			if j < len(e.Result.Clusters) {
				c := e.Result.Clusters[j]
				row[3], row[4] = strconv.Itoa(c.X0), strconv.Itoa(c.Y0)
				row[5], row[6] = strconv.Itoa(c.X1), strconv.Itoa(c.Y1)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
