package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/dnviti/k8s-useful-metrics/internal/analysis"
)

// Format selects the output serialization.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: table, json, yaml, csv)", s)
	}
}

// Tabular is the row-oriented view a report must provide for table and
// CSV output. JSON and YAML serialize the report value directly.
type Tabular interface {
	TableHeaders() []string
	TableRows() [][]string
}

// Writer serializes reports to one of the supported formats.
type Writer struct {
	format  Format
	out     io.Writer
	closer  io.Closer
	title   string
	noColor bool
}

// NewWriter creates a Writer for the given format writing to out
// (stdout when nil).
func NewWriter(format Format, out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{format: format, out: out}
}

// NewFileWriterOrStdout creates a Writer targeting the given file path,
// falling back to stdout when the path is empty or cannot be created.
func NewFileWriterOrStdout(format Format, path string) *Writer {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewWriter(format, nil)
	}
	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create output file, falling back to stdout", "path", path, "error", err)
		return NewWriter(format, nil)
	}
	w := NewWriter(format, file)
	w.closer = file
	// No ANSI colors in files
	w.noColor = true
	return w
}

// SetTitle sets the table title (ignored by the other formats).
func (w *Writer) SetTitle(title string) { w.title = title }

// SetNoColor disables ANSI colors in table output.
func (w *Writer) SetNoColor(v bool) { w.noColor = v }

// Close releases the underlying file when writing to one. Safe to call
// on stdout-backed writers.
func (w *Writer) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Serialize writes the report in the configured format. Table and CSV
// require the report to implement Tabular.
func (w *Writer) Serialize(report any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		tab, err := tabular(report)
		if err != nil {
			return err
		}
		return w.serializeCSV(tab)
	case FormatTable:
		tab, err := tabular(report)
		if err != nil {
			return err
		}
		return w.serializeTable(tab)
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

func tabular(report any) (Tabular, error) {
	tab, ok := report.(Tabular)
	if !ok {
		return nil, fmt.Errorf("report %T has no tabular view", report)
	}
	return tab, nil
}

func (w *Writer) serializeCSV(tab Tabular) error {
	cw := csv.NewWriter(w.out)
	if err := cw.Write(tab.TableHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range tab.TableRows() {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) serializeTable(tab Tabular) error {
	headers := tab.TableHeaders()
	headerRow := make(table.Row, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}

	t := table.NewWriter()
	t.SetOutputMirror(w.out)
	if w.title != "" {
		t.SetTitle(w.title)
	}
	t.AppendHeader(headerRow)
	for _, row := range tab.TableRows() {
		r := make(table.Row, len(row))
		for i, cell := range row {
			if colors := w.cellColors(headers[i], cell); len(colors) > 0 {
				r[i] = colors.Sprint(cell)
			} else {
				r[i] = cell
			}
		}
		t.AppendRow(r)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// cellColors picks display colors for a cell: verdict labels keep their
// verdict color, error cells are red, summary rows are bold.
func (w *Writer) cellColors(header, cell string) text.Colors {
	if w.noColor || cell == "" {
		return nil
	}
	switch header {
	case "verdict":
		if c, ok := analysis.ColorFor(cell); ok {
			return text.Colors{c}
		}
	case "error":
		return text.Colors{text.FgRed}
	case "role":
		if cell == "Total" || cell == "Workers" {
			return text.Colors{text.Bold}
		}
	}
	return nil
}
