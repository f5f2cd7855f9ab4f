// Package report renders a Bill of Quantities to files.
// The output format is chosen from the file extension.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/takeoff/internal/cost"
	"github.com/ppiankov/takeoff/internal/model"
)

// Format identifies an output encoding
type Format string

const (
	FormatXLSX  Format = "xlsx"
	FormatJSON  Format = "json"
	FormatPDF   Format = "pdf"
	FormatHTML  Format = "html"
	FormatArrow Format = "arrow"
)

// Formats returns the supported formats
func Formats() []Format {
	return []Format{FormatXLSX, FormatJSON, FormatPDF, FormatHTML, FormatArrow}
}

// Report is everything a renderer needs
type Report struct {
	Meta      model.RunMeta   `json:"metadata"`
	Items     []model.BOQItem `json:"items"`
	Summary   model.Summary   `json:"summary"`
	Cost      *cost.Estimate  `json:"cost,omitempty"`
	Precision int             `json:"-"` // decimals shown in human-readable outputs
}

type encoder func(w io.Writer, r *Report) error

var encoders = map[Format]encoder{
	FormatXLSX:  writeXLSX,
	FormatJSON:  writeJSON,
	FormatPDF:   writePDF,
	FormatHTML:  writeHTML,
	FormatArrow: writeArrow,
}

// FormatFor returns the format implied by a path's extension.
// A path without extension is rendered as xlsx.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "":
		return FormatXLSX, nil
	case "htm":
		return FormatHTML, nil
	case "ipc", "feather":
		return FormatArrow, nil
	}
	f := Format(ext)
	if _, ok := encoders[f]; !ok {
		return "", &model.ConfigurationError{
			Key: "output",
			Err: fmt.Errorf("unsupported output format %q", ext),
		}
	}
	return f, nil
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := encoders[f]; !ok {
		return "", &model.ConfigurationError{Key: "format", Err: fmt.Errorf("unsupported format %q", s)}
	}
	return f, nil
}

// Render writes the report to path in the format its extension selects
func Render(path string, r *Report) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, format, r); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Encode writes the report to w in the given format
func Encode(w io.Writer, format Format, r *Report) error {
	enc, ok := encoders[format]
	if !ok {
		return &model.ConfigurationError{Key: "format", Err: fmt.Errorf("unsupported format %q", format)}
	}
	if err := enc(w, r); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return nil
}

func (r *Report) precision() int {
	if r.Precision <= 0 {
		return 3
	}
	return r.Precision
}

func (r *Report) formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', r.precision(), 64)
}

// Columns are the BOQ table headers shared by all tabular outputs
var Columns = []string{
	"Item No", "Element Type", "Description", "Unit", "Quantity",
	"Storey", "Material", "Volume (m³)", "Area (m²)", "Length (m)", "Count",
}

// projectRows lists run metadata as label/value pairs
func (r *Report) projectRows() [][2]string {
	m := r.Meta
	rows := [][2]string{
		{"Project Name", orDash(m.ProjectName)},
		{"Project ID", orDash(m.ProjectID)},
		{"Building", orDash(m.BuildingName)},
		{"Schema", orDash(m.Schema)},
		{"Unit Scale Factor", strconv.FormatFloat(m.UnitScale, 'g', -1, 64)},
		{"Source File", orDash(m.SourcePath)},
		{"Grouping Level", orDash(string(m.GroupingLevel))},
		{"Elements", strconv.Itoa(m.ElementCount)},
		{"Run ID", orDash(m.RunID)},
	}
	if !m.GeneratedAt.IsZero() {
		rows = append(rows, [2]string{"Generated At", m.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST")})
	}
	return rows
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
