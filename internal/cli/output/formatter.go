package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatRaw, FormatJSON, FormatYAML:
		return f, nil
	case "table":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, raw, json or yaml)", s)
	}
}

// Structured reports whether f is a machine-readable document format.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter creates a formatter for the given format. Text and raw
// render tables.
func NewFormatter(format Format, noColor bool) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{NoColor: noColor, NoHeaders: format == FormatRaw}
	}
}
