package output

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Tabler is implemented by results that render as a table.
type Tabler interface {
	Table() *Table
}

// TableFormatter formats data as an aligned table.
type TableFormatter struct {
	NoColor   bool
	NoHeaders bool
}

// Format formats data as a table.
// Supports: *Table, Tabler, map[string]string and []string. Anything else
// is written as JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case Tabler:
		return v.Table().RenderWithOptions(w, f.NoHeaders, f.NoColor)
	case map[string]string:
		return KeyValueTable(v).RenderWithOptions(w, f.NoHeaders, f.NoColor)
	case []string:
		for _, s := range v {
			if _, err := io.WriteString(w, s+"\n"); err != nil {
				return err
			}
		}
		return nil
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// KeyValueTable returns a two-column table of m sorted by key.
func KeyValueTable(m map[string]string) *Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTable("KEY", "VALUE")
	for _, k := range keys {
		t.AddRow(k, m[k])
	}
	return t
}

// Table implements Tabler.
func (t *Table) Table() *Table { return t }

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render renders the table with headers and no color.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false, true)
}

// RenderWithOptions renders the table with columns separated by two
// spaces. Empty cells are shown as "-".
func (t *Table) RenderWithOptions(w io.Writer, noHeaders, noColor bool) error {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell == "" {
				cell = "-"
			}
			rows[i][j] = cell
		}
	}

	widths := make([]int, len(t.Headers))
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(c); n > widths[i] {
				widths[i] = n
			}
		}
	}
	if !noHeaders {
		measure(t.Headers)
	}
	for _, row := range rows {
		measure(row)
	}

	bold := color.New(color.Bold)
	if noColor {
		bold.DisableColor()
	} else {
		bold.EnableColor()
	}

	writeRow := func(cells []string, style *color.Color) error {
		var sb strings.Builder
		for i, c := range cells {
			text := c
			if style != nil {
				text = style.Sprint(c)
			}
			sb.WriteString(text)
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)+2))
			}
		}
		sb.WriteByte('\n')
		_, err := io.WriteString(w, sb.String())
		return err
	}

	if !noHeaders && len(t.Headers) > 0 {
		if err := writeRow(t.Headers, bold); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := writeRow(row, nil); err != nil {
			return err
		}
	}
	return nil
}

// Records returns the rows keyed by lower-cased header, for JSON and YAML.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[strings.ToLower(h)] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}
