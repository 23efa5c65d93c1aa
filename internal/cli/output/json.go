package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

// Format formats data as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.Records()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

// Format formats data as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.Records()
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
