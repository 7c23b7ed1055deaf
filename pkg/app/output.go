package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteYAML writes v as YAML
func WriteYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(v)
}

// NewTable returns a table writer rendering to w
func NewTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// WriteStructured writes v as json or yaml, or reports an unsupported format
func WriteStructured(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		return WriteJSON(w, v)
	case "yaml":
		return WriteYAML(w, v)
	}
	return NewError(ErrCodeInvalidInput, fmt.Sprintf("unsupported output format: %s", format), nil)
}
