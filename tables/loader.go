package tables

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a table file:
//
//	tables:
//	  rates_pre:
//	    - ["3", "pension", "11", "15", "4", "6"]
type File struct {
	Tables map[string][][]string `yaml:"tables" json:"tables"`
}

// Format of a table file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf guesses the format from a file extension (default YAML).
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads and resolves a table file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	return Load(bytes.NewReader(data), FormatOf(path))
}

// Load decodes a table file and resolves it.
func Load(r io.Reader, format Format) (*Set, error) {
	raw, err := Decode(r, format)
	if err != nil {
		return nil, err
	}
	return Resolve(raw)
}

// Decode parses a table file without resolving it. YAML decoding rejects
// unknown top-level fields.
func Decode(r io.Reader, format Format) (Raw, error) {
	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode tables json: %w", err)
		}
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode tables yaml: %w", err)
		}
	}
	return Raw(f.Tables), nil
}
