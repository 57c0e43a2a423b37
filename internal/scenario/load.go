package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Supported document formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", &ConfigurationError{Problems: []Problem{{
			Message: fmt.Sprintf("unsupported scenario file extension %q", filepath.Ext(path)),
		}}}
	}
}

// LoadSpec reads a scenario document without validating it.
func LoadSpec(path string) (Spec, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Spec{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return Parse(data, format)
}

// Load reads and validates a scenario document.
func Load(path string) (*Config, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return New(spec)
}

// Parse decodes a scenario document. Unknown fields are rejected so typos do
// not silently fall back to defaults.
func Parse(data []byte, format string) (Spec, error) {
	var spec Spec
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&spec)
		if errors.Is(err, io.EOF) {
			err = errors.New("document is empty")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&spec)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return Spec{}, &ConfigurationError{Problems: []Problem{{Message: "decoding scenario: " + err.Error()}}}
	}
	return spec, nil
}

// Encode writes spec in the given format.
func Encode(w io.Writer, spec Spec, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(spec); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
