package factors

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// CSV column indices. The header row is required and skipped.
const (
	colCategory = iota
	colMode
	colSubtype
	colRegion
	colValue
	colUnit
	colSource
	minCSVColumns = colValue + 1
)

//go:embed data/default_factors.csv
var defaultFactorsCSV []byte

var (
	defaultTable     *Table    //nolint:gochecknoglobals // Parsed once from embedded data.
	defaultTableErr  error     //nolint:gochecknoglobals // Parsed once from embedded data.
	defaultTableOnce sync.Once //nolint:gochecknoglobals // Guards default table parsing.
)

// Default returns the embedded default factor table.
func Default() (*Table, error) {
	defaultTableOnce.Do(func() {
		entries, err := parseCSV(bytes.NewReader(defaultFactorsCSV))
		if err != nil {
			defaultTableErr = fmt.Errorf("parsing embedded factors: %w", err)
			return
		}
		defaultTable, defaultTableErr = NewTable("default", entries)
	})
	return defaultTable, defaultTableErr
}

// FormatFromPath infers the table format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads a factor table from disk.
func Load(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading factor table %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := Parse(data, format, name)
	if err != nil {
		return nil, fmt.Errorf("loading factor table %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a factor table in the given format. For YAML and JSON the
// document's own name wins over fallbackName.
func Parse(data []byte, format, fallbackName string) (*Table, error) {
	switch format {
	case FormatCSV:
		entries, err := parseCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return NewTable(fallbackName, entries)
	case FormatJSON, FormatYAML:
		var doc Document
		var err error
		if format == FormatJSON {
			err = json.Unmarshal(data, &doc)
		} else {
			err = yaml.Unmarshal(data, &doc)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s factor table: %w", format, err)
		}
		return FromDocument(doc, fallbackName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// FromDocument builds a table from its serialised form.
func FromDocument(doc Document, fallbackName string) (*Table, error) {
	if len(doc.Factors) == 0 {
		return nil, fmt.Errorf("%w: table has no factors", ErrInvalidFactor)
	}
	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	return NewTable(name, doc.Factors)
}

// parseCSV reads rows of category,mode,subtype,region,value[,unit[,source]].
// Blank lines and rows starting with '#' are ignored; any other malformed row
// is an error.
func parseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	// Skip header row
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty CSV", ErrInvalidFactor)
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) < minCSVColumns {
			return nil, fmt.Errorf("%w: line %d: want at least %d columns, got %d",
				ErrInvalidFactor, line, minCSVColumns, len(record))
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[colValue]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: value %q: %w", ErrInvalidFactor, line, record[colValue], err)
		}

		entry := Entry{
			Category: Category(strings.TrimSpace(record[colCategory])),
			Mode:     strings.TrimSpace(record[colMode]),
			Subtype:  strings.TrimSpace(record[colSubtype]),
			Region:   strings.TrimSpace(record[colRegion]),
			Value:    value,
		}
		if len(record) > colUnit {
			entry.Unit = strings.TrimSpace(record[colUnit])
		}
		if len(record) > colSource {
			entry.Source = strings.TrimSpace(record[colSource])
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table has no factors", ErrInvalidFactor)
	}
	return entries, nil
}

// Encode writes the table in the given format.
func Encode(w io.Writer, t *Table, format string) error {
	return EncodeDocument(w, t.Document(), format)
}

// EncodeDocument writes doc in the given format, keeping its entry order.
func EncodeDocument(w io.Writer, doc Document, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(doc)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"category", "mode", "subtype", "region", "value", "unit", "source"}); err != nil {
			return err
		}
		for _, e := range doc.Factors {
			row := []string{
				string(e.Category), e.Mode, e.Subtype, e.Region,
				strconv.FormatFloat(e.Value, 'g', -1, 64), e.Unit, e.Source,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
