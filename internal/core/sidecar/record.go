// Package sidecar reads and writes the structured metadata record that sits
// next to every image, and normalizes the annotation shapes it carries.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissing is returned when the sidecar file does not exist.
	ErrMissing = errors.New("sidecar missing")
	// ErrMalformed is returned when the sidecar cannot be parsed as a mapping.
	ErrMalformed = errors.New("sidecar malformed")
)

// Format is the on-disk encoding of a record.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. Unknown extensions are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Record is an open mapping of string keys to values.
type Record map[string]any

// Map returns the nested mapping stored under key, or nil.
func (r Record) Map(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return Record(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Read loads the record at path. A missing file yields ErrMissing, any
// decode failure yields ErrMalformed.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}

	return Decode(data, FormatFor(path))
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var rec map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if rec == nil {
		return nil, fmt.Errorf("%w: not a mapping", ErrMalformed)
	}

	return Record(rec), nil
}

// Encode serializes r with two-space indentation. JSON output keeps non-ASCII
// text and HTML characters unescaped.
func Encode(r Record, format Format) ([]byte, error) {
	if format == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(r)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(r)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PathFor swaps the extension of an image path for the sidecar extension.
func PathFor(imagePath, sidecarExt string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + sidecarExt
}
