// Package record loads CV records from structured source files and converts
// date-tagged fields into datevalue.Value.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/cvbuilder/internal/datevalue"
)

// ItemsField is the key under which a top-level sequence is stored.
const ItemsField = "items"

// Record maps field names to raw decoded values: strings, numbers, nested
// maps (map[string]any) or lists ([]any).
type Record map[string]any

// Parsed is a record whose date fields have been converted. It is not
// modified after Parse returns.
type Parsed struct {
	ID     string
	Source string
	Fields map[string]any
}

// SourceFormat identifies the encoding of a record file.
type SourceFormat string

const (
	SourceYAML SourceFormat = "yaml"
	SourceTOML SourceFormat = "toml"
	SourceJSON SourceFormat = "json"
)

// DetectFormat maps a file extension to a SourceFormat.
func DetectFormat(path string) (SourceFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SourceYAML, true
	case ".toml":
		return SourceTOML, true
	case ".json":
		return SourceJSON, true
	default:
		return "", false
	}
}

// Identifier derives a record identifier from its file name.
func Identifier(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and decodes a record file.
func Load(path string) (Record, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return nil, fmt.Errorf("unsupported record file extension %q", filepath.Ext(path))
	}
	// #nosec G304 -- record paths come from the configured source tree.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	rec, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}

// Decode decodes raw bytes. A top-level sequence is wrapped as {"items": [...]}.
func Decode(data []byte, format SourceFormat) (Record, error) {
	var raw any
	switch format {
	case SourceYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case SourceTOML:
		var m map[string]any
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
			return nil, err
		}
		raw = m
	case SourceJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}

	switch v := normalize(raw).(type) {
	case nil:
		return Record{}, nil
	case map[string]any:
		return Record(v), nil
	case []any:
		return Record{ItemsField: v}, nil
	default:
		return nil, fmt.Errorf("record must be a mapping or a list, got %T", v)
	}
}

// normalize converts decoder-specific container types into map[string]any and
// []any so later stages see one shape regardless of the source format.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// Parse deep-copies rec and converts the values at datePaths into
// datevalue.Value. Paths are dotted ("comment.expected-end-date"); a "*"
// segment descends into every element of a list. Absent paths are ignored.
func Parse(id, source string, rec Record, datePaths []string) Parsed {
	fields, _ := normalize(map[string]any(rec)).(map[string]any)
	for _, p := range datePaths {
		convertDates(fields, strings.Split(p, "."))
	}
	return Parsed{ID: id, Source: source, Fields: fields}
}

func convertDates(node any, path []string) {
	if len(path) == 0 {
		return
	}
	switch t := node.(type) {
	case map[string]any:
		val, ok := t[path[0]]
		if !ok {
			return
		}
		if len(path) == 1 {
			if val != nil {
				t[path[0]] = datevalue.FromAny(val)
			}
			return
		}
		convertDates(val, path[1:])
	case []any:
		if path[0] != "*" {
			return
		}
		for _, item := range t {
			convertDates(item, path[1:])
		}
	}
}
