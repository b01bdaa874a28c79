package document

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// Spec is the serialized form of one node of a document and its
// descendants. Variables and Properties keep the order they were written in.
type Spec struct {
	Name       string        `json:"name"                 yaml:"name"`
	Variables  yaml.MapSlice `json:"variables,omitempty"  yaml:"variables,omitempty"`
	Properties yaml.MapSlice `json:"properties,omitempty" yaml:"properties,omitempty"`
	Children   []Spec        `json:"children,omitempty"   yaml:"children,omitempty"`
}

// Format selects the encoding used to write a [Spec].
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}

	return "yaml"
}

// ParseFormat returns the format named by s ("yaml", "yml" or "json").
// Anything else is YAML.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) Format { return ParseFormat(filepath.Ext(path)) }

// Decode parses a YAML or JSON document.
func Decode(data []byte) (Spec, error) {
	var s Spec

	if err := yaml.UnmarshalWithOptions(data, &s, yaml.UseOrderedMap()); err != nil {
		return Spec{}, ErrDecode.Wrap(err).With(slog.Int("bytes", len(data)))
	}

	return s, nil
}

// Encode writes s to w in format f.
func Encode(w io.Writer, s Spec, f Format) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case FormatJSON:
		data, err = json.MarshalIndent(s.object(), "", "  ")
		data = append(data, '\n')
	default:
		data, err = yaml.MarshalWithOptions(s, yaml.Indent(2), yaml.IndentSequence(true))
	}

	if err == nil {
		_, err = w.Write(data)
	}

	if err != nil {
		return ErrEncode.Wrap(err).With(slog.String("format", f.String()))
	}

	return nil
}

// object converts s to the ordered form written as JSON.
func (s Spec) object() object {
	o := object{{Key: "name", Value: s.Name}}

	if len(s.Variables) > 0 {
		o = append(o, yaml.MapItem{Key: "variables", Value: s.Variables})
	}

	if len(s.Properties) > 0 {
		o = append(o, yaml.MapItem{Key: "properties", Value: s.Properties})
	}

	if len(s.Children) > 0 {
		children := make([]object, len(s.Children))
		for i, c := range s.Children {
			children[i] = c.object()
		}

		o = append(o, yaml.MapItem{Key: "children", Value: children})
	}

	return o
}

// object is a JSON object that keeps the order of its members.
type object yaml.MapSlice

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, item := range o {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(keyString(item.Key))
		if err != nil {
			return nil, err
		}

		v, err := json.Marshal(jsonValue(item.Value))
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		return object(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}

		return out
	default:
		return v
	}
}

// plain converts the ordered maps produced by [Decode] into map[string]any
// so that nested values can be addressed by property paths.
func plain(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			m[keyString(item.Key)] = plain(item.Value)
		}

		return m

	case map[string]any:
		for k, e := range t {
			t[k] = plain(e)
		}

		return t

	case []any:
		for i, e := range t {
			t[i] = plain(e)
		}

		return t

	default:
		return v
	}
}

// ordered is the inverse of plain for writing. Map keys are sorted.
func ordered(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return sortedSlice(t)

	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ordered(e)
		}

		return out

	default:
		return v
	}
}

func sortedSlice(m map[string]any) yaml.MapSlice {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	out := make(yaml.MapSlice, 0, len(keys))
	for _, k := range keys {
		out = append(out, yaml.MapItem{Key: k, Value: ordered(m[k])})
	}

	return out
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}

	b, err := yaml.Marshal(k)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(b))
}
