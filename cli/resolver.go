package cli

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/akashmane1598/hyperdash/variable"
)

// ErrConfig is returned for a configuration file that is not valid YAML.
var ErrConfig = variable.NewError("failed to read configuration")

// resolveYAML is a [kong.ConfigurationLoader] for YAML configuration files.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolveYAML, "/path/to/config.yaml")
//
// Keys are flag names. Nested mappings are joined with hyphens, so both of
// these set --log-level:
//
//	log-level: debug
//
//	log:
//	  level: debug
//
// Underscores may be used in place of hyphens. Numbers are passed to kong as
// strings and sequences as lists. Command-line flags override config file
// values.
func resolveYAML(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}

	var raw map[string]any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ErrConfig.Wrap(err).With(slog.Int("bytes", len(data)))
	}

	cfg := make(config)
	cfg.flatten("", raw)

	return cfg, nil
}

// config implements [kong.Resolver] over a flat map of flag names.
type config map[string]any

func (r config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "-" + k
		}

		if sub, ok := v.(map[string]any); ok {
			r.flatten(key, sub)

			continue
		}

		r[key] = flagValue(v)
	}
}

// flagValue converts a decoded YAML value into a form kong can map.
func flagValue(v any) any {
	switch t := v.(type) {
	case int, int64, uint64:
		return variable.Stringify(t)

	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)

	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flagValue(e)
		}

		return out

	default:
		return v
	}
}

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}
