package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"
)

func TestResolveYAML(t *testing.T) {
	const src = `
log-level: debug
log:
  format: text
  pretty: false
pprof_mode: cpu
path: [./docs, 7]
depth: 64
ratio: 0.5
`

	r, err := resolveYAML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("resolveYAML: %v", err)
	}

	want := config{
		"log-level":  "debug",
		"log-format": "text",
		"log-pretty": false,
		"pprof_mode": "cpu",
		"path":       []any{"./docs", "7"},
		"depth":      "64",
		"ratio":      "0.5",
	}

	if diff := cmp.Diff(want, r.(config)); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveYAML_Invalid(t *testing.T) {
	if _, err := resolveYAML(strings.NewReader("log: [unclosed")); !errors.Is(err, ErrConfig) {
		t.Errorf("resolveYAML error = %v, want ErrConfig", err)
	}
}

func TestResolveYAML_Empty(t *testing.T) {
	r, err := resolveYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("resolveYAML: %v", err)
	}

	if len(r.(config)) != 0 {
		t.Errorf("config = %v, want empty", r)
	}
}

func TestConfig_Resolve(t *testing.T) {
	cfg := config{
		"log-level":  "warn",
		"pprof_mode": "heap",
	}

	tests := []struct {
		flag string
		want any
	}{
		{"log-level", "warn"},
		{"pprof-mode", "heap"},
		{"source", nil},
	}

	for _, tt := range tests {
		got, err := cfg.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: tt.flag}})
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q) = (%v, %v), want %v", tt.flag, got, err, tt.want)
		}
	}
}

// TestResolveYAML_Kong checks that values from the configuration file reach the
// parsed flags and that command-line flags override them.
func TestResolveYAML_Kong(t *testing.T) {
	var cli struct {
		Level string   `name:"log-level" default:"info"`
		Path  []string `name:"path"`
	}

	r, err := resolveYAML(strings.NewReader("log: {level: debug}\npath: [a, b]\n"))
	if err != nil {
		t.Fatal(err)
	}

	parser, err := kong.New(&cli, kong.Resolvers(r), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := parser.Parse(nil); err != nil {
		t.Fatal(err)
	}

	if cli.Level != "debug" || !cmp.Equal(cli.Path, []string{"a", "b"}) {
		t.Errorf("from config: level = %q, path = %v", cli.Level, cli.Path)
	}

	if _, err := parser.Parse([]string{"--log-level=error"}); err != nil {
		t.Fatal(err)
	}

	if cli.Level != "error" {
		t.Errorf("flag override: level = %q, want error", cli.Level)
	}
}
