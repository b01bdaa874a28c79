package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akashmane1598/hyperdash/document"
)

const dashboard = `name: dashboard
variables:
  user: {name: World}
  count: 3
properties:
  title: 'Hello ${user.name}'
  size: '${count}'
children:
  - name: panel
    variables: {count: 5}
    properties:
      label: 'Panel \${literal} ${count}'
`

// commandContext returns a context whose search path holds dir and whose
// output is captured in the returned buffer.
func commandContext(t *testing.T, dir string, vars ...string) (context.Context, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	ctx, err := WithVariables(context.Background(), vars)
	if err != nil {
		t.Fatal(err)
	}

	ctx = WithSearchPath(ctx, []string{dir})
	ctx = WithOutput(ctx, &buf)

	return ctx, &buf
}

func decode(t *testing.T, data []byte) document.Spec {
	t.Helper()

	s, err := document.Decode(data)
	if err != nil {
		t.Fatalf("decode output: %v\n%s", err, data)
	}

	return s
}

func property(s document.Spec, key string) string {
	for _, item := range s.Properties {
		if item.Key == key {
			return fmt.Sprint(item.Value)
		}
	}

	return "<missing>"
}

func TestResolve_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	tests := []struct {
		name  string
		cmd   Resolve
		vars  []string
		node  string
		key   string
		want  string
		child string
	}{
		{name: "resolved", cmd: Resolve{Document: "dashboard"}, key: "title", want: "Hello World"},
		{name: "typed", cmd: Resolve{Document: "dashboard"}, key: "size", want: "3"},
		{name: "var overrides", cmd: Resolve{Document: "dashboard"}, vars: []string{"count=9"}, key: "size", want: "9"},
		{name: "shadowed child keeps own", cmd: Resolve{Document: "dashboard"}, vars: []string{"count=9"}, key: "label", want: "Panel ${literal} 5", child: "panel"},
		{name: "raw", cmd: Resolve{Document: "dashboard", Raw: true}, key: "title", want: "Hello ${user.name}"},
		{name: "node", cmd: Resolve{Document: "dashboard", Node: "panel"}, key: "label", want: "Panel ${literal} 5"},
		{name: "node with root", cmd: Resolve{Document: filepath.Join(dir, "dashboard.yaml"), Node: "dashboard/panel"}, key: "label", want: "Panel ${literal} 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := commandContext(t, dir, tt.vars...)

			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Resolve.Run() error = %v", err)
			}

			s := decode(t, out.Bytes())
			if tt.child != "" {
				if len(s.Children) == 0 || s.Children[0].Name != tt.child {
					t.Fatalf("missing child %q in %+v", tt.child, s)
				}

				s = s.Children[0]
			}

			if got := property(s, tt.key); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestResolve_Run_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	ctx, out := commandContext(t, dir)

	if err := (&Resolve{Document: "dashboard", Output: "json"}).Run(ctx); err != nil {
		t.Fatalf("Resolve.Run() error = %v", err)
	}

	var got struct {
		Name       string         `json:"name"`
		Properties map[string]any `json:"properties"`
	}

	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if got.Name != "dashboard" || got.Properties["title"] != "Hello World" {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestResolve_Run_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	tests := []struct {
		name string
		cmd  Resolve
		want error
	}{
		{"no input", Resolve{}, ErrNoInput},
		{"not found", Resolve{Document: "missing"}, document.ErrNotFound},
		{"bad node", Resolve{Document: "dashboard", Node: "nope"}, ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := commandContext(t, dir)

			if err := tt.cmd.Run(ctx); !errors.Is(err, tt.want) {
				t.Errorf("Resolve.Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolve_Run_Sources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dashboard.yaml", dashboard)

	ctx, out := commandContext(t, dir)
	ctx = WithSourceFiles(ctx, []string{path})

	if err := (&Resolve{}).Run(ctx); err != nil {
		t.Fatalf("Resolve.Run() error = %v", err)
	}

	if got := property(decode(t, out.Bytes()), "title"); got != "Hello World" {
		t.Errorf("title = %q", got)
	}
}

func TestEval_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	tests := []struct {
		name string
		cmd  Eval
		vars []string
		want string
	}{
		{
			name: "vars only",
			cmd:  Eval{Expression: []string{"Hello ${name}!", `\${name}`}},
			vars: []string{"name=World"},
			want: "Hello World!\n${name}\n",
		},
		{
			name: "deps",
			cmd:  Eval{Expression: []string{"${a}-${b}", "plain"}, Deps: true},
			vars: []string{"a=1", "b=2"},
			want: "1-2\t# a, b\nplain\n",
		},
		{
			name: "document root",
			cmd:  Eval{Expression: []string{"${count} ${user.name}"}, Document: "dashboard"},
			want: "3 World\n",
		},
		{
			name: "document node",
			cmd:  Eval{Expression: []string{"${count} ${user.name}"}, Document: "dashboard", Node: "panel"},
			want: "5 World\n",
		},
		{
			name: "var overrides document",
			cmd:  Eval{Expression: []string{"${user.name}"}, Document: "dashboard", Node: "panel"},
			vars: []string{`user={"name": "Gopher"}`},
			want: "Gopher\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := commandContext(t, dir, tt.vars...)

			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Eval.Run() error = %v", err)
			}

			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEval_Run_Failure(t *testing.T) {
	ctx, out := commandContext(t, t.TempDir(), "a=1")

	err := (&Eval{Expression: []string{"${a}", "${missing}"}}).Run(ctx)
	if !errors.Is(err, ErrEvaluate) {
		t.Fatalf("Eval.Run() error = %v, want %v", err, ErrEvaluate)
	}

	if got := out.String(); got != "1\n\n" {
		t.Errorf("output = %q", got)
	}
}

func TestEval_Run_JSON(t *testing.T) {
	ctx, out := commandContext(t, t.TempDir(), "a=5")

	if err := (&Eval{Expression: []string{"${a}"}, Output: "json"}).Run(ctx); err != nil {
		t.Fatalf("Eval.Run() error = %v", err)
	}

	var got []evaluation
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if len(got) != 1 || got[0].Value != float64(5) || got[0].Depends[0] != "a" {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestEval_Run_Sources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "exprs.txt", "${a}\n\n  \n${a}${a}\n")

	ctx, out := commandContext(t, dir, "a=x")
	ctx = WithSourceFiles(ctx, []string{path})

	if err := (&Eval{}).Run(ctx); err != nil {
		t.Fatalf("Eval.Run() error = %v", err)
	}

	if got := out.String(); got != "x\nxx\n" {
		t.Errorf("output = %q", got)
	}

	ctx, _ = commandContext(t, dir)
	if err := (&Eval{}).Run(ctx); !errors.Is(err, ErrNoInput) {
		t.Errorf("Eval.Run() without input error = %v, want %v", err, ErrNoInput)
	}
}

func TestParse_Run(t *testing.T) {
	ctx, out := commandContext(t, t.TempDir())

	if err := (&Parse{Expression: []string{"Hello ${name}!"}}).Run(ctx); err != nil {
		t.Fatalf("Parse.Run() error = %v", err)
	}

	want := strings.Join([]string{
		`root [0:14] "Hello ${name}!"`,
		`  text [0:6] "Hello "`,
		`  expression [6:13] "${name}"`,
		`    text [8:12] "name"`,
		`  text [13:14] "!"`,
		``,
	}, "\n")

	if got := out.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestParse_Run_Error(t *testing.T) {
	ctx, out := commandContext(t, t.TempDir())

	if err := (&Parse{Expression: []string{"${a"}}).Run(ctx); err != nil {
		t.Fatalf("Parse.Run() error = %v", err)
	}

	if !strings.Contains(out.String(), "error=") {
		t.Errorf("expected parse error in output:\n%s", out)
	}
}

func TestParse_Run_JSON(t *testing.T) {
	ctx, out := commandContext(t, t.TempDir())

	if err := (&Parse{Expression: []string{"${a}"}, Output: "json"}).Run(ctx); err != nil {
		t.Fatalf("Parse.Run() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if got["type"] != "root" || got["length"] != float64(4) {
		t.Errorf("unexpected output: %v", got)
	}
}

func TestFmt_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	ctx, out := commandContext(t, dir)

	if err := (&Fmt{Document: "dashboard"}).Run(ctx); err != nil {
		t.Fatalf("Fmt.Run() error = %v", err)
	}

	s := decode(t, out.Bytes())

	if got := property(s, "title"); got != "Hello ${user.name}" {
		t.Errorf("title = %q, want expression", got)
	}

	if len(s.Variables) != 2 || len(s.Children) != 1 {
		t.Errorf("unexpected document: %+v", s)
	}
}

func TestFmt_Run_Write(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dashboard.json", `{"name": "d", "variables": {"a": 1}, "properties": {"p": "${a}"}}`)

	ctx, out := commandContext(t, dir)

	if err := (&Fmt{Document: path, Write: true}).Run(ctx); err != nil {
		t.Fatalf("Fmt.Run() error = %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("rewritten file is not JSON: %v\n%s", err, data)
	}

	if props, _ := got["properties"].(map[string]any); props["p"] != "${a}" {
		t.Errorf("unexpected document: %s", data)
	}
}

func TestFmt_Run_WriteWithoutFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dashboard.yaml", dashboard)

	ctx, _ := commandContext(t, dir)
	ctx = WithSourceFiles(ctx, []string{path})

	if err := (&Fmt{Write: true}).Run(ctx); !errors.Is(err, ErrWriteDocument) {
		t.Errorf("Fmt.Run() error = %v, want %v", err, ErrWriteDocument)
	}
}

func TestSession_Scope(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dashboard.yaml", dashboard)

	ctx, _ := commandContext(t, dir)

	s := newSession()
	if err := s.open(ctx, "dashboard"); err != nil {
		t.Fatal(err)
	}

	defer s.close()

	panel, err := s.scope("panel")
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"dashboard/panel", "/panel/"} {
		if got, err := s.scope(path); err != nil || got != panel {
			t.Errorf("scope(%q) = %v, %v; want %v", path, got, err, panel)
		}
	}

	for _, path := range []string{"", "dashboard"} {
		if got, _ := s.scope(path); got != s.root {
			t.Errorf("scope(%q) = %v, want root", path, got)
		}
	}
}
