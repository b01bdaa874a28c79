package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/akashmane1598/hyperdash/variable"
)

// Parse prints the parse trees of expressions.
type Parse struct {
	Expression []string `arg:"" help:"Expressions to parse." name:"expression"`
	Output     string   `help:"Output format."       short:"o" default:"tree" enum:"tree,json,yaml"`
}

// Run executes the parse command.
func (p *Parse) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	w := outputFrom(ctx)

	for _, src := range p.Expression {
		tree := variable.NewParser(src).Parse()

		switch p.Output {
		case "json":
			err = writeJSON(w, tree)
		case "yaml":
			err = writeYAML(w, tree)
		default:
			err = printTree(w, src, tree, 0)
		}

		if err != nil {
			return ErrEncode.Wrap(err).With(
				slog.String("format", p.Output),
				slog.String("expression", src),
			)
		}
	}

	return nil
}

// printTree writes one line per node: type, byte range and covered text.
func printTree(w io.Writer, src string, n *variable.Node, depth int) error {
	line := fmt.Sprintf("%s%s [%d:%d] %q",
		strings.Repeat("  ", depth), n.Type, n.Start, n.End(), n.Text(src))

	if n.Err != "" {
		line += " error=" + fmt.Sprintf("%q", n.Err)
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	for _, c := range n.Children {
		if err := printTree(w, src, c, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}
