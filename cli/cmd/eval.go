package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/akashmane1598/hyperdash/log"
	"github.com/akashmane1598/hyperdash/variable"
)

// Eval evaluates expressions against the variables visible from one node of
// a document, or from the --var assignments alone.
type Eval struct {
	Expression []string `arg:"" help:"Expressions to evaluate. Reads one per line from --source when omitted." name:"expression" optional:""`
	Document   string   `help:"Document supplying variables."                                                 short:"d"`
	Node       string   `help:"Node path whose scope chain supplies variables."                               short:"n"`
	Output     string   `help:"Output format."                                                                short:"o" default:"text" enum:"text,json,yaml"`
	Deps       bool     `help:"Print the variables each expression depends on."`
}

// evaluation is one evaluated expression as written by json and yaml output.
type evaluation struct {
	Expression string   `json:"expression"        yaml:"expression"`
	Value      any      `json:"value"             yaml:"value"`
	Err        string   `json:"error,omitempty"   yaml:"error,omitempty"`
	Depends    []string `json:"depends,omitempty" yaml:"depends,omitempty"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	exprs, err := e.expressions(ctx)
	if err != nil {
		return err
	}

	s := newSession()

	defer func() { err = errors.Join(err, s.close()) }()

	if e.Document != "" {
		err = s.open(ctx, e.Document)
	} else {
		err = s.bare(ctx)
	}

	if err != nil {
		return err
	}

	scope, err := s.scope(e.Node)
	if err != nil {
		return err
	}

	dict := s.mgr.Dictionary(scope)
	out := make([]evaluation, 0, len(exprs))
	failed := 0

	for _, src := range exprs {
		ev := variable.NewEvaluator(src)
		res := ev.Evaluate(dict)

		if !res.OK() {
			failed++

			log.ErrorContext(ctx, "evaluate",
				slog.String("expression", src),
				slog.String("error", res.Err),
			)
		}

		out = append(out, evaluation{
			Expression: src,
			Value:      res.Value,
			Err:        res.Err,
			Depends:    ev.Names(),
		})
	}

	if err = e.write(outputFrom(ctx), out); err != nil {
		return err
	}

	if failed > 0 {
		return ErrEvaluate.With(
			slog.Int("failed", failed),
			slog.Int("total", len(exprs)),
		)
	}

	return nil
}

// expressions returns the positional expressions, or the non-blank lines of
// the --source inputs when none are given.
func (e *Eval) expressions(ctx context.Context) ([]string, error) {
	if len(e.Expression) > 0 {
		return e.Expression, nil
	}

	src := sourceFilesFrom(ctx)
	if src == nil {
		return nil, ErrNoInput
	}

	var exprs []string

	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			exprs = append(exprs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(exprs) == 0 {
		return nil, ErrNoInput
	}

	return exprs, nil
}

func (e *Eval) write(w io.Writer, out []evaluation) error {
	var (
		data []byte
		err  error
	)

	switch e.Output {
	case "json":
		data, err = json.MarshalIndent(out, "", "  ")
		data = append(data, '\n')

	case "yaml":
		data, err = yaml.MarshalWithOptions(out, yaml.Indent(2), yaml.IndentSequence(true))

	default:
		var sb strings.Builder

		for _, ev := range out {
			sb.WriteString(variable.Stringify(ev.Value))

			if e.Deps && len(ev.Depends) > 0 {
				fmt.Fprintf(&sb, "\t# %s", strings.Join(ev.Depends, ", "))
			}

			sb.WriteByte('\n')
		}

		data = []byte(sb.String())
	}

	if err == nil {
		_, err = w.Write(data)
	}

	if err != nil {
		return ErrEncode.Wrap(err).With(slog.String("format", e.Output))
	}

	return nil
}
