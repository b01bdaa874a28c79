package cmd

import (
	"context"
	"errors"

	"github.com/akashmane1598/hyperdash/document"
)

// Resolve loads a document, applies the --var assignments and prints it with
// every property replaced by its resolved value.
type Resolve struct {
	Document string `arg:"" help:"Document name or path, or '-' for stdin. Reads --source when omitted." name:"document" optional:""`
	Node     string `help:"Print only the subtree at this node path."                                      short:"n"`
	Output   string `help:"Output format."                                                                 short:"o" default:"yaml" enum:"yaml,json"`
	Raw      bool   `help:"Print properties as written, with expressions unresolved."`
}

// Run executes the resolve command.
func (r *Resolve) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := newSession()

	defer func() { err = errors.Join(err, s.close()) }()

	if err = s.open(ctx, r.Document); err != nil {
		return err
	}

	n, err := s.node(r.Node)
	if err != nil {
		return err
	}

	spec := s.doc.ResolvedOf(n)
	if r.Raw {
		spec = s.doc.SpecOf(n)
	}

	return document.Encode(outputFrom(ctx), spec, document.ParseFormat(r.Output))
}
