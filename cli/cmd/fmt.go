package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/akashmane1598/hyperdash/document"
	"github.com/akashmane1598/hyperdash/log"
)

// Fmt loads a document and writes it back in canonical form. Variables and
// properties keep their order, and expressions are written as they were
// registered.
type Fmt struct {
	Document string `arg:"" help:"Document name or path, or '-' for stdin. Reads --source when omitted." name:"document" optional:""`
	Output   string `help:"Output format. Defaults to the format of the document file, or YAML."          short:"o" enum:"yaml,json," default:""`
	Write    bool   `help:"Write the result back to the document file instead of stdout."                 short:"w"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := newSession()

	defer func() { err = errors.Join(err, s.close()) }()

	if err = s.open(ctx, f.Document); err != nil {
		return err
	}

	format := document.FormatYAML

	switch {
	case f.Output != "":
		format = document.ParseFormat(f.Output)
	case s.path != "":
		format = document.FormatOf(s.path)
	}

	if !f.Write {
		return s.doc.Save(outputFrom(ctx), format)
	}

	if s.path == "" {
		return ErrWriteDocument.With(slog.String("document", f.Document),
			slog.String("reason", "input is not a file"))
	}

	var buf bytes.Buffer

	if err = s.doc.Save(&buf, format); err != nil {
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return ErrWriteDocument.Wrap(err).With(slog.String("path", s.path))
	}

	if err = os.WriteFile(s.path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return ErrWriteDocument.Wrap(err).With(slog.String("path", s.path))
	}

	log.DebugContext(ctx, "formatted document",
		slog.String("path", s.path),
		slog.String("format", format.String()),
	)

	return nil
}
