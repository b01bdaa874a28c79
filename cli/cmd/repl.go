package cmd

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/akashmane1598/hyperdash/cli/cmd/repl"
	"github.com/akashmane1598/hyperdash/log"
)

// historyFile is the name of the REPL history file in the cache directory.
const historyFile = "history.utf8"

// Repl starts an interactive session on a document, or on an empty root
// scope when no document is given.
type Repl struct {
	Document string `arg:"" help:"Document name or path, or '-' for stdin. Reads --source when given." name:"document" optional:""`
	History  bool   `help:"Persist input history in the cache directory." default:"true" negatable:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := newSession()

	defer func() { err = errors.Join(err, s.close()) }()

	if r.Document == "" && sourceFilesFrom(ctx) == nil {
		err = s.bare(ctx)
	} else {
		err = s.open(ctx, r.Document)
	}

	if err != nil {
		return err
	}

	cfg := repl.Config{
		Tree:       s.tree,
		Events:     s.events,
		Manager:    s.mgr,
		Document:   s.doc,
		Root:       s.root,
		Logger:     log.Default(),
		ParseValue: ParseValue,
	}

	if ktx := kongContextFrom(ctx); r.History && ktx != nil {
		if dir := ktx.Model.Vars()[CacheIdentifier]; dir != "" {
			cfg.History = filepath.Join(dir, historyFile)
		}
	}

	log.DebugContext(ctx, "start repl",
		slog.String("document", s.path),
		slog.String("history", cfg.History),
	)

	return repl.Run(ctx, cfg)
}
