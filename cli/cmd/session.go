package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/akashmane1598/hyperdash/document"
	"github.com/akashmane1598/hyperdash/log"
	"github.com/akashmane1598/hyperdash/model"
	"github.com/akashmane1598/hyperdash/variable"
)

// rootName names the scope created for --var assignments when no document
// is loaded.
const rootName = "root"

// session is the engine state a command works on.
type session struct {
	events *model.Events
	tree   *model.Tree
	mgr    *variable.Manager
	doc    *document.Document
	path   string
	root   model.Scope
}

func newSession() *session {
	events := model.NewEvents()
	tree := model.NewTree(events)

	return &session{
		events: events,
		tree:   tree,
		mgr: variable.NewManager(tree, events, events,
			variable.WithLogger(log.Default()),
		),
	}
}

// open loads the document named by name into s and applies the --var
// assignments of ctx. An empty name reads the --source inputs; "-" reads
// stdin.
func (s *session) open(ctx context.Context, name string) error {
	var (
		doc  *document.Document
		err  error
		opts = []document.Option{document.WithLogger(log.Default())}
	)

	switch name {
	case stdinSource:
		doc, err = document.Load(ctx, os.Stdin, s.tree, s.mgr, opts...)

	case "":
		src := sourceFilesFrom(ctx)
		if src == nil {
			return ErrNoInput
		}

		doc, err = document.Load(ctx, src, s.tree, s.mgr, opts...)

	default:
		var path string

		path, err = document.Find(name, searchPathFrom(ctx)...)
		if err != nil {
			return err
		}

		log.DebugContext(ctx, "open document", slog.String("path", path))

		s.path = path

		doc, err = document.LoadFile(ctx, path, s.tree, s.mgr, opts...)
	}

	if err != nil {
		return err
	}

	s.doc = doc
	s.root = doc.Root.Scope

	return s.assign(ctx)
}

// bare creates an empty root scope and applies the --var assignments of ctx.
func (s *session) bare(ctx context.Context) error {
	root, err := s.tree.Create(rootName, 0)
	if err != nil {
		return err
	}

	s.root = root

	return s.assign(ctx)
}

func (s *session) assign(ctx context.Context) error {
	for _, a := range variablesFrom(ctx) {
		if err := s.mgr.Set(a.Key, a.Value, s.root); err != nil {
			return err
		}

		log.DebugContext(ctx, "assign variable",
			slog.String("key", a.Key),
			slog.Any("value", a.Value),
		)
	}

	return nil
}

// scope returns the scope addressed by path. Paths are relative to the root
// node, so both "" and the root's own name address the root.
func (s *session) scope(path string) (model.Scope, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return s.root, nil
	}

	rootPath := s.tree.Path(s.root)

	for _, p := range []string{path, rootPath + "/" + path} {
		if scope, ok := s.tree.Find(p); ok && (scope == s.root || s.tree.IsAncestor(scope, s.root)) {
			return scope, nil
		}
	}

	return 0, ErrNodeNotFound.With(slog.String("path", path))
}

// node returns the document node addressed by path, see [session.scope].
func (s *session) node(path string) (*document.Node, error) {
	scope, err := s.scope(path)
	if err != nil {
		return nil, err
	}

	var found *document.Node

	if s.doc != nil {
		s.doc.Walk(func(n *document.Node) bool {
			if n.Scope == scope {
				found = n
			}

			return found == nil
		})
	}

	if found == nil {
		return nil, ErrNodeNotFound.With(slog.String("path", path))
	}

	return found, nil
}

func (s *session) close() error {
	if s.doc != nil {
		return s.doc.Close()
	}

	if s.root.IsZero() {
		return nil
	}

	err := s.tree.Destroy(s.root)
	s.mgr.Forget(s.root)

	return err
}
