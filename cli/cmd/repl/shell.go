package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/akashmane1598/hyperdash/document"
	"github.com/akashmane1598/hyperdash/log"
	hmodel "github.com/akashmane1598/hyperdash/model"
	"github.com/akashmane1598/hyperdash/variable"
)

// commandInfo describes one control-mode command.
type commandInfo struct {
	name string
	args string
	help string
}

// commands lists the control-mode commands in help order.
var commands = []commandInfo{
	{"set", "KEY VALUE", "Set a variable in the current scope"},
	{"get", "KEY", "Print the nearest value of a variable"},
	{"vars", "", "List the variables visible from the current scope"},
	{"ref", "NAME EXPR", "Bind an expression to a property of the current scope"},
	{"unref", "NAME", "Remove the reference bound to a property"},
	{"refs", "", "List the references of the current scope"},
	{"cd", "[PATH]", "Change the current scope (.. for parent, / for root)"},
	{"pwd", "", "Print the path of the current scope"},
	{"new", "NAME", "Create a child scope and enter it"},
	{"destroy", "[PATH]", "Destroy a scope and everything under it"},
	{"tree", "", "Print the scope tree"},
	{"show", "[raw]", "Print the document node of the current scope"},
	{"edit", "", "Edit the document in $EDITOR"},
	{"help", "", "Print this help"},
	{"clear", "", "Clear the screen"},
	{"quit", "", "Exit the REPL"},
}

// commandNames returns the names of the control-mode commands.
func commandNames() []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}

	return names
}

// shell executes REPL input against a variable manager. It tracks the
// current scope and the property bags of scopes that are not document nodes.
//
// A shell is not safe for concurrent use.
type shell struct {
	tree    *hmodel.Tree
	mgr     *variable.Manager
	doc     *document.Document
	logger  log.Logger
	parse   func(string) any
	root    hmodel.Scope
	current hmodel.Scope
	bags    map[hmodel.Scope]*hmodel.Properties
	sub     hmodel.Subscription
}

func newShell(cfg Config) *shell {
	s := &shell{
		tree:    cfg.Tree,
		mgr:     cfg.Manager,
		doc:     cfg.Document,
		logger:  cfg.Logger,
		parse:   cfg.ParseValue,
		root:    cfg.Root,
		current: cfg.Root,
		bags:    make(map[hmodel.Scope]*hmodel.Properties),
	}

	if s.parse == nil {
		s.parse = func(v string) any { return v }
	}

	if cfg.Events != nil {
		s.sub = cfg.Events.OnDestroyed(s.destroyed)
	}

	return s
}

// close stops listening for destroyed scopes.
func (s *shell) close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

func (s *shell) destroyed(scope hmodel.Scope) {
	s.mgr.Forget(scope)
	delete(s.bags, scope)

	if scope == s.current {
		s.current = s.root
	}
}

// eval evaluates line as an expression in the current scope.
func (s *shell) eval(line string) (string, error) {
	res := variable.NewEvaluator(line).Evaluate(s.mgr.Dictionary(s.current))
	if !res.OK() {
		return "", ErrEvaluate.With(slog.String("reason", res.Err))
	}

	return formatValue(res.Value), nil
}

// exec runs one control-mode command. The REPL itself handles edit, clear
// and quit.
func (s *shell) exec(line string) (string, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	s.logger.Trace("repl exec command",
		slog.String("command", name),
		slog.Any("args", args),
	)

	switch name {
	case "h", "help", "?":
		return helpMessage(), nil

	case "set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return "", usage(name)
		}

		v := s.parse(strings.TrimSpace(value))
		if err := s.mgr.Set(key, v, s.current); err != nil {
			return "", err
		}

		return key + " = " + formatValue(v), nil

	case "get":
		if len(args) != 1 {
			return "", usage(name)
		}

		v, ok := s.mgr.Get(args[0], s.current)
		if !ok {
			return "", ErrUndefined.With(slog.String("key", args[0]))
		}

		return formatValue(v), nil

	case "vars":
		return s.vars(), nil

	case "ref":
		key, expr, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return "", usage(name)
		}

		v, err := s.mgr.RegisterReference(s.bag(s.current).Location(key), strings.TrimSpace(expr))
		if err != nil {
			return "", err
		}

		return key + " = " + formatValue(v), nil

	case "unref":
		if len(args) != 1 {
			return "", usage(name)
		}

		loc, ok := s.property(s.current, args[0])
		if !ok {
			return "", ErrNoProperty.With(slog.String("name", args[0]))
		}

		expr, err := s.mgr.DeregisterReference(loc)
		if err != nil {
			return "", err
		}

		return args[0] + " = " + formatValue(loc.Get()) + "  (was " + expr + ")", nil

	case "refs":
		return s.refs(), nil

	case "cd":
		target, err := s.resolve(rest)
		if err != nil {
			return "", err
		}

		s.current = target

		return s.tree.Path(target), nil

	case "pwd":
		return s.tree.Path(s.current), nil

	case "new":
		if len(args) != 1 {
			return "", usage(name)
		}

		scope, err := s.tree.Create(args[0], s.current)
		if err != nil {
			return "", ErrScope.Wrap(err).With(slog.String("name", args[0]))
		}

		s.current = scope

		return s.tree.Path(scope), nil

	case "destroy":
		return s.destroy(rest)

	case "tree":
		return s.treeView(), nil

	case "show":
		return s.show(rest == "raw")

	default:
		return "", ErrUnknownCommand.With(slog.String("command", name))
	}
}

func usage(name string) error {
	i := slices.IndexFunc(commands, func(c commandInfo) bool { return c.name == name })

	return ErrUsage.With(slog.String("usage", strings.TrimSpace(name+" "+commands[i].args)))
}

// bag returns the property bag of scope: the document node's properties if
// scope is part of the document, or a bag owned by the shell.
func (s *shell) bag(scope hmodel.Scope) *hmodel.Properties {
	if n := s.node(scope); n != nil {
		return n.Properties
	}

	b, ok := s.bags[scope]
	if !ok {
		b = hmodel.NewProperties(scope)
		s.bags[scope] = b
	}

	return b
}

// property returns the location of an existing property of scope.
func (s *shell) property(scope hmodel.Scope, key string) (*hmodel.Location, bool) {
	b := s.bag(scope)
	if _, ok := b.Get(key); !ok {
		return nil, false
	}

	return b.Location(key), true
}

func (s *shell) node(scope hmodel.Scope) *document.Node {
	if s.doc == nil || s.doc.Root == nil {
		return nil
	}

	var found *document.Node

	s.doc.Walk(func(n *document.Node) bool {
		if n.Scope == scope {
			found = n
		}

		return found == nil
	})

	return found
}

// resolve returns the scope addressed by path relative to the current
// scope. An empty path or "/" is the root; a leading "/" makes path
// relative to the root.
func (s *shell) resolve(path string) (hmodel.Scope, error) {
	scope := s.current

	if path == "" || strings.HasPrefix(path, "/") {
		scope = s.root
	}

	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		switch part {
		case "", ".":
			continue

		case "..":
			if p, ok := s.tree.Parent(scope); ok && scope != s.root {
				scope = p
			}

		default:
			next, ok := s.child(scope, part)
			if !ok {
				return 0, ErrScope.Wrap(hmodel.ErrUnknownScope).With(slog.String("path", path))
			}

			scope = next
		}
	}

	return scope, nil
}

func (s *shell) child(scope hmodel.Scope, name string) (hmodel.Scope, bool) {
	for _, c := range s.tree.Children(scope) {
		if s.tree.Name(c) == name {
			return c, true
		}
	}

	return 0, false
}

func (s *shell) destroy(path string) (string, error) {
	target := s.current

	if path != "" {
		var err error

		target, err = s.resolve(path)
		if err != nil {
			return "", err
		}
	}

	if target == s.root {
		return "", ErrScope.With(slog.String("reason", "cannot destroy the root scope"))
	}

	name := s.tree.Path(target)
	parent, _ := s.tree.Parent(target)

	if s.current == target || s.tree.IsAncestor(s.current, target) {
		s.current = parent
	}

	var err error

	if n := s.node(target); n != nil {
		err = s.doc.Remove(n)
	} else {
		err = s.tree.Destroy(target)
	}

	if err != nil {
		return "", ErrScope.Wrap(err).With(slog.String("path", name))
	}

	return "destroyed " + name, nil
}

// definedIn returns the nearest scope defining key, walking up from scope.
func (s *shell) definedIn(key string, scope hmodel.Scope) hmodel.Scope {
	for {
		if d, ok := s.mgr.Local(scope); ok {
			if _, ok := d.Get(key); ok {
				return scope
			}
		}

		p, ok := s.tree.Parent(scope)
		if !ok {
			return 0
		}

		scope = p
	}
}

func (s *shell) vars() string {
	var b strings.Builder

	dict := s.mgr.Dictionary(s.current)

	for _, k := range s.mgr.Keys(s.current) {
		fmt.Fprintf(&b, "  %s = %s %s\n", k, formatValue(dict[k]),
			hintStyle.Render(s.tree.Path(s.definedIn(k, s.current))))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (s *shell) refs() string {
	var b strings.Builder

	for _, loc := range s.mgr.References(s.current) {
		ref, ok := s.mgr.Reference(loc)
		if !ok {
			continue
		}

		l, _ := loc.(*hmodel.Location)

		var value any
		if l != nil {
			value = l.Get()
		}

		fmt.Fprintf(&b, "  %s = %s %s\n", loc, formatValue(value),
			hintStyle.Render(ref.Expression()))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (s *shell) treeView() string {
	var b strings.Builder

	var walk func(scope hmodel.Scope, depth int)

	walk = func(scope hmodel.Scope, depth int) {
		marker := "  "
		if scope == s.current {
			marker = "* "
		}

		vars := 0
		if d, ok := s.mgr.Local(scope); ok {
			vars = d.Len()
		}

		fmt.Fprintf(&b, "%s%s%s %s\n", marker, strings.Repeat("  ", depth),
			s.tree.Name(scope), hintStyle.Render(fmt.Sprintf("(%d vars, %d refs)",
				vars, len(s.mgr.References(scope)))))

		for _, c := range s.tree.Children(scope) {
			walk(c, depth+1)
		}
	}

	walk(s.root, 0)

	return strings.TrimRight(b.String(), "\n")
}

func (s *shell) show(raw bool) (string, error) {
	n := s.node(s.current)
	if n == nil {
		return "", ErrNoDocument.With(slog.String("scope", s.tree.Path(s.current)))
	}

	spec := s.doc.ResolvedOf(n)
	if raw {
		spec = s.doc.SpecOf(n)
	}

	var buf bytes.Buffer
	if err := document.Encode(&buf, spec, document.FormatYAML); err != nil {
		return "", err
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

// replace closes the document and builds spec in its place. The previous
// document is rebuilt if spec fails to build.
func (s *shell) replace(ctx context.Context, spec document.Spec) error {
	if s.doc == nil || s.doc.Root == nil {
		return ErrNoDocument
	}

	prev := s.doc.Spec()

	if err := s.doc.Close(); err != nil {
		return err
	}

	doc, err := document.Build(ctx, spec, s.tree, s.mgr, document.WithLogger(s.logger))
	if err != nil {
		restored, restoreErr := document.Build(ctx, prev, s.tree, s.mgr,
			document.WithLogger(s.logger))
		if restoreErr != nil {
			return errors.Join(err, restoreErr)
		}

		doc = restored
	}

	s.doc = doc
	s.root = doc.Root.Scope
	s.current = s.root

	s.logger.DebugContext(ctx, "repl document replaced",
		slog.String("root", doc.Root.Name),
		slog.Bool("restored", err != nil),
	)

	return err
}

// formatValue renders v for display. Strings are quoted so they can be told
// apart from numbers and booleans.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "undefined"

	case string:
		return strconv.Quote(t)

	case map[string]any, []any:
		data, err := yaml.MarshalWithOptions(t, yaml.Flow(true))
		if err != nil {
			return fmt.Sprint(t)
		}

		return strings.TrimSpace(string(data))

	default:
		return variable.Stringify(t)
	}
}
