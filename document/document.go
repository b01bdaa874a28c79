package document

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/akashmane1598/hyperdash/log"
	"github.com/akashmane1598/hyperdash/model"
	"github.com/akashmane1598/hyperdash/variable"
)

// Node is one model node of a loaded document.
type Node struct {
	Name       string
	Scope      model.Scope
	Properties *model.Properties
	Children   []*Node

	// nested records the key order of map-valued properties.
	nested map[string][]string
}

// Document is a tree of nodes whose properties are bound to the variables
// of a [variable.Manager].
type Document struct {
	Root *Node

	tree   *model.Tree
	mgr    *variable.Manager
	logger log.Logger
	de     variable.Deserializer
	ser    variable.Serializer
}

// Load reads a YAML or JSON document from r and builds it into tree.
func Load(
	ctx context.Context,
	r io.Reader,
	tree *model.Tree,
	mgr *variable.Manager,
	opts ...Option,
) (*Document, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	spec, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return Build(ctx, spec, tree, mgr, opts...)
}

// LoadFile opens path and loads it with [Load].
func LoadFile(
	ctx context.Context,
	path string,
	tree *model.Tree,
	mgr *variable.Manager,
	opts ...Option,
) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	return Load(ctx, f, tree, mgr, opts...)
}

// Build creates a new root in tree for spec and its descendants. Variables
// of each node are set before its properties are bound, so a property may
// refer to any variable of its own node or an ancestor.
//
// Property strings containing ${...} expressions are registered as
// references; every other value is stored as is.
func Build(
	ctx context.Context,
	spec Spec,
	tree *model.Tree,
	mgr *variable.Manager,
	opts ...Option,
) (*Document, error) {
	d := &Document{
		tree: tree,
		mgr:  mgr,
		de:   variable.NewDeserializer(mgr),
		ser:  variable.NewSerializer(mgr),
	}

	applyOptions(d, opts...)

	root, err := d.build(ctx, spec, 0)
	if err != nil {
		if root != nil {
			d.Root = root
			_ = d.Close()
		}

		return nil, err
	}

	d.Root = root

	return d, nil
}

func (d *Document) build(ctx context.Context, spec Spec, parent model.Scope) (*Node, error) {
	scope, err := d.tree.Create(spec.Name, parent)
	if err != nil {
		return nil, ErrBuild.Wrap(err).With(slog.String("name", spec.Name))
	}

	n := &Node{
		Name:       spec.Name,
		Scope:      scope,
		Properties: model.NewProperties(scope),
		nested:     make(map[string][]string),
	}

	d.logger.DebugContext(ctx, "build node",
		slog.String("path", d.tree.Path(scope)),
		slog.Int("variables", len(spec.Variables)),
		slog.Int("properties", len(spec.Properties)),
	)

	for _, item := range spec.Variables {
		key := keyString(item.Key)

		if err := d.mgr.Set(key, plain(item.Value), scope); err != nil {
			return n, ErrBuild.Wrap(err).With(
				slog.String("path", d.tree.Path(scope)),
				slog.String("variable", key),
			)
		}
	}

	for _, item := range spec.Properties {
		key := keyString(item.Key)

		if err := d.bind(n, key, item.Value); err != nil {
			return n, ErrBuild.Wrap(err).With(
				slog.String("path", d.tree.Path(scope)),
				slog.String("property", key),
			)
		}
	}

	for _, cs := range spec.Children {
		child, err := d.build(ctx, cs, scope)
		if child != nil {
			n.Children = append(n.Children, child)
		}

		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// bind stores a property value, registering references for expressions.
// One level of map nesting is supported; deeper values are stored as is.
func (d *Document) bind(n *Node, key string, value any) error {
	loc := n.Properties.Location(key)

	if nested, ok := value.(yaml.MapSlice); ok {
		m := make(map[string]any, len(nested))
		keys := make([]string, 0, len(nested))

		n.Properties.Put(key, m)

		for _, item := range nested {
			ck := keyString(item.Key)
			keys = append(keys, ck)

			if d.de.CanDeserialize(item.Value) {
				if _, err := d.de.Deserialize(item.Value.(string), loc.Child(m, ck)); err != nil {
					return err
				}

				continue
			}

			m[ck] = plain(item.Value)
		}

		n.nested[key] = keys

		return nil
	}

	if d.de.CanDeserialize(value) {
		_, err := d.de.Deserialize(value.(string), loc)

		return err
	}

	return loc.Set(plain(value))
}

// Walk calls fn for every node in depth-first order until fn returns false.
func (d *Document) Walk(fn func(*Node) bool) {
	if d.Root != nil {
		d.Root.walk(fn)
	}
}

func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}

	for _, c := range n.Children {
		if !c.walk(fn) {
			return false
		}
	}

	return true
}

// Find returns the node at path, a "/"-separated list of node names
// starting with the root's.
func (d *Document) Find(path string) (*Node, bool) {
	scope, ok := d.tree.Find(strings.Trim(path, "/"))
	if !ok {
		return nil, false
	}

	var found *Node

	d.Walk(func(n *Node) bool {
		if n.Scope == scope {
			found = n
		}

		return found == nil
	})

	return found, found != nil
}

// Spec returns the document in source form: properties bound to references
// are written as their expressions.
func (d *Document) Spec() Spec { return d.spec(d.Root, true) }

// Resolved returns the document with every property replaced by its
// current value.
func (d *Document) Resolved() Spec { return d.spec(d.Root, false) }

// SpecOf returns n and its descendants in source form.
func (d *Document) SpecOf(n *Node) Spec { return d.spec(n, true) }

// ResolvedOf returns n and its descendants with current values.
func (d *Document) ResolvedOf(n *Node) Spec { return d.spec(n, false) }

// Save writes [Document.Spec] to w.
func (d *Document) Save(w io.Writer, f Format) error {
	return Encode(w, d.Spec(), f)
}

// Close destroys the scopes of the document, deregistering its references
// and discarding its variables.
func (d *Document) Close() error {
	if d.Root == nil {
		return nil
	}

	var scopes []model.Scope

	d.Walk(func(n *Node) bool {
		scopes = append(scopes, n.Scope)

		return true
	})

	err := d.tree.Destroy(d.Root.Scope)

	for _, s := range scopes {
		d.mgr.Forget(s)
	}

	d.logger.Debug("close document",
		slog.String("name", d.Root.Name),
		slog.Int("scopes", len(scopes)),
	)

	d.Root = nil

	return err
}

// Remove destroys the scopes of n and its descendants and detaches n from
// the document. Removing the root closes the document.
func (d *Document) Remove(n *Node) error {
	if n == nil {
		return nil
	}

	if n == d.Root {
		return d.Close()
	}

	var parent *Node

	d.Walk(func(p *Node) bool {
		if slices.Contains(p.Children, n) {
			parent = p
		}

		return parent == nil
	})

	if parent == nil {
		return ErrNotFound.With(slog.String("node", n.Name))
	}

	var scopes []model.Scope

	n.walk(func(c *Node) bool {
		scopes = append(scopes, c.Scope)

		return true
	})

	err := d.tree.Destroy(n.Scope)

	for _, s := range scopes {
		d.mgr.Forget(s)
	}

	parent.Children = slices.DeleteFunc(parent.Children, func(c *Node) bool {
		return c == n
	})

	d.logger.Debug("remove node",
		slog.String("name", n.Name),
		slog.Int("scopes", len(scopes)),
	)

	return err
}

func (d *Document) spec(n *Node, source bool) Spec {
	if n == nil {
		return Spec{}
	}

	s := Spec{Name: n.Name}

	if local, ok := d.mgr.Local(n.Scope); ok {
		for _, k := range local.Keys() {
			v, _ := local.Get(k)
			if v.Current == nil {
				continue
			}

			s.Variables = append(s.Variables, yaml.MapItem{Key: k, Value: ordered(v.Current)})
		}
	}

	for key, value := range n.Properties.All() {
		s.Properties = append(s.Properties, yaml.MapItem{
			Key:   key,
			Value: d.property(n, key, value, source),
		})
	}

	for _, c := range n.Children {
		s.Children = append(s.Children, d.spec(c, source))
	}

	return s
}

func (d *Document) property(n *Node, key string, value any, source bool) any {
	loc := n.Properties.Location(key)

	keys, isNested := n.nested[key]
	m, isMap := value.(map[string]any)

	if !isNested || !isMap {
		if source {
			if expr, ok := d.expression(loc); ok {
				return expr
			}
		}

		return ordered(value)
	}

	out := make(yaml.MapSlice, 0, len(keys))

	for _, ck := range keys {
		var v any = ordered(m[ck])

		if source {
			if expr, ok := d.expression(loc.Child(m, ck)); ok {
				v = expr
			}
		}

		out = append(out, yaml.MapItem{Key: ck, Value: v})
	}

	return out
}

func (d *Document) expression(loc variable.Location) (string, bool) {
	if !d.ser.CanSerialize(loc) {
		return "", false
	}

	expr, err := d.ser.Serialize(loc)

	return expr, err == nil
}
