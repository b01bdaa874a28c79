package model

import (
	"errors"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	ErrUnknownScope = errors.New("unknown scope")
	ErrDuplicate    = errors.New("duplicate scope name")
)

// Scope identifies a node of a [Tree]. The zero Scope identifies no node.
type Scope uint64

// IsZero reports whether s identifies no node.
func (s Scope) IsZero() bool { return s == 0 }

func (s Scope) String() string {
	return "scope#" + strconv.FormatUint(uint64(s), 10)
}

type node struct {
	name     string
	parent   Scope
	children []Scope
}

// Tree tracks the parent/child relationships of model nodes.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	events *Events
	nodes  map[Scope]*node
	order  []Scope
	next   Scope
}

// NewTree returns an empty tree that announces destruction through events.
// A nil events disables announcements.
func NewTree(events *Events) *Tree {
	return &Tree{
		events: events,
		nodes:  make(map[Scope]*node),
	}
}

// Create adds a node named name under parent and returns its handle.
// A zero parent creates a new root. Names must be unique among siblings.
func (t *Tree) Create(name string, parent Scope) (Scope, error) {
	if !parent.IsZero() {
		p, ok := t.nodes[parent]
		if !ok {
			return 0, ErrUnknownScope
		}

		for _, c := range p.children {
			if t.nodes[c].name == name {
				return 0, ErrDuplicate
			}
		}
	}

	t.next++
	s := t.next

	t.nodes[s] = &node{name: name, parent: parent}
	t.order = append(t.order, s)

	if !parent.IsZero() {
		t.nodes[parent].children = append(t.nodes[parent].children, s)
	}

	return s, nil
}

// Destroy removes s and its subtree. Children are destroyed before their
// parents; each node's before-destroyed callbacks run while the node is still
// attached, and destroyed callbacks run after it is gone.
func (t *Tree) Destroy(s Scope) error {
	n, ok := t.nodes[s]
	if !ok {
		return ErrUnknownScope
	}

	for _, c := range slices.Clone(n.children) {
		if err := t.Destroy(c); err != nil {
			return err
		}
	}

	if t.events != nil {
		t.events.fireBeforeDestroyed(s)
	}

	if p, ok := t.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c Scope) bool {
			return c == s
		})
	}

	delete(t.nodes, s)

	t.order = slices.DeleteFunc(t.order, func(o Scope) bool { return o == s })

	if t.events != nil {
		t.events.fireDestroyed(s)
	}

	return nil
}

// Contains reports whether s is a live node of t.
func (t *Tree) Contains(s Scope) bool {
	_, ok := t.nodes[s]

	return ok
}

// Parent returns the parent of s, or false if s is a root or unknown.
func (t *Tree) Parent(s Scope) (Scope, bool) {
	n, ok := t.nodes[s]
	if !ok || n.parent.IsZero() {
		return 0, false
	}

	return n.parent, true
}

// Root returns the root of the tree containing s. A root is its own root.
func (t *Tree) Root(s Scope) Scope {
	for {
		p, ok := t.Parent(s)
		if !ok {
			return s
		}

		s = p
	}
}

// IsAncestor reports whether potentialAncestor is a strict ancestor of s.
func (t *Tree) IsAncestor(s, potentialAncestor Scope) bool {
	for {
		p, ok := t.Parent(s)
		if !ok {
			return false
		}

		if p == potentialAncestor {
			return true
		}

		s = p
	}
}

// Children returns the direct children of s in creation order.
func (t *Tree) Children(s Scope) []Scope {
	n, ok := t.nodes[s]
	if !ok {
		return nil
	}

	return slices.Clone(n.children)
}

// Name returns the name given to s at creation.
func (t *Tree) Name(s Scope) string {
	if n, ok := t.nodes[s]; ok {
		return n.name
	}

	return ""
}

// Path returns the slash-separated names from the root down to s.
func (t *Tree) Path(s Scope) string {
	if !t.Contains(s) {
		return ""
	}

	var names []string

	for {
		names = append(names, t.Name(s))

		p, ok := t.Parent(s)
		if !ok {
			break
		}

		s = p
	}

	slices.Reverse(names)

	return strings.Join(names, "/")
}

// Find returns the node addressed by a slash-separated path of names, as
// produced by [Tree.Path].
func (t *Tree) Find(path string) (Scope, bool) {
	for _, s := range t.order {
		if t.Path(s) == path {
			return s, true
		}
	}

	return 0, false
}

// All returns an iterator over the live nodes in creation order.
func (t *Tree) All() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		for _, s := range slices.Clone(t.order) {
			if !yield(s) {
				return
			}
		}
	}
}
