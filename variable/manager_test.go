package variable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/akashmane1598/hyperdash/model"
)

// fixture wires a manager to a model tree with a single root scope.
type fixture struct {
	tree   *model.Tree
	events *model.Events
	mgr    *Manager
	root   model.Scope
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	events := model.NewEvents()
	tree := model.NewTree(events)

	f := &fixture{
		tree:   tree,
		events: events,
		mgr:    NewManager(tree, events, events, opts...),
	}

	f.root = f.scope(t, "root", 0)

	return f
}

func (f *fixture) scope(t *testing.T, name string, parent model.Scope) model.Scope {
	t.Helper()

	s, err := f.tree.Create(name, parent)
	if err != nil {
		t.Fatalf("create scope %q: %v", name, err)
	}

	return s
}

func (f *fixture) set(t *testing.T, key string, value any, scope model.Scope) {
	t.Helper()

	if err := f.mgr.Set(key, value, scope); err != nil {
		t.Fatalf("Set(%q): %v", key, err)
	}
}

func (f *fixture) register(t *testing.T, scope model.Scope, key, expr string) *model.Location {
	t.Helper()

	loc := model.NewProperties(scope).Location(key)
	if _, err := f.mgr.RegisterReference(loc, expr); err != nil {
		t.Fatalf("RegisterReference(%q): %v", expr, err)
	}

	return loc
}

func TestManager_SetGet(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)
	leaf := f.scope(t, "leaf", child)

	f.set(t, "x", 1, f.root)
	f.set(t, "y", "near", child)

	tests := []struct {
		key   string
		scope model.Scope
		want  any
		found bool
	}{
		{key: "x", scope: f.root, want: 1, found: true},
		{key: "x", scope: leaf, want: 1, found: true},
		{key: "y", scope: leaf, want: "near", found: true},
		{key: "y", scope: f.root, want: nil, found: false},
		{key: "z", scope: leaf, want: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s@%s", tt.key, tt.scope), func(t *testing.T) {
			got, found := f.mgr.Get(tt.key, tt.scope)
			if found != tt.found || got != tt.want {
				t.Errorf("Get(%q) = (%v, %v), want (%v, %v)",
					tt.key, got, found, tt.want, tt.found)
			}
		})
	}
}

func TestManager_Set_MutatesInPlace(t *testing.T) {
	f := newFixture(t)

	f.set(t, "x", 1, f.root)

	before, _ := f.mgr.Variable("x", f.root)

	f.set(t, "x", 2, f.root)

	after, _ := f.mgr.Variable("x", f.root)
	if before != after {
		t.Error("expected Set on an existing key to keep the same Value")
	}

	if after.Current != 2 {
		t.Errorf("expected current value 2, got %v", after.Current)
	}
}

func TestManager_Has(t *testing.T) {
	f := newFixture(t)

	f.set(t, "defined", 0, f.root)
	f.set(t, "undefined", nil, f.root)

	if !f.mgr.Has("defined", f.root) {
		t.Error("expected Has to report a zero but non-nil value")
	}

	if f.mgr.Has("undefined", f.root) {
		t.Error("expected Has to be false for a nil value")
	}

	if f.mgr.Has("absent", f.root) {
		t.Error("expected Has to be false for an absent key")
	}
}

func TestManager_RegisterReference(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 5, f.root)
	f.set(t, "name", "World", f.root)

	tests := []struct {
		key  string
		expr string
		want any
	}{
		{key: "typed", expr: "${a}", want: 5},
		{key: "text", expr: "Hello ${name}!", want: "Hello World!"},
		{key: "escaped", expr: `\${a}`, want: "${a}"},
		{key: "missing", expr: "${missing}", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			loc := model.NewProperties(f.root).Location(tt.key)

			got, err := f.mgr.RegisterReference(loc, tt.expr)
			if err != nil {
				t.Fatalf("RegisterReference: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}

			if loc.Get() != tt.want {
				t.Errorf("expected location to hold %v, got %v", tt.want, loc.Get())
			}

			if !f.mgr.IsVariableReference(loc) {
				t.Error("expected location to be a variable reference")
			}
		})
	}
}

func TestManager_RegisterReference_Propagates(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 5, f.root)
	loc := f.register(t, f.root, "p", "${a}")

	f.set(t, "a", 6, f.root)

	if loc.Get() != 6 {
		t.Errorf("expected 6 after update, got %v", loc.Get())
	}
}

func TestManager_RegisterReference_Duplicate(t *testing.T) {
	f := newFixture(t)

	props := model.NewProperties(f.root)
	f.register(t, f.root, "p", "${a}")

	_, err := f.mgr.RegisterReference(props.Location("p"), "${b}")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestManager_RegisterReference_NoScope(t *testing.T) {
	f := newFixture(t)

	loc := model.NewLocation(0, "p", nil, nil)

	_, err := f.mgr.RegisterReference(loc, "${a}")
	if !errors.Is(err, ErrNoScope) {
		t.Errorf("expected ErrNoScope, got %v", err)
	}
}

func TestManager_RegisterReference_AssignError(t *testing.T) {
	f := newFixture(t)

	f.set(t, "n", 5, f.root)

	errNotString := errors.New("not a string")

	loc := model.NewProperties(f.root).Location("s").WithValidator(func(v any) error {
		if _, ok := v.(string); !ok && v != nil {
			return errNotString
		}

		return nil
	})

	_, err := f.mgr.RegisterReference(loc, "${n}")
	if !errors.Is(err, ErrAssign) {
		t.Errorf("expected ErrAssign, got %v", err)
	}

	if !errors.Is(err, errNotString) {
		t.Errorf("expected validator error in chain, got %v", err)
	}

	if err := f.mgr.Set("n", "five", f.root); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if loc.Get() != "five" {
		t.Errorf("expected reference to stay live after rejected write, got %v", loc.Get())
	}
}

// Shadowing: a reference in a child scope follows the child's own definition
// once one exists, and ignores later changes to the ancestor's.
func TestManager_Set_Shadowing(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)

	f.set(t, "x", 1, f.root)

	loc := f.register(t, child, "p", "${x}")
	if loc.Get() != 1 {
		t.Fatalf("expected 1, got %v", loc.Get())
	}

	f.set(t, "x", 2, child)

	if loc.Get() != 2 {
		t.Errorf("expected 2 after shadowing, got %v", loc.Get())
	}

	f.set(t, "x", 3, f.root)

	if loc.Get() != 2 {
		t.Errorf("expected 2 after changing shadowed value, got %v", loc.Get())
	}

	outer, _ := f.mgr.Variable("x", f.root)
	if n := len(outer.References()); n != 0 {
		t.Errorf("expected shadowed value to have no references, got %d", n)
	}

	inner, _ := f.mgr.Variable("x", child)
	if n := len(inner.References()); n != 1 {
		t.Errorf("expected shadowing value to have 1 reference, got %d", n)
	}
}

func TestManager_Set_ShadowingLeavesSiblings(t *testing.T) {
	f := newFixture(t)
	left := f.scope(t, "left", f.root)
	right := f.scope(t, "right", f.root)
	deep := f.scope(t, "deep", left)

	f.set(t, "x", "root", f.root)

	l := f.register(t, deep, "p", "${x}")
	r := f.register(t, right, "p", "${x}")

	f.set(t, "x", "left", left)

	if l.Get() != "left" {
		t.Errorf("expected descendant reference to move, got %v", l.Get())
	}

	if r.Get() != "root" {
		t.Errorf("expected sibling reference to stay, got %v", r.Get())
	}

	f.set(t, "x", "root2", f.root)

	if r.Get() != "root2" {
		t.Errorf("expected sibling reference to follow root, got %v", r.Get())
	}

	if l.Get() != "left" {
		t.Errorf("expected shadowed reference unchanged, got %v", l.Get())
	}
}

func TestManager_Set_SkipsScopesWithoutVariables(t *testing.T) {
	f := newFixture(t)
	middle := f.scope(t, "middle", f.root)
	leaf := f.scope(t, "leaf", middle)

	f.set(t, "x", 1, f.root)

	loc := f.register(t, leaf, "p", "${x}")

	f.set(t, "x", 2, middle)

	if loc.Get() != 2 {
		t.Errorf("expected intermediate definition to shadow root, got %v", loc.Get())
	}
}

func TestManager_Placeholder(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)

	loc := f.register(t, child, "p", "${later}")
	if loc.Get() != nil {
		t.Fatalf("expected nil before definition, got %v", loc.Get())
	}

	placeholder, ok := f.mgr.Variable("later", f.root)
	if !ok {
		t.Fatal("expected placeholder at root scope")
	}

	if placeholder.Current != nil {
		t.Errorf("expected nil placeholder, got %v", placeholder.Current)
	}

	f.set(t, "later", "root", f.root)

	if loc.Get() != "root" {
		t.Errorf("expected forward reference to resolve, got %v", loc.Get())
	}

	f.set(t, "later", "child", child)

	if loc.Get() != "child" {
		t.Errorf("expected child definition to shadow placeholder, got %v", loc.Get())
	}
}

func TestManager_Placeholder_NilValue(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)

	f.set(t, "maybe", nil, child)

	loc := f.register(t, child, "p", "${maybe}")

	if d, ok := f.mgr.Local(f.root); ok {
		if _, ok := d.Get("maybe"); ok {
			t.Fatal("expected no placeholder at root for a visible nil variable")
		}
	}

	f.set(t, "maybe", "now", child)

	if loc.Get() != "now" {
		t.Errorf("expected reference to follow the nil variable, got %v", loc.Get())
	}
}

func TestManager_Set_Order(t *testing.T) {
	f := newFixture(t)

	f.set(t, "v", 0, f.root)

	var writes []string

	for _, key := range []string{"first", "second", "third"} {
		loc := model.NewLocation(f.root, key, nil, func(any) {
			writes = append(writes, key)
		})

		if _, err := f.mgr.RegisterReference(loc, "${v}"); err != nil {
			t.Fatalf("RegisterReference: %v", err)
		}
	}

	writes = nil

	f.set(t, "v", 1, f.root)

	if diff := cmp.Diff([]string{"first", "second", "third"}, writes); diff != "" {
		t.Errorf("update order mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Set_PublishesChanges(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)

	var changed []model.Scope

	f.events.OnChange(func(s model.Scope) { changed = append(changed, s) })

	f.set(t, "x", 1, f.root)
	f.register(t, child, "p", "${x}")
	f.set(t, "x", 2, f.root)

	want := []model.Scope{child, child}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Errorf("published changes mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_DeregisterReference(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 1, f.root)
	loc := f.register(t, f.root, "p", "x${a}")

	expr, err := f.mgr.DeregisterReference(loc)
	if err != nil {
		t.Fatalf("DeregisterReference: %v", err)
	}

	if expr != "x${a}" {
		t.Errorf("expected original expression, got %q", expr)
	}

	if loc.Get() != "x1" {
		t.Errorf("expected location to keep its last value, got %v", loc.Get())
	}

	if f.mgr.IsVariableReference(loc) {
		t.Error("expected location not to be a reference")
	}

	v, _ := f.mgr.Variable("a", f.root)
	if n := len(v.References()); n != 0 {
		t.Errorf("expected no dependents, got %d", n)
	}

	f.set(t, "a", 2, f.root)

	if loc.Get() != "x1" {
		t.Errorf("expected deregistered location unchanged, got %v", loc.Get())
	}

	if f.events.Pending(f.root) != 0 {
		t.Error("expected destroy subscription to be cancelled")
	}

	_, err = f.mgr.DeregisterReference(loc)
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestManager_DeregisterReference_Reregister(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 1, f.root)

	props := model.NewProperties(f.root)
	loc := props.Location("p")

	if _, err := f.mgr.RegisterReference(loc, "${a}"); err != nil {
		t.Fatalf("RegisterReference: %v", err)
	}

	if _, err := f.mgr.DeregisterReference(loc); err != nil {
		t.Fatalf("DeregisterReference: %v", err)
	}

	if _, err := f.mgr.RegisterReference(props.Location("p"), "${a}!"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	f.set(t, "a", 2, f.root)

	if loc.Get() != "2!" {
		t.Errorf("expected re-registered expression, got %v", loc.Get())
	}
}

func TestManager_DestroyScope(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)
	grandchild := f.scope(t, "grandchild", child)

	f.set(t, "x", 1, f.root)

	a := f.register(t, child, "a", "${x}")
	b := f.register(t, grandchild, "b", "${x}")

	if err := f.tree.Destroy(child); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if f.mgr.IsVariableReference(a) || f.mgr.IsVariableReference(b) {
		t.Error("expected references of destroyed scopes to be deregistered")
	}

	v, _ := f.mgr.Variable("x", f.root)
	if n := len(v.References()); n != 0 {
		t.Errorf("expected no dependents after destroy, got %d", n)
	}

	if n := len(f.mgr.References(child)); n != 0 {
		t.Errorf("expected empty registry for destroyed scope, got %d", n)
	}
}

// ExpressionAt clears the dependency set of the reference it reads.
// The reference stays registered and keeps following its variables.
func TestManager_ExpressionAt(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 1, f.root)
	loc := f.register(t, f.root, "p", "${a}")

	expr, err := f.mgr.ExpressionAt(loc)
	if err != nil {
		t.Fatalf("ExpressionAt: %v", err)
	}

	if expr != "${a}" {
		t.Errorf("expected expression, got %q", expr)
	}

	if !f.mgr.IsVariableReference(loc) {
		t.Error("expected reference to stay registered")
	}

	f.set(t, "a", 2, f.root)

	if loc.Get() != 2 {
		t.Errorf("expected reference to follow variable, got %v", loc.Get())
	}
}

func TestManager_ExpressionAt_ThenDeregister(t *testing.T) {
	f := newFixture(t)

	f.set(t, "a", 1, f.root)
	loc := f.register(t, f.root, "p", "${a}")

	if _, err := f.mgr.ExpressionAt(loc); err != nil {
		t.Fatalf("ExpressionAt: %v", err)
	}

	if _, err := f.mgr.DeregisterReference(loc); err != nil {
		t.Fatalf("DeregisterReference: %v", err)
	}

	f.set(t, "a", 2, f.root)

	if loc.Get() != 1 {
		t.Errorf("expected deregistered location unchanged, got %v", loc.Get())
	}

	v, _ := f.mgr.Variable("a", f.root)
	if n := len(v.References()); n != 0 {
		t.Errorf("expected stale dependent to be dropped, got %d", n)
	}
}

func TestManager_ExpressionAt_NotRegistered(t *testing.T) {
	f := newFixture(t)

	loc := model.NewProperties(f.root).Location("p")

	if _, err := f.mgr.ExpressionAt(loc); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestManager_IsVariableExpression(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		text string
		want bool
	}{
		{"${a}", true},
		{"x ${a.b} y", true},
		{"plain", false},
		{`\${a}`, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := f.mgr.IsVariableExpression(tt.text); got != tt.want {
			t.Errorf("IsVariableExpression(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestManager_DependencyTracking(t *testing.T) {
	f := newFixture(t)

	f.set(t, "key", "a", f.root)
	f.set(t, "a", "A", f.root)
	f.set(t, "b", "B", f.root)

	loc := f.register(t, f.root, "p", "${${key}}")
	if loc.Get() != "A" {
		t.Fatalf("expected A, got %v", loc.Get())
	}

	f.set(t, "key", "b", f.root)

	if loc.Get() != "B" {
		t.Errorf("expected B, got %v", loc.Get())
	}

	a, _ := f.mgr.Variable("a", f.root)
	if n := len(a.References()); n != 0 {
		t.Errorf("expected a to lose its dependent, got %d", n)
	}

	f.set(t, "a", "A2", f.root)

	if loc.Get() != "B" {
		t.Errorf("expected unrelated change to be ignored, got %v", loc.Get())
	}

	f.set(t, "b", "B2", f.root)

	if loc.Get() != "B2" {
		t.Errorf("expected B2, got %v", loc.Get())
	}
}

func TestManager_MaxDepth(t *testing.T) {
	f := newFixture(t, WithMaxDepth(4))

	var (
		n      int
		gotErr error
	)

	f.events.OnChange(func(model.Scope) {
		n++

		if err := f.mgr.Set("a", n, f.root); err != nil && gotErr == nil {
			gotErr = err
		}
	})

	if err := f.mgr.Set("a", 0, f.root); err != nil {
		t.Fatalf("Set: %v", err)
	}

	loc := model.NewProperties(f.root).Location("p")
	if _, err := f.mgr.RegisterReference(loc, "${a}"); err != nil {
		t.Fatalf("RegisterReference: %v", err)
	}

	if !errors.Is(gotErr, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", gotErr)
	}
}

func TestManager_KeysAndDictionary(t *testing.T) {
	f := newFixture(t)
	child := f.scope(t, "child", f.root)

	f.set(t, "a", 1, f.root)
	f.set(t, "b", 2, f.root)
	f.set(t, "b", 20, child)
	f.set(t, "c", 30, child)

	if diff := cmp.Diff([]string{"b", "c", "a"}, f.mgr.Keys(child)); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}

	want := ResolveDictionary{"a": 1, "b": 20, "c": 30}
	if diff := cmp.Diff(want, f.mgr.Dictionary(child)); diff != "" {
		t.Errorf("Dictionary mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_References(t *testing.T) {
	f := newFixture(t)

	f.register(t, f.root, "b", "${x}")
	f.register(t, f.root, "a", "${x}")

	var got []string
	for _, loc := range f.mgr.References(f.root) {
		got = append(got, loc.String())
	}

	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("References mismatch (-want +got):\n%s", diff)
	}

	for _, loc := range f.mgr.References(f.root) {
		ref, ok := f.mgr.Reference(loc)
		if !ok || ref.Expression() != "${x}" || ref.Location().String() != loc.String() {
			t.Errorf("Reference(%s) = %v, %v", loc, ref, ok)
		}
	}

	if _, ok := f.mgr.Reference(model.NewLocation(f.root, "zz", nil, nil)); ok {
		t.Error("expected no reference at unregistered location")
	}
}

func TestManager_Forget(t *testing.T) {
	events := model.NewEvents()
	tree := model.NewTree(events)
	mgr := NewManager(tree, nil, nil)

	root, _ := tree.Create("root", 0)
	child, _ := tree.Create("child", root)

	if err := mgr.Set("x", 1, root); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := mgr.Set("y", 2, child); err != nil {
		t.Fatalf("Set: %v", err)
	}

	loc := model.NewProperties(child).Location("p")
	if _, err := mgr.RegisterReference(loc, "${x}"); err != nil {
		t.Fatalf("RegisterReference: %v", err)
	}

	mgr.Forget(child)

	if mgr.IsVariableReference(loc) {
		t.Error("expected Forget to deregister references")
	}

	if _, ok := mgr.Get("y", child); ok {
		t.Error("expected Forget to discard variables")
	}

	v, _ := mgr.Variable("x", root)
	if n := len(v.References()); n != 0 {
		t.Errorf("expected no dependents after Forget, got %d", n)
	}
}
