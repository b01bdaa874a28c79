package variable

import (
	"errors"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/akashmane1598/hyperdash/log"
	"github.com/akashmane1598/hyperdash/model"
)

// ScopeProvider exposes the shape of the model tree.
type ScopeProvider interface {
	// Parent returns the parent of s, or false if s is a root.
	Parent(s model.Scope) (model.Scope, bool)

	// IsAncestor reports whether potentialAncestor is a strict ancestor of s.
	IsAncestor(s, potentialAncestor model.Scope) bool
}

// Location is a slot hosted by a scope that receives resolved values.
// String identifies the slot uniquely within its scope.
type Location interface {
	Scope() model.Scope
	Get() any
	Set(v any) error
	String() string
}

// DestroyNotifier runs callbacks just before a scope is destroyed.
// Each callback runs at most once.
type DestroyNotifier interface {
	BeforeDestroyed(s model.Scope, fn func()) model.Subscription
}

// ChangePublisher is told whenever a value was written into a location of a
// scope.
type ChangePublisher interface {
	PublishChange(s model.Scope)
}

// Manager owns the variables of every scope and the references that depend
// on them. Setting a variable synchronously re-resolves its dependents.
//
// Variables defined in a scope are visible to all descendant scopes unless
// shadowed by a closer definition.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	tree      ScopeProvider
	destroyed DestroyNotifier
	changed   ChangePublisher

	logger   log.Logger
	maxDepth int
	depth    int

	dictionaries map[model.Scope]*Dictionary
	registry     map[model.Scope]map[string]*Reference
}

// NewManager returns a manager for the scopes of tree. References are
// deregistered automatically when destroyed announces their scope's
// destruction, and changed is told about every write. Either may be nil.
func NewManager(
	tree ScopeProvider,
	destroyed DestroyNotifier,
	changed ChangePublisher,
	opts ...Option,
) *Manager {
	m := &Manager{
		tree:         tree,
		destroyed:    destroyed,
		changed:      changed,
		dictionaries: make(map[model.Scope]*Dictionary),
		registry:     make(map[model.Scope]map[string]*Reference),
	}

	applyDefaults(m)
	applyOptions(m, opts...)

	return m
}

// Set assigns value to the variable key of scope and re-resolves every
// reference that depends on it.
//
// Defining key in scope for the first time shadows any definition in an
// ancestor: references in scope or its descendants that used the ancestor's
// variable are moved to the new one.
func (m *Manager) Set(key string, value any, scope model.Scope) error {
	if err := m.enter("set"); err != nil {
		m.logger.Error("set variable",
			slog.String("key", key), slog.Any("error", err))

		return err
	}
	defer m.leave()

	dict, ok := m.dictionaries[scope]
	if !ok {
		dict = newDictionary()
		m.dictionaries[scope] = dict
	}

	v, ok := dict.Get(key)
	if ok {
		v.Current = value
	} else {
		v = newValue(key, value)
		m.shadow(v, scope)
		dict.put(v)
	}

	m.logger.Trace(
		"set variable",
		slog.String("key", key),
		slog.String("scope", scope.String()),
		slog.Bool("defined", ok),
		slog.Int("references", len(v.refs)),
	)

	return m.updateAll(v)
}

// Get returns the value of the nearest variable key visible from scope.
func (m *Manager) Get(key string, scope model.Scope) (any, bool) {
	v := m.lookup(key, scope)
	if v == nil {
		m.logger.Warn(
			"get unassigned variable",
			slog.String("key", key),
			slog.String("scope", scope.String()),
		)

		return nil, false
	}

	return v.Current, true
}

// Has reports whether a variable key with a non-nil value is visible from
// scope.
func (m *Manager) Has(key string, scope model.Scope) bool {
	v := m.lookup(key, scope)

	return v != nil && v.Current != nil
}

// Variable returns the nearest variable key visible from scope.
func (m *Manager) Variable(key string, scope model.Scope) (*Value, bool) {
	v := m.lookup(key, scope)

	return v, v != nil
}

// RegisterReference binds expression to loc, resolves it once, and returns
// the value written into loc. The reference is deregistered automatically
// before the scope of loc is destroyed.
func (m *Manager) RegisterReference(loc Location, expression string) (any, error) {
	if err := m.enter("register"); err != nil {
		m.logger.Error("register reference",
			slog.String("location", loc.String()), slog.Any("error", err))

		return nil, err
	}
	defer m.leave()

	scope := loc.Scope()
	if scope.IsZero() {
		return nil, ErrNoScope.With(slog.String("location", loc.String()))
	}

	id := loc.String()

	refs, ok := m.registry[scope]
	if !ok {
		refs = make(map[string]*Reference)
		m.registry[scope] = refs
	}

	if _, ok := refs[id]; ok {
		err := ErrAlreadyRegistered.With(
			slog.String("location", id),
			slog.String("scope", scope.String()),
		)
		m.logger.Error("register reference", slog.Any("error", err))

		return nil, err
	}

	var cleanup model.Subscription
	if m.destroyed != nil {
		cleanup = m.destroyed.BeforeDestroyed(scope, func() {
			_, _ = m.DeregisterReference(loc)
		})
	}

	ref := newReference(expression, loc, cleanup)
	refs[id] = ref

	m.logger.Trace(
		"register reference",
		slog.String("location", id),
		slog.String("scope", scope.String()),
		slog.String("expression", expression),
	)

	res, err := m.updateReference(ref)

	return res.Value, err
}

// IsVariableReference reports whether a reference is registered at loc.
func (m *Manager) IsVariableReference(loc Location) bool {
	return m.reference(loc) != nil
}

// Reference returns the reference registered at loc.
func (m *Manager) Reference(loc Location) (*Reference, bool) {
	ref := m.reference(loc)

	return ref, ref != nil
}

// IsVariableExpression reports whether text contains a ${...} expression at
// its top level.
func (m *Manager) IsVariableExpression(text string) bool {
	return IsExpression(text)
}

// IsExpression reports whether text contains a ${...} expression at its top
// level. Escaped expressions do not count; unterminated ones do.
func IsExpression(text string) bool {
	return NewParser(text).Parse().HasExpression()
}

// DeregisterReference removes the reference at loc and returns its
// expression. The value last written into loc is left in place.
func (m *Manager) DeregisterReference(loc Location) (string, error) {
	scope := loc.Scope()
	id := loc.String()

	ref := m.reference(loc)
	if ref == nil {
		err := ErrNotRegistered.With(
			slog.String("location", id),
			slog.String("scope", scope.String()),
		)
		m.logger.Error("deregister reference", slog.Any("error", err))

		return "", err
	}

	refs := m.registry[scope]
	delete(refs, id)

	if len(refs) == 0 {
		delete(m.registry, scope)
	}

	res := ref.Unresolve()
	ref.cancel()

	for _, name := range res.Removed {
		if v := m.lookup(name, scope); v != nil {
			v.removeRef(ref)
		}
	}

	m.logger.Trace(
		"deregister reference",
		slog.String("location", id),
		slog.String("scope", scope.String()),
		slog.Any("removed", res.Removed),
	)

	return ref.Expression(), nil
}

// ExpressionAt returns the expression of the reference registered at loc.
//
// The reference's dependency set is cleared as a side effect; it is rebuilt
// the next time one of its variables is set.
func (m *Manager) ExpressionAt(loc Location) (string, error) {
	ref := m.reference(loc)
	if ref == nil {
		return "", ErrNotRegistered.With(
			slog.String("location", loc.String()),
			slog.String("scope", loc.Scope().String()),
		)
	}

	s, _ := ref.Unresolve().Value.(string)

	return s, nil
}

// Local returns the variables defined in scope itself.
func (m *Manager) Local(scope model.Scope) (*Dictionary, bool) {
	d, ok := m.dictionaries[scope]

	return d, ok
}

// Keys returns the names of the variables visible from scope, nearest
// definitions first.
func (m *Manager) Keys(scope model.Scope) []string {
	var keys []string

	for d := range m.chain(scope) {
		for _, k := range d.keys {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}

	return keys
}

// References returns the locations of the references registered in scope,
// ordered by their string form.
func (m *Manager) References(scope model.Scope) []Location {
	refs := m.registry[scope]

	locs := make([]Location, 0, len(refs))
	for _, r := range refs {
		locs = append(locs, r.location)
	}

	slices.SortFunc(locs, func(a, b Location) int {
		return strings.Compare(a.String(), b.String())
	})

	return locs
}

// Dictionary returns the variables visible from scope with their current
// values. Nearer definitions override farther ones.
func (m *Manager) Dictionary(scope model.Scope) ResolveDictionary {
	dict := make(ResolveDictionary)

	for d := range m.chain(scope) {
		for _, k := range d.keys {
			if _, ok := dict[k]; !ok {
				dict[k] = d.values[k].Current
			}
		}
	}

	return dict
}

// Forget discards the variables and references of scope. It is meant to be
// called once scope has been destroyed.
func (m *Manager) Forget(scope model.Scope) {
	for _, loc := range m.References(scope) {
		_, _ = m.DeregisterReference(loc)
	}

	delete(m.dictionaries, scope)

	m.logger.Trace("forget scope", slog.String("scope", scope.String()))
}

// updateReference resolves ref against the variables visible from its
// scope, refreshes the dependency index, and publishes the change.
func (m *Manager) updateReference(ref *Reference) (Result, error) {
	scope := ref.location.Scope()

	res, err := ref.Resolve(m.Dictionary(scope))

	m.logger.Trace(
		"resolve reference",
		slog.String("location", ref.location.String()),
		slog.String("expression", ref.Expression()),
		slog.Any("value", res.Value),
		slog.String("error", res.Err),
	)

	if terr := m.track(ref, res); terr != nil {
		err = errors.Join(err, terr)
	}

	if m.changed != nil {
		m.changed.PublishChange(scope)
	}

	return res, err
}

// updateAll re-resolves every reference depending on v, in the order they
// were added. References removed from v by an earlier update are skipped,
// and references no longer registered are dropped.
func (m *Manager) updateAll(v *Value) error {
	var errs []error

	for _, ref := range v.References() {
		if !v.hasRef(ref) {
			continue
		}

		if m.reference(ref.location) != ref {
			v.removeRef(ref)

			continue
		}

		if _, err := m.updateReference(ref); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// track applies the dependency changes of res to the reverse index.
// A variable that is not visible anywhere gets a nil placeholder at the root
// so that defining it later re-resolves ref.
func (m *Manager) track(ref *Reference, res Result) error {
	scope := ref.location.Scope()

	for _, name := range res.Removed {
		if v := m.lookup(name, scope); v != nil {
			v.removeRef(ref)
		}
	}

	for _, name := range res.Added {
		v := m.lookup(name, scope)
		if v == nil {
			root := m.root(scope)

			m.logger.Trace(
				"add placeholder",
				slog.String("key", name),
				slog.String("scope", root.String()),
			)

			if err := m.Set(name, nil, root); err != nil {
				return err
			}

			v = m.lookup(name, scope)
		}

		if v != nil {
			v.addRef(ref)
		}
	}

	return nil
}

// shadow moves to v the references of the variable v.Key visible from the
// parent of scope that are owned by scope or one of its descendants.
func (m *Manager) shadow(v *Value, scope model.Scope) {
	parent, ok := m.parentScope(scope)
	if !ok {
		return
	}

	shadowed := m.lookup(v.Key, parent)
	if shadowed == nil {
		return
	}

	for _, ref := range shadowed.References() {
		owner := ref.location.Scope()
		if owner == scope || m.tree.IsAncestor(owner, scope) {
			shadowed.removeRef(ref)
			v.addRef(ref)
		}
	}
}

// lookup returns the nearest variable key visible from scope.
func (m *Manager) lookup(key string, scope model.Scope) *Value {
	for d := range m.chain(scope) {
		if v, ok := d.values[key]; ok {
			return v
		}
	}

	return nil
}

// chain yields the dictionaries visible from scope, nearest first.
func (m *Manager) chain(scope model.Scope) iter.Seq[*Dictionary] {
	return func(yield func(*Dictionary) bool) {
		cur := scope

		if _, ok := m.dictionaries[cur]; !ok {
			p, ok := m.parentScope(cur)
			if !ok {
				return
			}

			cur = p
		}

		for {
			if !yield(m.dictionaries[cur]) {
				return
			}

			p, ok := m.parentScope(cur)
			if !ok {
				return
			}

			cur = p
		}
	}
}

// parentScope returns the nearest strict ancestor of scope that has
// variables.
func (m *Manager) parentScope(scope model.Scope) (model.Scope, bool) {
	cur := scope

	for {
		p, ok := m.tree.Parent(cur)
		if !ok {
			return 0, false
		}

		if _, ok := m.dictionaries[p]; ok {
			return p, true
		}

		cur = p
	}
}

func (m *Manager) root(scope model.Scope) model.Scope {
	for {
		p, ok := m.tree.Parent(scope)
		if !ok {
			return scope
		}

		scope = p
	}
}

func (m *Manager) reference(loc Location) *Reference {
	return m.registry[loc.Scope()][loc.String()]
}

func (m *Manager) enter(op string) error {
	if m.depth >= m.maxDepth {
		return ErrMaxDepthExceeded.With(
			slog.String("operation", op),
			slog.Int("max_depth", m.maxDepth),
		)
	}

	m.depth++

	return nil
}

func (m *Manager) leave() { m.depth-- }
