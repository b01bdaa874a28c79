package model

import (
	"iter"
	"maps"
	"slices"
)

// Location is a gettable and settable slot hosted by a scope.
//
// The string form of a Location is unique among the locations of its scope,
// so two Location values with the same scope and string address the same
// slot.
type Location struct {
	scope    Scope
	key      string
	get      func() any
	set      func(any)
	validate func(any) error
}

// NewLocation returns a location in scope identified by key that reads and
// writes through get and set.
func NewLocation(scope Scope, key string, get func() any, set func(any)) *Location {
	return &Location{scope: scope, key: key, get: get, set: set}
}

// WithValidator installs fn to vet every value before it is written.
func (l *Location) WithValidator(fn func(any) error) *Location {
	l.validate = fn

	return l
}

// Scope returns the scope hosting the location.
func (l *Location) Scope() Scope { return l.scope }

// Get returns the current value of the slot.
func (l *Location) Get() any {
	if l.get == nil {
		return nil
	}

	return l.get()
}

// Set writes v into the slot after validating it.
func (l *Location) Set(v any) error {
	if l.validate != nil {
		if err := l.validate(v); err != nil {
			return err
		}
	}

	if l.set != nil {
		l.set(v)
	}

	return nil
}

func (l *Location) String() string { return l.key }

// Child returns a location for key within the map m stored at l.
// The child keeps l's scope and its identity is "<l>:<key>".
func (l *Location) Child(m map[string]any, key string) *Location {
	return &Location{
		scope: l.scope,
		key:   l.key + ":" + key,
		get:   func() any { return m[key] },
		set:   func(v any) { m[key] = v },
	}
}

// Properties is an ordered property bag owned by a scope.
type Properties struct {
	scope  Scope
	values map[string]any
	keys   []string
}

// NewProperties returns an empty property bag for scope.
func NewProperties(scope Scope) *Properties {
	return &Properties{scope: scope, values: make(map[string]any)}
}

// Scope returns the owning scope.
func (p *Properties) Scope() Scope { return p.scope }

// Get returns the value stored under key.
func (p *Properties) Get(key string) (any, bool) {
	v, ok := p.values[key]

	return v, ok
}

// Put stores v under key.
func (p *Properties) Put(key string, v any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}

	p.values[key] = v
}

// Location returns the location of key. The key is added to the bag (with a
// nil value) if it is not present.
func (p *Properties) Location(key string) *Location {
	if _, ok := p.values[key]; !ok {
		p.Put(key, nil)
	}

	return NewLocation(
		p.scope,
		key,
		func() any { return p.values[key] },
		func(v any) { p.values[key] = v },
	)
}

// Keys returns the property keys in insertion order.
func (p *Properties) Keys() []string { return slices.Clone(p.keys) }

// All returns an iterator over the properties in insertion order.
func (p *Properties) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range p.keys {
			if !yield(k, p.values[k]) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the current property values.
func (p *Properties) Snapshot() map[string]any {
	return maps.Clone(p.values)
}
