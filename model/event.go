package model

import "slices"

// Subscription cancels a registered callback. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type subscriber[F any] struct {
	fn     F
	active bool
	drop   func()
}

func (s *subscriber[F]) Unsubscribe() {
	if !s.active {
		return
	}

	s.active = false

	if s.drop != nil {
		s.drop()
	}
}

// Events dispatches model lifecycle notifications synchronously, in
// subscription order.
//
// Events is not safe for concurrent use.
type Events struct {
	before    map[Scope][]*subscriber[func()]
	destroyed []*subscriber[func(Scope)]
	changed   []*subscriber[func(Scope)]
}

// NewEvents returns an event dispatcher with no subscribers.
func NewEvents() *Events {
	return &Events{before: make(map[Scope][]*subscriber[func()])}
}

// BeforeDestroyed registers fn to run once, just before s is destroyed.
func (e *Events) BeforeDestroyed(s Scope, fn func()) Subscription {
	sub := &subscriber[func()]{fn: fn, active: true}
	sub.drop = func() { e.dropBefore(s) }
	e.before[s] = append(e.before[s], sub)

	return sub
}

// OnDestroyed registers fn to run after any scope is destroyed.
func (e *Events) OnDestroyed(fn func(Scope)) Subscription {
	sub := &subscriber[func(Scope)]{fn: fn, active: true}
	sub.drop = func() { e.destroyed = prune(e.destroyed) }
	e.destroyed = append(e.destroyed, sub)

	return sub
}

// OnChange registers fn to run whenever a change is published for a scope.
func (e *Events) OnChange(fn func(Scope)) Subscription {
	sub := &subscriber[func(Scope)]{fn: fn, active: true}
	sub.drop = func() { e.changed = prune(e.changed) }
	e.changed = append(e.changed, sub)

	return sub
}

// PublishChange notifies change subscribers that s was modified.
func (e *Events) PublishChange(s Scope) {
	for _, sub := range slices.Clone(e.changed) {
		if sub.active {
			sub.fn(s)
		}
	}

	e.changed = prune(e.changed)
}

// Pending returns the number of active before-destroyed callbacks for s.
func (e *Events) Pending(s Scope) int {
	n := 0

	for _, sub := range e.before[s] {
		if sub.active {
			n++
		}
	}

	return n
}

// dropBefore removes inactive callbacks registered for s.
func (e *Events) dropBefore(s Scope) {
	subs, ok := e.before[s]
	if !ok {
		return
	}

	if subs = prune(subs); len(subs) == 0 {
		delete(e.before, s)
	} else {
		e.before[s] = subs
	}
}

func (e *Events) fireBeforeDestroyed(s Scope) {
	subs := e.before[s]
	delete(e.before, s)

	for _, sub := range subs {
		if sub.active {
			sub.active = false
			sub.fn()
		}
	}
}

func (e *Events) fireDestroyed(s Scope) {
	for _, sub := range slices.Clone(e.destroyed) {
		if sub.active {
			sub.fn(s)
		}
	}

	e.destroyed = prune(e.destroyed)
}

func prune[F any](subs []*subscriber[F]) []*subscriber[F] {
	return slices.DeleteFunc(subs, func(s *subscriber[F]) bool {
		return !s.active
	})
}
