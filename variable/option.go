package variable

import "github.com/akashmane1598/hyperdash/log"

// DefaultMaxDepth is the default limit on nested Set and RegisterReference
// calls made while propagating a change.
const DefaultMaxDepth = 64

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the logger used by the manager.
// The zero Logger discards all output.
func WithLogger(logger log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMaxDepth limits the nesting of Set and RegisterReference calls, as
// happens when a change subscriber writes variables in response to a change.
// Values less than 1 restore [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(m *Manager) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}

		m.maxDepth = depth
	}
}

func applyDefaults(m *Manager) {
	m.maxDepth = DefaultMaxDepth
}

func applyOptions(m *Manager, opts ...Option) {
	for _, opt := range opts {
		opt(m)
	}
}
