package document

import "github.com/akashmane1598/hyperdash/log"

// Option configures how a [Document] is built.
type Option func(*Document)

// WithLogger sets the logger used while building and closing a document.
func WithLogger(logger log.Logger) Option {
	return func(d *Document) { d.logger = logger }
}

func applyOptions(d *Document, opts ...Option) {
	for _, opt := range opts {
		opt(d)
	}
}
