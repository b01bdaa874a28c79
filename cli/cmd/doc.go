// Package cmd implements the hyperdash subcommands.
//
// Every command runs against a session: a scope tree, its event hub and a
// [variable.Manager]. Commands that take a document load it into the session
// first and then apply the --var assignments to the document root, so
// assignments override document variables and propagate to every property
// that depends on them.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"
)
