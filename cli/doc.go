// Package cli contains the command line interface of hyperdash.
//
// # Usage
//
//	hyperdash [flags] [document]          resolve a document (default command)
//	hyperdash eval -d DOC '${user.name}'  evaluate expressions against a document
//	hyperdash parse '${a${b}}'            print the parse tree of an expression
//	hyperdash fmt -w DOC                  reformat a document in place
//	hyperdash repl [document]             start an interactive session
//	hyperdash init                        write the configuration file
//
// Documents named without a path are searched for in the --path directories
// and then the directories of HYPERDASH_PATH. Variables given with --var
// are assigned at the document root before output is produced:
//
//	hyperdash --var count=5 -o json dashboard
//
// # Configuration
//
// Flag defaults are read from config.json and config.yaml in the user
// configuration directory. YAML keys are flag names; nested mappings are
// joined with hyphens:
//
//	log:
//	  level: debug
//	  pretty: false
//	path: [~/dashboards]
//
// Command-line flags override configuration values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o hyperdash .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/hyperdash/pprof)
package cli
