// Package log provides leveled structured logging built on [log/slog].
//
// A [Logger] is an immutable value configured with functional options when it
// is made:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("Kitchen"))
//
//	logger.Info("reference resolved", slog.String("location", "title"))
//
// [Logger.Wrap] derives a logger with different options and [Logger.With]
// derives one that carries attributes:
//
//	scoped := logger.With(slog.Uint64("scope", 3))
//	scoped.Debug("variable shadowed", slog.String("name", "color"))
//
// # Levels
//
// In addition to the four [log/slog] levels the package defines
// [LevelTrace], which sits below [LevelDebug] and is rendered as "TRACE".
// Messages below the configured level are discarded.
//
// # Output
//
// [FormatJSON] and [FormatText] select the standard [log/slog] handlers.
// With [WithPretty] enabled, which is the default, they are replaced by
// handlers that print unquoted values with colors when the output is a
// terminal.
//
// # Package-level logging
//
// Functions such as [Info] and [Warn] write through a package-level logger
// that [Config] reconfigures. Functions and methods without a context
// argument use [DefaultContextProvider].
package log
