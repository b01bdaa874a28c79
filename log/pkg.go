package log

import (
	"context"
	"log/slog"
	"os"
)

// DefaultContextProvider returns the context used by the logging functions
// and methods that do not take one.
var DefaultContextProvider = context.TODO

var defaultLog = Make(os.Stderr)

// Default returns the package-level logger.
func Default() Logger { return defaultLog }

// Config rebuilds the package-level logger with opts applied on top of its
// current configuration.
func Config(opts ...Option) {
	defaultLog = defaultLog.Wrap(opts...)
}

// pkgSkip reaches the caller of a package-level logging function.
const pkgSkip = callerSkip - 1

// TraceContext logs a message at Trace level using the package-level logger.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(ctx, pkgSkip, LevelTrace, msg, attrs)
}

// Trace logs a message at Trace level using the package-level logger.
func Trace(msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(DefaultContextProvider(), pkgSkip, LevelTrace, msg, attrs)
}

// DebugContext logs a message at Debug level using the package-level logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(ctx, pkgSkip, LevelDebug, msg, attrs)
}

// Debug logs a message at Debug level using the package-level logger.
func Debug(msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(DefaultContextProvider(), pkgSkip, LevelDebug, msg, attrs)
}

// InfoContext logs a message at Info level using the package-level logger.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(ctx, pkgSkip, LevelInfo, msg, attrs)
}

// Info logs a message at Info level using the package-level logger.
func Info(msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(DefaultContextProvider(), pkgSkip, LevelInfo, msg, attrs)
}

// WarnContext logs a message at Warn level using the package-level logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(ctx, pkgSkip, LevelWarn, msg, attrs)
}

// Warn logs a message at Warn level using the package-level logger.
func Warn(msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(DefaultContextProvider(), pkgSkip, LevelWarn, msg, attrs)
}

// ErrorContext logs a message at Error level using the package-level logger.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(ctx, pkgSkip, LevelError, msg, attrs)
}

// Error logs a message at Error level using the package-level logger.
func Error(msg string, attrs ...slog.Attr) {
	defaultLog.logDepth(DefaultContextProvider(), pkgSkip, LevelError, msg, attrs)
}

// With returns a copy of the package-level logger that includes attrs in
// every message.
func With(attrs ...slog.Attr) Logger {
	return defaultLog.With(attrs...)
}
