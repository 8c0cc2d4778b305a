// Package log provides structured logging for provision.
//
// This package defines a Logger interface backed by Go's stdlib slog so the
// probe, fetch and install layers can be tested with a captured handler.
// Subsystems accept a Logger through options and fall back to the global
// default.
//
// Output semantics:
//   - Progress (stdout or a progress.Reporter): phase messages meant for the operator
//   - Diagnostic logging (stderr): Debug, Info, Warn, Error messages
//
// Verbosity levels:
//   - ERROR (--quiet): Errors only
//   - WARN (default): Warnings
//   - INFO (--verbose): Operational context (URLs, chosen paths)
//   - DEBUG (--debug): Probe attempts, process arguments, raw output sizes
package log

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs at DEBUG level. Use for probe attempts and other
	// details only useful when troubleshooting a host.
	Debug(msg string, args ...any)

	// Info logs at INFO level. Use for operational context such as
	// "resolved download URL" or "using known install path".
	Info(msg string, args ...any)

	// Warn logs at WARN level. Use for recoverable issues like a
	// suspiciously small download or a failed cleanup.
	Warn(msg string, args ...any)

	// Error logs at ERROR level. Use for failures that end a
	// dependency attempt.
	Error(msg string, args ...any)

	// With returns a Logger that includes the given key-value pairs
	// in every subsequent entry.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewCLIHandler returns the text handler used by the provision binary.
// Timestamps are dropped because the output is read interactively.
func NewCLIHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
}

func (s *slogLogger) Debug(msg string, args ...any) {
	s.l.Debug(msg, args...)
}

func (s *slogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

func (s *slogLogger) Warn(msg string, args ...any) {
	s.l.Warn(msg, args...)
}

func (s *slogLogger) Error(msg string, args ...any) {
	s.l.Error(msg, args...)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup.
// Returns a noop logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. main calls it once after parsing
// the verbosity flags.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// LevelFromFlags maps the CLI verbosity flags to a slog level.
// When several flags are set the most verbose one wins.
func LevelFromFlags(quiet, verbose, debug bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
