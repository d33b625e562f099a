// Package logging defines the structured logger used across wasmedgeup.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger provides structured logging with key-value pairs.
// *slog.Logger satisfies this interface.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return noopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// With returns a Logger that adds keysAndValues to every entry.
func With(l Logger, keysAndValues ...any) Logger {
	switch base := l.(type) {
	case nil:
		return Nop()
	case noopLogger:
		return base
	case *slog.Logger:
		return base.With(keysAndValues...)
	default:
		return &withLogger{base: l, kv: keysAndValues}
	}
}

type withLogger struct {
	base Logger
	kv   []any
}

func (w *withLogger) args(kv []any) []any {
	out := make([]any, 0, len(w.kv)+len(kv))
	return append(append(out, w.kv...), kv...)
}

func (w *withLogger) Debug(msg string, kv ...any) { w.base.Debug(msg, w.args(kv)...) }
func (w *withLogger) Info(msg string, kv ...any)  { w.base.Info(msg, w.args(kv)...) }
func (w *withLogger) Warn(msg string, kv ...any)  { w.base.Warn(msg, w.args(kv)...) }
func (w *withLogger) Error(msg string, kv ...any) { w.base.Error(msg, w.args(kv)...) }

// New creates a slog logger writing to w. When w is a terminal the output
// is human-readable text, otherwise JSON.
func New(w io.Writer, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
