package log

import (
	"context"
	"log/slog"
	"os"
)

// NewCLIHandler returns a slog.Handler tuned for terminal diagnostic
// output: a plain text handler on stderr, with source locations only at
// DEBUG level (spec.md's "--debug" shows source locations, lower
// verbosities don't).
func NewCLIHandler(level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && level > slog.LevelDebug {
				return slog.Attr{}
			}
			return a
		},
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// contextKey namespaces values this package stores on a context.Context.
type contextKey struct{ name string }

var loggerContextKey = &contextKey{"logger"}

// WithContext returns a context carrying l, retrievable with FromContext.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, l)
}

// FromContext returns the Logger stored on ctx, or the process Default if
// none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return l
	}
	return Default()
}
