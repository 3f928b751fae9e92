// Package mlog provides the structured-logging abstraction used across the
// catalog core. It mirrors the logger contract of the ambient stack this
// module was adapted from: a narrow interface callers code against, plus a
// context-carried instance so deep call chains do not need to thread a
// logger parameter through every function signature.
package mlog

import "context"

// Logger is the common interface every call site in the catalog core codes
// against. Production wiring backs it with zap; tests back it with Nop.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	// WithFields returns a derived logger; the original is left unchanged.
	WithFields(fields ...any) Logger

	Sync() error
}

type loggerContextKey struct{}

// ContextWithLogger returns a context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext extracts the Logger stored in ctx, falling back to Nop when
// none was attached (e.g. in a unit test that doesn't care about logging).
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(Logger); ok && l != nil {
		return l
	}

	return Nop{}
}

// Nop discards everything. It is the default for contexts that never had a
// logger attached, and is convenient in tests that assert on behavior, not
// on log lines.
type Nop struct{}

func (Nop) Info(args ...any)                 {}
func (Nop) Infof(format string, args ...any) {}
func (Nop) Warn(args ...any)                 {}
func (Nop) Warnf(format string, args ...any) {}
func (Nop) Error(args ...any)                {}
func (Nop) Errorf(format string, args ...any) {}
func (Nop) Debug(args ...any)                {}
func (Nop) Debugf(format string, args ...any) {}
func (Nop) WithFields(fields ...any) Logger  { return Nop{} }
func (Nop) Sync() error                      { return nil }
