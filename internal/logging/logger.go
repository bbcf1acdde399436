// Package logging defines the structured-logging interface used across
// CloudPool together with its slog-backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "chunk uploaded", "provider", p, "order", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Leveled adapts a Logger to the context-free leveled logger shape expected
// by HTTP retry clients. Messages are logged with a background context.
type Leveled struct {
	L Logger
}

func (l Leveled) Error(msg string, kv ...interface{}) { l.L.Error(context.Background(), msg, kv...) }
func (l Leveled) Warn(msg string, kv ...interface{})  { l.L.Warn(context.Background(), msg, kv...) }
func (l Leveled) Info(msg string, kv ...interface{})  { l.L.Debug(context.Background(), msg, kv...) }
func (l Leveled) Debug(msg string, kv ...interface{}) { l.L.Debug(context.Background(), msg, kv...) }
