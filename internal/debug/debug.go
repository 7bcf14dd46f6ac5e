// Package debug provides the messenger's structured logger. It defaults to
// a no-op slog handler so that normal operation produces no log output;
// callers opt in with RegisterLogger.
package debug

import (
	"context"
	"log/slog"
)

var logger = slog.New(noOp{})

// RegisterLogger installs h as the destination for all messenger log
// events. Call once, before Start, from the owning goroutine.
func RegisterLogger(h slog.Handler) {
	logger = slog.New(h)
}

// Log writes msg at level with the given attributes through the
// currently registered handler.
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	logger.Log(ctx, level, msg, args...)
}

// Assert logs an error-level event if condition is false, for invariant
// checks where a violation indicates a bug rather than a remote-peer
// misbehavior.
func Assert(ctx context.Context, condition bool, msg string, args ...any) {
	if !condition {
		logger.Log(ctx, slog.LevelError, "invariant violated: "+msg, args...)
	}
}

type noOp struct{}

func (noOp) Enabled(context.Context, slog.Level) bool  { return false }
func (noOp) Handle(context.Context, slog.Record) error { return nil }
func (h noOp) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h noOp) WithGroup(string) slog.Handler           { return h }
