package logging

import (
	"context"
	"log/slog"
)

type levelOverrideHandler struct {
	next  slog.Handler
	level slog.Level
}

func newLevelOverrideHandler(next slog.Handler, level slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &levelOverrideHandler{next: next, level: level}
}

func (h *levelOverrideHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *levelOverrideHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *levelOverrideHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelOverrideHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelOverrideHandler) WithGroup(name string) slog.Handler {
	return &levelOverrideHandler{next: h.next.WithGroup(name), level: h.level}
}

// CloneWithLevel re-thresholds the handler without touching the handlers
// underneath, so a per-stage override can loosen what the default clamps.
func (h *levelOverrideHandler) CloneWithLevel(level slog.Level) slog.Handler {
	return &levelOverrideHandler{next: h.next, level: level}
}

// WithLevelOverride returns a logger whose threshold is level when the
// underlying handler supports re-thresholding, or logger unchanged otherwise.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	type cloner interface {
		CloneWithLevel(slog.Level) slog.Handler
	}
	if c, ok := logger.Handler().(cloner); ok {
		return slog.New(c.CloneWithLevel(level))
	}
	return logger
}
