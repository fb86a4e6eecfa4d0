package logging

import (
	"context"
	"log/slog"
)

// runIDHandler stamps every record with the process run identifier so records
// from concurrent recorder processes appending to the same date file remain
// distinguishable.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

// WithRunID wraps logger so every record carries run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if runID == "" {
		return logger
	}
	return slog.New(&runIDHandler{base: logger.Handler(), runID: runID})
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}

// CloneWithLevel delegates so stage overrides keep working through the
// run-ID wrapper.
func (h *runIDHandler) CloneWithLevel(level slog.Level) slog.Handler {
	type cloner interface {
		CloneWithLevel(slog.Level) slog.Handler
	}
	if c, ok := h.base.(cloner); ok {
		return &runIDHandler{base: c.CloneWithLevel(level), runID: h.runID}
	}
	return h
}
