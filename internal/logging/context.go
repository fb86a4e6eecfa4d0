package logging

import (
	"context"
	"log/slog"

	"aircheck/internal/services"
)

// Shared attribute keys. Handlers key their rendering decisions off these, so
// call sites must use the constants rather than raw strings.
const (
	FieldComponent       = "component"
	FieldJobID           = "job_id"
	FieldStation         = "station"
	FieldStage           = "stage"
	FieldRunID           = "run_id"
	FieldCorrelationID   = "correlation_id"
	FieldAlert           = "alert"
	FieldEventType       = "event_type"
	FieldErrorCode       = "error_code"
	FieldErrorHint       = "error_hint"
	FieldImpact          = "impact"
	FieldProgressPercent = "progress_percent"
)

// ContextFields extracts the identifiers carried on ctx as slog attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]slog.Attr, 0, 4)
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldJobID, jobID))
	}
	if station, ok := services.StationFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldStation, station))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldStage, stage))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String(FieldCorrelationID, requestID))
	}
	return attrs
}

// WithContext returns a logger annotated with whatever identifiers ctx holds.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(attrs)...)
}
