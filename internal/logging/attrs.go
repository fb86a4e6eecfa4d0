package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr and Value alias the slog types so call sites can stay on this package.
type (
	Attr  = slog.Attr
	Value = slog.Value
)

func Any(key string, value any) Attr                { return slog.Any(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }
func Float64(key string, value float64) Attr        { return slog.Float64(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) Attr            { return slog.Int64(key, value) }
func Uint64(key string, value uint64) Attr          { return slog.Uint64(key, value) }
func String(key, value string) Attr                 { return slog.String(key, value) }
func Group(key string, args ...any) Attr            { return slog.Group(key, args...) }

// Alert tags a record for operator attention; the console handler surfaces it
// first on the line.
func Alert(value string) Attr { return slog.String(FieldAlert, value) }

// Error wraps err under the conventional "error" key, tolerating nil.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Any("error", err)
}

// Args converts attrs to the variadic any form slog.Logger methods accept.
func Args(attrs ...Attr) []any { return attrsToArgs(attrs) }

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger { return slog.New(NoopHandler{}) }

// NewComponentLogger tags logger with a component attribute, substituting a
// no-op logger when logger is nil so callers can chain unconditionally.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}

// HasAttrKey reports whether attrs already carries key at the top level.
func HasAttrKey(attrs []Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// WarnWithContext emits a warning that downstream tooling can triage; the
// event type, hint, and impact attributes are filled with placeholders when
// the call site omits them.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = ensureTriageAttrs(attrs, true)
	logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext mirrors WarnWithContext at error level.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = ensureTriageAttrs(attrs, false)
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func ensureTriageAttrs(attrs []Attr, includeImpact bool) []Attr {
	if !HasAttrKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, "unspecified"))
	}
	if !HasAttrKey(attrs, FieldErrorHint) {
		attrs = append(attrs, String(FieldErrorHint, "unspecified"))
	}
	if includeImpact && !HasAttrKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "unspecified"))
	}
	return attrs
}

// NoopHandler drops every record.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
