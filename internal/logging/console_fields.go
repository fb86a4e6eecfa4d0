package logging

import (
	"log/slog"
	"strings"
	"unicode"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys lists the attributes surfaced first on info lines, in
// display order. Anything else competes for the remaining slots.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"status",
	"station_name",
	"area_id",
	"area_name",
	"window_start",
	"window_end",
	"duration",
	"output",
	"segment_count",
	"sequence",
	FieldProgressPercent,
	"bytes_written",
	"total_bytes",
	"attempt",
	"backoff",
	"status_code",
	"exit_code",
	"command",
	"error_message",
	"error",
	FieldErrorCode,
	FieldErrorHint,
	FieldImpact,
	"reason",
	"elapsed",
}

func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make(map[string]bool, len(attrs))
	formatted := make(map[string]string, len(attrs))
	hidden := 0
	fields := make([]infoField, 0, limit)

	appendField := func(key string, value slog.Value) bool {
		if len(fields) >= limit {
			hidden++
			return false
		}
		text, ok := formatted[key]
		if !ok {
			text = formatValueForKey(key, value)
			formatted[key] = text
		}
		if text == "" {
			return true
		}
		if shouldHideInfoValue(key, text) {
			hidden++
			return true
		}
		fields = append(fields, infoField{label: displayLabel(key), value: text})
		return true
	}

	for _, key := range infoHighlightKeys {
		value, ok := attrValue(attrs, key)
		if !ok {
			continue
		}
		used[key] = true
		appendField(key, value)
	}

	for _, attr := range attrs {
		if attr.key == "" || used[attr.key] || skipInfoKey(attr.key) {
			continue
		}
		used[attr.key] = true
		appendField(attr.key, attr.value)
	}

	return fields, hidden
}

func formatValueForKey(key string, value slog.Value) string {
	switch {
	case isByteSizeKey(key):
		if value.Kind() == slog.KindInt64 {
			return formatBytes(value.Int64())
		}
	case isDurationKey(key):
		if value.Kind() == slog.KindDuration {
			return formatDurationHuman(value.Duration())
		}
	case isPercentKey(key):
		switch value.Kind() {
		case slog.KindFloat64:
			return formatPercent(value.Float64())
		case slog.KindInt64:
			return formatPercent(float64(value.Int64()))
		}
	}
	if value.Kind() == slog.KindBool {
		if value.Bool() {
			return "yes"
		}
		return "no"
	}
	text := formatValue(value)
	if isErrorKey(key) {
		text = truncateErrorValue(text)
	}
	return text
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || strings.HasSuffix(key, "_size") || key == "size"
}

func isDurationKey(key string) bool {
	switch key {
	case "elapsed", "duration", "backoff":
		return true
	}
	return strings.HasSuffix(key, "_duration") || strings.HasSuffix(key, "_elapsed") || strings.HasSuffix(key, "_latency")
}

func isPercentKey(key string) bool {
	return key == FieldProgressPercent || strings.HasSuffix(key, "_percent")
}

func isErrorKey(key string) bool {
	return key == "error" || key == "error_message"
}

const errorValueLimit = 200

func truncateErrorValue(value string) string {
	if len(value) <= errorValueLimit {
		return value
	}
	return value[:errorValueLimit] + "…"
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldJobID, FieldStation, FieldStage, FieldRunID:
		return true
	}
	return false
}

func shouldHideInfoValue(key string, value string) bool {
	if isErrorKey(key) {
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case "station_name":
		return "Name"
	case "area_id":
		return "Area"
	case "area_name":
		return "Area Name"
	case "window_start":
		return "Start"
	case "window_end":
		return "End"
	case "segment_count":
		return "Segments"
	case FieldProgressPercent:
		return "Progress"
	case "bytes_written":
		return "Written"
	case "total_bytes":
		return "Total"
	case "status_code":
		return "HTTP Status"
	case "exit_code":
		return "Exit Code"
	case "error_message", "error":
		return "Error"
	case FieldErrorCode:
		return "Code"
	case FieldErrorHint:
		return "Hint"
	case FieldImpact:
		return "Impact"
	case FieldCorrelationID:
		return "Correlation"
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	})
	if len(parts) == 0 {
		return key
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// infoSummaryKey picks the cache key used to suppress repeated info fields.
// Job-scoped lines dedupe per job so two concurrent recordings never hide
// each other's context.
func infoSummaryKey(component, jobID string, attrs []kv) string {
	if jobID != "" {
		return "job:" + jobID
	}
	if value, ok := attrValue(attrs, FieldStation); ok {
		if station := attrString(value); station != "" {
			return "station:" + station
		}
	}
	if component != "" {
		return "component:" + component
	}
	return ""
}

func attrValue(attrs []kv, key string) (slog.Value, bool) {
	for _, attr := range attrs {
		if attr.key == key {
			return attr.value, true
		}
	}
	return slog.Value{}, false
}
