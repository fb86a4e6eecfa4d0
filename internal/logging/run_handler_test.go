package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWithRunIDStampsEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := WithRunID(slog.New(newJSONHandler(&buf, levelVar, false)), "run-42")

	logger.Info("first")
	logger.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if record[FieldRunID] != "run-42" {
			t.Fatalf("run_id missing from %s", line)
		}
	}
}

func TestWithRunIDEmptyIsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	base := slog.New(newJSONHandler(&buf, levelVar, false))
	if got := WithRunID(base, ""); got != base {
		t.Fatal("empty run id should return the logger unchanged")
	}
}

func TestRunIDHandlerKeepsStageOverridesWorking(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	inner := newLevelOverrideHandler(newJSONHandler(&buf, levelVar, false), slog.LevelInfo)
	logger := WithRunID(slog.New(inner), "run-7")

	logger.Debug("clamped")
	if buf.Len() != 0 {
		t.Fatalf("debug should be clamped:\n%s", buf.String())
	}

	loosened := WithLevelOverride(logger, slog.LevelDebug)
	loosened.Debug("loose")
	out := buf.String()
	if !strings.Contains(out, `"msg":"loose"`) {
		t.Fatalf("override through run-id wrapper failed:\n%s", out)
	}
	if !strings.Contains(out, `"run_id":"run-7"`) {
		t.Fatalf("run id lost through override:\n%s", out)
	}
}
