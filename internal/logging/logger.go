package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aircheck/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputWriter, err := openWriters(
		defaultSlice(opts.OutputPaths, []string{"stdout"}),
		defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}),
	)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(outputWriter, levelVar, addSource)
	case "console":
		handler = newPrettyHandler(outputWriter, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), nil
}

// DateFileName returns the date-partitioned log file name for ts.
func DateFileName(ts time.Time) string {
	return ts.Format("2006-01-02") + ".log"
}

// NewFromConfig creates a logger that writes to stdout and a date-partitioned
// file under the configured log directory. Console output honours the
// configured format; the file always receives JSON lines so history stays
// machine-parsable regardless of the console setting.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{"stdout"}, ErrorOutputPaths: []string{"stderr"}})
	}

	level := parseLevel(cfg.Logging.Level)
	// The shared handlers run at the most verbose level any stage override
	// requests; the outer override handler clamps back to the configured
	// default so per-stage overrides can loosen it later.
	handlerLevel := level
	for _, value := range cfg.Logging.StageOverrides {
		if parsed := parseLevel(value); parsed < handlerLevel {
			handlerLevel = parsed
		}
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(handlerLevel)
	addSource := handlerLevel <= slog.LevelDebug

	handlers := make([]slog.Handler, 0, 2)
	switch cfg.Logging.Format {
	case "json":
		handlers = append(handlers, newJSONHandler(os.Stdout, levelVar, addSource))
	default:
		handlers = append(handlers, newPrettyHandler(os.Stdout, levelVar, addSource))
	}

	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(cfg.Paths.LogDir, DateFileName(time.Now()))
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logPath, err)
		}
		handlers = append(handlers, newJSONHandler(file, levelVar, addSource))
	}

	return slog.New(newLevelOverrideHandler(newFanoutHandler(handlers...), level)), nil
}

// ApplyStageOverride returns a logger clamped to the level configured for the
// given stage, or the logger unchanged when no override applies.
func ApplyStageOverride(logger *slog.Logger, stage string, overrides map[string]string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if len(overrides) == 0 {
		return logger
	}
	value, ok := overrides[strings.ToLower(strings.TrimSpace(stage))]
	if !ok {
		return logger
	}
	return WithLevelOverride(logger, parseLevel(value))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		cp := make([]string, len(fallback))
		copy(cp, fallback)
		return cp
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

func openWriters(outputPaths []string, errorPaths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	combined := append([]string{}, outputPaths...)
	combined = append(combined, errorPaths...)

	for _, path := range combined {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	if len(writers) == 0 {
		return os.Stdout, nil
	}

	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
