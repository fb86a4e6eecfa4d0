package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RetentionTarget names a directory whose matching files are subject to
// age-based pruning.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files older than retentionDays from each target.
// Excluded paths (the active date file, typically) are never touched.
func CleanupOldLogs(ctx context.Context, logger *slog.Logger, targets []RetentionTarget, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	for _, target := range targets {
		if target.Dir == "" {
			continue
		}
		pattern := target.Pattern
		if pattern == "" {
			pattern = "*.log"
		}
		excluded := make(map[string]struct{}, len(target.Exclude))
		for _, path := range target.Exclude {
			if abs, err := filepath.Abs(path); err == nil {
				excluded[abs] = struct{}{}
			}
		}

		entries, err := os.ReadDir(target.Dir)
		if err != nil {
			if !os.IsNotExist(err) {
				WarnWithContext(ctx, logger, "log retention scan failed",
					String(FieldEventType, "log_retention_failed"),
					String(FieldErrorHint, "check log directory permissions"),
					String(FieldImpact, "old logs accumulate"),
					String("dir", target.Dir),
					Error(err))
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			matched, err := filepath.Match(pattern, entry.Name())
			if err != nil || !matched {
				continue
			}
			path := filepath.Join(target.Dir, entry.Name())
			if abs, err := filepath.Abs(path); err == nil {
				if _, skip := excluded[abs]; skip {
					continue
				}
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(ctx, logger, "log prune failed",
					String(FieldEventType, "log_retention_failed"),
					String(FieldErrorHint, "check log file permissions"),
					String(FieldImpact, "old logs accumulate"),
					String("path", path),
					Error(err))
				continue
			}
			logger.Info("log pruned", String("path", path))
		}
	}
}
