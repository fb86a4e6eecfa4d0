package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Service contains the streaming service endpoints and regional identity.
type Service struct {
	BaseURL string `toml:"base_url"`
	AreaID  string `toml:"area_id"`
}

// Auth contains tuning for the two-step token handshake.
type Auth struct {
	SessionTTL       int `toml:"session_ttl"`
	RequestTimeout   int `toml:"request_timeout"`
	RetryAttempts    int `toml:"retry_attempts"`
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int `toml:"retry_max_delay_ms"`
}

// Playlist contains tuning for timeshift playlist resolution.
type Playlist struct {
	RetentionDays    int `toml:"retention_days"`
	ChunkLength      int `toml:"chunk_length"`
	RequestTimeout   int `toml:"request_timeout"`
	RetryAttempts    int `toml:"retry_attempts"`
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int `toml:"retry_max_delay_ms"`
}

// Segments contains tuning for media segment retrieval.
type Segments struct {
	Prefetch         int `toml:"prefetch"`
	RequestTimeout   int `toml:"request_timeout"`
	RetryAttempts    int `toml:"retry_attempts"`
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int `toml:"retry_max_delay_ms"`
}

// Encoder contains configuration for the external encoder process.
type Encoder struct {
	Binary          string `toml:"binary"`
	KillTimeout     int    `toml:"kill_timeout"`
	FinalizeTimeout int    `toml:"finalize_timeout"`
}

// Recording contains job-level timing configuration.
type Recording struct {
	SafetyMargin           int `toml:"safety_margin"`
	DefaultDurationMinutes int `toml:"default_duration_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for aircheck.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Service: endpoint base URL and default area
//   - Auth: handshake session TTL, timeout, and retry tuning
//   - Playlist: retention horizon, chunk length, and retry tuning
//   - Segments: prefetch depth, timeout, and retry tuning
//   - Encoder: external encoder binary and shutdown timeouts
//   - Recording: job deadline safety margin and default duration
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Service   Service   `toml:"service"`
	Auth      Auth      `toml:"auth"`
	Playlist  Playlist  `toml:"playlist"`
	Segments  Segments  `toml:"segments"`
	Encoder   Encoder   `toml:"encoder"`
	Recording Recording `toml:"recording"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/aircheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/aircheck/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("aircheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EncoderBinary returns the external encoder executable name.
func (c *Config) EncoderBinary() string {
	if bin := strings.TrimSpace(c.Encoder.Binary); bin != "" {
		return bin
	}
	return defaultEncoderBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
