package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"aircheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and retry delays short enough for tight test loops.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Auth.RetryBaseDelayMS = 1
	cfgVal.Auth.RetryMaxDelayMS = 5
	cfgVal.Playlist.RetryBaseDelayMS = 1
	cfgVal.Playlist.RetryMaxDelayMS = 5
	cfgVal.Segments.RetryBaseDelayMS = 1
	cfgVal.Segments.RetryMaxDelayMS = 5
	cfgVal.Encoder.KillTimeout = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAreaID overrides the configured service area.
func WithAreaID(areaID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.AreaID = areaID
	}
}

// WithBaseURL points the service endpoints at a test server.
func WithBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = baseURL
	}
}

// WithPrefetch sets the segment prefetch depth.
func WithPrefetch(prefetch int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Segments.Prefetch = prefetch
	}
}

// WithEncoderBinary pins the encoder to a specific executable, usually a
// stub written by StubBinary.
func WithEncoderBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.Binary = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
