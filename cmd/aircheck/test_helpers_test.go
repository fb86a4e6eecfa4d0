package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command with captured output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a config file under dir and returns its path.
func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// testConfigBody renders a minimal config pointing every path under dir and
// the service at baseURL. Unmentioned settings keep their defaults.
func testConfigBody(dir, baseURL, encoderBinary string) string {
	return fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q

[service]
base_url = %q
area_id = "JP13"

[encoder]
binary = %q
`, filepath.Join(dir, "output"), filepath.Join(dir, "logs"), baseURL, encoderBinary)
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()

	if !strings.Contains(output, want) {
		t.Fatalf("output %q does not contain %q", output, want)
	}
}
