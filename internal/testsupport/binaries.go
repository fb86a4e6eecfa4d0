package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StubBinary writes an executable shell script into a per-test directory and
// returns its absolute path. Use it when a test needs scripted behavior from
// an external binary rather than the plain exit-0 stub.
func StubBinary(t testing.TB, name, script string) string {
	t.Helper()

	dir := t.TempDir()
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
