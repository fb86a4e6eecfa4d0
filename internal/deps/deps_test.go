package deps

import (
	"os"
	"path/filepath"
	"testing"

	"aircheck/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[0].Command != present {
		t.Fatalf("expected resolved path %s, got %s", present, results[0].Command)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available {
		t.Fatal("expected unset command to be unavailable")
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %s", results[2].Detail)
	}
}

func TestCheckUsesConfiguredEncoder(t *testing.T) {
	stub := testsupport.StubBinary(t, "ffmpeg", "#!/bin/sh\nexit 0\n")
	cfg := testsupport.NewConfig(t, testsupport.WithEncoderBinary(stub))

	results := Check(cfg)
	if len(results) != 1 {
		t.Fatalf("expected one requirement, got %d", len(results))
	}
	if results[0].Name != "FFmpeg" {
		t.Fatalf("unexpected requirement name %s", results[0].Name)
	}
	if !results[0].Available {
		t.Fatalf("expected stubbed encoder available, got %#v", results[0])
	}
	if results[0].Command != stub {
		t.Fatalf("expected resolved command %s, got %s", stub, results[0].Command)
	}
}

func TestCheckReportsMissingEncoder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEncoderBinary("definitely-not-ffmpeg"))

	results := Check(cfg)
	if results[0].Available {
		t.Fatal("expected missing encoder to be unavailable")
	}
}
