package main

import (
	"strings"
	"testing"
)

func TestStationsCommandListsCatalog(t *testing.T) {
	dir := t.TempDir()
	server := newFakeService(t)
	configPath := writeTestConfig(t, dir, testConfigBody(dir, server.URL, "ffmpeg"))

	stdout, _, err := runCLI(t, "--config", configPath, "stations")
	if err != nil {
		t.Fatalf("stations failed: %v", err)
	}
	requireContains(t, stdout, "Stations: Tokyo Japan (JP13)")
	requireContains(t, stdout, "TBS RADIO")
	requireContains(t, stdout, "QRR")
}

func TestStationListFlagOnRoot(t *testing.T) {
	dir := t.TempDir()
	server := newFakeService(t)
	configPath := writeTestConfig(t, dir, testConfigBody(dir, server.URL, "ffmpeg"))

	stdout, _, err := runCLI(t, "--config", configPath, "--station-list")
	if err != nil {
		t.Fatalf("--station-list failed: %v", err)
	}
	requireContains(t, stdout, "TBS")
}

func TestStationsHonorsAreaOverride(t *testing.T) {
	dir := t.TempDir()
	server := newFakeService(t)
	configPath := writeTestConfig(t, dir, testConfigBody(dir, server.URL, "ffmpeg"))

	stdout, _, err := runCLI(t, "--config", configPath, "--area-id", "JP27", "stations")
	if err != nil {
		t.Fatalf("stations with override failed: %v", err)
	}
	requireContains(t, stdout, "OBC")
	if strings.Contains(stdout, "TBS") {
		t.Fatalf("override leaked configured area stations: %q", stdout)
	}
}

func TestStationsRejectsInvalidAreaOverride(t *testing.T) {
	dir := t.TempDir()
	server := newFakeService(t)
	configPath := writeTestConfig(t, dir, testConfigBody(dir, server.URL, "ffmpeg"))

	_, _, err := runCLI(t, "--config", configPath, "--area-id", "JP99", "stations")
	if err == nil {
		t.Fatal("expected invalid area override to fail")
	}
	requireContains(t, err.Error(), "invalid area id")
}
