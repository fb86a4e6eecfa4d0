package logging

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDurationHuman(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{420 * time.Millisecond, "420ms"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 31*time.Minute, "2h31m0s"},
	}
	for _, tc := range cases {
		if got := formatDurationHuman(tc.in); got != tc.want {
			t.Fatalf("formatDurationHuman(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(42.55); got != "42.5%" && got != "42.6%" {
		t.Fatalf("formatPercent(42.55) = %q", got)
	}
	if got := formatPercent(100); got != "100%" {
		t.Fatalf("formatPercent(100) = %q", got)
	}
}

func TestFormatSubject(t *testing.T) {
	cases := []struct {
		station string
		jobID   string
		stage   string
		want    string
	}{
		{"TBS", "8f6c5e58-aaaa-4bbb-8ccc-000000000000", "fetching", "TBS · Job 8f6c5e58 (fetching)"},
		{"TBS", "", "", "TBS"},
		{"", "8f6c5e58-aaaa-4bbb-8ccc-000000000000", "", "Job 8f6c5e58"},
		{"", "", "resolving_playlist", "(resolving_playlist)"},
		{"", "", "", ""},
	}
	for _, tc := range cases {
		if got := FormatSubject(tc.station, tc.jobID, tc.stage); got != tc.want {
			t.Fatalf("FormatSubject(%q, %q, %q) = %q, want %q", tc.station, tc.jobID, tc.stage, got, tc.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("8f6c5e58-aaaa-4bbb"); got != "8f6c5e58" {
		t.Fatalf("ShortID = %q", got)
	}
	if got := ShortID("abcdefghij"); got != "abcdefgh" {
		t.Fatalf("ShortID without dash = %q", got)
	}
	if got := ShortID("short"); got != "short" {
		t.Fatalf("ShortID short input = %q", got)
	}
}
