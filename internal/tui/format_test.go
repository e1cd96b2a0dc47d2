package tui

import (
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "-"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"seconds ago", now.Add(-30 * time.Second), "now"},
		{"minutes ago", now.Add(-5 * time.Minute), "5m"},
		{"hours ago", now.Add(-3 * time.Hour), "3h"},
		{"days ago", now.Add(-2 * 24 * time.Hour), "2d"},
		{"same year", time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), "Feb 14"},
		{"older year", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), "2024-12-25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relativeTime(tt.t, now); got != tt.want {
				t.Errorf("relativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"newlines stripped", "a\nb\r\tc", 10, "a b c"},
		{"tiny width", "hello", 2, "he"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.width); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 15)
	if len(lines) < 3 {
		t.Fatalf("got %d lines: %v", len(lines), lines)
	}
	for _, line := range lines {
		if len(line) > 15 {
			t.Errorf("line longer than width: %q", line)
		}
	}
}

func TestClampLines(t *testing.T) {
	long := strings.Repeat("word ", 50)

	lines := clampLines(long, 20, 2)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Errorf("last line missing ellipsis: %q", lines[1])
	}

	short := clampLines("one line", 20, 2)
	if len(short) != 1 || short[0] != "one line" {
		t.Errorf("short text clamped: %v", short)
	}

	if got := clampLines(long, 20, 0); got != nil {
		t.Errorf("zero maxLines returned %v", got)
	}
}

func TestSenderLabel(t *testing.T) {
	e := testEmail("1", "ann@example.com", "s", "b")
	if got := senderLabel(e); got != "ann@example.com" {
		t.Errorf("senderLabel = %q", got)
	}
	e.FromName = "Ann"
	if got := senderLabel(e); got != "Ann" {
		t.Errorf("senderLabel with name = %q", got)
	}
}
