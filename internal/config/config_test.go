package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.IMAP.RateLimitQPS != 5 {
		t.Errorf("RateLimitQPS = %d, want 5", cfg.IMAP.RateLimitQPS)
	}
	if cfg.IMAP.FetchLimit != 200 {
		t.Errorf("FetchLimit = %d, want 200", cfg.IMAP.FetchLimit)
	}
	if cfg.UI.PageSize != 15 {
		t.Errorf("PageSize = %d, want 15", cfg.UI.PageSize)
	}
	if cfg.Refresh.Enabled {
		t.Error("scheduled refresh should be off by default")
	}
	if cfg.HomeDir == "" {
		t.Error("HomeDir not set")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[imap]
host = "mail.example.com"
port = 1993
tls = true
username = "user@example.com"
mailbox = "Archive"
rate_limit_qps = 2

[ui]
page_size = 30

[refresh]
schedule = "0 * * * *"
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.IMAP.Host != "mail.example.com" || cfg.IMAP.Port != 1993 || !cfg.IMAP.TLS {
		t.Errorf("imap section = %+v", cfg.IMAP)
	}
	if cfg.IMAP.SourceMailbox() != "Archive" {
		t.Errorf("mailbox = %q", cfg.IMAP.SourceMailbox())
	}
	if cfg.IMAP.RateLimitQPS != 2 {
		t.Errorf("RateLimitQPS = %d, want 2", cfg.IMAP.RateLimitQPS)
	}
	// Unset keys keep their defaults.
	if cfg.IMAP.FetchLimit != 200 {
		t.Errorf("FetchLimit = %d, want 200", cfg.IMAP.FetchLimit)
	}
	if cfg.UI.PageSize != 30 {
		t.Errorf("PageSize = %d, want 30", cfg.UI.PageSize)
	}
	if !cfg.Refresh.Enabled || cfg.Refresh.Schedule != "0 * * * *" {
		t.Errorf("refresh section = %+v", cfg.Refresh)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("imap = {"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, ""); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoadHomeOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HomeDir != dir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, dir)
	}
	if cfg.ConfigFilePath() != filepath.Join(dir, "config.toml") {
		t.Errorf("ConfigFilePath() = %q", cfg.ConfigFilePath())
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	cfg, err := Load("", "~/.mailpane-alt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if want := filepath.Join(home, ".mailpane-alt"); cfg.HomeDir != want {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, want)
	}
}

func TestDefaultHomeEnvOverride(t *testing.T) {
	t.Setenv("MAILPANE_HOME", "/tmp/mailpane-test-home")
	if got := DefaultHome(); got != "/tmp/mailpane-test-home" {
		t.Errorf("DefaultHome() = %q", got)
	}
}

func TestCredentialsDir(t *testing.T) {
	cfg := &Config{HomeDir: "/home/u/.mailpane"}
	want := filepath.Join("/home/u/.mailpane", "credentials")
	if got := cfg.CredentialsDir(); got != want {
		t.Errorf("CredentialsDir() = %q, want %q", got, want)
	}
}
