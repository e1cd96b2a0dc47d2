// Package config handles loading and managing mailpane configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mailpane/mailpane/internal/imap"
)

// IMAPConfig holds account and fetch settings for the IMAP connection.
type IMAPConfig struct {
	imap.Config

	RateLimitQPS int `toml:"rate_limit_qps"` // IMAP commands per second (default: 5)
	FetchLimit   int `toml:"fetch_limit"`    // Max messages fetched per list (default: 200)
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	PageSize int `toml:"page_size"` // List rows per page (default: 15)
}

// RefreshConfig defines the background inbox refresh schedule.
type RefreshConfig struct {
	Schedule string `toml:"schedule"` // Cron expression (e.g., "*/5 * * * *" for every 5 minutes)
	Enabled  bool   `toml:"enabled"`  // Whether scheduled refresh is active
}

type Config struct {
	IMAP    IMAPConfig    `toml:"imap"`
	UI      UIConfig      `toml:"ui"`
	Refresh RefreshConfig `toml:"refresh"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default mailpane home directory.
// Respects MAILPANE_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILPANE_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailpane"
	}
	return filepath.Join(home, ".mailpane")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.mailpane/config.toml).
// A non-empty home overrides the home directory, like MAILPANE_HOME.
func Load(path, home string) (*Config, error) {
	homeDir := expandPath(home)
	if homeDir == "" {
		homeDir = DefaultHome()
	}

	path = expandPath(path)
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir:    homeDir,
		configPath: path,
		// Defaults
		IMAP: IMAPConfig{
			RateLimitQPS: 5,
			FetchLimit:   200,
		},
		UI: UIConfig{
			PageSize: 15,
		},
		Refresh: RefreshConfig{
			Schedule: "*/5 * * * *",
			Enabled:  false,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// CredentialsDir returns the directory holding stored account passwords.
func (c *Config) CredentialsDir() string {
	return filepath.Join(c.HomeDir, "credentials")
}

// ConfigFilePath returns the path the configuration was (or would be) read from.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0700)
}
