// Package imap provides the IMAP mail service the controller fetches from.
package imap

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Config holds connection settings for an IMAP server.
type Config struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	TLS      bool   `toml:"tls"`      // implicit TLS (IMAPS, port 993)
	STARTTLS bool   `toml:"starttls"` // STARTTLS upgrade (port 143)
	Username string `toml:"username"`
	Mailbox  string `toml:"mailbox"` // source mailbox, default INBOX
}

// effectivePort returns the configured port or the scheme default.
func (c *Config) effectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.TLS {
		return 993
	}
	return 143
}

// SourceMailbox returns the mailbox the email list is fetched from.
func (c *Config) SourceMailbox() string {
	if c.Mailbox == "" {
		return "INBOX"
	}
	return c.Mailbox
}

// Addr returns the "host:port" dial string.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.effectivePort())
}

// Identifier returns a canonical account string like
// "imaps://user@host:port", used to key stored credentials.
func (c *Config) Identifier() string {
	scheme := "imap"
	if c.TLS {
		scheme = "imaps"
	}
	return fmt.Sprintf("%s://%s@%s:%d", scheme, url.PathEscape(c.Username), c.Host, c.effectivePort())
}

// ParseIdentifier parses an account identifier back into a Config.
func ParseIdentifier(identifier string) (*Config, error) {
	u, err := url.Parse(identifier)
	if err != nil {
		return nil, fmt.Errorf("parse IMAP identifier: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(u.Scheme) {
	case "imaps":
		cfg.TLS = true
	case "imap":
	default:
		return nil, fmt.Errorf("unsupported scheme %q (expected imap or imaps)", u.Scheme)
	}

	cfg.Host = u.Hostname()
	cfg.Username = u.User.Username()

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	return cfg, nil
}
