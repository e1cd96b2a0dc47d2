package imap

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoCredentials is returned when no password has been stored for an
// account identifier.
var ErrNoCredentials = errors.New("no stored credentials")

type credentialsFile struct {
	Password string `json:"password"`
}

// credentialsPath returns the credentials file path for the identifier.
// Filenames are hashed so account identifiers never appear on disk.
func credentialsPath(credsDir, identifier string) string {
	hash := sha256.Sum256([]byte(identifier))
	prefix := fmt.Sprintf("%x", hash[:8])
	return filepath.Join(credsDir, "imap_"+prefix+".json")
}

// SaveCredentials stores an IMAP password for the given account identifier.
func SaveCredentials(credsDir, identifier, password string) error {
	if err := os.MkdirAll(credsDir, 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.Marshal(credentialsFile{Password: password})
	if err != nil {
		return err
	}
	if err := os.WriteFile(credentialsPath(credsDir, identifier), data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// LoadCredentials loads the stored IMAP password for the given identifier.
func LoadCredentials(credsDir, identifier string) (string, error) {
	data, err := os.ReadFile(credentialsPath(credsDir, identifier))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w for %s (run 'mailpane add-account' first)", ErrNoCredentials, identifier)
		}
		return "", fmt.Errorf("read credentials: %w", err)
	}
	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	return creds.Password, nil
}

// HasCredentials reports whether credentials exist for the identifier.
func HasCredentials(credsDir, identifier string) bool {
	_, err := os.Stat(credentialsPath(credsDir, identifier))
	return err == nil
}
