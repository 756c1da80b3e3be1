package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abduss/certvault/internal/vault"
)

const sessionFile = "session.json"

// SessionStore persists the CLI session as JSON on disk.
type SessionStore struct {
	path string
}

// NewSessionStore keeps the session under dir. An empty dir selects
// the user config directory.
func NewSessionStore(dir string) (*SessionStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "certvault")
	}
	return &SessionStore{path: filepath.Join(dir, sessionFile)}, nil
}

// Path returns the session file location.
func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored session, or ErrNotSignedIn when none is stored.
func (s *SessionStore) Load() (vault.Session, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return vault.Session{}, ErrNotSignedIn
	}
	if err != nil {
		return vault.Session{}, fmt.Errorf("read session: %w", err)
	}

	var session vault.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return vault.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Save writes session readable by the current user only.
func (s *SessionStore) Save(session vault.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
