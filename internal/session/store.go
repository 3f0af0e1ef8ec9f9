package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists the session and any pending login in a single JSON file.
//
// SECURITY: This store handles sensitive OAuth credentials.
//   - The file is written with 0600 permissions (owner read/write only)
//   - The directory is created with 0700 permissions (owner only)
//   - Token values are NEVER logged
//   - Writes go through a temporary file and a rename so readers never
//     observe a partial file
type Store struct {
	mu   sync.Mutex
	path string
}

type storedState struct {
	Session   *Session      `json:"session,omitempty"`
	Pending   *PendingLogin `json:"pending,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewStore creates a store backed by path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("session store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session storage directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored session and pending login. A missing file yields
// nil values and no error.
func (s *Store) Load() (*Session, *PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readLocked()
	if err != nil {
		return nil, nil, err
	}
	return state.Session, state.Pending, nil
}

// SaveSession stores sess, replacing any stored session. A nil session
// removes it.
func (s *Store) SaveSession(sess *Session) error {
	return s.update(func(state *storedState) {
		state.Session = sess
	}, "session_stored", sess)
}

// SavePending stores a pending login. A nil value removes it.
func (s *Store) SavePending(p *PendingLogin) error {
	return s.update(func(state *storedState) {
		state.Pending = p
	}, "pending_login_stored", nil)
}

// Clear removes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("SECURITY_AUDIT: Session deletion failed",
			"event", "session_delete_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	slog.Info("SECURITY_AUDIT: Session deleted",
		"event", "session_deleted",
		"path", s.path,
	)
	return nil
}

func (s *Store) update(mutate func(*storedState), event string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.readLocked()
	if err != nil {
		// An unreadable file is replaced rather than blocking login.
		slog.Warn("Discarding unreadable session file", "path", s.path, "error", err)
		state = &storedState{}
	}
	mutate(state)
	state.UpdatedAt = time.Now()

	if err := s.writeLocked(state); err != nil {
		slog.Warn("SECURITY_AUDIT: Session storage failed",
			"event", event+"_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return err
	}

	if sess != nil {
		slog.Debug("SECURITY_AUDIT: Session stored",
			"event", event,
			"issuer", sess.Issuer,
			"expiry", sess.Expiry().Format(time.RFC3339),
			"has_refresh_token", sess.RefreshToken != "",
		)
	}
	return nil
}

func (s *Store) readLocked() (*storedState, error) {
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &storedState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state storedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &state, nil
}

func (s *Store) writeLocked(state *storedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict session file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
