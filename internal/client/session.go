package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rehearsal-scheduler/app/internal/models"
)

// SessionStore persists the logged-in user between runs.
type SessionStore interface {
	// Load returns nil, nil when no session is stored.
	Load() (*models.AuthResponse, error)
	Save(session *models.AuthResponse) error
	Clear() error
}

// FileSessionStore keeps the session as a JSON file readable only by the owner.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load() (*models.AuthResponse, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session := &models.AuthResponse{}
	if err = json.Unmarshal(raw, session); err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, nil
	}
	return session, nil
}

func (s *FileSessionStore) Save(session *models.AuthResponse) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
