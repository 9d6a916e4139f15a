// Package session persists the single active sign-in: one bearer token
// and one role, cleared together on logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSession is returned when no token is stored.
var ErrNoSession = errors.New("no active session")

// Store is the persistence boundary for the session. Implementations
// must hit backing storage on every Token call so a logout or token
// change between API calls is observed on the very next call.
type Store interface {
	Token() (string, error)
	Role() (string, error)
	Set(token, role string) error
	Clear() error
}

type fileData struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// FileStore keeps the session as a small JSON document on disk, the
// CLI analogue of the app's device-local key/value storage.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path. The file
// is created lazily on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) read() (fileData, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileData{}, ErrNoSession
	}
	if err != nil {
		return fileData{}, fmt.Errorf("read session file: %w", err)
	}
	var d fileData
	if err := json.Unmarshal(b, &d); err != nil {
		return fileData{}, fmt.Errorf("decode session file: %w", err)
	}
	if d.Token == "" {
		return fileData{}, ErrNoSession
	}
	return d, nil
}

func (s *FileStore) Token() (string, error) {
	d, err := s.read()
	if err != nil {
		return "", err
	}
	return d.Token, nil
}

func (s *FileStore) Role() (string, error) {
	d, err := s.read()
	if err != nil {
		return "", err
	}
	return d.Role, nil
}

func (s *FileStore) Set(token, role string) error {
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	b, err := json.Marshal(fileData{Token: token, Role: role})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// The token is a credential, keep the file owner-only.
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu    sync.Mutex
	token string
	role  string
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *MemStore) Role() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.role, nil
}

func (s *MemStore) Set(token, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.role = role
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.role = ""
	return nil
}
