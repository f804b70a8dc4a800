package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store keeps raw uploads around for the lifetime of an import job so a
// paused job can be resumed from the same bytes.
type Store interface {
	Save(fileName string, data []byte) (string, error)
	Open(path string) ([]byte, error)
	Delete(path string) error
}

type localStore struct {
	dir string
}

// NewLocalStore writes uploads under dir, creating it if needed.
func NewLocalStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) Save(fileName string, data []byte) (string, error) {
	// Prefix with a fresh id so repeated uploads of the same file never clash.
	name := uuid.NewString() + "_" + filepath.Base(fileName)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

func (s *localStore) Open(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored upload: %w", err)
	}
	return data, nil
}

func (s *localStore) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored upload: %w", err)
	}
	return nil
}
