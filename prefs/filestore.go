package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a DocStore backed by a single file on disk. Saves
// are atomic: the document is written to a temp file in the same
// directory and renamed into place.
func NewFileStore(path string) DocStore {
	return &fileStore{path: path}
}

func (s *fileStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte(emptyDoc), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return data, nil
}

func (s *fileStore) Save(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// MemStore is an in-memory DocStore, mainly useful in tests.
type MemStore struct {
	mu  sync.Mutex
	doc []byte
}

func (s *MemStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.doc) == 0 {
		return []byte(emptyDoc), nil
	}
	return s.doc, nil
}

func (s *MemStore) Save(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = append([]byte(nil), doc...)
	return nil
}
