// Package prefs persists UI preference paths across sessions. Preferences
// live in a single JSON document addressed with the same dot paths as the
// state tree, nested under a fixed key prefix; selected state paths are
// bound to the document so writes persist automatically and the saved
// values seed state at startup.
package prefs

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DocStore loads and saves the raw preference document.
type DocStore interface {
	// Load returns the current document, or an empty one if none exists.
	Load(ctx context.Context) ([]byte, error)
	// Save persists the document, overwriting any previous version.
	Save(ctx context.Context, doc []byte) error
}

const emptyDoc = "{}"

// Store wraps a preference document with dot-path access. All values are
// namespaced under the configured prefix inside the document, so unrelated
// keys written by other tools survive round trips. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	doc    []byte
	store  DocStore
	prefix string
}

// NewStore creates a Store over the given document backend.
func NewStore(store DocStore, prefix string) *Store {
	return &Store{
		doc:    []byte(emptyDoc),
		store:  store,
		prefix: prefix,
	}
}

// Load replaces the in-memory document with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	if len(doc) == 0 {
		doc = []byte(emptyDoc)
	}
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("%w: not valid JSON", ErrCorruptDocument)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Save persists the in-memory document.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()

	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// Get returns the value stored at the given preference path.
func (s *Store) Get(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := gjson.GetBytes(s.doc, s.key(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Set writes a value at the given preference path in the in-memory
// document. Call Save to persist.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.SetBytes(s.doc, s.key(path), value)
	if err != nil {
		return fmt.Errorf("setting preference %q: %w", path, err)
	}
	s.doc = doc
	return nil
}

// Delete removes the value at the given preference path.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.DeleteBytes(s.doc, s.key(path))
	if err != nil {
		return fmt.Errorf("deleting preference %q: %w", path, err)
	}
	s.doc = doc
	return nil
}

func (s *Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "." + path
}
