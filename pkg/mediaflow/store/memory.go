package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// MemoryStore is an in-memory WorkspaceStore for tests and examples.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*mediaflow.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*mediaflow.Document)}
}

// Load implements mediaflow.WorkspaceStore.
func (s *MemoryStore) Load(_ context.Context, id string) (*mediaflow.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc.Clone(), nil
}

// Save implements mediaflow.WorkspaceStore.
func (s *MemoryStore) Save(_ context.Context, id string, doc *mediaflow.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc.Clone()
	return nil
}
