// Package memstore is an in-memory store backend for tests and for
// evaluation runs that must not touch the production calendar.
package memstore

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle/store"
)

// MemStore holds documents in a map. Safe for concurrent use.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// New creates an empty MemStore.
func New() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, goerr.Wrap(store.ErrNotFound, key)
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	return cp, nil
}

func (s *MemStore) Put(ctx context.Context, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(doc))
	copy(cp, doc)
	s.docs[key] = cp
	return nil
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.docs[key]
	return ok, nil
}

func (s *MemStore) Close() error {
	return nil
}
