package cachestore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/c360/docstreams/errors"
)

// BlobStore is the pluggable persistence backend for cached blobs.
// Keys are hierarchical strings; values are opaque bytes. All
// implementations must be safe for concurrent use.
type BlobStore interface {
	// Put stores the blob at the given key. Writing the same key
	// twice must be safe; cached blobs are content-addressed so a
	// rewrite always carries identical bytes.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the blob at the given key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix in lexicographic
	// order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// MemoryStore is an in-memory BlobStore used in tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of the blob.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

// Get retrieves a copy of the blob.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrBlobNotFound, "MemoryStore", "Get", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// List returns all keys with the given prefix, sorted.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
