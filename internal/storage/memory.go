package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps uploaded objects in process memory. It stands in for
// the bucket in development runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
}

// Object is one stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryStore returns an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

// Put stores the object and returns a synthetic readable URL.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = Object{Data: copied, ContentType: contentType}
	return "memory://" + key, nil
}

// Get returns a stored object, if present.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len reports how many objects have been stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
