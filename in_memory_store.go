package pathtree

import (
	"context"
	"fmt"
	"sync"
)

// memoryStore keeps serialized nodes in a map. Stored bytes are copied, so
// callers may reuse their buffers.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewInMemoryStore provides a Persist that stores serialized nodes in a map, usually for testing.
func NewInMemoryStore() Persist {
	return &memoryStore{entries: map[string][]byte{}}
}

func (s *memoryStore) Store(ctx context.Context, name string, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		s.entries[name] = append([]byte(nil), b...)
	}
	return nil
}

func (s *memoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("in-memory store: no entry for %s", name)
	}
	return b, nil
}
