package seencache

import (
	"context"
	"sync"
)

// MemoryStore is the in-process fallback used when no REDIS_URL is
// configured, and the store tests run against.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[string]map[string]struct{}),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Add(ctx context.Context, conversationID string, messageIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[conversationID]
	if !ok {
		set = make(map[string]struct{})
		s.sets[conversationID] = set
	}
	for _, id := range messageIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Members(ctx context.Context, conversationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]string, 0, len(s.sets[conversationID]))
	for id := range s.sets[conversationID] {
		members = append(members, id)
	}
	return members, nil
}

func (s *MemoryStore) Drop(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, conversationID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
