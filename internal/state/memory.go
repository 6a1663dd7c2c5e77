package state

import (
	"context"
	"sync"
)

// memoryStore keeps dialog state in a mutex-guarded map. Suitable for a
// single-process deployment and for tests.
type memoryStore struct {
	mu      sync.RWMutex
	dialogs map[string]Dialog
}

func newMemoryStore() *memoryStore {
	return &memoryStore{dialogs: make(map[string]Dialog)}
}

func (s *memoryStore) Get(_ context.Context, userID string) (Dialog, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dialogs[userID]
	return d, ok, nil
}

func (s *memoryStore) Put(_ context.Context, userID string, d Dialog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dialogs[userID] = d
	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.dialogs, userID)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dialogs = nil
	return nil
}
