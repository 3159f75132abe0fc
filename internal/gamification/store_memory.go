package gamification

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]Profile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]Profile)}
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.RLock()
	p, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return defaultProfile(userID), nil
	}
	return p, nil
}

func (s *memoryStore) Save(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[p.UserID] = p
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
	return nil
}
