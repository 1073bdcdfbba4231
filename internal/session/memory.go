package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	token string
	exp   time.Time
}

// MemoryStore keeps sessions in process; used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.exp.IsZero() && !s.now().Before(e.exp) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return e.token, nil
}

func (s *MemoryStore) Save(_ context.Context, key, token string, expiresAt time.Time) error {
	s.mu.Lock()
	s.entries[key] = entry{token: token, exp: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for k, e := range s.entries {
		if !e.exp.IsZero() && !now.Before(e.exp) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
