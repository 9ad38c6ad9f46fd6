// Package session keeps the server-side "authenticated" flag of admin
// sessions. A session exists only after a successful login and is removed on
// logout or when its TTL runs out.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. Expired entries are treated
// as absent on lookup and are removed by DeleteExpired.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]time.Time
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Create starts a session valid for ttl and returns its id.
func (s *MemoryStore) Create(ctx context.Context, ttl time.Duration) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = s.now().Add(ttl)
	s.mu.Unlock()

	return id, nil
}

// Valid reports whether id names a live session.
func (s *MemoryStore) Valid(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	expiry, exists := s.sessions[id]
	s.mu.RUnlock()

	return exists && s.now().Before(expiry), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

// DeleteExpired drops every session whose TTL has run out and returns how many were dropped.
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, expiry := range s.sessions {
		if !now.Before(expiry) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
