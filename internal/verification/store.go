// Package verification keeps short-lived verification codes keyed by an address such as an email.
// Codes are stored hashed with an explicit expiry and a bounded attempt counter.
package verification

import (
	"context"
	"sync"
	"time"

	"github.com/azizikri/vinyl-checkout/internal/domain"
)

type Entry struct {
	Key       string
	CodeHash  []byte
	ExpiresAt time.Time
	Attempts  int
}

func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is implemented in memory here and on Postgres in the repository package.
type Store interface {
	// Put replaces any existing entry for the key and resets its attempts.
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, key string) (Entry, error)
	// IncrementAttempts fails with domain.ErrTooManyAttempts once Attempts has reached max.
	IncrementAttempts(ctx context.Context, key string, max int) (Entry, error)
	Delete(ctx context.Context, key string) error
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Attempts = 0
	s.entries[e.Key] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, domain.ErrCodeNotFound
	}
	return e, nil
}

func (s *MemoryStore) IncrementAttempts(_ context.Context, key string, max int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, domain.ErrCodeNotFound
	}
	if e.Attempts >= max {
		return e, domain.ErrTooManyAttempts
	}
	e.Attempts++
	s.entries[key] = e
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Purge drops expired entries and reports how many were removed.
func (s *MemoryStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}
