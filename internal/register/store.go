package register

import (
	"context"
	"sync"
	"time"

	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
)

// Pending is a not-yet-completed registration awaiting the provider's
// authorization callback.
type Pending struct {
	Subject     string          `json:"subject"`
	Role        credential.Role `json:"role"`
	DisplayName string          `json:"display_name"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PendingStore holds pending registrations keyed by correlation token.
type PendingStore interface {
	// Create stores the record for ttl. The token is assumed fresh.
	Create(ctx context.Context, token string, p Pending, ttl time.Duration) error

	// Take atomically removes and returns the record, or (nil, nil) when
	// absent. Of two concurrent Takes for the same token, exactly one
	// receives the record.
	Take(ctx context.Context, token string) (*Pending, error)

	// ClaimCooldown reserves the per-subject creation slot for window.
	// Returns false when a claim inside the window already exists.
	ClaimCooldown(ctx context.Context, subject string, window time.Duration) (bool, error)

	// ReleaseCooldown frees the slot early, once the pending record it
	// guarded no longer exists.
	ReleaseCooldown(ctx context.Context, subject string) error
}

// MemoryPendingStore mirrors the redis store for tests, with an
// injectable clock.
type MemoryPendingStore struct {
	mu        sync.Mutex
	pending   map[string]pendingEntry
	cooldowns map[string]time.Time

	Now func() time.Time
}

type pendingEntry struct {
	p         Pending
	expiresAt time.Time
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{
		pending:   make(map[string]pendingEntry),
		cooldowns: make(map[string]time.Time),
		Now:       time.Now,
	}
}

func (s *MemoryPendingStore) Create(_ context.Context, token string, p Pending, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[token] = pendingEntry{p: p, expiresAt: s.Now().Add(ttl)}
	return nil
}

func (s *MemoryPendingStore) Take(_ context.Context, token string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[token]
	if !ok {
		return nil, nil
	}
	delete(s.pending, token)

	if s.Now().After(entry.expiresAt) {
		return nil, nil
	}
	p := entry.p
	return &p, nil
}

func (s *MemoryPendingStore) ClaimCooldown(_ context.Context, subject string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if until, ok := s.cooldowns[subject]; ok && now.Before(until) {
		return false, nil
	}
	s.cooldowns[subject] = now.Add(window)
	return true, nil
}

func (s *MemoryPendingStore) ReleaseCooldown(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cooldowns, subject)
	return nil
}
