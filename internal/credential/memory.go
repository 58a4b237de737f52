package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore mirrors PostgresStore semantics for tests and local runs
// without a database.
type MemoryStore struct {
	mu    sync.Mutex
	creds map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]Credential)}
}

func (s *MemoryStore) Get(_ context.Context, subject string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[subject]
	if !ok {
		return nil, nil
	}
	out := cred
	out.Metadata = cloneMetadata(cred.Metadata)
	return &out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.Expiry = normalizeExpiry(cred.Expiry)
	cred.Metadata = cloneMetadata(cred.Metadata)

	if prev, ok := s.creds[cred.Subject]; ok {
		if cred.RefreshToken == "" {
			cred.RefreshToken = prev.RefreshToken
		}
		if cred.Email == "" {
			cred.Email = prev.Email
		}
	}
	s.creds[cred.Subject] = cred
	return nil
}

func (s *MemoryStore) UpdateTokens(_ context.Context, subject, accessToken string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[subject]
	if !ok {
		return nil
	}
	cred.AccessToken = accessToken
	cred.Expiry = normalizeExpiry(expiry)
	s.creds[subject] = cred
	return nil
}

func (s *MemoryStore) ClearTokens(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[subject]
	if !ok {
		return nil
	}
	cred.AccessToken = ""
	cred.RefreshToken = ""
	cred.Expiry = time.Time{}
	s.creds[subject] = cred
	return nil
}

func normalizeExpiry(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
