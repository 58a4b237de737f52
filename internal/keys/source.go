package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// ErrKeyNotFound means no key in the provider's published set matches the
// requested key id, even after a forced refetch.
var ErrKeyNotFound = errors.New("keys: no key matches kid")

// Source resolves a signing key by key id.
type Source interface {
	Key(ctx context.Context, kid string) (*jose.JSONWebKey, error)
}

// HTTPSource fetches a JWKS document and serves lookups from a TTL cache.
// A kid miss against a fresh-enough cache triggers one forced refetch,
// which covers provider key rotation inside the TTL.
type HTTPSource struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.Mutex
	cached    *jose.JSONWebKeySet
	fetchedAt time.Time

	now func() time.Time
}

func NewHTTPSource(url string, ttl time.Duration, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{
		url:    url,
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

func (s *HTTPSource) Key(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	set, err := s.keySet(ctx, false)
	if err != nil {
		return nil, err
	}
	if matches := set.Key(kid); len(matches) > 0 {
		return &matches[0], nil
	}

	// Unknown kid: the cached document may predate a rotation.
	set, err = s.keySet(ctx, true)
	if err != nil {
		return nil, err
	}
	if matches := set.Key(kid); len(matches) > 0 {
		return &matches[0], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

func (s *HTTPSource) keySet(ctx context.Context, force bool) (*jose.JSONWebKeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	set, err := s.fetch(ctx)
	if err != nil {
		// A stale cache beats no cache on transient fetch failure,
		// but only when the miss was not a forced invalidation.
		if !force && s.cached != nil {
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = set
	s.fetchedAt = s.now()
	return set, nil
}

func (s *HTTPSource) fetch(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keys: jwks fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keys: jwks endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("keys: jwks read failed: %w", err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("keys: jwks parse failed: %w", err)
	}
	return &set, nil
}

// Static serves lookups from a fixed key set. Used by tests and by
// deployments that pin provider keys.
type Static struct {
	Set jose.JSONWebKeySet
}

func (s *Static) Key(_ context.Context, kid string) (*jose.JSONWebKey, error) {
	if matches := s.Set.Key(kid); len(matches) > 0 {
		return &matches[0], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}
