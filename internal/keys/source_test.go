package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
)

type jwksServer struct {
	*httptest.Server
	fetches atomic.Int64
	set     atomic.Pointer[jose.JSONWebKeySet]
}

func newJWKSServer(t *testing.T, set jose.JSONWebKeySet) *jwksServer {
	t.Helper()

	s := &jwksServer{}
	s.set.Store(&set)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		_ = json.NewEncoder(w).Encode(s.set.Load())
	}))
	t.Cleanup(s.Close)
	return s
}

func rsaJWK(t *testing.T, kid string) jose.JSONWebKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jose.JSONWebKey{Key: &priv.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
}

func TestKeyServedFromCacheWithinTTL(t *testing.T) {
	srv := newJWKSServer(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "a")}})
	source := NewHTTPSource(srv.URL, time.Hour, srv.Client())

	for i := 0; i < 3; i++ {
		key, err := source.Key(context.Background(), "a")
		require.NoError(t, err)
		require.Equal(t, "a", key.KeyID)
	}

	require.Equal(t, int64(1), srv.fetches.Load())
}

func TestRefetchAfterTTL(t *testing.T) {
	srv := newJWKSServer(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "a")}})
	source := NewHTTPSource(srv.URL, time.Hour, srv.Client())

	now := time.Now()
	source.now = func() time.Time { return now }

	_, err := source.Key(context.Background(), "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = source.Key(context.Background(), "a")
	require.NoError(t, err)

	require.Equal(t, int64(2), srv.fetches.Load())
}

func TestKidMissInvalidatesCache(t *testing.T) {
	srv := newJWKSServer(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "a")}})
	source := NewHTTPSource(srv.URL, time.Hour, srv.Client())

	_, err := source.Key(context.Background(), "a")
	require.NoError(t, err)

	// Provider rotates to a new key inside the TTL.
	srv.set.Store(&jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "b")}})

	key, err := source.Key(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, "b", key.KeyID)
	require.Equal(t, int64(2), srv.fetches.Load())
}

func TestKeyNotFoundAfterForcedRefetch(t *testing.T) {
	srv := newJWKSServer(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "a")}})
	source := NewHTTPSource(srv.URL, time.Hour, srv.Client())

	_, err := source.Key(context.Background(), "nope")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Equal(t, int64(2), srv.fetches.Load())
}

func TestEmptyKeySetIsKeyNotFound(t *testing.T) {
	srv := newJWKSServer(t, jose.JSONWebKeySet{})
	source := NewHTTPSource(srv.URL, time.Hour, srv.Client())

	_, err := source.Key(context.Background(), "a")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStaticSource(t *testing.T) {
	source := &Static{Set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{rsaJWK(t, "pinned")}}}

	key, err := source.Key(context.Background(), "pinned")
	require.NoError(t, err)
	require.Equal(t, "pinned", key.KeyID)

	_, err = source.Key(context.Background(), "other")
	require.ErrorIs(t, err, ErrKeyNotFound)
}
