package credential

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const lookahead = 3 * time.Minute

type fakeRefresher struct {
	accessToken string
	expiry      time.Time
	err         error
	calls       int
}

func (f *fakeRefresher) Refresh(context.Context, string) (string, time.Time, error) {
	f.calls++
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.accessToken, f.expiry, nil
}

func seedCredential(t *testing.T, store *MemoryStore, cred Credential) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), cred))
}

func newTestManager(refresher *fakeRefresher) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	m := NewManager(store, refresher, lookahead)
	return m, store
}

func TestEnsureFreshSkipsRefreshOutsideLookahead(t *testing.T) {
	refresher := &fakeRefresher{}
	m, store := newTestManager(refresher)
	now := time.Now()
	m.now = func() time.Time { return now }

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       now.Add(10 * time.Minute),
	})

	cred, err := m.EnsureFresh(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, "at-old", cred.AccessToken)
	require.Zero(t, refresher.calls)
}

func TestEnsureFreshRefreshesInsideLookahead(t *testing.T) {
	refresher := &fakeRefresher{
		accessToken: "at-new",
		expiry:      time.Now().Add(time.Hour),
	}
	m, store := newTestManager(refresher)
	now := time.Now()
	m.now = func() time.Time { return now }

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       now.Add(time.Minute),
	})

	cred, err := m.EnsureFresh(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, "at-new", cred.AccessToken)
	require.Equal(t, 1, refresher.calls)

	stored, err := store.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, "at-new", stored.AccessToken)
	require.Equal(t, "rt", stored.RefreshToken)
}

func TestEnsureFreshRefreshesWhenExpiryUnset(t *testing.T) {
	refresher := &fakeRefresher{
		accessToken: "at-new",
		expiry:      time.Now().Add(time.Hour),
	}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
	})

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, 1, refresher.calls)
}

func TestEnsureFreshMissingRefreshTokenFailsFast(t *testing.T) {
	refresher := &fakeRefresher{}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:     "U1",
		AccessToken: "at-old",
	})

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.ErrorIs(t, err, ErrReauthorizationRequired)
	require.Zero(t, refresher.calls)
}

func TestEnsureFreshMissingCredential(t *testing.T) {
	m, _ := newTestManager(&fakeRefresher{})

	_, err := m.EnsureFresh(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrReauthorizationRequired)
}

func TestEnsureFreshRevokedGrantClearsTokens(t *testing.T) {
	refresher := &fakeRefresher{
		err: &oauth2.RetrieveError{
			Response:  &http.Response{StatusCode: http.StatusBadRequest},
			ErrorCode: "invalid_grant",
		},
	}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:      "U1",
		DisplayName:  "Amy",
		Role:         RoleStudent,
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Minute),
	})

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.ErrorIs(t, err, ErrReauthorizationRequired)

	stored, err := store.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, stored) // record kept, tokens gone
	require.Empty(t, stored.AccessToken)
	require.Empty(t, stored.RefreshToken)
	require.True(t, stored.Expiry.IsZero())
	require.Equal(t, "Amy", stored.DisplayName)
}

func TestEnsureFreshRevokedGrantBodyFallback(t *testing.T) {
	refresher := &fakeRefresher{
		err: &oauth2.RetrieveError{
			Response: &http.Response{StatusCode: http.StatusBadRequest},
			Body:     []byte(`{"error": "invalid_grant", "error_description": "Token has been revoked."}`),
		},
	}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Minute),
	})

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.ErrorIs(t, err, ErrReauthorizationRequired)
}

func TestEnsureFreshTransientFailureKeepsStore(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("dial tcp: i/o timeout")}
	m, store := newTestManager(refresher)
	now := time.Now()
	m.now = func() time.Time { return now }

	original := Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       now.Add(time.Minute).UTC(),
	}
	seedCredential(t, store, original)

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.ErrorIs(t, err, ErrRefreshTransient)

	stored, err := store.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, original, *stored)
}

func TestEnsureFreshServerErrorIsTransient(t *testing.T) {
	refresher := &fakeRefresher{
		err: &oauth2.RetrieveError{
			Response:  &http.Response{StatusCode: http.StatusServiceUnavailable},
			ErrorCode: "temporarily_unavailable",
		},
	}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Minute),
	})

	_, err := m.EnsureFresh(context.Background(), "U1")
	require.ErrorIs(t, err, ErrRefreshTransient)

	stored, err := store.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, "rt", stored.RefreshToken)
}

func TestEnsureFreshNormalizesExpiryToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*3600)
	refresher := &fakeRefresher{
		accessToken: "at-new",
		expiry:      time.Date(2026, 8, 28, 20, 0, 0, 0, zone),
	}
	m, store := newTestManager(refresher)

	seedCredential(t, store, Credential{
		Subject:      "U1",
		AccessToken:  "at-old",
		RefreshToken: "rt",
	})

	cred, err := m.EnsureFresh(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, time.UTC, cred.Expiry.Location())

	stored, err := store.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, time.UTC, stored.Expiry.Location())
	require.True(t, stored.Expiry.Equal(refresher.expiry))
}
