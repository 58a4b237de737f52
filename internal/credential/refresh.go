package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Refresher performs the provider's refresh-token exchange.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiry time.Time, err error)
}

// Manager decides when a stored credential needs refreshing and
// reconciles the outcome with the store.
//
// Two concurrent EnsureFresh calls for the same subject may both refresh;
// the provider tolerates that and the last UpdateTokens wins. Callers
// needing single-flight add their own per-user lock.
type Manager struct {
	store     Store
	refresher Refresher
	lookahead time.Duration

	now func() time.Time
}

func NewManager(store Store, refresher Refresher, lookahead time.Duration) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// EnsureFresh returns a credential whose access token is usable for at
// least the lookahead window, refreshing it first when necessary.
func (m *Manager) EnsureFresh(ctx context.Context, subject string) (*Credential, error) {
	cred, err := m.store.Get(ctx, subject)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: no credential for subject", ErrReauthorizationRequired)
	}

	if !m.needsRefresh(cred) {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", ErrReauthorizationRequired)
	}

	accessToken, expiry, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if grantRevoked(err) {
			// Clear so the next call fails fast instead of retrying a
			// doomed refresh.
			if clearErr := m.store.ClearTokens(ctx, subject); clearErr != nil {
				return nil, clearErr
			}
			return nil, fmt.Errorf("%w: %v", ErrReauthorizationRequired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshTransient, err)
	}

	// Provider libraries may hand back a naive local instant; the store
	// only ever sees absolute UTC.
	expiry = expiry.UTC()
	if err := m.store.UpdateTokens(ctx, subject, accessToken, expiry); err != nil {
		return nil, err
	}

	cred.AccessToken = accessToken
	cred.Expiry = expiry
	return cred, nil
}

// needsRefresh: unset expiry, already expired, or expiring inside the
// lookahead window.
func (m *Manager) needsRefresh(cred *Credential) bool {
	if cred.Expiry.IsZero() {
		return true
	}
	return !cred.Expiry.After(m.now().Add(m.lookahead))
}

// grantRevoked distinguishes a terminally dead grant from a transient
// provider failure. Structured error codes are checked first; substring
// matching on the body is the fallback for providers that send plain
// text.
func grantRevoked(err error) bool {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		switch retrieve.ErrorCode {
		case "invalid_grant", "invalid_client":
			return true
		}
		body := string(retrieve.Body)
		return strings.Contains(body, "invalid_grant") || strings.Contains(body, "invalid_client")
	}
	return false
}
