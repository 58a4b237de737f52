package provider

import (
	"context"
	"time"

	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
)

// OAuthProvider is the contract for providers we request API access
// from. Implementations return token facts only and must not touch
// credential or registration state.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the authorization URL carrying the correlation
	// token as the opaque state parameter.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for tokens.
	Exchange(ctx context.Context, code string) (*register.ExchangeResult, error)

	// Refresh renews an access token from a stored refresh token.
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiry time.Time, err error)
}
