package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role is the requested account role recorded at registration.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTeacher, RoleStudent:
		return Role(s), nil
	default:
		return "", fmt.Errorf("credential: unknown role %q", s)
	}
}

var (
	// ErrReauthorizationRequired means there is no usable refresh token,
	// or the provider declared the grant permanently invalid. Terminal
	// until the user re-authorizes.
	ErrReauthorizationRequired = errors.New("credential: reauthorization required")

	// ErrRefreshTransient means the refresh exchange failed for a
	// recoverable reason (network, provider outage). Stored state is
	// untouched; the caller may retry.
	ErrRefreshTransient = errors.New("credential: transient refresh failure")
)

// Credential is the durable per-user record, keyed by external subject.
// Expiry is always UTC; a zero Expiry means "must refresh before use".
type Credential struct {
	Subject      string
	DisplayName  string
	Role         Role
	Email        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Metadata     map[string]string
}

// Store persists credentials. Get returns (nil, nil) when no record
// exists. Mutations are single statements keyed by subject so concurrent
// requests for the same user cannot interleave partial updates.
type Store interface {
	Get(ctx context.Context, subject string) (*Credential, error)

	// Upsert creates or replaces the record. A stored refresh token
	// survives an upsert whose RefreshToken is empty: a later
	// authorization exchange that returns no refresh token must not
	// erase one granted earlier.
	Upsert(ctx context.Context, cred Credential) error

	// UpdateTokens persists a successful refresh.
	UpdateTokens(ctx context.Context, subject, accessToken string, expiry time.Time) error

	// ClearTokens nulls access token, refresh token and expiry after a
	// revoked grant. The record itself is kept.
	ClearTokens(ctx context.Context, subject string) error
}
