package register

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
)

var (
	// ErrRateLimited means an unexpired pending registration for the
	// same subject already exists inside the cooldown window.
	ErrRateLimited = errors.New("register: registration attempted too soon")

	// ErrUnknownState means the correlation token resolves to nothing:
	// expired, already consumed, or forged. The flow restarts from the
	// identity step.
	ErrUnknownState = errors.New("register: unknown correlation state")
)

// ExchangeResult is what the provider's code exchange hands back.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Email        string
	Metadata     map[string]string
}

// ExchangeFunc performs the provider code-for-token exchange.
type ExchangeFunc func(ctx context.Context, code string) (*ExchangeResult, error)

// Correlator ties an authorization callback back to the registration
// that initiated it.
type Correlator struct {
	pending  PendingStore
	creds    credential.Store
	cooldown time.Duration
	ttl      time.Duration
}

func NewCorrelator(pending PendingStore, creds credential.Store, cooldown, ttl time.Duration) *Correlator {
	return &Correlator{
		pending:  pending,
		creds:    creds,
		cooldown: cooldown,
		ttl:      ttl,
	}
}

// CreatePending records a verified identity as awaiting authorization
// and returns the correlation token to use as the OAuth state.
func (c *Correlator) CreatePending(ctx context.Context, subject string, role credential.Role, displayName string) (string, error) {
	ok, err := c.pending.ClaimCooldown(ctx, subject, c.cooldown)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: subject already has a pending registration", ErrRateLimited)
	}

	token, err := NewCorrelationToken()
	if err != nil {
		return "", err
	}

	p := Pending{
		Subject:     subject,
		Role:        role,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.pending.Create(ctx, token, p, c.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve consumes the state from an authorization callback, runs the
// code exchange and upserts the credential. Lookup states are single
// use: a second Resolve with the same token observes ErrUnknownState.
func (c *Correlator) Resolve(ctx context.Context, rawState, code string, exchange ExchangeFunc) (*credential.Credential, error) {
	state, err := ParseCorrelationState(rawState)
	if err != nil {
		return nil, err
	}

	var p *Pending
	switch {
	case state.Self != nil:
		p, err = pendingFromSelfDescribed(state.Self)
		if err != nil {
			return nil, err
		}
	default:
		p, err = c.pending.Take(ctx, state.Lookup)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: no pending registration for token", ErrUnknownState)
		}
		// The record is consumed; the cooldown guarding it no longer
		// applies, so a failed exchange can restart immediately.
		_ = c.pending.ReleaseCooldown(ctx, p.Subject)
	}

	result, err := exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("register: code exchange failed: %w", err)
	}

	cred := credential.Credential{
		Subject:      p.Subject,
		DisplayName:  p.DisplayName,
		Role:         p.Role,
		Email:        result.Email,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiry:       normalizeExpiry(result.Expiry),
		Metadata:     result.Metadata,
	}
	if err := c.creds.Upsert(ctx, cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func pendingFromSelfDescribed(sd *SelfDescribed) (*Pending, error) {
	role := credential.RoleStudent
	if sd.Role != "" {
		parsed, err := credential.ParseRole(sd.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownState, err)
		}
		role = parsed
	}
	return &Pending{
		Subject:     sd.Subject,
		Role:        role,
		DisplayName: sd.DisplayName,
	}, nil
}

func normalizeExpiry(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
