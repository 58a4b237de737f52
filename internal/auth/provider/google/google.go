package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/JHEJIAZHANG/Project-sub001/internal/logger"
	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
)

const providerName = "google"

// requestTimeout bounds token endpoint calls so a slow provider cannot
// stall a request handler.
const requestTimeout = 10 * time.Second

// Scopes requested at authorization time. Classroom and Calendar access
// is what the exchanged credential is later used for, so consent is
// collected up front.
var Scopes = []string{
	oidc.ScopeOpenID,
	"email",
	"profile",
	"https://www.googleapis.com/auth/classroom.courses.readonly",
	"https://www.googleapis.com/auth/classroom.coursework.me",
	"https://www.googleapis.com/auth/calendar",
}

// Provider wraps Google's OAuth endpoints. It returns token and
// identity facts only.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       Scopes,
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the authorization URL. Offline access plus forced
// consent is what makes Google return a refresh token on first
// authorization. Parameter encoding is handled by the oauth2 package;
// the state and every scope round-trip byte for byte.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades the grant code for tokens and pulls the verified
// email out of the id_token that rides along.
func (p *Provider) Exchange(ctx context.Context, code string) (*register.ExchangeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id_token verification failed: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id_token claims parse failed: %w", err)
	}

	logger.Info("google exchange verified", map[string]any{
		"issuer":          idToken.Issuer,
		"subject_present": claims.Subject != "",
		"email_present":   claims.Email != "",
		"refresh_granted": token.RefreshToken != "",
		"expiry_unix":     token.Expiry.Unix(),
	})

	metadata := map[string]string{"google_sub": claims.Subject}
	if claims.Picture != "" {
		metadata["picture"] = claims.Picture
	}

	return &register.ExchangeResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry.UTC(),
		Email:        claims.Email,
		Metadata:     metadata,
	}, nil
}

// Refresh renews the access token. Errors are returned untouched so the
// refresh manager can tell a revoked grant from a provider hiccup.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	source := p.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	})
	token, err := source.Token()
	if err != nil {
		return "", time.Time{}, err
	}
	return token.AccessToken, token.Expiry.UTC(), nil
}
