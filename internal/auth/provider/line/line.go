package line

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JHEJIAZHANG/Project-sub001/internal/auth"
	"github.com/JHEJIAZHANG/Project-sub001/internal/keys"
	"github.com/JHEJIAZHANG/Project-sub001/internal/logger"
	"github.com/JHEJIAZHANG/Project-sub001/internal/token"
)

const providerName = "line"

// Provider verifies LINE Login id_tokens. LINE is the identity entry
// point only; no tokens are requested from it, so it does not implement
// the OAuth provider contract.
type Provider struct {
	verifier *token.Verifier
}

// New wires a JWKS-backed verifier for the given channel. The channel
// id is the expected audience. LINE signs id_tokens with ES256 keys;
// the verifier derives that from the published key material.
func New(channelID, issuer, jwksURL string, keyTTL, httpTimeout time.Duration) (*Provider, error) {
	if channelID == "" || issuer == "" || jwksURL == "" {
		return nil, errors.New("line config missing required fields")
	}

	source := keys.NewHTTPSource(jwksURL, keyTTL, &http.Client{Timeout: httpTimeout})
	return &Provider{
		verifier: token.NewVerifier(source, issuer, channelID),
	}, nil
}

// NewWithVerifier is the injection seam for tests.
func NewWithVerifier(v *token.Verifier) *Provider {
	return &Provider{verifier: v}
}

func (p *Provider) Name() string {
	return providerName
}

// VerifyIDToken validates the presented id_token and returns the
// normalized identity. Failures wrap token.ErrTokenInvalid.
func (p *Provider) VerifyIDToken(ctx context.Context, rawIDToken string) (*auth.Identity, error) {
	claims, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	name, _ := claims.Raw["name"].(string)
	email, _ := claims.Raw["email"].(string)

	logger.Info("line id_token verified", map[string]any{
		"issuer":          claims.Issuer,
		"subject_present": claims.Subject != "",
		"name_present":    name != "",
		"expiry_unix":     claims.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:    providerName,
		Subject:     claims.Subject,
		DisplayName: name,
		Email:       email,
	}, nil
}
