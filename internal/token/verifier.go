package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JHEJIAZHANG/Project-sub001/internal/keys"
)

// ErrTokenInvalid covers every verification failure: malformed token,
// unknown kid, algorithm mismatch, bad signature, wrong issuer or
// audience, expired claims. Callers restart the identity step.
var ErrTokenInvalid = errors.New("token: id_token invalid")

// Claims is the verified subset of an id_token a caller may rely on.
type Claims struct {
	Subject  string
	Issuer   string
	Audience []string
	Expiry   time.Time
	Raw      map[string]any
}

// Verifier checks provider-signed id_tokens against the provider's
// published key set.
type Verifier struct {
	keys     keys.Source
	issuer   string
	audience string
}

func NewVerifier(source keys.Source, issuer, audience string) *Verifier {
	return &Verifier{
		keys:     source,
		issuer:   issuer,
		audience: audience,
	}
}

// algForKey maps key material to the one algorithm permitted for it.
// Anything else in the token header is rejected, which closes the
// algorithm-substitution hole.
func algForKey(key any) (string, error) {
	switch key.(type) {
	case *rsa.PublicKey:
		return "RS256", nil
	case *ecdsa.PublicKey:
		return "ES256", nil
	default:
		return "", fmt.Errorf("unsupported key type %T", key)
	}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	keyfunc := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}

		jwk, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}

		alg, err := algForKey(jwk.Key)
		if err != nil {
			return nil, err
		}
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("alg %q not permitted for key %q", t.Method.Alg(), kid)
		}
		return jwk.Key, nil
	}

	claims := jwt.MapClaims{}
	_, err := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	).ParseWithClaims(raw, claims, keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrTokenInvalid)
	}
	iss, _ := claims.GetIssuer()
	aud, _ := claims.GetAudience()
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrTokenInvalid)
	}

	return &Claims{
		Subject:  sub,
		Issuer:   iss,
		Audience: aud,
		Expiry:   exp.Time.UTC(),
		Raw:      claims,
	}, nil
}
