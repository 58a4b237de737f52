package register

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CorrelationState is the decoded form of the opaque "state" value
// round-tripped through the provider's authorization redirect. It is
// either a lookup key into the pending-registration store or a
// self-contained descriptor for flows that skip pre-registration.
// Exactly one branch is set.
type CorrelationState struct {
	Lookup string
	Self   *SelfDescribed
}

// SelfDescribed is the structured state shape: a base64url-encoded JSON
// object carrying the subject directly.
type SelfDescribed struct {
	Subject     string `json:"sub"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// NewCorrelationToken returns a fresh unguessable lookup token.
// 32 bytes = 256 bits of entropy, base64url without padding.
func NewCorrelationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("register: failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EncodeSelfDescribed produces the structured state shape.
func EncodeSelfDescribed(sd SelfDescribed) (string, error) {
	data, err := json.Marshal(sd)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ParseCorrelationState decides which shape a raw state value is.
// Structured parse is attempted first; anything that is not a valid
// base64url JSON object falls back to lookup-key semantics. A JSON
// object that decodes but lacks "sub" is rejected outright rather than
// conflated with a lookup key.
func ParseCorrelationState(raw string) (CorrelationState, error) {
	if raw == "" {
		return CorrelationState{}, fmt.Errorf("%w: empty state", ErrUnknownState)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(decoded) == 0 || decoded[0] != '{' {
		return CorrelationState{Lookup: raw}, nil
	}

	var sd SelfDescribed
	if err := json.Unmarshal(decoded, &sd); err != nil {
		return CorrelationState{Lookup: raw}, nil
	}
	if sd.Subject == "" {
		return CorrelationState{}, fmt.Errorf("%w: structured state missing sub", ErrUnknownState)
	}
	return CorrelationState{Self: &sd}, nil
}
