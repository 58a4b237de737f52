package auth

// Identity is a normalized external identity returned by a provider
// after verification. Facts only; no account decisions are made here.
type Identity struct {
	Provider    string // e.g. "line", "google"
	Subject     string // provider-scoped durable user identifier (sub)
	DisplayName string // profile name asserted by the provider, may be empty
	Email       string // email asserted by the provider, may be empty
}
