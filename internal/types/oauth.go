package types

import "fmt"

// Provider tags an external OAuth identity source.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// ParseProvider validates a provider name taken from the URL path.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGitHub, ProviderGoogle:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown oauth provider %q: %w", s, ErrValidation)
}

// OAuthProfile is the provider-agnostic identity shape resolvers normalize
// provider responses into. Email is always a verified address; resolution
// fails before an OAuthProfile without one is ever produced.
type OAuthProfile struct {
	ProviderID string
	Name       string
	Login      string
	Email      string
	AvatarURL  string
}

// DisplayName picks the best available name for a new account:
// provider display name, then login, then the email address.
func (p *OAuthProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Login != "" {
		return p.Login
	}
	return p.Email
}
