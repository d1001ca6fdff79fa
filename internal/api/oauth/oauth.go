// Package oauth exchanges authorization codes against GitHub and Google and
// normalizes the resulting provider identities into a portable profile.
package oauth

import (
	"context"
	"net/http"
	"time"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

// Resolver is the contract each provider implements.
//
// AuthURL builds the consent-screen URL for the given CSRF state. Exchange
// trades the authorization code for the provider's access token. FetchProfile
// resolves that token into a normalized profile with a verified email, or
// fails with types.ErrNoVerifiedEmail when none can be obtained.
type Resolver interface {
	Provider() types.Provider
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error)
}

// exchangeTimeout bounds every outbound provider call. The providers enforce
// their own server-side limits but we do not rely on them.
const exchangeTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: exchangeTimeout}
}
