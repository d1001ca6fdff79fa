package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/FACorreiaa/go-user-directory/config"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleResolver implements Resolver for Google. Google returns the email on
// the userinfo endpoint directly, but only a verified one is accepted.
type GoogleResolver struct {
	logger      *slog.Logger
	oauthCfg    *oauth2.Config
	client      *http.Client
	userinfoURL string
}

func NewGoogleResolver(cfg config.OAuthProviderConfig, logger *slog.Logger) *GoogleResolver {
	return &GoogleResolver{
		logger: logger,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client:      newHTTPClient(),
		userinfoURL: googleUserinfoURL,
	}
}

func (g *GoogleResolver) Provider() types.Provider { return types.ProviderGoogle }

func (g *GoogleResolver) AuthURL(state string) string {
	return g.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (g *GoogleResolver) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	tok, err := g.oauthCfg.Exchange(ctx, code)
	if err != nil {
		g.logger.WarnContext(ctx, "Google code exchange failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: google code exchange: %s", types.ErrOAuth, err)
	}
	return tok.AccessToken, nil
}

type googleUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Picture       string `json:"picture"`
}

func (g *GoogleResolver) FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build google request: %s", types.ErrOAuth, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WarnContext(ctx, "Google userinfo call failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: google userinfo: %s", types.ErrOAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.WarnContext(ctx, "Google userinfo returned non-200", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: google userinfo returned %d: %s", types.ErrOAuth, resp.StatusCode, body)
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode google response: %s", types.ErrOAuth, err)
	}

	if user.Email == "" || !user.VerifiedEmail {
		return nil, types.ErrNoVerifiedEmail
	}

	return &types.OAuthProfile{
		ProviderID: user.ID,
		Name:       user.Name,
		Email:      user.Email,
		AvatarURL:  user.Picture,
	}, nil
}
