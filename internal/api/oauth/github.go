package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/FACorreiaa/go-user-directory/config"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

const githubAPIBaseURL = "https://api.github.com"

// GitHubResolver implements Resolver for GitHub.
//
// GitHub hides primary emails behind a dedicated endpoint when the user marks
// them private, so FetchProfile may issue a second request to /user/emails and
// pick the address flagged primary and verified.
type GitHubResolver struct {
	logger     *slog.Logger
	oauthCfg   *oauth2.Config
	client     *http.Client
	apiBaseURL string
}

func NewGitHubResolver(cfg config.OAuthProviderConfig, logger *slog.Logger) *GitHubResolver {
	return &GitHubResolver{
		logger: logger,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
		client:     newHTTPClient(),
		apiBaseURL: githubAPIBaseURL,
	}
}

func (g *GitHubResolver) Provider() types.Provider { return types.ProviderGitHub }

func (g *GitHubResolver) AuthURL(state string) string {
	return g.oauthCfg.AuthCodeURL(state)
}

func (g *GitHubResolver) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	tok, err := g.oauthCfg.Exchange(ctx, code)
	if err != nil {
		g.logger.WarnContext(ctx, "GitHub code exchange failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: github code exchange: %s", types.ErrOAuth, err)
	}
	return tok.AccessToken, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHubResolver) FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	var user githubUser
	if err := g.getJSON(ctx, accessToken, "/user", &user); err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		resolved, err := g.resolvePrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		email = resolved
	}

	return &types.OAuthProfile{
		ProviderID: strconv.FormatInt(user.ID, 10),
		Name:       user.Name,
		Login:      user.Login,
		Email:      email,
		AvatarURL:  user.AvatarURL,
	}, nil
}

// resolvePrimaryEmail consults /user/emails when the profile email is private.
// Only an address both primary and verified is acceptable.
func (g *GitHubResolver) resolvePrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmail
	if err := g.getJSON(ctx, accessToken, "/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", types.ErrNoVerifiedEmail
}

func (g *GitHubResolver) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build github request: %s", types.ErrOAuth, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WarnContext(ctx, "GitHub API call failed", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("%w: github api %s: %s", types.ErrOAuth, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.WarnContext(ctx, "GitHub API returned non-200",
			slog.String("path", path), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: github api %s returned %d: %s", types.ErrOAuth, path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode github response: %s", types.ErrOAuth, err)
	}
	return nil
}
