// Package token issues and verifies the signed bearer tokens used by the
// authentication flows. Tokens are HS256-signed JWTs carrying a snapshot of
// the user's identity plus a token_type claim distinguishing the short-lived
// access token from the long-lived refresh token.
package token

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-user-directory/config"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

// Service signs and verifies tokens with a process-wide symmetric secret.
// Safe for concurrent use; the secret is read-only after construction.
type Service struct {
	logger          *slog.Logger
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewService builds a Service from the JWT configuration. TTLs default to
// 15 minutes / 7 days when unset.
func NewService(cfg config.JWTConfig, logger *slog.Logger) *Service {
	accessTTL := cfg.AccessTokenTTL
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		logger:          logger,
		secret:          []byte(cfg.SecretKey),
		issuer:          cfg.Issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
	}
}

// AccessTokenTTL exposes the configured access token lifetime so handlers can
// report expires_in.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

// IssuePair creates an access/refresh token pair for the given user. Both
// tokens embed the same identity snapshot and differ only in token_type and
// expiry.
func (s *Service) IssuePair(user *types.User) (accessToken, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = s.sign(user, types.TokenTypeAccess, now, now.Add(s.accessTokenTTL))
	if err != nil {
		return "", "", fmt.Errorf("signing access token: %w", types.ErrTokenCreation)
	}

	refreshToken, err = s.sign(user, types.TokenTypeRefresh, now, now.Add(s.refreshTokenTTL))
	if err != nil {
		return "", "", fmt.Errorf("signing refresh token: %w", types.ErrTokenCreation)
	}

	return accessToken, refreshToken, nil
}

func (s *Service) sign(user *types.User, tokenType string, issuedAt, expiresAt time.Time) (string, error) {
	claims := types.Claims{
		UserID:    user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		AvatarURL: user.AvatarURL,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates the signature and expiry of a token and returns its
// claims. Callers must check TokenType themselves; the service does not know
// whether an access or refresh token is expected.
func (s *Service) Verify(tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Warn("Token verification failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}
	if !tok.Valid {
		s.logger.Warn("Token marked invalid after parse")
		return nil, types.ErrInvalidToken
	}

	return claims, nil
}
