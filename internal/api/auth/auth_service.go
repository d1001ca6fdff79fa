package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-directory/internal/api/oauth"
	"github.com/FACorreiaa/go-user-directory/internal/api/token"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// UserStore is the slice of the user repository the auth flows need. The
// Postgres implementation lives in the user package.
type UserStore interface {
	CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*types.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	FindByEmail(ctx context.Context, email string) (*types.User, error)
	FindByProviderID(ctx context.Context, provider types.Provider, providerID string) (*types.User, error)
	LinkProvider(ctx context.Context, userID uuid.UUID, provider types.Provider, providerID string, avatarURL *string) error
	UpsertProviderUser(ctx context.Context, provider types.Provider, profile *types.OAuthProfile) (*types.User, error)
}

// AuthService defines the business logic contract for authentication.
type AuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.UserResponse, error)
	Login(ctx context.Context, email, password string) (*types.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*types.AuthResponse, error)
	AuthCodeURL(provider types.Provider, state string) (string, error)
	OAuthCallback(ctx context.Context, provider types.Provider, code string) (*types.AuthResponse, error)
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger    *slog.Logger
	store     UserStore
	tokens    *token.Service
	hasher    PasswordHasher
	resolvers map[types.Provider]oauth.Resolver
}

func NewAuthService(store UserStore, tokens *token.Service, hasher PasswordHasher, resolvers []oauth.Resolver, logger *slog.Logger) *AuthServiceImpl {
	byProvider := make(map[types.Provider]oauth.Resolver, len(resolvers))
	for _, r := range resolvers {
		byProvider[r.Provider()] = r
	}
	return &AuthServiceImpl{
		logger:    logger,
		store:     store,
		tokens:    tokens,
		hasher:    hasher,
		resolvers: byProvider,
	}
}

// Register creates a password-based account and returns its public
// projection. The caller signs in separately to obtain tokens.
func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (*types.UserResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.email", req.Email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("email", req.Email))
	l.DebugContext(ctx, "Registering new user")

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, req.Name, req.Email, req.Phone, hash)
	if err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	resp := user.ToResponse()
	return &resp, nil
}

// Login verifies email and password. Every failure mode collapses into
// types.ErrInvalidCredentials so callers cannot probe which emails exist.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.email", email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login attempt for unknown email")
			span.SetStatus(codes.Error, "Unknown email")
			return nil, types.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to look up user")
		return nil, err
	}

	// Accounts created through an OAuth provider carry no password hash.
	if user.PasswordHash == nil || !s.hasher.Compare(*user.PasswordHash, password) {
		l.WarnContext(ctx, "Login attempt with wrong password", slog.String("userID", user.ID.String()))
		span.SetStatus(codes.Error, "Wrong password")
		return nil, types.ErrInvalidCredentials
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User logged in")
	return s.issueTokens(ctx, user)
}

// Refresh exchanges a valid refresh token for a new pair. The user is
// re-fetched so revived tokens always carry the current role and status.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*types.AuthResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Refresh")
	defer span.End()

	l := s.logger.With(slog.String("method", "Refresh"))

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid refresh token")
		return nil, err
	}
	if claims.TokenType != types.TokenTypeRefresh {
		l.WarnContext(ctx, "Access token presented on refresh endpoint", slog.String("userID", claims.UserID))
		span.SetStatus(codes.Error, "Wrong token type")
		return nil, fmt.Errorf("%w: not a refresh token", types.ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		span.SetStatus(codes.Error, "Malformed subject")
		return nil, fmt.Errorf("%w: malformed subject", types.ErrInvalidToken)
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Refresh token for deleted user", slog.String("userID", claims.UserID))
			span.SetStatus(codes.Error, "User gone")
			return nil, types.ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to look up user")
		return nil, err
	}

	l.InfoContext(ctx, "Session refreshed", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Session refreshed")
	return s.issueTokens(ctx, user)
}

// AuthCodeURL builds the provider consent URL for the given CSRF state.
func (s *AuthServiceImpl) AuthCodeURL(provider types.Provider, state string) (string, error) {
	resolver, ok := s.resolvers[provider]
	if !ok {
		return "", fmt.Errorf("%w: provider %q not configured", types.ErrValidation, provider)
	}
	return resolver.AuthURL(state), nil
}

// OAuthCallback completes the provider flow: exchange the code, fetch the
// profile, resolve it to a local account and sign the user in.
func (s *AuthServiceImpl) OAuthCallback(ctx context.Context, provider types.Provider, code string) (*types.AuthResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "OAuthCallback", trace.WithAttributes(
		attribute.String("oauth.provider", string(provider)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "OAuthCallback"), slog.String("provider", string(provider)))

	resolver, ok := s.resolvers[provider]
	if !ok {
		span.SetStatus(codes.Error, "Unknown provider")
		return nil, fmt.Errorf("%w: provider %q not configured", types.ErrValidation, provider)
	}

	accessToken, err := resolver.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Code exchange failed")
		return nil, err
	}

	profile, err := resolver.FetchProfile(ctx, accessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile fetch failed")
		return nil, err
	}

	user, err := s.resolveAccount(ctx, provider, profile)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve provider account", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Account resolution failed")
		return nil, err
	}

	l.InfoContext(ctx, "OAuth login completed", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "OAuth login completed")
	return s.issueTokens(ctx, user)
}

func (s *AuthServiceImpl) issueTokens(ctx context.Context, user *types.User) (*types.AuthResponse, error) {
	access, refresh, err := s.tokens.IssuePair(user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to issue token pair",
			slog.String("userID", user.ID.String()), slog.Any("error", err))
		return nil, err
	}
	return &types.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}
