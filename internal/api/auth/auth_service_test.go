package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-directory/config"
	"github.com/FACorreiaa/go-user-directory/internal/api/oauth"
	"github.com/FACorreiaa/go-user-directory/internal/api/token"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, name, email, phone, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) FindByProviderID(ctx context.Context, provider types.Provider, providerID string) (*types.User, error) {
	args := m.Called(ctx, provider, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) LinkProvider(ctx context.Context, userID uuid.UUID, provider types.Provider, providerID string, avatarURL *string) error {
	args := m.Called(ctx, userID, provider, providerID, avatarURL)
	return args.Error(0)
}

func (m *MockUserStore) UpsertProviderUser(ctx context.Context, provider types.Provider, profile *types.OAuthProfile) (*types.User, error) {
	args := m.Called(ctx, provider, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

// fakeHasher keeps service tests fast and deterministic.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Compare(hash, password string) bool   { return hash == "hashed:"+password }

type fakeResolver struct {
	provider    types.Provider
	profile     *types.OAuthProfile
	exchangeErr error
	profileErr  error
}

func (f *fakeResolver) Provider() types.Provider     { return f.provider }
func (f *fakeResolver) AuthURL(state string) string  { return "https://provider.example/auth?state=" + state }
func (f *fakeResolver) Exchange(_ context.Context, _ string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return "provider-token", nil
}
func (f *fakeResolver) FetchProfile(_ context.Context, _ string) (*types.OAuthProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func newTestService(t *testing.T, store UserStore, resolvers ...oauth.Resolver) *AuthServiceImpl {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	tokens := token.NewService(config.JWTConfig{SecretKey: "test-secret", Issuer: "directory-test"}, logger)
	return NewAuthService(store, tokens, fakeHasher{}, resolvers, logger)
}

func strPtr(s string) *string { return &s }

func testUser(role types.Role) *types.User {
	return &types.User{
		ID:     uuid.New(),
		Name:   "Test User",
		Email:  "test@example.com",
		Role:   role,
		Status: types.StatusActive,
	}
}

func TestRegisterReturnsProjection(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	user := testUser(types.RoleUser)
	user.PasswordHash = strPtr("hashed:hunter22")
	store.On("CreateUser", mock.Anything, "Test User", "test@example.com", (*string)(nil), "hashed:hunter22").
		Return(user, nil)

	resp, err := svc.Register(context.Background(), types.RegisterRequest{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "Test User", resp.Name)
	assert.Equal(t, "test@example.com", resp.Email)
	assert.Equal(t, types.RoleUser, resp.Role)
	assert.Equal(t, types.StatusActive, resp.Status)

	// Sign-up only provisions the account. Nothing resembling the stored
	// hash or a credential may leak through the response body.
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "hashed:hunter22")
	assert.NotContains(t, string(body), "token")

	store.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	store.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, types.ErrEmailExists)

	_, err := svc.Register(context.Background(), types.RegisterRequest{
		Name:     "Test User",
		Email:    "taken@example.com",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, types.ErrEmailExists)
}

func TestLoginSuccess(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	user := testUser(types.RoleAdmin)
	user.PasswordHash = strPtr("hashed:hunter22")
	store.On("FindByEmail", mock.Anything, "test@example.com").Return(user, nil)

	resp, err := svc.Login(context.Background(), "test@example.com", "hunter22")
	require.NoError(t, err)

	claims, err := svc.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, claims.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	known := testUser(types.RoleUser)
	known.PasswordHash = strPtr("hashed:right-password")
	oauthOnly := testUser(types.RoleUser)
	oauthOnly.PasswordHash = nil

	store.On("FindByEmail", mock.Anything, "unknown@example.com").Return(nil, types.ErrNotFound)
	store.On("FindByEmail", mock.Anything, "test@example.com").Return(known, nil)
	store.On("FindByEmail", mock.Anything, "oauth@example.com").Return(oauthOnly, nil)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "unknown@example.com", "whatever"},
		{"wrong password", "test@example.com", "wrong-password"},
		{"oauth-only account", "oauth@example.com", "any-password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		})
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	user := testUser(types.RoleUser)
	_, refresh, err := svc.tokens.IssuePair(user)
	require.NoError(t, err)

	// Role changed since the token was issued. The new pair must carry it.
	promoted := *user
	promoted.Role = types.RoleAdmin
	store.On("FindByID", mock.Anything, user.ID).Return(&promoted, nil)

	resp, err := svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)

	claims, err := svc.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, claims.Role)
	store.AssertExpectations(t)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	access, _, err := svc.tokens.IssuePair(testUser(types.RoleUser))
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
	store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestRefreshForDeletedUser(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	user := testUser(types.RoleUser)
	_, refresh, err := svc.tokens.IssuePair(user)
	require.NoError(t, err)

	store.On("FindByID", mock.Anything, user.ID).Return(nil, types.ErrNotFound)

	_, err = svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestOAuthCallbackExistingAccount(t *testing.T) {
	store := new(MockUserStore)
	profile := &types.OAuthProfile{ProviderID: "42", Name: "Octo Cat", Email: "octo@example.com"}
	svc := newTestService(t, store, &fakeResolver{provider: types.ProviderGitHub, profile: profile})

	user := testUser(types.RoleUser)
	store.On("FindByProviderID", mock.Anything, types.ProviderGitHub, "42").Return(user, nil)

	resp, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	store.AssertNotCalled(t, "UpsertProviderUser", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "LinkProvider", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthCallbackLinksByEmail(t *testing.T) {
	store := new(MockUserStore)
	profile := &types.OAuthProfile{
		ProviderID: "42",
		Name:       "Octo Cat",
		Email:      "octo@example.com",
		AvatarURL:  "https://avatars.example/octo.png",
	}
	svc := newTestService(t, store, &fakeResolver{provider: types.ProviderGitHub, profile: profile})

	// Password-only account with a stale avatar. Linking must bind the
	// provider id and pick up the provider's current avatar.
	existing := testUser(types.RoleUser)
	existing.Email = "octo@example.com"
	existing.AvatarURL = strPtr("https://avatars.example/old.png")

	store.On("FindByProviderID", mock.Anything, types.ProviderGitHub, "42").
		Return(nil, types.ErrNotFound).Once()
	store.On("FindByEmail", mock.Anything, "octo@example.com").Return(existing, nil)
	store.On("LinkProvider", mock.Anything, existing.ID, types.ProviderGitHub, "42",
		mock.MatchedBy(func(avatar *string) bool {
			return avatar != nil && *avatar == "https://avatars.example/octo.png"
		})).Return(nil)
	store.On("FindByProviderID", mock.Anything, types.ProviderGitHub, "42").
		Return(existing, nil).Once()

	resp, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "UpsertProviderUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthCallbackEmailClaimedByOtherIdentity(t *testing.T) {
	store := new(MockUserStore)
	profile := &types.OAuthProfile{ProviderID: "42", Name: "Octo Cat", Email: "octo@example.com"}
	svc := newTestService(t, store, &fakeResolver{provider: types.ProviderGitHub, profile: profile})

	// The account sharing the email is already bound to a different GitHub
	// identity. The stored id must survive untouched.
	otherID := int64(7)
	existing := testUser(types.RoleUser)
	existing.Email = "octo@example.com"
	existing.GithubID = &otherID

	store.On("FindByProviderID", mock.Anything, types.ProviderGitHub, "42").Return(nil, types.ErrNotFound)
	store.On("FindByEmail", mock.Anything, "octo@example.com").Return(existing, nil)

	_, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	assert.ErrorIs(t, err, types.ErrEmailExists)

	store.AssertNotCalled(t, "LinkProvider", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpsertProviderUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthCallbackLinkedAccountVanished(t *testing.T) {
	store := new(MockUserStore)
	profile := &types.OAuthProfile{ProviderID: "42", Email: "octo@example.com"}
	svc := newTestService(t, store, &fakeResolver{provider: types.ProviderGitHub, profile: profile})

	existing := testUser(types.RoleUser)
	existing.Email = "octo@example.com"

	store.On("FindByProviderID", mock.Anything, types.ProviderGitHub, "42").Return(nil, types.ErrNotFound)
	store.On("FindByEmail", mock.Anything, "octo@example.com").Return(existing, nil)
	store.On("LinkProvider", mock.Anything, existing.ID, types.ProviderGitHub, "42", mock.Anything).Return(nil)

	_, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	assert.ErrorIs(t, err, types.ErrInternal)
}

func TestOAuthCallbackCreatesAccount(t *testing.T) {
	store := new(MockUserStore)
	profile := &types.OAuthProfile{ProviderID: "108", Name: "Ada Lovelace", Email: "ada@example.com"}
	svc := newTestService(t, store, &fakeResolver{provider: types.ProviderGoogle, profile: profile})

	created := testUser(types.RoleUser)
	created.Email = "ada@example.com"

	store.On("FindByProviderID", mock.Anything, types.ProviderGoogle, "108").Return(nil, types.ErrNotFound)
	store.On("FindByEmail", mock.Anything, "ada@example.com").Return(nil, types.ErrNotFound)
	store.On("UpsertProviderUser", mock.Anything, types.ProviderGoogle, profile).Return(created, nil)

	resp, err := svc.OAuthCallback(context.Background(), types.ProviderGoogle, "auth-code")
	require.NoError(t, err)

	claims, err := svc.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)
	store.AssertExpectations(t)
}

func TestOAuthCallbackUnknownProvider(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store)

	_, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestOAuthCallbackNoVerifiedEmail(t *testing.T) {
	store := new(MockUserStore)
	svc := newTestService(t, store, &fakeResolver{
		provider:   types.ProviderGitHub,
		profileErr: types.ErrNoVerifiedEmail,
	})

	_, err := svc.OAuthCallback(context.Background(), types.ProviderGitHub, "auth-code")
	assert.ErrorIs(t, err, types.ErrNoVerifiedEmail)
}
