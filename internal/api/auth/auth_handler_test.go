package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-directory/internal/api/oauth"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*types.AuthResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthResponse), args.Error(1)
}

func (m *MockAuthService) AuthCodeURL(provider types.Provider, state string) (string, error) {
	args := m.Called(provider, state)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) OAuthCallback(ctx context.Context, provider types.Provider, code string) (*types.AuthResponse, error) {
	args := m.Called(ctx, provider, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthResponse), args.Error(1)
}

func newTestHandler(svc AuthService) (*AuthHandler, *oauth.StateStore) {
	states := oauth.NewStateStore()
	return NewAuthHandler(svc, states, slog.New(slog.DiscardHandler)), states
}

func newAuthRouter(h *AuthHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/sign-up", h.SignUp)
	r.Post("/auth/sign-in", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)
	r.Get("/auth/{provider}", h.OAuthLogin)
	r.Get("/auth/{provider}/callback", h.OAuthCallback)
	return r
}

func TestSignUpValidation(t *testing.T) {
	svc := new(MockAuthService)
	h, _ := newTestHandler(svc)
	router := newAuthRouter(h)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@example.com","password":"hunter22"}`},
		{"bad email", `{"name":"A","email":"not-an-email","password":"hunter22"}`},
		{"short password", `{"name":"A","email":"a@example.com","password":"short"}`},
		{"short phone", `{"name":"A","email":"a@example.com","password":"hunter22","phone":"123"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestSignUpReturnsCreatedProfile(t *testing.T) {
	svc := new(MockAuthService)
	h, _ := newTestHandler(svc)
	router := newAuthRouter(h)

	created := &types.UserResponse{
		ID:     uuid.New(),
		Name:   "A",
		Email:  "a@example.com",
		Role:   types.RoleUser,
		Status: types.StatusActive,
	}
	svc.On("Register", mock.Anything, mock.AnythingOfType("types.RegisterRequest")).Return(created, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up",
		strings.NewReader(`{"name":"A","email":"a@example.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@example.com"`)
	assert.NotContains(t, rec.Body.String(), "access_token")
}

func TestSignInMapsInvalidCredentialsTo401(t *testing.T) {
	svc := new(MockAuthService)
	h, _ := newTestHandler(svc)
	router := newAuthRouter(h)

	svc.On("Login", mock.Anything, "a@example.com", "wrong").Return(nil, types.ErrInvalidCredentials)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in",
		strings.NewReader(`{"email":"a@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"meta"`)
}

func TestOAuthLoginRedirectsWithState(t *testing.T) {
	svc := new(MockAuthService)
	h, states := newTestHandler(svc)
	router := newAuthRouter(h)

	svc.On("AuthCodeURL", types.ProviderGitHub, mock.AnythingOfType("string")).
		Return("https://github.example/authorize?state=abc", nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/github", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.example/authorize?state=abc", rec.Header().Get("Location"))

	// The state handed to the service must have been stored for the callback.
	issued := svc.Calls[0].Arguments.String(1)
	assert.True(t, states.Consume(issued))
}

func TestOAuthCallbackRejectsUnknownState(t *testing.T) {
	svc := new(MockAuthService)
	h, _ := newTestHandler(svc)
	router := newAuthRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "OAuthCallback", mock.Anything, mock.Anything, mock.Anything)
}

func TestOAuthCallbackHappyPath(t *testing.T) {
	svc := new(MockAuthService)
	h, states := newTestHandler(svc)
	router := newAuthRouter(h)

	state := states.Issue()
	svc.On("OAuthCallback", mock.Anything, types.ProviderGitHub, "good-code").
		Return(&types.AuthResponse{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", ExpiresIn: 900}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=good-code&state="+state, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"a"`)
}

func TestOAuthLoginUnknownProvider(t *testing.T) {
	svc := new(MockAuthService)
	h, _ := newTestHandler(svc)
	router := newAuthRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/auth/gitlab", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
