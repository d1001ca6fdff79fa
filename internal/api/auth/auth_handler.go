package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-user-directory/internal/api"
	"github.com/FACorreiaa/go-user-directory/internal/api/oauth"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

type AuthHandler struct {
	authService AuthService
	states      *oauth.StateStore
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, states *oauth.StateStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		states:      states,
		logger:      logger,
	}
}

// SignUp godoc
// @Summary      Register
// @Description  Creates a password-based account and returns its profile.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RegisterRequest true "Registration Parameters"
// @Success      201 {object} types.UserResponse "Created Account"
// @Failure      400 {object} api.Envelope "Invalid Input"
// @Failure      409 {object} api.Envelope "Email Already Registered"
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "SignUp"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := validateRegisterRequest(req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	resp, err := h.authService.Register(ctx, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, resp, "User registered")
}

// SignIn godoc
// @Summary      Login
// @Description  Verifies email and password and returns a token pair.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.LoginRequest true "Login Parameters"
// @Success      200 {object} types.AuthResponse "Token Pair"
// @Failure      401 {object} api.Envelope "Invalid Credentials"
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "SignIn"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		api.HandleError(w, r, l, fmt.Errorf("%w: email and password are required", types.ErrValidation))
		return
	}

	resp, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, resp, "Login successful")
}

// Refresh godoc
// @Summary      Refresh Session
// @Description  Rotates a refresh token into a new token pair.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RefreshRequest true "Refresh Parameters"
// @Success      200 {object} types.AuthResponse "Token Pair"
// @Failure      401 {object} api.Envelope "Invalid Token"
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Refresh"))

	var req types.RefreshRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if req.RefreshToken == "" {
		api.HandleError(w, r, l, fmt.Errorf("%w: refresh_token is required", types.ErrValidation))
		return
	}

	resp, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, resp, "Session refreshed")
}

// OAuthLogin godoc
// @Summary      OAuth Login
// @Description  Redirects to the provider's consent screen with a CSRF state.
// @Tags         Auth
// @Param        provider path string true "Provider" Enums(github, google)
// @Success      302 "Redirect To Provider"
// @Failure      400 {object} api.Envelope "Unknown Provider"
// @Router       /auth/{provider} [get]
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "OAuthLogin"))

	provider, err := types.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	url, err := h.authService.AuthCodeURL(provider, h.states.Issue())
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback godoc
// @Summary      OAuth Callback
// @Description  Completes the provider flow and returns a token pair.
// @Tags         Auth
// @Produce      json
// @Param        provider path string true "Provider" Enums(github, google)
// @Param        code query string true "Authorization Code"
// @Param        state query string true "CSRF State"
// @Success      200 {object} types.AuthResponse "Token Pair"
// @Failure      400 {object} api.Envelope "Exchange Failed"
// @Router       /auth/{provider}/callback [get]
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "OAuthCallback"))

	provider, err := types.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || !h.states.Consume(state) {
		l.WarnContext(ctx, "OAuth callback with unknown or replayed state")
		api.HandleError(w, r, l, fmt.Errorf("%w: invalid or expired state", types.ErrOAuth))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		api.HandleError(w, r, l, fmt.Errorf("%w: missing authorization code", types.ErrOAuth))
		return
	}

	resp, err := h.authService.OAuthCallback(ctx, provider, code)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, resp, "Login successful")
}

func validateRegisterRequest(req types.RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", types.ErrValidation)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", types.ErrValidation)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", types.ErrValidation)
	}
	if req.Phone != nil && len(*req.Phone) < 10 {
		return fmt.Errorf("%w: phone must be at least 10 characters", types.ErrValidation)
	}
	return nil
}
