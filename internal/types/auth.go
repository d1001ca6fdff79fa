package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token kinds embedded in the token_type claim. An access token is never
// accepted where a refresh token is required, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed JWT payload. Besides the registered claims (sub, iat,
// exp) it carries a denormalized snapshot of the user's identity at issuance
// time. The snapshot is identity only: authorization decisions are always made
// against the role currently persisted in the directory, never this copy.
type Claims struct {
	UserID    string  `json:"uid"`
	Name      string  `json:"name,omitempty"`
	Email     string  `json:"eml"`
	Phone     *string `json:"phn,omitempty"`
	Role      Role    `json:"rol"`
	AvatarURL *string `json:"avt,omitempty"`
	TokenType string  `json:"token_type"`
	jwt.RegisteredClaims
}

// RegisterRequest is the sign-up request body.
type RegisterRequest struct {
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

// LoginRequest is the sign-in request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned on successful login, refresh or OAuth callback.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// CreateUserRequest is the admin-initiated user creation body.
type CreateUserRequest struct {
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

// UpdateUserStatusRequest suspends or reactivates a user.
type UpdateUserStatusRequest struct {
	Status string `json:"status"`
}
