package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
	RoleUser       Role = "User"
	RoleMentor     Role = "Mentor"
)

// ParseRole validates a role received from the outside world.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSuperAdmin, RoleUser, RoleMentor:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q: %w", s, ErrValidation)
}

// UserStatus is the closed set of account states.
type UserStatus string

const (
	StatusActive    UserStatus = "Active"
	StatusSuspended UserStatus = "Suspended"
)

// ParseUserStatus validates a status received from the outside world.
func ParseUserStatus(s string) (UserStatus, error) {
	switch UserStatus(s) {
	case StatusActive, StatusSuspended:
		return UserStatus(s), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrValidation)
}

// User is the identity record owned by the user directory.
// PasswordHash is nil for OAuth-only accounts; GithubID and GoogleID are nil
// until the matching provider is linked. Timestamps are server-assigned and
// stay nil on transient copies that have not been persisted yet.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Phone        *string    `json:"phone,omitempty"`
	Email        string     `json:"email"`
	PasswordHash *string    `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	GithubID     *int64     `json:"github_id,omitempty"`
	GoogleID     *string    `json:"google_id,omitempty"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// UserResponse is the public-safe projection returned by every use case.
// It never carries the password hash or the raw provider ids.
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ToResponse projects a user onto its public shape.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UpdateUserParams defines the fields a SuperAdmin may change on a user.
// Pointers distinguish "not provided" from an explicit empty value.
type UpdateUserParams struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}
