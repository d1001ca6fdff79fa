package types

import "errors"

// Sentinel errors for the core error taxonomy. Services and repositories wrap
// these with fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is while keeping the underlying detail for logs.
var (
	ErrNotFound           = errors.New("requested item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenCreation      = errors.New("token creation error")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPasswordHashing    = errors.New("password hashing error")
	ErrValidation         = errors.New("validation error")
	ErrForbidden          = errors.New("action forbidden")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrOAuth              = errors.New("oauth error")
	ErrNoVerifiedEmail    = errors.New("no verified email available from provider")
	ErrInternal           = errors.New("internal server error")
)
