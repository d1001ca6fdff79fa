package auth

import (
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

var _ PasswordHasher = (*BcryptHasher)(nil)

// PasswordHasher abstracts password hashing so services can be tested without
// paying the bcrypt cost on every assertion.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type BcryptHasher struct {
	logger *slog.Logger
	cost   int
}

func NewBcryptHasher(logger *slog.Logger) *BcryptHasher {
	return &BcryptHasher{logger: logger, cost: bcrypt.DefaultCost}
}

func (b *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		b.logger.Error("Failed to hash password", slog.Any("error", err))
		return "", fmt.Errorf("%w: %s", types.ErrPasswordHashing, err)
	}
	return string(hash), nil
}

func (b *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
