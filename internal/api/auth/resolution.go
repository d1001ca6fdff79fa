package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

// resolveAccount maps a provider profile onto a local user.
//
// Precedence: an account already bound to this provider id wins, then an
// account sharing the verified email gets the provider linked to it, and only
// when neither exists is a fresh account created. Linking before creating
// keeps one person on one account even when they alternate providers.
func (s *AuthServiceImpl) resolveAccount(ctx context.Context, provider types.Provider, profile *types.OAuthProfile) (*types.User, error) {
	l := s.logger.With(slog.String("method", "resolveAccount"), slog.String("provider", string(provider)))

	user, err := s.store.FindByProviderID(ctx, provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	existing, err := s.store.FindByEmail(ctx, profile.Email)
	if err == nil {
		// A set provider id on the matched account means the email is
		// already claimed by a different identity at this provider. The
		// lookup above missed, so overwriting would silently rebind the
		// account. Surface the collision instead.
		if providerIDSet(existing, provider) {
			l.WarnContext(ctx, "Email already bound to another provider identity",
				slog.String("userID", existing.ID.String()))
			return nil, types.ErrEmailExists
		}
		l.InfoContext(ctx, "Linking provider to existing account",
			slog.String("userID", existing.ID.String()))
		var avatar *string
		if profile.AvatarURL != "" {
			avatar = &profile.AvatarURL
		}
		if err := s.store.LinkProvider(ctx, existing.ID, provider, profile.ProviderID, avatar); err != nil {
			return nil, err
		}
		linked, err := s.store.FindByProviderID(ctx, provider, profile.ProviderID)
		if err != nil {
			// The link reported success, so the row has to be there.
			if errors.Is(err, types.ErrNotFound) {
				l.ErrorContext(ctx, "Linked account vanished between link and fetch",
					slog.String("userID", existing.ID.String()))
				return nil, fmt.Errorf("%w: linked account not found", types.ErrInternal)
			}
			return nil, err
		}
		return linked, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	l.InfoContext(ctx, "Creating account from provider profile")
	return s.store.UpsertProviderUser(ctx, provider, profile)
}

func providerIDSet(u *types.User, provider types.Provider) bool {
	switch provider {
	case types.ProviderGitHub:
		return u.GithubID != nil
	case types.ProviderGoogle:
		return u.GoogleID != nil
	default:
		return false
	}
}
