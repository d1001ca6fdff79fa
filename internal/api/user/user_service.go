package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-directory/internal/api/auth"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the business logic contract for directory management.
// Every operation takes the requester's id; the requester's role is re-read
// from storage on each call so a demotion takes effect immediately, not at
// the next token refresh.
type UserService interface {
	ListUsers(ctx context.Context, requesterID uuid.UUID) ([]types.UserResponse, error)
	CreateUser(ctx context.Context, requesterID uuid.UUID, req types.CreateUserRequest) (*types.UserResponse, error)
	UpdateUser(ctx context.Context, requesterID, targetID uuid.UUID, params types.UpdateUserParams) (*types.UserResponse, error)
	DeleteUser(ctx context.Context, requesterID, targetID uuid.UUID) error
	UpdateUserStatus(ctx context.Context, requesterID, targetID uuid.UUID, status types.UserStatus) (*types.UserResponse, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	hasher auth.PasswordHasher
}

func NewUserService(repo UserRepo, hasher auth.PasswordHasher, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		hasher: hasher,
	}
}

// requireRole loads the requester and checks the operation against their
// persisted role.
func (s *UserServiceImpl) requireRole(ctx context.Context, requesterID uuid.UUID, op Operation) (*types.User, error) {
	requester, err := s.repo.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}
	if err := Authorize(requester.Role, op); err != nil {
		s.logger.WarnContext(ctx, "Authorization denied",
			slog.String("requesterID", requesterID.String()),
			slog.String("role", string(requester.Role)),
			slog.String("operation", string(op)))
		return nil, err
	}
	return requester, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, requesterID uuid.UUID) ([]types.UserResponse, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ListUsers"), slog.String("requesterID", requesterID.String()))

	if _, err := s.requireRole(ctx, requesterID, OpList); err != nil {
		span.SetStatus(codes.Error, "Authorization failed")
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list users")
		return nil, err
	}

	responses := make([]types.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}

	l.InfoContext(ctx, "Users listed", slog.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "Users listed")
	return responses, nil
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, requesterID uuid.UUID, req types.CreateUserRequest) (*types.UserResponse, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "CreateUser", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
		attribute.String("user.email", req.Email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateUser"), slog.String("email", req.Email))

	if _, err := s.requireRole(ctx, requesterID, OpCreate); err != nil {
		span.SetStatus(codes.Error, "Authorization failed")
		return nil, err
	}

	role, err := types.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return nil, err
	}

	created, err := s.repo.CreateUserWithRole(ctx, req.Name, req.Email, req.Phone, hash, role)
	if err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return nil, err
	}

	l.InfoContext(ctx, "User created", slog.String("userID", created.ID.String()), slog.String("role", string(role)))
	span.SetStatus(codes.Ok, "User created")
	resp := created.ToResponse()
	return &resp, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, requesterID, targetID uuid.UUID, params types.UpdateUserParams) (*types.UserResponse, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUser", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
		attribute.String("user.id", targetID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateUser"), slog.String("userID", targetID.String()))

	if _, err := s.requireRole(ctx, requesterID, OpUpdate); err != nil {
		span.SetStatus(codes.Error, "Authorization failed")
		return nil, err
	}

	updated, err := s.repo.UpdateUser(ctx, targetID, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to update user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update user")
		return nil, err
	}

	l.InfoContext(ctx, "User updated")
	span.SetStatus(codes.Ok, "User updated")
	resp := updated.ToResponse()
	return &resp, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, requesterID, targetID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
		attribute.String("user.id", targetID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteUser"),
		slog.String("requesterID", requesterID.String()), slog.String("userID", targetID.String()))

	if _, err := s.requireRole(ctx, requesterID, OpDelete); err != nil {
		span.SetStatus(codes.Error, "Authorization failed")
		return err
	}

	if requesterID == targetID {
		l.WarnContext(ctx, "Requester attempted to delete own account")
		span.SetStatus(codes.Error, "Self-deletion rejected")
		return types.ErrCannotDeleteSelf
	}

	if err := s.repo.DeleteUser(ctx, targetID); err != nil {
		l.WarnContext(ctx, "Failed to delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete user")
		return err
	}

	l.InfoContext(ctx, "User deleted")
	span.SetStatus(codes.Ok, "User deleted")
	return nil
}

func (s *UserServiceImpl) UpdateUserStatus(ctx context.Context, requesterID, targetID uuid.UUID, status types.UserStatus) (*types.UserResponse, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUserStatus", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
		attribute.String("user.id", targetID.String()),
		attribute.String("user.status", string(status)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateUserStatus"),
		slog.String("userID", targetID.String()), slog.String("status", string(status)))

	if _, err := s.requireRole(ctx, requesterID, OpUpdateStatus); err != nil {
		span.SetStatus(codes.Error, "Authorization failed")
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, targetID, status)
	if err != nil {
		l.WarnContext(ctx, "Failed to update user status", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update user status")
		return nil, err
	}

	l.InfoContext(ctx, "User status updated")
	span.SetStatus(codes.Ok, "User status updated")
	resp := updated.ToResponse()
	return &resp, nil
}
