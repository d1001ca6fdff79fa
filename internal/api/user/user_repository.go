package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// PGXPool is the slice of pgxpool.Pool the repository uses. Declared here so
// tests can swap in a pgxmock pool.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepo defines the contract for user persistence. It is the superset of
// auth.UserStore, so one Postgres implementation backs both packages.
type UserRepo interface {
	CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*types.User, error)
	CreateUserWithRole(ctx context.Context, name, email string, phone *string, passwordHash string, role types.Role) (*types.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	FindByEmail(ctx context.Context, email string) (*types.User, error)
	FindByProviderID(ctx context.Context, provider types.Provider, providerID string) (*types.User, error)
	LinkProvider(ctx context.Context, userID uuid.UUID, provider types.Provider, providerID string, avatarURL *string) error
	UpsertProviderUser(ctx context.Context, provider types.Provider, profile *types.OAuthProfile) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status types.UserStatus) (*types.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// PostgresUserRepo provides the Postgres implementation of UserRepo.
type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresUserRepo(pgpool PGXPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, name, phone, email, password_hash, role, status, github_id, google_id, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &u.Role,
		&u.Status, &u.GithubID, &u.GoogleID, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// isUniqueViolation reports whether err is a Postgres 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*types.User, error) {
	return r.insertUser(ctx, name, email, phone, passwordHash, types.RoleUser)
}

func (r *PostgresUserRepo) CreateUserWithRole(ctx context.Context, name, email string, phone *string, passwordHash string, role types.Role) (*types.User, error) {
	return r.insertUser(ctx, name, email, phone, passwordHash, role)
}

func (r *PostgresUserRepo) insertUser(ctx context.Context, name, email string, phone *string, passwordHash string, role types.Role) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "insertUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "insertUser"), slog.String("email", email))

	query := `
		INSERT INTO users (id, name, phone, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, uuid.New(), name, phone, email, passwordHash, role))
	if err != nil {
		if isUniqueViolation(err) {
			l.WarnContext(ctx, "Email already registered")
			return nil, types.ErrEmailExists
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByProviderID(ctx context.Context, provider types.Provider, providerID string) (*types.User, error) {
	var row pgx.Row
	switch provider {
	case types.ProviderGitHub:
		githubID, err := strconv.ParseInt(providerID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed github id %q", types.ErrValidation, providerID)
		}
		row = r.pgpool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
	case types.ProviderGoogle:
		row = r.pgpool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, providerID)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", types.ErrValidation, provider)
	}

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by provider id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) LinkProvider(ctx context.Context, userID uuid.UUID, provider types.Provider, providerID string, avatarURL *string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "LinkProvider", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("oauth.provider", string(provider)),
	))
	defer span.End()

	var tag pgconn.CommandTag
	var err error
	switch provider {
	case types.ProviderGitHub:
		var githubID int64
		githubID, err = strconv.ParseInt(providerID, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: malformed github id %q", types.ErrValidation, providerID)
		}
		tag, err = r.pgpool.Exec(ctx,
			`UPDATE users SET github_id = $1, avatar_url = COALESCE($2, avatar_url), updated_at = $3 WHERE id = $4`,
			githubID, avatarURL, time.Now(), userID)
	case types.ProviderGoogle:
		tag, err = r.pgpool.Exec(ctx,
			`UPDATE users SET google_id = $1, avatar_url = COALESCE($2, avatar_url), updated_at = $3 WHERE id = $4`,
			providerID, avatarURL, time.Now(), userID)
	default:
		return fmt.Errorf("%w: unknown provider %q", types.ErrValidation, provider)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to link provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) UpsertProviderUser(ctx context.Context, provider types.Provider, profile *types.OAuthProfile) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpsertProviderUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("oauth.provider", string(provider)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpsertProviderUser"), slog.String("provider", string(provider)))

	var avatar *string
	if profile.AvatarURL != "" {
		avatar = &profile.AvatarURL
	}

	var row pgx.Row
	switch provider {
	case types.ProviderGitHub:
		githubID, err := strconv.ParseInt(profile.ProviderID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed github id %q", types.ErrValidation, profile.ProviderID)
		}
		query := `
			INSERT INTO users (id, name, email, github_id, avatar_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (github_id) DO UPDATE
			SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
			RETURNING ` + userColumns
		row = r.pgpool.QueryRow(ctx, query, uuid.New(), profile.DisplayName(), profile.Email, githubID, avatar)
	case types.ProviderGoogle:
		query := `
			INSERT INTO users (id, name, email, google_id, avatar_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (google_id) DO UPDATE
			SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
			RETURNING ` + userColumns
		row = r.pgpool.QueryRow(ctx, query, uuid.New(), profile.DisplayName(), profile.Email, profile.ProviderID, avatar)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", types.ErrValidation, provider)
	}

	user, err := scanUser(row)
	if err != nil {
		// The provider-id conflict is absorbed by the upsert, so a unique
		// violation here can only be the email column.
		if isUniqueViolation(err) {
			l.WarnContext(ctx, "Email already bound to another account", slog.String("email", profile.Email))
			return nil, types.ErrEmailExists
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to upsert provider user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListUsers", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateUser"), slog.String("userID", id.String()))

	var setClauses []string
	var args []any
	argID := 1

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *params.Name)
		argID++
	}
	if params.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argID))
		args = append(args, *params.Phone)
		argID++
	}
	if params.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *params.Email)
		argID++
	}
	if params.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argID))
		args = append(args, *params.Role)
		argID++
	}

	if len(setClauses) == 0 {
		return r.FindByID(ctx, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argID, userColumns)

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			l.WarnContext(ctx, "Email already taken")
			return nil, types.ErrEmailExists
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status types.UserStatus) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateStatus", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	query := `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + userColumns
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, status, time.Now(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}
