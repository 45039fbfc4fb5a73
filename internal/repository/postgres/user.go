package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/pkg/database"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.EmailVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email or username", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindIdentityByID returns the identity projection of a user. The password
// hash is never selected.
func (r *UserRepository) FindIdentityByID(ctx context.Context, id string) (_ *domain.Identity, err error) {
	query := `
		SELECT id, username, email, role, email_verified, sessions_valid_after, created_at, updated_at
		FROM users
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "FindIdentityByID", query)
	defer func() { end(err) }()

	var i domain.Identity
	err = r.db.QueryRow(ctx, query, id).Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Role,
		&i.EmailVerified,
		&i.SessionsValidAfter,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	return &i, nil
}

// FindByEmail retrieves a full user record by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (_ *domain.User, err error) {
	query := `
		SELECT id, username, email, password_hash, role, email_verified, sessions_valid_after, created_at, updated_at
		FROM users
		WHERE email = $1`

	ctx, end := database.TraceQuery(ctx, "FindByEmail", query)
	defer func() { end(err) }()

	var u domain.User
	err = r.db.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.EmailVerified,
		&u.SessionsValidAfter,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// ExistsByEmailOrUsername reports which of email and username are taken.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1),
		       EXISTS (SELECT 1 FROM users WHERE username = $2)`

	ctx, end := database.TraceQuery(ctx, "ExistsByEmailOrUsername", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, email, username).Scan(&emailTaken, &usernameTaken); err != nil {
		return false, false, fmt.Errorf("check user exists: %w", err)
	}

	return emailTaken, usernameTaken, nil
}

// UpdateSessionsValidAfter sets the logout-all watermark of a user.
func (r *UserRepository) UpdateSessionsValidAfter(ctx context.Context, id string, at time.Time) (err error) {
	query := `UPDATE users SET sessions_valid_after = $1, updated_at = $1 WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "UpdateSessionsValidAfter", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update sessions watermark: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
