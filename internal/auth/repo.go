package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registria/registria/internal/shared"
	"github.com/registria/registria/internal/users"
)

// Repository defines persistence operations for the auth module. Sessions
// are mirrored in postgres for auditing; the user's tokens column tracks
// its live session IDs so a credential change can revoke them all.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	FindByID(ctx context.Context, id int64) (users.User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	AppendToken(ctx context.Context, userID int64, sessionID string) error
	RemoveToken(ctx context.Context, userID int64, sessionID string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const userColumns = `id, email, name, password_hash, role, tokens, COALESCE(branch_id, 0), COALESCE(branch_name, ''), COALESCE(phone, ''), COALESCE(batch, 0), COALESCE(current_semester, 0), created_at, updated_at`

func (r *PGRepository) scanUser(row pgx.Row) (users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Tokens,
		&u.Details.BranchID, &u.Details.BranchName, &u.Details.Phone, &u.Details.Batch, &u.Details.CurrentSemester,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return users.User{}, shared.ErrNotFound
	}
	return u, err
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID fetches a user by ID.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (users.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateSession persists a new login session for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// AppendToken records a session ID on the user.
func (r *PGRepository) AppendToken(ctx context.Context, userID int64, sessionID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET tokens = array_append(COALESCE(tokens, '{}'), $2) WHERE id = $1`, userID, sessionID)
	return err
}

// RemoveToken drops a session ID from the user.
func (r *PGRepository) RemoveToken(ctx context.Context, userID int64, sessionID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET tokens = array_remove(tokens, $2) WHERE id = $1`, userID, sessionID)
	return err
}
