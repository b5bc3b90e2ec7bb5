package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/platform/db"
	"github.com/registria/registria/internal/shared"
)

// Repository defines data access for user records. Student creation runs
// inside WithTx so the branch row can be locked across the capacity check
// and the insert.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetByID(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, roles []accesscontrol.Role, filters ListFilters) ([]User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
	BatchAnalysis(ctx context.Context) ([]BatchAnalysisRow, error)
	VacantSeatAnalysis(ctx context.Context, filters VacantSeatFilters) ([]VacantSeatRow, error)
}

// TxRepository is the transactional slice of the repository used by the
// capacity-guarded create path.
type TxRepository interface {
	// LockBranchIntake loads a branch's intake capacity while locking its
	// row until the surrounding transaction commits. This serializes
	// concurrent student creations against the same branch.
	LockBranchIntake(ctx context.Context, branchID int64) (int, error)
	CountStudents(ctx context.Context, branchID int64) (int, error)
	InsertUser(ctx context.Context, u User) (User, error)
}

// PGRepository implements Repository over pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const userColumns = `id, email, name, password_hash, role, tokens, COALESCE(branch_id, 0), COALESCE(branch_name, ''), COALESCE(phone, ''), COALESCE(batch, 0), COALESCE(current_semester, 0), created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Tokens,
		&u.Details.BranchID, &u.Details.BranchName, &u.Details.Phone, &u.Details.Batch, &u.Details.CurrentSemester,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// WithTx runs fn inside a transaction exposing the lock-aware repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

// GetByID fetches a user by ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// List returns users whose role is in the permitted set, honoring the
// match/sort/paging filters.
func (r *PGRepository) List(ctx context.Context, roles []accesscontrol.Role, filters ListFilters) ([]User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	roleNames := make([]string, len(roles))
	for i, role := range roles {
		roleNames[i] = string(role)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE role = ANY($1)`
	args := []interface{}{roleNames}
	argCount := 1

	if filters.MatchRole != "" {
		argCount++
		query += ` AND role = $` + strconv.Itoa(argCount)
		args = append(args, filters.MatchRole)
	}

	query += ` ORDER BY ` + userSortOrder(filters.SortBy, filters.Order)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
	}
	if filters.Skip > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Skip)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of a user record.
func (r *PGRepository) Update(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = $1, name = $2, password_hash = $3, role = $4, tokens = $5,
			branch_id = NULLIF($6, 0), branch_name = NULLIF($7, ''), phone = NULLIF($8, ''),
			batch = NULLIF($9, 0), current_semester = NULLIF($10, 0), updated_at = NOW()
		WHERE id = $11
		RETURNING `+userColumns,
		u.Email, u.Name, u.PasswordHash, u.Role, u.Tokens,
		u.Details.BranchID, u.Details.BranchName, u.Details.Phone,
		u.Details.Batch, u.Details.CurrentSemester, u.ID)
	updated, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, shared.ErrDuplicate
	}
	return updated, err
}

// Delete removes a user by ID.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) LockBranchIntake(ctx context.Context, branchID int64) (int, error) {
	var intake int
	err := r.tx.QueryRow(ctx, `SELECT total_students_intake FROM branches WHERE id = $1 FOR UPDATE`, branchID).Scan(&intake)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return intake, err
}

func (r *pgTxRepository) CountStudents(ctx context.Context, branchID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'student' AND branch_id = $1`, branchID).Scan(&count)
	return count, err
}

func (r *pgTxRepository) InsertUser(ctx context.Context, u User) (User, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, tokens, branch_id, branch_name, phone, batch, current_semester)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, 0), NULLIF($10, 0))
		RETURNING `+userColumns,
		u.Email, u.Name, u.PasswordHash, u.Role, u.Tokens,
		u.Details.BranchID, u.Details.BranchName, u.Details.Phone,
		u.Details.Batch, u.Details.CurrentSemester)
	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, shared.ErrDuplicate
	}
	return created, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func userSortOrder(sortBy, order string) string {
	dir := "ASC"
	if order == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "role":
		return "role " + dir
	case "email":
		return "email " + dir
	case "name":
		return "name " + dir
	default:
		return "id " + dir
	}
}
