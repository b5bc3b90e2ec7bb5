package branch

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registria/registria/internal/shared"
)

// Repository defines branch persistence plus the dependent-record counts
// the invariant checks need.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Branch, int, error)
	Get(ctx context.Context, id int64) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, id int64, branch Branch) error
	Delete(ctx context.Context, id int64) error
	// CountUsers counts users of any role referencing the branch.
	CountUsers(ctx context.Context, branchID int64) (int, error)
	// CountStudents counts enrolled students referencing the branch.
	CountStudents(ctx context.Context, branchID int64) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const branchColumns = `id, name, batch, total_students_intake, COALESCE(description, ''), created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM branches WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND name ILIKE $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Batch, &b.TotalStudentsIntake, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		branches = append(branches, b)
	}
	return branches, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.db.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Batch, &b.TotalStudentsIntake, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, shared.ErrNotFound
	}
	return b, err
}

func (r *repository) Create(ctx context.Context, branch Branch) (Branch, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO branches (name, batch, total_students_intake, description) VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING id, created_at, updated_at`,
		branch.Name, branch.Batch, branch.TotalStudentsIntake, branch.Description,
	).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
	if isUniqueViolation(err) {
		return Branch{}, shared.ErrDuplicate
	}
	return branch, err
}

func (r *repository) Update(ctx context.Context, id int64, branch Branch) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE branches SET name = $1, batch = $2, total_students_intake = $3, description = NULLIF($4, ''), updated_at = NOW() WHERE id = $5`,
		branch.Name, branch.Batch, branch.TotalStudentsIntake, branch.Description, id)
	if isUniqueViolation(err) {
		return shared.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountUsers(ctx context.Context, branchID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE branch_id = $1`, branchID).Scan(&count)
	return count, err
}

func (r *repository) CountStudents(ctx context.Context, branchID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE branch_id = $1 AND role = 'student'`, branchID).Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "batch":
		return "batch " + dir
	case "totalStudentsIntake":
		return "total_students_intake " + dir
	case "name":
		return "name " + dir
	default:
		return "name " + dir
	}
}
