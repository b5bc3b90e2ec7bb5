package attendance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registria/registria/internal/shared"
)

// Repository defines attendance persistence and the report queries.
type Repository interface {
	CreateOne(ctx context.Context, mark Mark) (Record, error)
	Edit(ctx context.Context, mark Mark) (Record, error)
	Delete(ctx context.Context, studentID int64, date time.Time) (Record, error)
	// StudentBranch resolves the branch a student belongs to, so writes
	// can be checked against the caller's branch scope.
	StudentBranch(ctx context.Context, studentID int64) (int64, error)
	AbsentList(ctx context.Context, date time.Time, filters ReportFilters) ([]AbsentStudent, error)
	BelowPercentage(ctx context.Context, percentage float64, filters ReportFilters) ([]PercentageRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const recordColumns = `id, student_id, date, present, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Present, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.ErrNotFound
	}
	return rec, err
}

// CreateOne inserts one mark. The student must exist; a second mark for the
// same student and day is a duplicate.
func (r *repository) CreateOne(ctx context.Context, mark Mark) (Record, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND role = 'student')`, mark.StudentID).Scan(&exists)
	if err != nil {
		return Record{}, err
	}
	if !exists {
		return Record{}, shared.ErrNotFound
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO attendance (student_id, date, present)
		VALUES ($1, $2, $3)
		RETURNING `+recordColumns,
		mark.StudentID, mark.Date, mark.Present)
	rec, err := scanRecord(row)
	if isUniqueViolation(err) {
		return Record{}, shared.ErrDuplicate
	}
	return rec, err
}

func (r *repository) StudentBranch(ctx context.Context, studentID int64) (int64, error) {
	var branchID int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(branch_id, 0) FROM users WHERE id = $1 AND role = 'student'`,
		studentID).Scan(&branchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return branchID, err
}

func (r *repository) Edit(ctx context.Context, mark Mark) (Record, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE attendance SET present = $3, updated_at = NOW()
		WHERE student_id = $1 AND date = $2
		RETURNING `+recordColumns,
		mark.StudentID, mark.Date, mark.Present)
	return scanRecord(row)
}

func (r *repository) Delete(ctx context.Context, studentID int64, date time.Time) (Record, error) {
	row := r.db.QueryRow(ctx, `
		DELETE FROM attendance
		WHERE student_id = $1 AND date = $2
		RETURNING `+recordColumns,
		studentID, date)
	return scanRecord(row)
}

// reportFilterClause appends the student-side filters shared by both
// reports. It returns the extended query and args.
func reportFilterClause(query string, args []interface{}, filters ReportFilters) (string, []interface{}) {
	if filters.Branch != "" {
		args = append(args, filters.Branch)
		query += ` AND u.branch_name = $` + strconv.Itoa(len(args))
	}
	if filters.Batch != 0 {
		args = append(args, filters.Batch)
		query += ` AND u.batch = $` + strconv.Itoa(len(args))
	}
	if filters.Semester != 0 {
		args = append(args, filters.Semester)
		query += ` AND u.current_semester = $` + strconv.Itoa(len(args))
	}
	if filters.BranchID != 0 {
		args = append(args, filters.BranchID)
		query += ` AND u.branch_id = $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (r *repository) AbsentList(ctx context.Context, date time.Time, filters ReportFilters) ([]AbsentStudent, error) {
	query := `
		SELECT u.name, u.email, a.date, a.present, COALESCE(u.batch, 0), COALESCE(u.branch_name, ''), COALESCE(u.current_semester, 0)
		FROM attendance a
		JOIN users u ON u.id = a.student_id
		WHERE a.date = $1 AND a.present = false`
	args := []interface{}{date}
	query, args = reportFilterClause(query, args, filters)
	query += ` ORDER BY u.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AbsentStudent
	for rows.Next() {
		var row AbsentStudent
		if err := rows.Scan(&row.StudentName, &row.Email, &row.Date, &row.Present, &row.Batch, &row.Branch, &row.Semester); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) BelowPercentage(ctx context.Context, percentage float64, filters ReportFilters) ([]PercentageRow, error) {
	query := `
		SELECT u.name, u.email, COALESCE(u.batch, 0), COALESCE(u.branch_name, ''), COALESCE(u.current_semester, 0),
			COUNT(*) AS total_days,
			COUNT(*) FILTER (WHERE a.present) AS days_present,
			COUNT(*) FILTER (WHERE a.present) * 100.0 / COUNT(*) AS attendance_percentage
		FROM attendance a
		JOIN users u ON u.id = a.student_id
		WHERE 1=1`
	args := []interface{}{}
	query, args = reportFilterClause(query, args, filters)
	args = append(args, percentage)
	query += `
		GROUP BY u.id, u.name, u.email, u.batch, u.branch_name, u.current_semester
		HAVING COUNT(*) FILTER (WHERE a.present) * 100.0 / COUNT(*) < $` + strconv.Itoa(len(args)) + `
		ORDER BY attendance_percentage`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PercentageRow
	for rows.Next() {
		var row PercentageRow
		if err := rows.Scan(&row.StudentName, &row.Email, &row.Batch, &row.Branch, &row.Semester,
			&row.TotalDays, &row.TotalDaysPresent, &row.AttendancePercentage); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
