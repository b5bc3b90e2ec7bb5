package attendance

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/shared"
)

type memoryAttendanceRepo struct {
	mu          sync.Mutex
	records     map[string]Record // studentID|date -> record
	students    map[int64]int64   // studentID -> branchID
	nextID      int64
	lastFilters ReportFilters
}

func newMemoryAttendanceRepo(students ...int64) *memoryAttendanceRepo {
	repo := &memoryAttendanceRepo{
		records:  make(map[string]Record),
		students: make(map[int64]int64),
	}
	for _, id := range students {
		repo.students[id] = 0
	}
	return repo
}

func (r *memoryAttendanceRepo) enroll(studentID, branchID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[studentID] = branchID
}

func key(studentID int64, date time.Time) string {
	return strconv.FormatInt(studentID, 10) + "|" + date.Format("2006-01-02")
}

func (r *memoryAttendanceRepo) CreateOne(ctx context.Context, mark Mark) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[mark.StudentID]; !ok {
		return Record{}, shared.ErrNotFound
	}
	k := key(mark.StudentID, mark.Date)
	if _, exists := r.records[k]; exists {
		return Record{}, shared.ErrDuplicate
	}
	r.nextID++
	rec := Record{ID: r.nextID, StudentID: mark.StudentID, Date: mark.Date, Present: mark.Present}
	r.records[k] = rec
	return rec, nil
}

func (r *memoryAttendanceRepo) Edit(ctx context.Context, mark Mark) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(mark.StudentID, mark.Date)
	rec, ok := r.records[k]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	rec.Present = mark.Present
	r.records[k] = rec
	return rec, nil
}

func (r *memoryAttendanceRepo) Delete(ctx context.Context, studentID int64, date time.Time) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(studentID, date)
	rec, ok := r.records[k]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	delete(r.records, k)
	return rec, nil
}

func (r *memoryAttendanceRepo) StudentBranch(ctx context.Context, studentID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	branchID, ok := r.students[studentID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return branchID, nil
}

func (r *memoryAttendanceRepo) AbsentList(ctx context.Context, date time.Time, filters ReportFilters) ([]AbsentStudent, error) {
	r.lastFilters = filters
	return nil, nil
}

func (r *memoryAttendanceRepo) BelowPercentage(ctx context.Context, percentage float64, filters ReportFilters) ([]PercentageRow, error) {
	r.lastFilters = filters
	return nil, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

var (
	day   = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	admin = accesscontrol.Principal{ID: 5, Role: accesscontrol.RoleAdmin}
)

func TestBulkCreateAllSucceed(t *testing.T) {
	repo := newMemoryAttendanceRepo(1, 2, 3)
	svc := newTestService(repo)

	result := svc.BulkCreate(context.Background(), admin, []Mark{
		{StudentID: 1, Date: day, Present: true},
		{StudentID: 2, Date: day, Present: false},
		{StudentID: 3, Date: day, Present: true},
	})
	require.Len(t, result.SuccessRecords, 3)
	require.Empty(t, result.FailedRecords)
}

func TestBulkCreatePartialFailure(t *testing.T) {
	repo := newMemoryAttendanceRepo(1, 2)
	svc := newTestService(repo)

	result := svc.BulkCreate(context.Background(), admin, []Mark{
		{StudentID: 1, Date: day, Present: true},
		{StudentID: 99, Date: day, Present: true}, // unknown student
		{StudentID: 2, Date: day, Present: false},
	})
	require.Len(t, result.SuccessRecords, 2)
	require.Len(t, result.FailedRecords, 1)
	require.Equal(t, int64(99), result.FailedRecords[0].Record.StudentID)
}

func TestBulkCreateDuplicateDayRejected(t *testing.T) {
	repo := newMemoryAttendanceRepo(1)
	svc := newTestService(repo)

	first := svc.BulkCreate(context.Background(), admin, []Mark{{StudentID: 1, Date: day, Present: true}})
	require.Len(t, first.SuccessRecords, 1)

	second := svc.BulkCreate(context.Background(), admin, []Mark{{StudentID: 1, Date: day, Present: false}})
	require.Empty(t, second.SuccessRecords)
	require.Len(t, second.FailedRecords, 1)
}

func TestEditFlipsPresentFlag(t *testing.T) {
	repo := newMemoryAttendanceRepo(1)
	svc := newTestService(repo)
	svc.BulkCreate(context.Background(), admin, []Mark{{StudentID: 1, Date: day, Present: false}})

	updated, err := svc.Edit(context.Background(), admin, Mark{StudentID: 1, Date: day, Present: true})
	require.NoError(t, err)
	require.True(t, updated.Present)
}

func TestEditMissingMarkNotFound(t *testing.T) {
	repo := newMemoryAttendanceRepo(1)
	svc := newTestService(repo)

	_, err := svc.Edit(context.Background(), admin, Mark{StudentID: 1, Date: day, Present: true})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteReturnsRemovedRecord(t *testing.T) {
	repo := newMemoryAttendanceRepo(1)
	svc := newTestService(repo)
	svc.BulkCreate(context.Background(), admin, []Mark{{StudentID: 1, Date: day, Present: true}})

	deleted, err := svc.Delete(context.Background(), admin, 1, day)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted.StudentID)

	_, err = svc.Delete(context.Background(), admin, 1, day)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReportsForceStaffBranchScope(t *testing.T) {
	repo := newMemoryAttendanceRepo()
	svc := newTestService(repo)
	staff := accesscontrol.Principal{ID: 7, Role: accesscontrol.RoleStaff, BranchID: 3}

	_, err := svc.AbsentList(context.Background(), staff, day, ReportFilters{Branch: "ECE"})
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.lastFilters.BranchID)
	require.Empty(t, repo.lastFilters.Branch)

	admin := accesscontrol.Principal{ID: 8, Role: accesscontrol.RoleAdmin}
	_, err = svc.BelowPercentage(context.Background(), admin, 75, ReportFilters{Branch: "ECE"})
	require.NoError(t, err)
	require.Zero(t, repo.lastFilters.BranchID)
	require.Equal(t, "ECE", repo.lastFilters.Branch)
}

func TestStaffCannotMarkForeignBranchStudent(t *testing.T) {
	repo := newMemoryAttendanceRepo()
	repo.enroll(42, 2)
	svc := newTestService(repo)
	staff := accesscontrol.Principal{ID: 900, Role: accesscontrol.RoleStaff, BranchID: 1}

	result := svc.BulkCreate(context.Background(), staff, []Mark{{StudentID: 42, Date: day, Present: false}})
	require.Empty(t, result.SuccessRecords)
	require.Len(t, result.FailedRecords, 1)
	require.Equal(t, shared.ErrForbidden.Error(), result.FailedRecords[0].Error)
	require.Empty(t, repo.records)
}

func TestStaffCannotEditForeignBranchMark(t *testing.T) {
	repo := newMemoryAttendanceRepo()
	repo.enroll(42, 2)
	svc := newTestService(repo)
	svc.BulkCreate(context.Background(), admin, []Mark{{StudentID: 42, Date: day, Present: true}})
	staff := accesscontrol.Principal{ID: 900, Role: accesscontrol.RoleStaff, BranchID: 1}

	_, err := svc.Edit(context.Background(), staff, Mark{StudentID: 42, Date: day, Present: false})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Delete(context.Background(), staff, 42, day)
	require.ErrorIs(t, err, shared.ErrForbidden)

	record, err := svc.Edit(context.Background(), admin, Mark{StudentID: 42, Date: day, Present: true})
	require.NoError(t, err)
	require.True(t, record.Present)
}

func TestStaffMarksOwnBranchStudent(t *testing.T) {
	repo := newMemoryAttendanceRepo()
	repo.enroll(42, 1)
	svc := newTestService(repo)
	staff := accesscontrol.Principal{ID: 900, Role: accesscontrol.RoleStaff, BranchID: 1}

	result := svc.BulkCreate(context.Background(), staff, []Mark{{StudentID: 42, Date: day, Present: true}})
	require.Len(t, result.SuccessRecords, 1)
	require.Empty(t, result.FailedRecords)

	updated, err := svc.Edit(context.Background(), staff, Mark{StudentID: 42, Date: day, Present: false})
	require.NoError(t, err)
	require.False(t, updated.Present)

	_, err = svc.Delete(context.Background(), staff, 42, day)
	require.NoError(t, err)
}
