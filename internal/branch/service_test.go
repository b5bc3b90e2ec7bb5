package branch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/registria/registria/internal/shared"
)

type memoryBranchRepo struct {
	branches map[int64]Branch
	users    map[int64]int // branchID -> referencing users
	students map[int64]int // branchID -> enrolled students
	nextID   int64
}

func newMemoryBranchRepo() *memoryBranchRepo {
	return &memoryBranchRepo{
		branches: make(map[int64]Branch),
		users:    make(map[int64]int),
		students: make(map[int64]int),
	}
}

func (r *memoryBranchRepo) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	out := make([]Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (r *memoryBranchRepo) Get(ctx context.Context, id int64) (Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, shared.ErrNotFound
	}
	return b, nil
}

func (r *memoryBranchRepo) Create(ctx context.Context, branch Branch) (Branch, error) {
	for _, existing := range r.branches {
		if existing.Name == branch.Name && existing.Batch == branch.Batch {
			return Branch{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	branch.ID = r.nextID
	r.branches[branch.ID] = branch
	return branch, nil
}

func (r *memoryBranchRepo) Update(ctx context.Context, id int64, branch Branch) error {
	if _, ok := r.branches[id]; !ok {
		return shared.ErrNotFound
	}
	branch.ID = id
	r.branches[id] = branch
	return nil
}

func (r *memoryBranchRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.branches[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.branches, id)
	return nil
}

func (r *memoryBranchRepo) CountUsers(ctx context.Context, branchID int64) (int, error) {
	return r.users[branchID], nil
}

func (r *memoryBranchRepo) CountStudents(ctx context.Context, branchID int64) (int, error) {
	return r.students[branchID], nil
}

func seedBranch(t *testing.T, repo *memoryBranchRepo) Branch {
	t.Helper()
	created, err := NewService(repo).Create(context.Background(), Branch{Name: "CE", Batch: 2022, TotalStudentsIntake: 5})
	require.NoError(t, err)
	return created
}

func TestCreateRejectsDuplicateNameBatch(t *testing.T) {
	repo := newMemoryBranchRepo()
	svc := NewService(repo)
	seedBranch(t, repo)

	_, err := svc.Create(context.Background(), Branch{Name: "CE", Batch: 2022, TotalStudentsIntake: 10})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	// Same name, different cohort year is a distinct unit.
	_, err = svc.Create(context.Background(), Branch{Name: "CE", Batch: 2023, TotalStudentsIntake: 10})
	require.NoError(t, err)
}

func TestUpdateRejectsRenameWhileReferenced(t *testing.T) {
	repo := newMemoryBranchRepo()
	svc := NewService(repo)
	created := seedBranch(t, repo)
	repo.users[created.ID] = 1

	edited := created
	edited.Name = "CE-renamed"
	_, err := svc.Update(context.Background(), created.ID, edited)
	require.ErrorIs(t, err, shared.ErrBranchInUse)

	edited = created
	edited.Batch = 2024
	_, err = svc.Update(context.Background(), created.ID, edited)
	require.ErrorIs(t, err, shared.ErrBranchInUse)
}

func TestUpdateAllowsRenameWithoutDependents(t *testing.T) {
	repo := newMemoryBranchRepo()
	svc := NewService(repo)
	created := seedBranch(t, repo)

	edited := created
	edited.Name = "IT"
	updated, err := svc.Update(context.Background(), created.ID, edited)
	require.NoError(t, err)
	require.Equal(t, "IT", updated.Name)
}

func TestUpdateRejectsIntakeBelowEnrollment(t *testing.T) {
	repo := newMemoryBranchRepo()
	svc := NewService(repo)
	created := seedBranch(t, repo)
	repo.students[created.ID] = 4

	edited := created
	edited.TotalStudentsIntake = 3
	_, err := svc.Update(context.Background(), created.ID, edited)
	require.ErrorIs(t, err, shared.ErrCapacityExceeded)

	edited.TotalStudentsIntake = 4
	_, err = svc.Update(context.Background(), created.ID, edited)
	require.NoError(t, err)
}

func TestDeleteRejectsWhileReferenced(t *testing.T) {
	repo := newMemoryBranchRepo()
	svc := NewService(repo)
	created := seedBranch(t, repo)
	repo.users[created.ID] = 2

	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), shared.ErrBranchInUse)

	repo.users[created.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), created.ID))
	_, err := svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCheckIntakeBoundaries(t *testing.T) {
	require.NoError(t, CheckIntake(5, 4, 1))
	require.ErrorIs(t, CheckIntake(5, 5, 1), shared.ErrCapacityExceeded)
	require.NoError(t, CheckIntake(5, 5, 0))
}
