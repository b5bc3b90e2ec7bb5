package branch

import (
	"context"
	"fmt"
	"strings"

	"github.com/registria/registria/internal/platform/httpx"
)

// Service guards branch mutations with the capacity and immutability
// invariants before touching persistence.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns branches matching the filters plus the unfiltered total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a branch by ID.
func (s *Service) Get(ctx context.Context, id int64) (Branch, error) {
	if id <= 0 {
		return Branch{}, fmt.Errorf("%w: invalid branch id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new branch. Uniqueness of (name, batch) is enforced by
// the storage layer.
func (s *Service) Create(ctx context.Context, branch Branch) (Branch, error) {
	if err := validate(branch); err != nil {
		return Branch{}, err
	}
	return s.repo.Create(ctx, branch)
}

// Update applies an edit subject to the in-use invariants: name/batch are
// frozen while any user references the branch, and intake cannot drop
// below current student enrollment.
func (s *Service) Update(ctx context.Context, id int64, edited Branch) (Branch, error) {
	if err := validate(edited); err != nil {
		return Branch{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Branch{}, err
	}

	if edited.Name != current.Name || edited.Batch != current.Batch {
		dependents, err := s.repo.CountUsers(ctx, id)
		if err != nil {
			return Branch{}, err
		}
		if err := CheckIdentityChange(current, edited.Name, edited.Batch, dependents); err != nil {
			return Branch{}, err
		}
	}

	if edited.TotalStudentsIntake < current.TotalStudentsIntake {
		students, err := s.repo.CountStudents(ctx, id)
		if err != nil {
			return Branch{}, err
		}
		if err := CheckIntakeShrink(current, edited.TotalStudentsIntake, students); err != nil {
			return Branch{}, err
		}
	}

	if err := s.repo.Update(ctx, id, edited); err != nil {
		return Branch{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a branch that no user references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	dependents, err := s.repo.CountUsers(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckDelete(dependents); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func validate(b Branch) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	if b.Batch <= 0 {
		return fmt.Errorf("%w: batch is required", httpx.ErrValidation)
	}
	if b.TotalStudentsIntake <= 0 {
		return fmt.Errorf("%w: total students intake must be positive", httpx.ErrValidation)
	}
	return nil
}
