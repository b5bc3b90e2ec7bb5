package attendance

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/shared"
)

// Service runs attendance operations. Bulk submissions are partitioned per
// record: one bad mark never sinks the rest of the sheet.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService wires the attendance service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// BulkCreate persists each mark independently and reports the partition.
// Marks are inserted concurrently; the unique (student, day) constraint
// keeps duplicates out regardless of ordering. Branch-scoped callers may
// only mark students of their own branch; a foreign mark fails on its own
// without sinking the rest of the sheet.
func (s *Service) BulkCreate(ctx context.Context, p accesscontrol.Principal, marks []Mark) BulkResult {
	records := make([]Record, len(marks))
	errs := make([]error, len(marks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, mark := range marks {
		i, mark := i, mark
		g.Go(func() error {
			if err := s.authorizeWrite(ctx, p, mark.StudentID); err != nil {
				errs[i] = err
				return nil
			}
			records[i], errs[i] = s.repo.CreateOne(ctx, mark)
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	for i := range marks {
		if errs[i] != nil {
			s.logger.Warn("attendance mark rejected", "studentId", marks[i].StudentID, "date", marks[i].Date, "error", errs[i])
			result.FailedRecords = append(result.FailedRecords, FailedMark{Record: marks[i], Error: errs[i].Error()})
			continue
		}
		result.SuccessRecords = append(result.SuccessRecords, records[i])
	}
	return result
}

// Edit updates the present flag of the mark keyed by student and day.
func (s *Service) Edit(ctx context.Context, p accesscontrol.Principal, mark Mark) (Record, error) {
	if err := s.authorizeWrite(ctx, p, mark.StudentID); err != nil {
		return Record{}, err
	}
	return s.repo.Edit(ctx, mark)
}

// Delete removes the mark keyed by student and day.
func (s *Service) Delete(ctx context.Context, p accesscontrol.Principal, studentID int64, date time.Time) (Record, error) {
	if err := s.authorizeWrite(ctx, p, studentID); err != nil {
		return Record{}, err
	}
	return s.repo.Delete(ctx, studentID, date)
}

// authorizeWrite applies the unit-scoping veto to a mark: a branch-scoped
// caller may only touch attendance of students in its own branch. Unscoped
// roles pass without a lookup.
func (s *Service) authorizeWrite(ctx context.Context, p accesscontrol.Principal, studentID int64) error {
	if !accesscontrol.BranchScoped(p.Role) {
		return nil
	}
	branchID, err := s.repo.StudentBranch(ctx, studentID)
	if err != nil {
		return err
	}
	if branchID != p.BranchID {
		s.logger.Warn("attendance write denied", "actor", p.ID, "role", p.Role, "studentId", studentID)
		return shared.ErrForbidden
	}
	return nil
}

// AbsentList reports students marked absent on a day. Branch-scoped callers
// only ever see their own branch, whatever filters they send.
func (s *Service) AbsentList(ctx context.Context, p accesscontrol.Principal, date time.Time, filters ReportFilters) ([]AbsentStudent, error) {
	return s.repo.AbsentList(ctx, date, scopeFilters(p, filters))
}

// BelowPercentage reports students whose attendance sits under the given
// percentage.
func (s *Service) BelowPercentage(ctx context.Context, p accesscontrol.Principal, percentage float64, filters ReportFilters) ([]PercentageRow, error) {
	return s.repo.BelowPercentage(ctx, percentage, scopeFilters(p, filters))
}

func scopeFilters(p accesscontrol.Principal, filters ReportFilters) ReportFilters {
	if accesscontrol.BranchScoped(p.Role) {
		filters.BranchID = p.BranchID
		filters.Branch = ""
	}
	return filters
}
