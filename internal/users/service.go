package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/branch"
	"github.com/registria/registria/internal/platform/httpx"
	"github.com/registria/registria/internal/shared"
)

// AuditPort records account mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service enforces authorization, role detail validation and branch
// capacity around the user repository.
type Service struct {
	repo   Repository
	authz  *accesscontrol.Authorizer
	audit  AuditPort
	cache  *AnalysisCache
	logger *slog.Logger
}

// NewService wires the user service. audit and cache may be nil.
func NewService(repo Repository, authz *accesscontrol.Authorizer, audit AuditPort, cache *AnalysisCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, cache: cache, logger: logger}
}

// CreateInput carries a new user record plus its plaintext password.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     accesscontrol.Role
	Details  UserDetails
}

// Create registers a new user. Student creation locks the branch row so the
// intake check and the insert are atomic against concurrent admissions.
func (s *Service) Create(ctx context.Context, p accesscontrol.Principal, in CreateInput) (User, error) {
	d := s.authz.AuthorizeCreateUser(p, in.Role, in.Details.BranchID)
	if !d.Allowed {
		s.logger.Warn("user create denied", "actor", p.ID, "role", p.Role, "newRole", in.Role, "reason", d.Reason)
		return User{}, shared.ErrForbidden
	}

	u := User{
		Email:   in.Email,
		Name:    in.Name,
		Role:    in.Role,
		Details: in.Details,
	}
	if err := ValidateRoleDetails(&u); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = string(hash)

	if u.Role != accesscontrol.RoleStudent {
		var created User
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var txErr error
			created, txErr = tx.InsertUser(ctx, u)
			return txErr
		})
		if err != nil {
			return User{}, err
		}
		s.recordAudit(ctx, p, "user.create", created.ID, map[string]any{"role": string(created.Role)})
		return created, nil
	}

	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		intake, txErr := tx.LockBranchIntake(ctx, u.Details.BranchID)
		if txErr != nil {
			return txErr
		}
		enrolled, txErr := tx.CountStudents(ctx, u.Details.BranchID)
		if txErr != nil {
			return txErr
		}
		if txErr := branch.CheckIntake(intake, enrolled, 1); txErr != nil {
			return txErr
		}
		created, txErr = tx.InsertUser(ctx, u)
		return txErr
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, p, "user.create", created.ID, map[string]any{"role": string(created.Role)})
	return created, nil
}

// Get fetches a user after an ownership check. Lookup runs first so a
// caller probing for existence still sees not-found, never forbidden, for
// records it could not read anyway.
func (s *Service) Get(ctx context.Context, p accesscontrol.Principal, id int64) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	d := s.authz.Authorize(p, accesscontrol.OpRead, u.Role.Resource(), targetOf(u))
	if !d.Allowed {
		s.logger.Warn("user read denied", "actor", p.ID, "role", p.Role, "target", id, "reason", d.Reason)
		return User{}, shared.ErrForbidden
	}
	return u, nil
}

// List returns the users whose role class the principal holds a read grant
// for, intersected with any explicit role filter.
func (s *Service) List(ctx context.Context, p accesscontrol.Principal, filters ListFilters) ([]User, error) {
	readable := s.authz.Evaluator().ListableRoleClasses(p.Role)
	if len(readable) == 0 {
		return nil, shared.ErrForbidden
	}
	if filters.MatchRole != "" {
		match, err := accesscontrol.ParseRole(filters.MatchRole)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
		}
		if !containsRole(readable, match) {
			return nil, shared.ErrForbidden
		}
		readable = []accesscontrol.Role{match}
	}
	return s.repo.List(ctx, readable, filters)
}

// Update applies a partial payload to a user record. The payload is checked
// against the caller's field mask before any value is applied: touching a
// forbidden path rejects the whole request.
func (s *Service) Update(ctx context.Context, p accesscontrol.Principal, id int64, payload map[string]any) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	d := s.authz.Authorize(p, accesscontrol.OpUpdate, u.Role.Resource(), targetOf(u))
	if !d.Allowed {
		s.logger.Warn("user update denied", "actor", p.ID, "role", p.Role, "target", id, "reason", d.Reason)
		return User{}, shared.ErrForbidden
	}

	forbidden := s.authz.ForbiddenFieldsFor(p, d)
	if mask := accesscontrol.CheckMask(forbidden, payload); !mask.OK {
		s.logger.Warn("user update touched masked field", "actor", p.ID, "role", p.Role, "target", id, "path", mask.ViolatingPath)
		return User{}, shared.ErrForbidden
	}

	newPassword := ApplyUpdate(&u, payload)
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = string(hash)
		// Password changes invalidate every issued refresh token.
		u.Tokens = nil
	}
	if err := ValidateRoleDetails(&u); err != nil {
		return User{}, err
	}

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, p, "user.update", updated.ID, map[string]any{"passwordChanged": newPassword != ""})
	return updated, nil
}

// Delete removes a user record after an ownership check.
func (s *Service) Delete(ctx context.Context, p accesscontrol.Principal, id int64) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	d := s.authz.Authorize(p, accesscontrol.OpDelete, u.Role.Resource(), targetOf(u))
	if !d.Allowed {
		s.logger.Warn("user delete denied", "actor", p.ID, "role", p.Role, "target", id, "reason", d.Reason)
		return shared.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, p, "user.delete", id, map[string]any{"role": string(u.Role)})
	return nil
}

// BatchAnalysis reports student headcount per batch. Branch-scoped callers
// hold the same grant as admins here; the route gate decides access.
func (s *Service) BatchAnalysis(ctx context.Context) ([]BatchAnalysisRow, error) {
	return s.repo.BatchAnalysis(ctx)
}

// VacantSeatAnalysis reports remaining branch capacity per batch. The
// unfiltered query reads through the snapshot cache the warmup job keeps
// hot; filtered queries always hit the database.
func (s *Service) VacantSeatAnalysis(ctx context.Context, filters VacantSeatFilters) ([]VacantSeatRow, error) {
	if s.cache == nil || filters.Batch != 0 || filters.BranchName != "" {
		return s.repo.VacantSeatAnalysis(ctx, filters)
	}
	var rows []VacantSeatRow
	err := s.cache.FetchJSON(ctx, VacantSeatsCacheKey, &rows, func(ctx context.Context) (any, error) {
		return s.repo.VacantSeatAnalysis(ctx, filters)
	})
	if err != nil {
		s.logger.Warn("vacant seat cache read failed", "error", err)
		return s.repo.VacantSeatAnalysis(ctx, filters)
	}
	return rows, nil
}

func (s *Service) recordAudit(ctx context.Context, p accesscontrol.Principal, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}

func targetOf(u User) *accesscontrol.Target {
	return &accesscontrol.Target{ID: u.ID, Role: u.Role, BranchID: u.Details.BranchID}
}

func containsRole(roles []accesscontrol.Role, r accesscontrol.Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
