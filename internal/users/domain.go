package users

import (
	"fmt"
	"time"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/platform/httpx"
)

// UserDetails carries the branch-bound attributes only staff and students
// have. BranchName/Batch are denormalized from the branch record and frozen
// by the branch in-use invariant.
type UserDetails struct {
	BranchID        int64  `json:"branchId,omitempty"`
	BranchName      string `json:"branchName,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Batch           int    `json:"batch,omitempty"`
	CurrentSemester int    `json:"currentSemester,omitempty"`
}

// User represents an account of any role. Tokens holds the IDs of the
// user's active sessions; it is never settable through an update payload.
type User struct {
	ID           int64              `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	PasswordHash string             `json:"-"`
	Role         accesscontrol.Role `json:"role"`
	Tokens       []string           `json:"-"`
	Details      UserDetails        `json:"userDetails"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// ListFilters mirrors the list query surface: matchingBy narrows to one
// role, sortBy/order pick the ordering, skip/limit page through.
type ListFilters struct {
	MatchRole string
	SortBy    string
	Order     string
	Skip      int
	Limit     int
}

// ValidateRoleDetails enforces role-specific detail requirements and strips
// details a role must not carry: students need the full branch profile,
// staff only a branch, admins none at all.
func ValidateRoleDetails(u *User) error {
	switch u.Role {
	case accesscontrol.RoleStudent:
		if u.Details.BranchID == 0 || u.Details.Phone == "" || u.Details.Batch == 0 || u.Details.CurrentSemester == 0 || u.Details.BranchName == "" {
			return fmt.Errorf("%w: student requires branchId, branchName, phone, batch and currentSemester", httpx.ErrValidation)
		}
	case accesscontrol.RoleStaff:
		if u.Details.BranchID == 0 {
			return fmt.Errorf("%w: staff requires branchId", httpx.ErrValidation)
		}
		u.Details.Phone = ""
		u.Details.Batch = 0
		u.Details.CurrentSemester = 0
		u.Details.BranchName = ""
	case accesscontrol.RoleAdmin, accesscontrol.RoleSuperAdmin:
		u.Details = UserDetails{}
	default:
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, u.Role)
	}
	return nil
}

// ApplyUpdate copies recognized payload fields onto the user. The payload
// has already passed the field mask; unknown keys are ignored here because
// the validation layer owns shape checking. Password changes are returned
// separately so the service can hash them.
func ApplyUpdate(u *User, payload map[string]any) (newPassword string) {
	if v, ok := payload["name"].(string); ok {
		u.Name = v
	}
	if v, ok := payload["email"].(string); ok {
		u.Email = v
	}
	if v, ok := payload["password"].(string); ok {
		newPassword = v
	}
	if v, ok := payload["role"].(string); ok {
		u.Role = accesscontrol.Role(v)
	}
	details, ok := payload["userDetails"].(map[string]any)
	if !ok {
		return newPassword
	}
	if v, ok := details["branchId"]; ok {
		u.Details.BranchID = asInt64(v)
	}
	if v, ok := details["branchName"].(string); ok {
		u.Details.BranchName = v
	}
	if v, ok := details["phone"].(string); ok {
		u.Details.Phone = v
	}
	if v, ok := details["batch"]; ok {
		u.Details.Batch = int(asInt64(v))
	}
	if v, ok := details["currentSemester"]; ok {
		u.Details.CurrentSemester = int(asInt64(v))
	}
	return newPassword
}

// asInt64 tolerates the numeric types a decoded JSON payload can carry.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
