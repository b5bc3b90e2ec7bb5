package accesscontrol

import "fmt"

// Role enumerates the closed set of principal roles. Roles are immutable
// once assigned to a user.
type Role string

const (
	RoleSuperAdmin Role = "superAdmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleStudent    Role = "student"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleStaff, RoleStudent}
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	for _, known := range Roles() {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("accesscontrol: unknown role %q", raw)
}

// Resource returns the role-class resource for the role, used when the role
// itself is the object of an operation ("admin may read staff").
func (r Role) Resource() Resource {
	return Resource(r)
}

// Operation enumerates the CRUD operations the engine gates.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations lists every gated operation.
func Operations() []Operation {
	return []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
}

// Resource identifies the object-class of an operation: a role-class of
// users, a domain noun, or the self pseudo-resource.
type Resource string

const (
	ResourceSuperAdmin Resource = Resource(RoleSuperAdmin)
	ResourceAdmin      Resource = Resource(RoleAdmin)
	ResourceStaff      Resource = Resource(RoleStaff)
	ResourceStudent    Resource = Resource(RoleStudent)

	ResourceBranch        Resource = "branch"
	ResourceAttendance    Resource = "attendance"
	ResourceAnalysis      Resource = "analysis"
	ResourceBatchAnalysis Resource = "batchAnalysis"

	// ResourceSelf represents a principal acting on its own record.
	ResourceSelf Resource = "self"
)

// GrantKind discriminates the Grant union.
type GrantKind int

const (
	// GrantDeny is the zero value: the tuple is not granted.
	GrantDeny GrantKind = iota
	// GrantAllow is a full allow.
	GrantAllow
	// GrantAllowWithExclusions allows the operation except for the listed
	// field paths.
	GrantAllowWithExclusions
	// GrantScopedAllow allows the operation only for the contained
	// sub-resource keys. Callers interpret the set as a filter for list
	// queries, not a plain allow.
	GrantScopedAllow
)

// Grant is the decision value of a table lookup. The zero value denies.
type Grant struct {
	Kind     GrantKind
	Excluded []string
	Scope    map[Resource]bool
}

// Deny returns the deny grant.
func Deny() Grant { return Grant{} }

// Allow returns a full allow grant.
func Allow() Grant { return Grant{Kind: GrantAllow} }

// AllowExcept returns an allow grant excluding the given field paths.
func AllowExcept(paths ...string) Grant {
	return Grant{Kind: GrantAllowWithExclusions, Excluded: paths}
}

// AllowScoped returns a scoped allow over the given sub-resources.
func AllowScoped(resources ...Resource) Grant {
	scope := make(map[Resource]bool, len(resources))
	for _, res := range resources {
		scope[res] = true
	}
	return Grant{Kind: GrantScopedAllow, Scope: scope}
}

// Allowed reports whether the grant permits the operation at all.
func (g Grant) Allowed() bool {
	return g.Kind != GrantDeny
}

// InScope reports whether a scoped grant covers the sub-resource. Full
// allows cover everything, denies nothing.
func (g Grant) InScope(res Resource) bool {
	switch g.Kind {
	case GrantAllow, GrantAllowWithExclusions:
		return true
	case GrantScopedAllow:
		return g.Scope[res]
	default:
		return false
	}
}
