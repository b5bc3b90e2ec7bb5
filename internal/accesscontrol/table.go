package accesscontrol

import "fmt"

// Table is the process-wide declarative permission map: role -> operation ->
// resource -> Grant, plus the per-role field paths that update payloads may
// never touch. It is built once at startup and never mutated, so concurrent
// reads need no synchronization.
type Table struct {
	rules map[Role]map[Operation]map[Resource]Grant
	// notAllowedFields lists field paths a role can never set on another
	// principal's record; selfNotAllowedFields applies when editing one's
	// own record. Dot notation addresses nested fields.
	notAllowedFields     map[Role][]string
	selfNotAllowedFields map[Role][]string
}

// RoleRules declares the grants and update field masks for a single role.
type RoleRules struct {
	Grants               map[Operation]map[Resource]Grant
	NotAllowedFields     []string
	SelfNotAllowedFields []string
}

// NewTable builds a Table and validates the construction invariant: every
// known role must declare an entry for every operation, possibly empty.
func NewTable(rules map[Role]RoleRules) (*Table, error) {
	table := &Table{
		rules:                make(map[Role]map[Operation]map[Resource]Grant, len(rules)),
		notAllowedFields:     make(map[Role][]string, len(rules)),
		selfNotAllowedFields: make(map[Role][]string, len(rules)),
	}
	for _, role := range Roles() {
		roleRules, ok := rules[role]
		if !ok {
			return nil, fmt.Errorf("accesscontrol: role %q missing from table", role)
		}
		ops := make(map[Operation]map[Resource]Grant, len(Operations()))
		for _, op := range Operations() {
			grants, ok := roleRules.Grants[op]
			if !ok {
				return nil, fmt.Errorf("accesscontrol: role %q missing operation %q", role, op)
			}
			resources := make(map[Resource]Grant, len(grants))
			for res, grant := range grants {
				resources[res] = grant
			}
			ops[op] = resources
		}
		table.rules[role] = ops
		table.notAllowedFields[role] = append([]string(nil), roleRules.NotAllowedFields...)
		table.selfNotAllowedFields[role] = append([]string(nil), roleRules.SelfNotAllowedFields...)
	}
	return table, nil
}

// MustNewTable panics on an invalid table. Intended for the static default.
func MustNewTable(rules map[Role]RoleRules) *Table {
	table, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup returns the grant for a (role, operation, resource) tuple. Unknown
// tuples yield Deny, never an error.
func (t *Table) Lookup(role Role, op Operation, res Resource) Grant {
	ops, ok := t.rules[role]
	if !ok {
		return Deny()
	}
	grants, ok := ops[op]
	if !ok {
		return Deny()
	}
	return grants[res]
}

// ForbiddenFields returns the update field mask for a role. The self flag
// selects the mask for editing one's own record. A nil result means no
// restrictions, not deny-all.
func (t *Table) ForbiddenFields(role Role, self bool) []string {
	if self {
		return t.selfNotAllowedFields[role]
	}
	return t.notAllowedFields[role]
}

// DefaultTable returns the standard Registria permission table.
//
// superAdmin and admin manage the whole campus; admins additionally manage
// other admins' records only in aggregate reads. Staff are branch-scoped:
// they run their own branch's students and attendance, and their analysis
// read is scoped to staff and student breakdowns. Students only ever see
// and edit themselves.
func DefaultTable() *Table {
	return MustNewTable(map[Role]RoleRules{
		RoleSuperAdmin: {
			Grants: map[Operation]map[Resource]Grant{
				OpCreate: {
					ResourceAdmin:      Allow(),
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceBranch:     Allow(),
					ResourceAttendance: Allow(),
				},
				OpRead: {
					ResourceAdmin:         Allow(),
					ResourceStaff:         Allow(),
					ResourceStudent:       Allow(),
					ResourceSelf:          Allow(),
					ResourceBranch:        Allow(),
					ResourceAttendance:    Allow(),
					ResourceAnalysis:      Allow(),
					ResourceBatchAnalysis: Allow(),
				},
				OpUpdate: {
					ResourceAdmin:      Allow(),
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceSelf:       Allow(),
					ResourceBranch:     Allow(),
					ResourceAttendance: Allow(),
				},
				OpDelete: {
					ResourceAdmin:      Allow(),
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceBranch:     Allow(),
					ResourceAttendance: Allow(),
				},
			},
			NotAllowedFields:     []string{"role", "tokens"},
			SelfNotAllowedFields: []string{"role", "tokens"},
		},
		RoleAdmin: {
			Grants: map[Operation]map[Resource]Grant{
				OpCreate: {
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceBranch:     Allow(),
					ResourceAttendance: Allow(),
				},
				OpRead: {
					ResourceAdmin:         Allow(),
					ResourceSelf:          Allow(),
					ResourceStaff:         Allow(),
					ResourceStudent:       Allow(),
					ResourceBranch:        Allow(),
					ResourceAttendance:    Allow(),
					ResourceAnalysis:      Allow(),
					ResourceBatchAnalysis: Allow(),
				},
				OpUpdate: {
					ResourceAttendance: Allow(),
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceBranch:     Allow(),
					ResourceSelf:       Allow(),
				},
				OpDelete: {
					ResourceStaff:      Allow(),
					ResourceStudent:    Allow(),
					ResourceBranch:     Allow(),
					ResourceAttendance: Allow(),
				},
			},
			NotAllowedFields:     []string{"role", "tokens"},
			SelfNotAllowedFields: []string{"role", "tokens"},
		},
		RoleStaff: {
			Grants: map[Operation]map[Resource]Grant{
				OpCreate: {
					ResourceStudent:    Allow(),
					ResourceAttendance: Allow(),
				},
				OpRead: {
					ResourceStaff:         Allow(),
					ResourceSelf:          Allow(),
					ResourceStudent:       Allow(),
					ResourceAttendance:    Allow(),
					ResourceBranch:        Allow(),
					ResourceBatchAnalysis: Allow(),
					ResourceAnalysis:      AllowScoped(ResourceStaff, ResourceStudent),
				},
				OpUpdate: {
					ResourceStudent:    Allow(),
					ResourceAttendance: Allow(),
					ResourceSelf:       Allow(),
				},
				OpDelete: {
					ResourceStudent:    Allow(),
					ResourceAttendance: Allow(),
				},
			},
			NotAllowedFields: []string{
				"role",
				"tokens",
				"userDetails.branchId",
				"userDetails.batch",
				"userDetails.branchName",
			},
			SelfNotAllowedFields: []string{
				"role",
				"userDetails.branchId",
				"tokens",
			},
		},
		RoleStudent: {
			Grants: map[Operation]map[Resource]Grant{
				OpCreate: {},
				OpRead: {
					ResourceSelf: Allow(),
				},
				OpUpdate: {
					ResourceSelf: Allow(),
				},
				OpDelete: {},
			},
			SelfNotAllowedFields: []string{
				"role",
				"tokens",
				"userDetails.branchId",
				"userDetails.batch",
				"userDetails.branchName",
				"userDetails.currentSemester",
			},
		},
	})
}
