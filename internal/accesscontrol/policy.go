package accesscontrol

// Principal is the authenticated actor, resolved by the auth layer. The
// engine trusts it and never re-validates credentials.
type Principal struct {
	ID        int64
	Role      Role
	BranchID  int64 // 0 when the role carries no branch
	SessionID string
}

// Target describes the record an operation acts on. Role is zero for
// non-user records (branches, attendance entries); BranchID is 0 when the
// record is not branch-bound.
type Target struct {
	ID       int64
	Role     Role
	BranchID int64
}

// Decision is the outcome of an authorization check. Grant is the raw table
// value, needed downstream for field masking and list filtering. Reason is
// for logs only; clients receive a generic forbidden.
type Decision struct {
	Allowed  bool
	Grant    Grant
	Resource Resource
	Reason   string
}

func denied(res Resource, reason string) Decision {
	return Decision{Resource: res, Reason: reason}
}

// Authorizer layers ownership rules on top of the static table: self
// routing, lateral same-role vetoes and branch scoping that the table
// cannot express.
type Authorizer struct {
	eval *Evaluator
}

// NewAuthorizer builds an Authorizer over the evaluator.
func NewAuthorizer(eval *Evaluator) *Authorizer {
	return &Authorizer{eval: eval}
}

// Evaluator exposes the underlying static evaluator for callers that need
// raw grants (list filters, field masks).
func (a *Authorizer) Evaluator() *Evaluator {
	return a.eval
}

// elevated roles manage their own role-class laterally and are exempt from
// the same-role veto.
func elevated(role Role) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}

// BranchScoped reports whether the role may only act on records bound to
// its own branch. Services use it to narrow report queries the same way
// Authorize narrows record access.
func BranchScoped(role Role) bool {
	return role == RoleStaff
}

// Authorize decides whether the principal may perform op against the
// target. A nil target is the list/create context: the requested resource
// is gated directly. With a target the resource is re-mapped first: the
// principal acting on its own record is routed to self, and a
// non-elevated principal is cut off from other records of its own role
// before the table is even consulted.
func (a *Authorizer) Authorize(p Principal, op Operation, res Resource, target *Target) Decision {
	if target != nil {
		switch {
		case p.ID == target.ID:
			res = ResourceSelf
		case target.Role != "" && target.Role == p.Role && !elevated(p.Role):
			return denied(res, "lateral access within role")
		case target.Role != "":
			res = target.Role.Resource()
		}
	}

	grant := a.eval.Evaluate(p.Role, op, res)
	if !grant.Allowed() {
		return denied(res, "no grant in table")
	}

	if target != nil && res != ResourceSelf && BranchScoped(p.Role) && target.BranchID != 0 && target.BranchID != p.BranchID {
		return denied(res, "target outside principal branch")
	}

	return Decision{Allowed: true, Grant: grant, Resource: res}
}

// AuthorizeCreateUser gates creation of a new user record. Beyond the table
// grant, a branch-scoped principal may only create students, and only
// inside its own branch.
func (a *Authorizer) AuthorizeCreateUser(p Principal, newRole Role, branchID int64) Decision {
	res := newRole.Resource()
	grant := a.eval.Evaluate(p.Role, OpCreate, res)
	if !grant.Allowed() {
		return denied(res, "no create grant")
	}
	if BranchScoped(p.Role) {
		if newRole != RoleStudent {
			return denied(res, "branch-scoped role may only create students")
		}
		if branchID != p.BranchID {
			return denied(res, "create outside principal branch")
		}
	}
	return Decision{Allowed: true, Grant: grant, Resource: res}
}

// ForbiddenFieldsFor selects the update field mask applicable to the
// decision context: the self mask when the decision resolved to self,
// otherwise the other-record mask.
func (a *Authorizer) ForbiddenFieldsFor(p Principal, d Decision) []string {
	return a.eval.ForbiddenFields(p.Role, d.Resource == ResourceSelf)
}
