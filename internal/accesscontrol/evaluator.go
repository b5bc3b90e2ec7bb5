package accesscontrol

// Evaluator answers static permission lookups against an immutable Table.
// It performs no I/O and is total over its input domain: any unknown role,
// operation or resource evaluates to Deny.
type Evaluator struct {
	table *Table
}

// NewEvaluator wraps a built table. Passing nil falls back to the default
// table so a zero-configuration evaluator still denies nothing it should
// not.
func NewEvaluator(table *Table) *Evaluator {
	if table == nil {
		table = DefaultTable()
	}
	return &Evaluator{table: table}
}

// Evaluate returns the grant for the tuple. Pure function of the table.
func (e *Evaluator) Evaluate(role Role, op Operation, res Resource) Grant {
	return e.table.Lookup(role, op, res)
}

// ForbiddenFields exposes the update field mask for the role and context.
func (e *Evaluator) ForbiddenFields(role Role, self bool) []string {
	return e.table.ForbiddenFields(role, self)
}

// ListableRoleClasses derives which role-classes of users a principal role
// may enumerate in list queries, by probing the read grant of each
// role-class resource.
func (e *Evaluator) ListableRoleClasses(role Role) []Role {
	var listable []Role
	for _, candidate := range Roles() {
		if e.Evaluate(role, OpRead, candidate.Resource()).Allowed() {
			listable = append(listable, candidate)
		}
	}
	return listable
}

// AnalysisScope resolves the analysis read grant for a role into the set of
// role-class resources the caller may break analysis down by. A full allow
// returns all role-classes; a scoped allow returns its scope; deny returns
// nil.
func (e *Evaluator) AnalysisScope(role Role) []Resource {
	grant := e.Evaluate(role, OpRead, ResourceAnalysis)
	switch grant.Kind {
	case GrantAllow, GrantAllowWithExclusions:
		resources := make([]Resource, 0, len(Roles()))
		for _, r := range Roles() {
			resources = append(resources, r.Resource())
		}
		return resources
	case GrantScopedAllow:
		resources := make([]Resource, 0, len(grant.Scope))
		for _, r := range Roles() {
			if grant.Scope[r.Resource()] {
				resources = append(resources, r.Resource())
			}
		}
		return resources
	default:
		return nil
	}
}
