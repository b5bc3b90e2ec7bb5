package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTableRequiresEveryRole(t *testing.T) {
	rules := map[Role]RoleRules{}
	for _, role := range Roles() {
		rules[role] = RoleRules{Grants: emptyGrants()}
	}
	delete(rules, RoleStaff)

	_, err := NewTable(rules)
	require.Error(t, err)
	require.Contains(t, err.Error(), "staff")
}

func TestNewTableRequiresEveryOperation(t *testing.T) {
	rules := map[Role]RoleRules{}
	for _, role := range Roles() {
		rules[role] = RoleRules{Grants: emptyGrants()}
	}
	partial := emptyGrants()
	delete(partial, OpDelete)
	rules[RoleStudent] = RoleRules{Grants: partial}

	_, err := NewTable(rules)
	require.Error(t, err)
	require.Contains(t, err.Error(), "delete")
}

func TestLookupUnknownTupleDenies(t *testing.T) {
	table := DefaultTable()

	require.False(t, table.Lookup("ghost", OpRead, ResourceStudent).Allowed())
	require.False(t, table.Lookup(RoleStudent, "merge", ResourceSelf).Allowed())
	require.False(t, table.Lookup(RoleStudent, OpRead, "warehouse").Allowed())
	require.False(t, table.Lookup(RoleStudent, OpCreate, ResourceStudent).Allowed())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	eval := NewEvaluator(DefaultTable())

	first := eval.Evaluate(RoleStaff, OpRead, ResourceAnalysis)
	second := eval.Evaluate(RoleStaff, OpRead, ResourceAnalysis)
	require.Equal(t, first.Kind, second.Kind)
	require.Equal(t, first.Scope, second.Scope)
}

func TestDefaultTableStaffAnalysisScoped(t *testing.T) {
	eval := NewEvaluator(DefaultTable())

	grant := eval.Evaluate(RoleStaff, OpRead, ResourceAnalysis)
	require.Equal(t, GrantScopedAllow, grant.Kind)
	require.True(t, grant.InScope(ResourceStaff))
	require.True(t, grant.InScope(ResourceStudent))
	require.False(t, grant.InScope(ResourceAdmin))

	scope := eval.AnalysisScope(RoleStaff)
	require.ElementsMatch(t, []Resource{ResourceStaff, ResourceStudent}, scope)
}

func TestForbiddenFieldsPerContext(t *testing.T) {
	table := DefaultTable()

	require.Contains(t, table.ForbiddenFields(RoleStaff, false), "userDetails.batch")
	require.NotContains(t, table.ForbiddenFields(RoleStaff, true), "userDetails.batch")
	require.Contains(t, table.ForbiddenFields(RoleStudent, true), "userDetails.currentSemester")
	// Absent restrictions mean no mask, not deny-all.
	require.Empty(t, table.ForbiddenFields(RoleStudent, false))
}

func TestListableRoleClasses(t *testing.T) {
	eval := NewEvaluator(DefaultTable())

	require.ElementsMatch(t, []Role{RoleAdmin, RoleStaff, RoleStudent}, eval.ListableRoleClasses(RoleAdmin))
	require.ElementsMatch(t, []Role{RoleStaff, RoleStudent}, eval.ListableRoleClasses(RoleStaff))
	require.Empty(t, eval.ListableRoleClasses(RoleStudent))
}

func emptyGrants() map[Operation]map[Resource]Grant {
	grants := make(map[Operation]map[Resource]Grant, len(Operations()))
	for _, op := range Operations() {
		grants[op] = map[Resource]Grant{}
	}
	return grants
}
