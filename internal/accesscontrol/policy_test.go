package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newAuthorizer() *Authorizer {
	return NewAuthorizer(NewEvaluator(DefaultTable()))
}

func TestAuthorizeSelfRoutingForEveryRole(t *testing.T) {
	auth := newAuthorizer()

	for _, role := range Roles() {
		p := Principal{ID: 7, Role: role, BranchID: 1}
		target := &Target{ID: 7, Role: role, BranchID: 1}
		decision := auth.Authorize(p, OpRead, role.Resource(), target)
		require.True(t, decision.Allowed, "role %s", role)
		require.Equal(t, ResourceSelf, decision.Resource)
	}
}

func TestAuthorizeLateralSameRoleDenied(t *testing.T) {
	auth := newAuthorizer()

	staff := Principal{ID: 1, Role: RoleStaff, BranchID: 5}
	otherStaff := &Target{ID: 2, Role: RoleStaff, BranchID: 5}
	require.False(t, auth.Authorize(staff, OpRead, ResourceStaff, otherStaff).Allowed)
	require.False(t, auth.Authorize(staff, OpUpdate, ResourceStaff, otherStaff).Allowed)

	student := Principal{ID: 3, Role: RoleStudent, BranchID: 5}
	otherStudent := &Target{ID: 4, Role: RoleStudent, BranchID: 5}
	require.False(t, auth.Authorize(student, OpRead, ResourceStudent, otherStudent).Allowed)
}

func TestAuthorizeElevatedRolesExemptFromLateralVeto(t *testing.T) {
	auth := newAuthorizer()

	admin := Principal{ID: 1, Role: RoleAdmin}
	otherAdmin := &Target{ID: 2, Role: RoleAdmin}
	require.True(t, auth.Authorize(admin, OpRead, ResourceAdmin, otherAdmin).Allowed)

	super := Principal{ID: 1, Role: RoleSuperAdmin}
	require.True(t, auth.Authorize(super, OpUpdate, ResourceAdmin, otherAdmin).Allowed)
}

func TestAuthorizeBranchScopingVeto(t *testing.T) {
	auth := newAuthorizer()

	staff := Principal{ID: 1, Role: RoleStaff, BranchID: 5}
	sameBranch := &Target{ID: 2, Role: RoleStudent, BranchID: 5}
	otherBranch := &Target{ID: 3, Role: RoleStudent, BranchID: 9}

	require.True(t, auth.Authorize(staff, OpUpdate, ResourceStudent, sameBranch).Allowed)
	require.False(t, auth.Authorize(staff, OpUpdate, ResourceStudent, otherBranch).Allowed)
	require.False(t, auth.Authorize(staff, OpDelete, ResourceStudent, otherBranch).Allowed)

	// Admins are not branch-scoped.
	admin := Principal{ID: 4, Role: RoleAdmin}
	require.True(t, auth.Authorize(admin, OpUpdate, ResourceStudent, otherBranch).Allowed)
}

func TestAuthorizeDeniesWithoutGrant(t *testing.T) {
	auth := newAuthorizer()

	student := Principal{ID: 1, Role: RoleStudent, BranchID: 5}
	staffTarget := &Target{ID: 2, Role: RoleStaff, BranchID: 5}
	require.False(t, auth.Authorize(student, OpRead, ResourceStaff, staffTarget).Allowed)
	require.False(t, auth.Authorize(student, OpDelete, ResourceStudent, nil).Allowed)
}

func TestAuthorizeCreateUserRestrictions(t *testing.T) {
	auth := newAuthorizer()

	staff := Principal{ID: 1, Role: RoleStaff, BranchID: 5}
	require.True(t, auth.AuthorizeCreateUser(staff, RoleStudent, 5).Allowed)
	require.False(t, auth.AuthorizeCreateUser(staff, RoleStudent, 9).Allowed)
	require.False(t, auth.AuthorizeCreateUser(staff, RoleStaff, 5).Allowed)

	admin := Principal{ID: 2, Role: RoleAdmin}
	require.True(t, auth.AuthorizeCreateUser(admin, RoleStaff, 9).Allowed)
	require.False(t, auth.AuthorizeCreateUser(admin, RoleAdmin, 0).Allowed)

	super := Principal{ID: 3, Role: RoleSuperAdmin}
	require.True(t, auth.AuthorizeCreateUser(super, RoleAdmin, 0).Allowed)

	student := Principal{ID: 4, Role: RoleStudent, BranchID: 5}
	require.False(t, auth.AuthorizeCreateUser(student, RoleStudent, 5).Allowed)
}

func TestForbiddenFieldsFollowResolvedContext(t *testing.T) {
	auth := newAuthorizer()
	staff := Principal{ID: 1, Role: RoleStaff, BranchID: 5}

	onSelf := auth.Authorize(staff, OpUpdate, ResourceStaff, &Target{ID: 1, Role: RoleStaff, BranchID: 5})
	require.True(t, onSelf.Allowed)
	require.NotContains(t, auth.ForbiddenFieldsFor(staff, onSelf), "userDetails.batch")

	onStudent := auth.Authorize(staff, OpUpdate, ResourceStudent, &Target{ID: 2, Role: RoleStudent, BranchID: 5})
	require.True(t, onStudent.Allowed)
	require.Contains(t, auth.ForbiddenFieldsFor(staff, onStudent), "userDetails.batch")
}
