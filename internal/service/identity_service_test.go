package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	u, err := h.identity.Register(h.ctx, RegisterInput{Email: "alice@example.com", Password: "Password123", FullName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTenant, u.Role)
	assert.NotEqual(t, "Password123", u.PasswordHash)

	// duplicate email
	_, err = h.identity.Register(h.ctx, RegisterInput{Email: "alice@example.com", Password: "Password123", FullName: "Alice Two"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields[0].Field)

	lr, err := h.identity.Login(h.ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	assert.NotEmpty(t, lr.Token)
	assert.Equal(t, "Bearer", lr.TokenType)

	resolved, err := h.identity.VerifyToken(h.ctx, lr.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)

	_, err = h.identity.Login(h.ctx, "alice@example.com", "Wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	// emails are case-sensitive
	_, err = h.identity.Login(h.ctx, "Alice@example.com", "Password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterRejectsPrivilegedRolesAndWeakPasswords(t *testing.T) {
	h := newHarness(t)

	_, err := h.identity.Register(h.ctx, RegisterInput{Email: "eve@example.com", Password: "Password123", FullName: "Eve", Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.identity.Register(h.ctx, RegisterInput{Email: "eve@example.com", Password: "Password123", FullName: "Eve", Role: "evaluator"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.identity.Register(h.ctx, RegisterInput{Email: "eve@example.com", Password: "short", FullName: "Eve"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	u, err := h.identity.Register(h.ctx, RegisterInput{Email: "lee@example.com", Password: "Password123", FullName: "Lee", Role: "landlord"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLandlord, u.Role)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	u, err := h.identity.Register(h.ctx, RegisterInput{Email: "bob@example.com", Password: "OldPass123", FullName: "Bob"})
	require.NoError(t, err)

	err = h.identity.ChangePassword(h.ctx, u, "bad", "NewPass123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, h.identity.ChangePassword(h.ctx, u, "OldPass123", "NewPass123"))

	_, err = h.identity.Login(h.ctx, "bob@example.com", "OldPass123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.identity.Login(h.ctx, "bob@example.com", "NewPass123")
	assert.NoError(t, err)
}

func TestChangeRole(t *testing.T) {
	h := newHarness(t)
	admin, landlord := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord)

	_, err := h.identity.ChangeRole(h.ctx, landlord, landlord.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.identity.ChangeRole(h.ctx, admin, admin.ID, "tenant")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.identity.ChangeRole(h.ctx, admin, landlord.ID, "landlord")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = h.identity.ChangeRole(h.ctx, admin, landlord.ID, "owner")
	assert.ErrorIs(t, err, domain.ErrValidation)

	u, err := h.identity.ChangeRole(h.ctx, admin, landlord.ID, "evaluator")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEvaluator, u.Role)

	// the new role applies on the next resolution
	resolved, err := h.identity.Resolve(h.ctx, landlord.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEvaluator, resolved.Role)

	evaluators, err := h.identity.ListUsers(h.ctx, admin, "evaluator")
	require.NoError(t, err)
	assert.Len(t, evaluators, 1)
	_, err = h.identity.ListUsers(h.ctx, resolved, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAdminCreatesAnyRole(t *testing.T) {
	h := newHarness(t)
	admin, tenant := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleTenant)
	in := RegisterInput{Email: "eval@example.com", Password: "Password123", FullName: "Eva", Role: "evaluator"}

	_, err := h.identity.CreateUser(h.ctx, tenant, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err := h.identity.CreateUser(h.ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEvaluator, u.Role)
}

func TestDashboardCounts(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	h.pending(t, landlord)
	h.awaiting(t, admin, landlord, ev)
	h.active(t, admin, landlord, ev)

	_, err := h.stats.Dashboard(h.ctx, landlord)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	st, err := h.stats.Dashboard(h.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 1, st.UsersByRole[domain.RoleEvaluator])
	assert.Equal(t, 0, st.UsersByRole[domain.RoleTenant])
	assert.Equal(t, 3, st.TotalProperties)
	assert.Equal(t, 2, st.PendingApprovals)
	assert.Equal(t, 1, st.CompletedEvaluations)
}

func TestSeedRunsOnce(t *testing.T) {
	h := newHarness(t)
	res, err := Seed(h.ctx, h.store, h.clock.Now(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, len(demoUsers), res.Users)
	assert.Equal(t, len(demoProperties), res.Properties)

	again, err := Seed(h.ctx, h.store, h.clock.Now(), quietLogger())
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	listed, err := h.properties.Search(h.ctx, SearchQuery{City: "Nairobi"})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = h.identity.Login(h.ctx, "sarah.w@email.com", DemoPassword)
	assert.NoError(t, err)
}
