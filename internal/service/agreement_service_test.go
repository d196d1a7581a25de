package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

const day = 24 * time.Hour

func (h *harness) draftAgreement(t *testing.T, startIn, length time.Duration) (*domain.Agreement, *domain.User, *domain.User) {
	t.Helper()
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	tenant := h.user(t, domain.RoleTenant)
	p := h.active(t, admin, landlord, ev)
	a, err := h.agreements.Create(h.ctx, landlord, p.ID, tenant.ID, h.agreementInput(startIn, length))
	require.NoError(t, err)
	return a, landlord, tenant
}

func TestSignIsOneShot(t *testing.T) {
	h := newHarness(t)
	a, landlord, tenant := h.draftAgreement(t, 7*day, 365*day)
	assert.False(t, a.Signed)

	_, err := h.agreements.Sign(h.ctx, landlord, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	a, err = h.agreements.Sign(h.ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.True(t, a.Signed)
	assert.Equal(t, domain.AgreementSigned, a.Status)

	_, err = h.agreements.Sign(h.ctx, tenant, a.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySigned)
}

func TestCreateAgreementRules(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	tenant, stranger := h.user(t, domain.RoleTenant), h.user(t, domain.RoleLandlord)
	p := h.active(t, admin, landlord, ev)
	in := h.agreementInput(day, 90*day)

	_, err := h.agreements.Create(h.ctx, stranger, p.ID, tenant.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.agreements.Create(h.ctx, landlord, p.ID, ev.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad := in
	bad.Deposit = 0
	_, err = h.agreements.Create(h.ctx, landlord, p.ID, tenant.ID, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending := h.pending(t, landlord)
	_, err = h.agreements.Create(h.ctx, landlord, pending.ID, tenant.ID, in)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.agreements.Create(h.ctx, landlord, p.ID, tenant.ID, in)
	require.NoError(t, err)
	_, err = h.agreements.Create(h.ctx, landlord, p.ID, tenant.ID, in)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReconcileAdvancesSignedAgreements(t *testing.T) {
	h := newHarness(t)
	a, _, tenant := h.draftAgreement(t, 2*day, 30*day)
	_, err := h.agreements.Sign(h.ctx, tenant, a.ID)
	require.NoError(t, err)

	res, err := h.agreements.Reconcile(h.ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, res.Due)

	h.clock.Advance(3 * day)
	res, err = h.agreements.Reconcile(h.ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Activated)
	got, err := h.agreements.Get(h.ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementActive, got.Status)
	assert.True(t, got.Signed)

	h.clock.Advance(40 * day)
	res, err = h.agreements.Reconcile(h.ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	got, err = h.agreements.Get(h.ctx, tenant, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementExpired, got.Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	a, _, tenant := h.draftAgreement(t, day, 10*day)
	_, err := h.agreements.Sign(h.ctx, tenant, a.ID)
	require.NoError(t, err)
	unsigned, _, _ := h.draftAgreement(t, day, 10*day)

	// a signed agreement whose whole term has passed goes straight to expired
	h.clock.Advance(20 * day)
	res, err := h.agreements.Reconcile(h.ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Activated)
	assert.Equal(t, 1, res.Expired)

	before, err := h.store.Agreements().GetByID(h.ctx, a.ID)
	require.NoError(t, err)
	res, err = h.agreements.Reconcile(h.ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res)
	after, err := h.store.Agreements().GetByID(h.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, before.RowVersion, after.RowVersion)

	// unsigned drafts are never advanced by time
	got, err := h.store.Agreements().GetByID(h.ctx, unsigned.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementPending, got.Status)
}

func TestAgreementVisibility(t *testing.T) {
	h := newHarness(t)
	a, landlord, tenant := h.draftAgreement(t, day, 30*day)
	other := h.user(t, domain.RoleTenant)

	_, err := h.agreements.Get(h.ctx, other, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.agreements.Get(h.ctx, landlord, a.ID)
	assert.NoError(t, err)

	mine, err := h.agreements.ListForActor(h.ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	mine, err = h.agreements.ListForActor(h.ctx, other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
