package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

func TestMaintenanceRequiresSignedTenancy(t *testing.T) {
	h := newHarness(t)
	a, landlord, tenant := h.draftAgreement(t, day, 365*day)
	in := MaintenanceInput{PropertyID: a.PropertyID, Title: "Leaking kitchen tap", Priority: "high"}

	_, err := h.maintenance.Create(h.ctx, tenant, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.maintenance.Create(h.ctx, landlord, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.agreements.Sign(h.ctx, tenant, a.ID)
	require.NoError(t, err)

	bad := in
	bad.Priority = "urgent"
	_, err = h.maintenance.Create(h.ctx, tenant, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	m, err := h.maintenance.Create(h.ctx, tenant, in)
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenancePending, m.Status)
	assert.Equal(t, domain.PriorityHigh, m.Priority)
	assert.Equal(t, landlord.ID, m.LandlordID)

	in.Priority = ""
	m2, err := h.maintenance.Create(h.ctx, tenant, in)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, m2.Priority)
}

func TestMaintenanceMovesForwardOnly(t *testing.T) {
	h := newHarness(t)
	a, landlord, tenant := h.draftAgreement(t, day, 365*day)
	_, err := h.agreements.Sign(h.ctx, tenant, a.ID)
	require.NoError(t, err)
	m, err := h.maintenance.Create(h.ctx, tenant, MaintenanceInput{PropertyID: a.PropertyID, Title: "Broken window"})
	require.NoError(t, err)

	_, err = h.maintenance.Start(h.ctx, tenant, m.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.maintenance.Complete(h.ctx, landlord, m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	m, err = h.maintenance.Start(h.ctx, landlord, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceInProgress, m.Status)
	_, err = h.maintenance.Start(h.ctx, landlord, m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	m, err = h.maintenance.Complete(h.ctx, landlord, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceCompleted, m.Status)
	_, err = h.maintenance.Complete(h.ctx, landlord, m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	list, err := h.maintenance.ListForActor(h.ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	got, err := h.maintenance.Get(h.ctx, landlord, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceCompleted, got.Status)
}
