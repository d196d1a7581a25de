package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	b := &Booking{ID: "b1", Status: BookingPending, ViewingDate: now.Add(24 * time.Hour)}

	require.NoError(t, b.Confirm())
	assert.ErrorIs(t, b.Confirm(), ErrInvalidTransition)

	err := b.Complete(now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, BookingConfirmed, b.Status)

	require.NoError(t, b.Complete(now.Add(25*time.Hour)))
	assert.Equal(t, BookingCompleted, b.Status)
	assert.NoError(t, b.CheckConvertible())
	assert.ErrorIs(t, b.Cancel(), ErrInvalidTransition)
}

func TestBookingCancelOnlyBeforeViewing(t *testing.T) {
	for _, st := range []BookingStatus{BookingPending, BookingConfirmed} {
		b := &Booking{ID: "b", Status: st}
		require.NoError(t, b.Cancel())
		assert.Equal(t, BookingCancelled, b.Status)
		assert.ErrorIs(t, b.CheckConvertible(), ErrInvalidTransition)
	}
}

func TestAgreementSignIsMonotonic(t *testing.T) {
	a := &Agreement{ID: "a1", Status: AgreementPending}
	require.NoError(t, a.Sign())
	assert.True(t, a.Signed)
	assert.Equal(t, AgreementSigned, a.Status)

	assert.ErrorIs(t, a.Sign(), ErrAlreadySigned)
	assert.True(t, a.Signed)
}

func TestAgreementAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	pending := &Agreement{Status: AgreementPending, StartDate: start, EndDate: end}
	assert.False(t, pending.Advance(end.Add(time.Hour)), "pending never advances on its own")
	assert.Equal(t, AgreementPending, pending.Status)

	a := &Agreement{Status: AgreementSigned, Signed: true, StartDate: start, EndDate: end}
	assert.False(t, a.Advance(start.Add(-time.Second)))
	assert.True(t, a.Advance(start))
	assert.Equal(t, AgreementActive, a.Status)
	assert.False(t, a.Advance(start), "second sweep is a no-op")
	assert.False(t, a.Advance(end), "end date itself is still active")
	assert.True(t, a.Advance(end.Add(time.Second)))
	assert.Equal(t, AgreementExpired, a.Status)

	late := &Agreement{Status: AgreementSigned, Signed: true, StartDate: start, EndDate: end}
	assert.True(t, late.Advance(end.AddDate(0, 1, 0)))
	assert.Equal(t, AgreementExpired, late.Status)
}

func TestMaintenanceMovesForwardOnly(t *testing.T) {
	m := &MaintenanceRequest{ID: "m1", Status: MaintenancePending, Priority: PriorityHigh}
	assert.ErrorIs(t, m.Complete(), ErrInvalidTransition)
	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrInvalidTransition)
	require.NoError(t, m.Complete())
	assert.Equal(t, MaintenanceCompleted, m.Status)
	assert.ErrorIs(t, m.Start(), ErrInvalidTransition)
	assert.Equal(t, PriorityHigh, m.Priority)
}

func TestParsers(t *testing.T) {
	r, err := ParseRole("evaluator")
	require.NoError(t, err)
	assert.Equal(t, RoleEvaluator, r)
	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrValidation)

	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)
	_, err = ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrValidation)

	u, err := ParseUnitStatus("")
	require.NoError(t, err)
	assert.Equal(t, UnitAvailable, u)
}

func TestUserChangeRole(t *testing.T) {
	u := &User{ID: "u1", Role: RoleTenant}
	assert.ErrorIs(t, u.ChangeRole(RoleTenant), ErrInvalidTransition)
	require.NoError(t, u.ChangeRole(RoleLandlord))
	assert.Equal(t, RoleLandlord, u.Role)
}
