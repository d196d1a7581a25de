package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

func newBooking(id string) *domain.Booking {
	return &domain.Booking{
		ID:          id,
		PropertyID:  "p1",
		TenantID:    "t1",
		LandlordID:  "l1",
		ViewingDate: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		Status:      domain.BookingPending,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUpdateIfVersionRejectsStaleWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Bookings().Create(ctx, newBooking("b1")))

	first, err := s.Bookings().GetByID(ctx, "b1")
	require.NoError(t, err)
	second, err := s.Bookings().GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.RowVersion)

	require.NoError(t, first.Confirm())
	ok, err := s.Bookings().UpdateIfVersion(ctx, first, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), first.RowVersion)

	require.NoError(t, second.Cancel())
	ok, err = s.Bookings().UpdateIfVersion(ctx, second, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := s.Bookings().GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, stored.Status)

	_, err = s.Bookings().UpdateIfVersion(ctx, newBooking("missing"), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := &domain.Property{ID: "p1", LandlordID: "l1", Status: domain.PropertyPending, Images: []string{"a"}}
	require.NoError(t, s.Properties().Create(ctx, p))

	got, err := s.Properties().GetByID(ctx, "p1")
	require.NoError(t, err)
	got.Images[0] = "changed"
	got.Status = domain.PropertyActive

	again, err := s.Properties().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Images)
	assert.Equal(t, domain.PropertyPending, again.Status)
}

func TestWithinTxDiscardsWritesOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Bookings().Create(ctx, newBooking("b1")))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, "b1")
		if err != nil {
			return err
		}
		if err := b.Confirm(); err != nil {
			return err
		}
		if _, err := tx.Bookings().UpdateIfVersion(ctx, b, b.RowVersion); err != nil {
			return err
		}
		if err := tx.Agreements().Create(ctx, &domain.Agreement{ID: "a1", PropertyID: "p1", TenantID: "t1"}); err != nil {
			return err
		}
		// nested transactions join the outer one
		return tx.WithinTx(ctx, func(context.Context, domain.Store) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	b, err := s.Bookings().GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	_, err = s.Agreements().GetByID(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	err := s.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		return tx.Agreements().Create(ctx, &domain.Agreement{ID: "a1", Status: domain.AgreementPending})
	})
	require.NoError(t, err)

	a, err := s.Agreements().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.RowVersion)
}

func TestUnitNumbersUniquePerProperty(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Units().Create(ctx, &domain.Unit{ID: "u1", PropertyID: "p1", UnitNumber: "A1"}))
	require.NoError(t, s.Units().Create(ctx, &domain.Unit{ID: "u2", PropertyID: "p2", UnitNumber: "A1"}))

	err := s.Units().Create(ctx, &domain.Unit{ID: "u3", PropertyID: "p1", UnitNumber: "A1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListDueSelectsOnlyTimeDrivenCandidates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, status domain.AgreementStatus, start, end time.Time) {
		require.NoError(t, s.Agreements().Create(ctx, &domain.Agreement{ID: id, Status: status, StartDate: start, EndDate: end}))
	}
	mk("signed-due", domain.AgreementSigned, now.AddDate(0, 0, -1), now.AddDate(1, 0, 0))
	mk("signed-later", domain.AgreementSigned, now.AddDate(0, 0, 1), now.AddDate(1, 0, 0))
	mk("active-over", domain.AgreementActive, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -1))
	mk("active-running", domain.AgreementActive, now.AddDate(-1, 0, 0), now.AddDate(0, 0, 1))
	mk("pending-past", domain.AgreementPending, now.AddDate(-1, 0, 0), now.AddDate(0, 0, -1))

	due, err := s.Agreements().ListDue(ctx, now)
	require.NoError(t, err)
	ids := []string{}
	for _, a := range due {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"active-over", "signed-due"}, ids)
}
