package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/observability/tracing"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
)

// BookingService handles viewing requests and their conversion into agreements
type BookingService struct {
	lifecycle
}

// NewBookingService creates a new booking service
func NewBookingService(deps Dependencies) *BookingService {
	return &BookingService{lifecycle: newLifecycle(deps)}
}

// Create books a viewing of a listed property
func (s *BookingService) Create(ctx context.Context, actor *domain.User, propertyID string, viewingDate time.Time) (*domain.Booking, error) {
	if err := s.access.Require(ctx, actor, security.ActionCreateBooking); err != nil {
		return nil, err
	}
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !p.Status.Listed() {
		return nil, &domain.TransitionError{Entity: "property", ID: p.ID, From: string(p.Status), Action: "book a viewing of"}
	}
	now := s.now()
	if !viewingDate.After(now) {
		return nil, domain.NewValidationError("viewingDate", "must be in the future")
	}

	b := &domain.Booking{
		ID:          uuid.NewString(),
		PropertyID:  p.ID,
		TenantID:    actor.ID,
		LandlordID:  p.LandlordID,
		ViewingDate: viewingDate.UTC(),
		Status:      domain.BookingPending,
		CreatedAt:   now,
	}
	err = s.store.Bookings().Create(ctx, b)
	s.record(ctx, actor, "booking", "create", b.ID, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.notify(ctx, b.LandlordID, "booking.requested", "booking", b.ID, "New viewing request for "+p.Title)
	return b, nil
}

// Confirm accepts a pending viewing
func (s *BookingService) Confirm(ctx context.Context, actor *domain.User, id string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, security.ActionConfirmBooking, "confirm", id, func(b *domain.Booking) error {
		return b.Confirm()
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, b.TenantID, "booking.confirmed", "booking", b.ID, "Your viewing on "+b.ViewingDate.Format(time.DateOnly)+" is confirmed")
	return b, nil
}

// Complete marks a held viewing
func (s *BookingService) Complete(ctx context.Context, actor *domain.User, id string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, security.ActionCompleteBooking, "complete", id, func(b *domain.Booking) error {
		return b.Complete(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, b.TenantID, "booking.completed", "booking", b.ID, "Your viewing was marked as held")
	return b, nil
}

// Cancel withdraws a viewing. Either party of record may cancel.
func (s *BookingService) Cancel(ctx context.Context, actor *domain.User, id string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, security.ActionCancelBooking, "cancel", id, func(b *domain.Booking) error {
		return b.Cancel()
	})
	if err != nil {
		return nil, err
	}
	other := b.LandlordID
	if actor.ID == b.LandlordID {
		other = b.TenantID
	}
	s.notify(ctx, other, "booking.cancelled", "booking", b.ID, "A viewing was cancelled")
	return b, nil
}

func (s *BookingService) mutate(ctx context.Context, actor *domain.User, action security.Action, name, id string, fn func(*domain.Booking) error) (*domain.Booking, error) {
	bookings := s.store.Bookings()
	return transition(ctx, &s.lifecycle, actor, "booking", name, id, retry.CAS[*domain.Booking]{
		Load: func(ctx context.Context) (*domain.Booking, error) { return bookings.GetByID(ctx, id) },
		Mutate: func(b *domain.Booking) error {
			if err := s.access.AuthorizeBooking(ctx, actor, action, b); err != nil {
				return err
			}
			return fn(b)
		},
		Save: func(ctx context.Context, b *domain.Booking, expected int64) (bool, error) {
			return bookings.UpdateIfVersion(ctx, b, expected)
		},
	})
}

// ConvertToAgreement drafts a pending agreement from a completed viewing.
// The booking is locked for the duration and left unchanged; the agreement
// is created only if the whole transaction commits.
func (s *BookingService) ConvertToAgreement(ctx context.Context, actor *domain.User, bookingID string, in AgreementInput) (*domain.Agreement, error) {
	ctx, span := tracing.Start(ctx, "booking.convert")
	var agreement *domain.Agreement
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.access.AuthorizeBooking(ctx, actor, security.ActionConvertBooking, b); err != nil {
			return err
		}
		if err := b.CheckConvertible(); err != nil {
			return err
		}
		if err := validateInput(in); err != nil {
			return err
		}
		if err := ensureNoLiveAgreement(ctx, tx, b.PropertyID, b.TenantID); err != nil {
			return err
		}

		agreement = newAgreement(b.PropertyID, b.TenantID, b.LandlordID, in, s.now())
		if err := tx.Agreements().Create(ctx, agreement); err != nil {
			return fmt.Errorf("failed to create agreement: %w", err)
		}
		return nil
	})
	s.record(ctx, actor, "booking", "convert", bookingID, err)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking converted",
		slog.String("booking_id", bookingID),
		slog.String("agreement_id", agreement.ID),
	)
	s.notify(ctx, agreement.TenantID, "agreement.drafted", "agreement", agreement.ID, "A rental agreement is ready for your signature")
	return agreement, nil
}

func ensureNoLiveAgreement(ctx context.Context, store domain.Store, propertyID, tenantID string) error {
	existing, err := store.Agreements().List(ctx, domain.AgreementFilter{PropertyID: propertyID, TenantID: tenantID})
	if err != nil {
		return fmt.Errorf("failed to check existing agreements: %w", err)
	}
	for _, a := range existing {
		if a.Live() {
			return &domain.TransitionError{Entity: "agreement", ID: a.ID, From: string(a.Status), Action: "draft a second agreement alongside"}
		}
	}
	return nil
}

func newAgreement(propertyID, tenantID, landlordID string, in AgreementInput, now time.Time) *domain.Agreement {
	return &domain.Agreement{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		TenantID:   tenantID,
		LandlordID: landlordID,
		Terms:      strings.TrimSpace(in.Terms),
		Rent:       in.Rent,
		Deposit:    in.Deposit,
		StartDate:  in.StartDate.UTC(),
		EndDate:    in.EndDate.UTC(),
		Status:     domain.AgreementPending,
		CreatedAt:  now,
	}
}

// Get returns a booking the actor is a party to
func (s *BookingService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanReadParties(actor, b.TenantID, b.LandlordID) {
		return nil, forbiddenRead(actor, "booking", id)
	}
	return b, nil
}

// ListForActor lists the bookings visible to the actor
func (s *BookingService) ListForActor(ctx context.Context, actor *domain.User) ([]*domain.Booking, error) {
	var f domain.BookingFilter
	switch roleOf(actor) {
	case domain.RoleAdmin:
	case domain.RoleLandlord:
		f.LandlordID = actor.ID
	case domain.RoleTenant:
		f.TenantID = actor.ID
	default:
		return nil, forbiddenRead(actor, "booking", "")
	}
	return s.store.Bookings().List(ctx, f)
}
