package domain

import (
	"context"
	"time"
)

// BookingStatus is the lifecycle state of a viewing booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a tenant's request to view a property.
type Booking struct {
	ID          string        `json:"id"`
	PropertyID  string        `json:"propertyId"`
	TenantID    string        `json:"tenantId"`
	LandlordID  string        `json:"landlordId"`
	ViewingDate time.Time     `json:"viewingDate"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	Versioned
}

// Confirm accepts a pending booking.
func (b *Booking) Confirm() error {
	if b.Status != BookingPending {
		return b.invalid("confirm")
	}
	b.Status = BookingConfirmed
	return nil
}

// Complete marks a confirmed viewing as held. Future viewings cannot complete.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != BookingConfirmed {
		return b.invalid("complete")
	}
	if b.ViewingDate.After(now) {
		return &TransitionError{Entity: "booking", ID: b.ID, From: "scheduled for " + b.ViewingDate.Format(time.RFC3339), Action: "complete"}
	}
	b.Status = BookingCompleted
	return nil
}

// Cancel withdraws a booking that has not been held.
func (b *Booking) Cancel() error {
	if b.Status != BookingPending && b.Status != BookingConfirmed {
		return b.invalid("cancel")
	}
	b.Status = BookingCancelled
	return nil
}

// CheckConvertible verifies the booking may seed a tenancy agreement.
func (b *Booking) CheckConvertible() error {
	if b.Status != BookingCompleted {
		return b.invalid("convert")
	}
	return nil
}

func (b *Booking) invalid(action string) error {
	return invalidTransition("booking", b.ID, string(b.Status), action)
}

// BookingFilter narrows booking listings. Zero values match everything.
type BookingFilter struct {
	TenantID   string
	LandlordID string
	PropertyID string
	Statuses   []BookingStatus
}

// BookingRepository defines data access for bookings
type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// GetForUpdate reads the booking and, inside a transaction, locks it until commit.
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	UpdateIfVersion(ctx context.Context, booking *Booking, expectedVersion int64) (bool, error)
	List(ctx context.Context, filter BookingFilter) ([]*Booking, error)
}
