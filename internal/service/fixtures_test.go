package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/notify"
	"github.com/Rotichtonny/TenaRentals/internal/repository"
	"github.com/Rotichtonny/TenaRentals/internal/repository/memory"
	"github.com/Rotichtonny/TenaRentals/internal/security/auth"
)

var fullChecklist = domain.Checklist{true, true, true, true, true, true, true}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	ctx         context.Context
	store       domain.Store
	clock       *fakeClock
	hub         *notify.Hub
	cache       *repository.MemoryListingCache
	identity    *IdentityService
	properties  *PropertyService
	bookings    *BookingService
	agreements  *AgreementService
	maintenance *MaintenanceService
	stats       *StatsService
	seq         int
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, memory.NewStore())
}

func newHarnessWithStore(t *testing.T, store domain.Store) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	logger := quietLogger()
	hub := notify.NewHub(notify.NewMemoryHistory(notify.DefaultHistorySize), logger)
	deps := Dependencies{
		Store:       store,
		Notifier:    hub,
		Logger:      logger,
		Now:         clock.Now,
		MaxAttempts: 3,
	}
	cache := repository.NewMemoryListingCache(time.Minute)
	identity := NewIdentityService(deps, auth.NewTokenManager("test-secret", "tenarentals-test", time.Hour))
	identity.bcryptCost = bcrypt.MinCost
	return &harness{
		ctx:         context.Background(),
		store:       store,
		clock:       clock,
		hub:         hub,
		cache:       cache,
		identity:    identity,
		properties:  NewPropertyService(deps, cache),
		bookings:    NewBookingService(deps),
		agreements:  NewAgreementService(deps),
		maintenance: NewMaintenanceService(deps),
		stats:       NewStatsService(deps),
	}
}

func (h *harness) user(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	h.seq++
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     fmt.Sprintf("%s%d@example.com", role, h.seq),
		FullName:  fmt.Sprintf("%s %d", role, h.seq),
		Role:      role,
		CreatedAt: h.clock.Now(),
	}
	require.NoError(t, h.store.Users().Create(h.ctx, u))
	return u
}

func listingInput() PropertyInput {
	return PropertyInput{
		Title:     "Modern 2BR Apartment in Westlands",
		Address:   "Riverside Drive",
		City:      "Nairobi",
		Bedrooms:  2,
		Bathrooms: 2,
		Rent:      85000,
		Images:    []string{"https://images.example.com/westlands.jpg"},
	}
}

func (h *harness) pending(t *testing.T, landlord *domain.User) *domain.Property {
	t.Helper()
	p, err := h.properties.Create(h.ctx, landlord, listingInput())
	require.NoError(t, err)
	return p
}

func (h *harness) awaiting(t *testing.T, admin, landlord, evaluator *domain.User) *domain.Property {
	t.Helper()
	p := h.pending(t, landlord)
	p, err := h.properties.AssignEvaluator(h.ctx, admin, p.ID, evaluator.ID)
	require.NoError(t, err)
	return p
}

func (h *harness) approved(t *testing.T, admin, landlord, evaluator *domain.User) *domain.Property {
	t.Helper()
	p := h.awaiting(t, admin, landlord, evaluator)
	p, err := h.properties.Approve(h.ctx, evaluator, p.ID, ApprovalInput{Checklist: fullChecklist[:]})
	require.NoError(t, err)
	return p
}

func (h *harness) active(t *testing.T, admin, landlord, evaluator *domain.User) *domain.Property {
	t.Helper()
	p := h.approved(t, admin, landlord, evaluator)
	p, err := h.properties.Publish(h.ctx, admin, p.ID)
	require.NoError(t, err)
	return p
}

// completedBooking returns a booking whose viewing has been held
func (h *harness) completedBooking(t *testing.T, p *domain.Property, landlord, tenant *domain.User) *domain.Booking {
	t.Helper()
	b, err := h.bookings.Create(h.ctx, tenant, p.ID, h.clock.Now().Add(24*time.Hour))
	require.NoError(t, err)
	_, err = h.bookings.Confirm(h.ctx, landlord, b.ID)
	require.NoError(t, err)
	h.clock.Advance(48 * time.Hour)
	b, err = h.bookings.Complete(h.ctx, landlord, b.ID)
	require.NoError(t, err)
	return b
}

func (h *harness) agreementInput(startIn, length time.Duration) AgreementInput {
	start := h.clock.Now().Add(startIn)
	return AgreementInput{
		Terms:     "12 month lease",
		Rent:      85000,
		Deposit:   170000,
		StartDate: start,
		EndDate:   start.Add(length),
	}
}

func (h *harness) propertyStatus(t *testing.T, id string) domain.PropertyStatus {
	t.Helper()
	p, err := h.store.Properties().GetByID(h.ctx, id)
	require.NoError(t, err)
	return p.Status
}
