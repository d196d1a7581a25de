package service

import (
	"context"
	"fmt"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/security"
)

// Stats backs the admin dashboard
type Stats struct {
	TotalUsers           int                           `json:"totalUsers"`
	UsersByRole          map[domain.Role]int           `json:"usersByRole"`
	TotalProperties      int                           `json:"totalProperties"`
	PropertiesByStatus   map[domain.PropertyStatus]int `json:"propertiesByStatus"`
	PendingApprovals     int                           `json:"pendingApprovals"`
	CompletedEvaluations int                           `json:"completedEvaluations"`
}

// EvaluatorStats backs the evaluator dashboard
type EvaluatorStats struct {
	PendingInspection int `json:"pendingInspection"`
	TotalInspected    int `json:"totalInspected"`
	Approved          int `json:"approved"`
	Rejected          int `json:"rejected"`
}

// LandlordStats backs the landlord dashboard. MonthlyRent is the rent
// contracted on active agreements, not money received.
type LandlordStats struct {
	TotalProperties    int                           `json:"totalProperties"`
	PropertiesByStatus map[domain.PropertyStatus]int `json:"propertiesByStatus"`
	ActiveTenants      int                           `json:"activeTenants"`
	PendingBookings    int                           `json:"pendingBookings"`
	MonthlyRent        int                           `json:"monthlyRent"`
}

// Dashboard carries the figures for the caller's role; exactly one section is set.
type Dashboard struct {
	Role      domain.Role     `json:"role"`
	Admin     *Stats          `json:"admin,omitempty"`
	Evaluator *EvaluatorStats `json:"evaluator,omitempty"`
	Landlord  *LandlordStats  `json:"landlord,omitempty"`
}

// StatsService aggregates counts for the role dashboards
type StatsService struct {
	lifecycle
}

// NewStatsService creates a new stats service
func NewStatsService(deps Dependencies) *StatsService {
	return &StatsService{lifecycle: newLifecycle(deps)}
}

// Dashboard counts users by role and properties by status
func (s *StatsService) Dashboard(ctx context.Context, actor *domain.User) (*Stats, error) {
	if err := s.access.Require(ctx, actor, security.ActionViewStats); err != nil {
		return nil, err
	}
	byRole, err := s.store.Users().CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	byStatus, err := s.store.Properties().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	st := &Stats{UsersByRole: map[domain.Role]int{}, PropertiesByStatus: map[domain.PropertyStatus]int{}}
	for _, r := range domain.AllRoles() {
		st.UsersByRole[r] = byRole[r]
		st.TotalUsers += byRole[r]
	}
	for status, n := range byStatus {
		st.PropertiesByStatus[status] = n
		st.TotalProperties += n
	}
	st.PendingApprovals = byStatus[domain.PropertyPending] + byStatus[domain.PropertyAwaitingEvaluation]
	// a passed inspection stays counted after publication
	st.CompletedEvaluations = byStatus[domain.PropertyApproved] + byStatus[domain.PropertyActive]
	return st, nil
}

// ForActor returns the dashboard for the actor's role. Tenants have none.
func (s *StatsService) ForActor(ctx context.Context, actor *domain.User) (*Dashboard, error) {
	var err error
	d := &Dashboard{Role: roleOf(actor)}
	switch d.Role {
	case domain.RoleAdmin:
		d.Admin, err = s.Dashboard(ctx, actor)
	case domain.RoleEvaluator:
		d.Evaluator, err = s.evaluator(ctx, actor)
	case domain.RoleLandlord:
		d.Landlord, err = s.landlord(ctx, actor)
	default:
		return nil, forbiddenRead(actor, "dashboard", "")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *StatsService) evaluator(ctx context.Context, actor *domain.User) (*EvaluatorStats, error) {
	if err := s.access.Require(ctx, actor, security.ActionListAssignments); err != nil {
		return nil, err
	}
	assigned, err := s.store.Properties().List(ctx, domain.PropertyFilter{EvaluatorID: actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned properties: %w", err)
	}
	st := &EvaluatorStats{}
	for _, p := range assigned {
		switch p.Status {
		case domain.PropertyAwaitingEvaluation:
			st.PendingInspection++
		case domain.PropertyApproved, domain.PropertyActive:
			st.Approved++
		case domain.PropertyRejected:
			// the evaluator stays recorded only when they made the rejection
			st.Rejected++
		}
	}
	st.TotalInspected = st.Approved + st.Rejected
	return st, nil
}

func (s *StatsService) landlord(ctx context.Context, actor *domain.User) (*LandlordStats, error) {
	if err := s.access.Require(ctx, actor, security.ActionListOwned); err != nil {
		return nil, err
	}
	owned, err := s.store.Properties().List(ctx, domain.PropertyFilter{LandlordID: actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list owned properties: %w", err)
	}
	active, err := s.store.Agreements().List(ctx, domain.AgreementFilter{
		LandlordID: actor.ID,
		Statuses:   []domain.AgreementStatus{domain.AgreementActive},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active agreements: %w", err)
	}
	pending, err := s.store.Bookings().List(ctx, domain.BookingFilter{
		LandlordID: actor.ID,
		Statuses:   []domain.BookingStatus{domain.BookingPending},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bookings: %w", err)
	}

	st := &LandlordStats{
		TotalProperties:    len(owned),
		PropertiesByStatus: map[domain.PropertyStatus]int{},
		PendingBookings:    len(pending),
	}
	for _, p := range owned {
		st.PropertiesByStatus[p.Status]++
	}
	tenants := map[string]struct{}{}
	for _, a := range active {
		tenants[a.TenantID] = struct{}{}
		st.MonthlyRent += a.Rent
	}
	st.ActiveTenants = len(tenants)
	return st, nil
}
