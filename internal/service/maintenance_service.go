package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
)

// MaintenanceService tracks repair tickets raised by tenants
type MaintenanceService struct {
	lifecycle
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(deps Dependencies) *MaintenanceService {
	return &MaintenanceService{lifecycle: newLifecycle(deps)}
}

// Create files a ticket. The tenant must hold a signed or active agreement on the property.
func (s *MaintenanceService) Create(ctx context.Context, actor *domain.User, in MaintenanceInput) (*domain.MaintenanceRequest, error) {
	if err := s.access.Require(ctx, actor, security.ActionCreateMaintenance); err != nil {
		return nil, err
	}
	if in.PropertyID == "" {
		return nil, domain.NewValidationError("propertyId", "is required")
	}
	p, err := s.store.Properties().GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	tenancies, err := s.store.Agreements().List(ctx, domain.AgreementFilter{
		PropertyID: p.ID,
		TenantID:   actor.ID,
		Statuses:   []domain.AgreementStatus{domain.AgreementSigned, domain.AgreementActive},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check tenancy: %w", err)
	}
	if len(tenancies) == 0 {
		err := &domain.ForbiddenError{ActorID: actor.ID, Role: actor.Role, Action: string(security.ActionCreateMaintenance), Resource: "property", ID: p.ID}
		s.audit.LogDenied(ctx, actor.ID, string(actor.Role), string(security.ActionCreateMaintenance), "property", p.ID, "no signed agreement on property")
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	m := &domain.MaintenanceRequest{
		ID:          uuid.NewString(),
		PropertyID:  p.ID,
		TenantID:    actor.ID,
		LandlordID:  p.LandlordID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      domain.MaintenancePending,
		Priority:    priority,
		CreatedAt:   s.now(),
	}
	err = s.store.Maintenance().Create(ctx, m)
	s.record(ctx, actor, "maintenance_request", "create", m.ID, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create maintenance request: %w", err)
	}
	s.notify(ctx, m.LandlordID, "maintenance.requested", "maintenance_request", m.ID, string(m.Priority)+" priority request: "+m.Title)
	return m, nil
}

// Start begins work on a pending ticket
func (s *MaintenanceService) Start(ctx context.Context, actor *domain.User, id string) (*domain.MaintenanceRequest, error) {
	m, err := s.mutate(ctx, actor, security.ActionStartMaintenance, "start", id, (*domain.MaintenanceRequest).Start)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, m.TenantID, "maintenance.in_progress", "maintenance_request", m.ID, "Work started on "+m.Title)
	return m, nil
}

// Complete closes a ticket that is in progress
func (s *MaintenanceService) Complete(ctx context.Context, actor *domain.User, id string) (*domain.MaintenanceRequest, error) {
	m, err := s.mutate(ctx, actor, security.ActionCompleteMaintenance, "complete", id, (*domain.MaintenanceRequest).Complete)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, m.TenantID, "maintenance.completed", "maintenance_request", m.ID, m.Title+" is resolved")
	return m, nil
}

func (s *MaintenanceService) mutate(ctx context.Context, actor *domain.User, action security.Action, name, id string, fn func(*domain.MaintenanceRequest) error) (*domain.MaintenanceRequest, error) {
	requests := s.store.Maintenance()
	return transition(ctx, &s.lifecycle, actor, "maintenance_request", name, id, retry.CAS[*domain.MaintenanceRequest]{
		Load: func(ctx context.Context) (*domain.MaintenanceRequest, error) { return requests.GetByID(ctx, id) },
		Mutate: func(m *domain.MaintenanceRequest) error {
			if err := s.access.AuthorizeMaintenance(ctx, actor, action, m); err != nil {
				return err
			}
			return fn(m)
		},
		Save: func(ctx context.Context, m *domain.MaintenanceRequest, expected int64) (bool, error) {
			return requests.UpdateIfVersion(ctx, m, expected)
		},
	})
}

// Get returns a ticket the actor is a party to
func (s *MaintenanceService) Get(ctx context.Context, actor *domain.User, id string) (*domain.MaintenanceRequest, error) {
	m, err := s.store.Maintenance().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanReadParties(actor, m.TenantID, m.LandlordID) {
		return nil, forbiddenRead(actor, "maintenance_request", id)
	}
	return m, nil
}

// ListForActor lists the tickets visible to the actor
func (s *MaintenanceService) ListForActor(ctx context.Context, actor *domain.User) ([]*domain.MaintenanceRequest, error) {
	var f domain.MaintenanceFilter
	switch roleOf(actor) {
	case domain.RoleAdmin:
	case domain.RoleLandlord:
		f.LandlordID = actor.ID
	case domain.RoleTenant:
		f.TenantID = actor.ID
	default:
		return nil, forbiddenRead(actor, "maintenance_request", "")
	}
	return s.store.Maintenance().List(ctx, f)
}
