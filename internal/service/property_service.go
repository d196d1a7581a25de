package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

// PropertyService drives listings from submission through evaluation to publication
type PropertyService struct {
	lifecycle
	cache domain.ListingCache
}

// NewPropertyService creates a new property service. cache may be nil.
func NewPropertyService(deps Dependencies, cache domain.ListingCache) *PropertyService {
	return &PropertyService{lifecycle: newLifecycle(deps), cache: cache}
}

// SearchQuery narrows the public listing
type SearchQuery struct {
	City        string
	MinRent     int
	MaxRent     int
	MinBedrooms int
	Limit       int
}

// Create submits a new listing as pending
func (s *PropertyService) Create(ctx context.Context, actor *domain.User, in PropertyInput) (*domain.Property, error) {
	if err := s.access.Require(ctx, actor, security.ActionCreateProperty); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Property{
		ID:         uuid.NewString(),
		LandlordID: actor.ID,
		Status:     domain.PropertyPending,
		CreatedAt:  now,
	}
	if err := p.Edit(in.details(), now); err != nil {
		return nil, err
	}
	err := s.store.Properties().Create(ctx, p)
	s.record(ctx, actor, "property", "create", p.ID, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return p, nil
}

// Update edits a pending listing
func (s *PropertyService) Update(ctx context.Context, actor *domain.User, id string, in PropertyInput) (*domain.Property, error) {
	return s.mutate(ctx, actor, "update", id, func(p *domain.Property) error {
		if err := s.access.AuthorizeProperty(ctx, actor, security.ActionEditProperty, p); err != nil {
			return err
		}
		if err := p.Edit(in.details(), s.now()); err != nil {
			return err
		}
		return validateInput(in)
	})
}

// AssignEvaluator hands a property to an evaluator for inspection
func (s *PropertyService) AssignEvaluator(ctx context.Context, actor *domain.User, id, evaluatorID string) (*domain.Property, error) {
	targetErr := s.checkEvaluator(ctx, evaluatorID)
	if targetErr != nil && !errors.Is(targetErr, domain.ErrValidation) {
		return nil, targetErr
	}

	var previous *string
	p, err := s.mutate(ctx, actor, "assign_evaluator", id, func(p *domain.Property) error {
		if err := s.access.AuthorizeProperty(ctx, actor, security.ActionAssignEvaluator, p); err != nil {
			return err
		}
		previous = p.EvaluatorID
		if err := p.AssignEvaluator(evaluatorID, s.now()); err != nil {
			return err
		}
		return targetErr
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, evaluatorID, "property.assigned", "property", p.ID, "You were assigned to evaluate "+p.Title)
	s.notify(ctx, p.LandlordID, "property.under_evaluation", "property", p.ID, p.Title+" is awaiting evaluation")
	if previous != nil && *previous != evaluatorID {
		s.notify(ctx, *previous, "property.reassigned", "property", p.ID, p.Title+" was reassigned to another evaluator")
	}
	return p, nil
}

func (s *PropertyService) checkEvaluator(ctx context.Context, evaluatorID string) error {
	if strings.TrimSpace(evaluatorID) == "" {
		return domain.NewValidationError("evaluatorId", "is required")
	}
	u, err := s.store.Users().GetByID(ctx, evaluatorID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("evaluatorId", "no such user")
	}
	if err != nil {
		return fmt.Errorf("failed to load evaluator: %w", err)
	}
	if u.Role != domain.RoleEvaluator {
		return domain.NewValidationError("evaluatorId", "user is not an evaluator")
	}
	return nil
}

// Reject closes a listing. Admins reject pending submissions; the assigned
// evaluator rejects after inspection.
func (s *PropertyService) Reject(ctx context.Context, actor *domain.User, id, reason string) (*domain.Property, error) {
	p, err := s.mutate(ctx, actor, "reject", id, func(p *domain.Property) error {
		if err := s.access.AuthorizeProperty(ctx, actor, security.ActionRejectProperty, p); err != nil {
			return err
		}
		if actor.Role == domain.RoleAdmin {
			return p.RejectSubmission(reason, s.now())
		}
		return p.RejectEvaluation(reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.LandlordID, "property.rejected", "property", p.ID, p.Title+" was rejected: "+p.EvaluationNotes)
	return p, nil
}

// Approve records a passed inspection by the assigned evaluator
func (s *PropertyService) Approve(ctx context.Context, actor *domain.User, id string, in ApprovalInput) (*domain.Property, error) {
	p, err := s.mutate(ctx, actor, "approve", id, func(p *domain.Property) error {
		if err := s.access.AuthorizeProperty(ctx, actor, security.ActionApproveProperty, p); err != nil {
			return err
		}
		if err := p.CheckApprovable(); err != nil {
			return err
		}
		checklist, err := in.checklist()
		if err != nil {
			return err
		}
		if err := p.Approve(checklist, in.Notes, s.now()); err != nil {
			return err
		}
		return validateInput(in)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.LandlordID, "property.approved", "property", p.ID, p.Title+" passed evaluation")
	return p, nil
}

// Publish makes an approved listing visible in search
func (s *PropertyService) Publish(ctx context.Context, actor *domain.User, id string) (*domain.Property, error) {
	return s.publish(ctx, actor, id, func(p *domain.Property) error {
		return s.access.AuthorizeProperty(ctx, actor, security.ActionPublishProperty, p)
	})
}

// AutoPublish promotes every approved listing as the system actor and reports how many went live
func (s *PropertyService) AutoPublish(ctx context.Context) (int, error) {
	approved, err := s.store.Properties().List(ctx, domain.PropertyFilter{Statuses: []domain.PropertyStatus{domain.PropertyApproved}})
	if err != nil {
		return 0, fmt.Errorf("failed to list approved properties: %w", err)
	}
	published := 0
	for _, p := range approved {
		_, err := s.publish(ctx, systemActor(), p.ID, func(*domain.Property) error { return nil })
		switch {
		case err == nil:
			published++
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
			// published or rejected by someone else in the meantime
		default:
			return published, err
		}
	}
	return published, nil
}

func (s *PropertyService) publish(ctx context.Context, actor *domain.User, id string, authorize func(*domain.Property) error) (*domain.Property, error) {
	p, err := s.mutate(ctx, actor, "publish", id, func(p *domain.Property) error {
		if err := authorize(p); err != nil {
			return err
		}
		return p.Publish(s.now())
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.notify(ctx, p.LandlordID, "property.published", "property", p.ID, p.Title+" is now listed")
	return p, nil
}

func (s *PropertyService) mutate(ctx context.Context, actor *domain.User, action, id string, fn func(p *domain.Property) error) (*domain.Property, error) {
	properties := s.store.Properties()
	return transition(ctx, &s.lifecycle, actor, "property", action, id, retry.CAS[*domain.Property]{
		Load:   func(ctx context.Context) (*domain.Property, error) { return properties.GetByID(ctx, id) },
		Mutate: fn,
		Save: func(ctx context.Context, p *domain.Property, expected int64) (bool, error) {
			return properties.UpdateIfVersion(ctx, p, expected)
		},
	})
}

// Get returns a property the actor may see
func (s *PropertyService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Property, error) {
	p, err := s.store.Properties().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanReadProperty(actor, p) {
		return nil, forbiddenRead(actor, "property", id)
	}
	return p, nil
}

// ListMine lists the landlord's own properties in every status
func (s *PropertyService) ListMine(ctx context.Context, actor *domain.User) ([]*domain.Property, error) {
	if err := s.access.Require(ctx, actor, security.ActionListOwned); err != nil {
		return nil, err
	}
	return s.store.Properties().List(ctx, domain.PropertyFilter{LandlordID: actor.ID})
}

// ListAssignments lists properties waiting on the evaluator's inspection
func (s *PropertyService) ListAssignments(ctx context.Context, actor *domain.User) ([]*domain.Property, error) {
	if err := s.access.Require(ctx, actor, security.ActionListAssignments); err != nil {
		return nil, err
	}
	return s.store.Properties().List(ctx, domain.PropertyFilter{
		EvaluatorID: actor.ID,
		Statuses:    []domain.PropertyStatus{domain.PropertyAwaitingEvaluation},
	})
}

// ListInspected lists properties the evaluator has decided on
func (s *PropertyService) ListInspected(ctx context.Context, actor *domain.User) ([]*domain.Property, error) {
	if err := s.access.Require(ctx, actor, security.ActionListAssignments); err != nil {
		return nil, err
	}
	return s.store.Properties().List(ctx, domain.PropertyFilter{
		EvaluatorID: actor.ID,
		Statuses:    []domain.PropertyStatus{domain.PropertyApproved, domain.PropertyActive, domain.PropertyRejected},
	})
}

// ListAll lists every property, optionally of one status
func (s *PropertyService) ListAll(ctx context.Context, actor *domain.User, status string) ([]*domain.Property, error) {
	if err := s.access.Require(ctx, actor, security.ActionListProperties); err != nil {
		return nil, err
	}
	var f domain.PropertyFilter
	if status != "" {
		st, err := domain.ParsePropertyStatus(status)
		if err != nil {
			return nil, err
		}
		f.Statuses = []domain.PropertyStatus{st}
	}
	return s.store.Properties().List(ctx, f)
}

// Search returns active listings. Results are served from the listing cache
// until the next publication.
func (s *PropertyService) Search(ctx context.Context, q SearchQuery) ([]*domain.Property, error) {
	if q.MinRent < 0 || q.MaxRent < 0 || q.MinBedrooms < 0 {
		return nil, domain.NewValidationError("query", "bounds must not be negative")
	}
	if q.MaxRent > 0 && q.MinRent > q.MaxRent {
		return nil, domain.NewValidationError("maxRent", "must not be below minRent")
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	f := domain.PropertyFilter{
		Statuses:    []domain.PropertyStatus{domain.PropertyActive},
		City:        strings.TrimSpace(q.City),
		MinRent:     q.MinRent,
		MaxRent:     q.MaxRent,
		MinBedrooms: q.MinBedrooms,
		Limit:       q.Limit,
	}
	key := f.CacheKey()
	var gen string
	if s.cache != nil {
		hit, g, ok := s.cache.Get(ctx, key)
		if ok {
			return hit, nil
		}
		gen = g
	}
	out, err := s.store.Properties().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, gen, key, out)
	}
	return out, nil
}

// AddUnit adds a rentable unit to the landlord's property
func (s *PropertyService) AddUnit(ctx context.Context, actor *domain.User, propertyID string, in UnitInput) (*domain.Unit, error) {
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeProperty(ctx, actor, security.ActionManageUnits, p); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := domain.ParseUnitStatus(in.Status)
	if err != nil {
		return nil, err
	}

	u := &domain.Unit{
		ID:         uuid.NewString(),
		PropertyID: p.ID,
		UnitNumber: strings.TrimSpace(in.UnitNumber),
		Bedrooms:   in.Bedrooms,
		Bathrooms:  in.Bathrooms,
		Rent:       in.Rent,
		Floor:      in.Floor,
		SquareFeet: in.SquareFeet,
		Status:     status,
		CreatedAt:  s.now(),
	}
	err = s.store.Units().Create(ctx, u)
	s.record(ctx, actor, "unit", "create", u.ID, err)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUnit replaces the details of one unit
func (s *PropertyService) UpdateUnit(ctx context.Context, actor *domain.User, propertyID, unitID string, in UnitInput) (*domain.Unit, error) {
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeProperty(ctx, actor, security.ActionManageUnits, p); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := domain.ParseUnitStatus(in.Status)
	if err != nil {
		return nil, err
	}

	units := s.store.Units()
	return transition(ctx, &s.lifecycle, actor, "unit", "update", unitID, retry.CAS[*domain.Unit]{
		Load: func(ctx context.Context) (*domain.Unit, error) {
			u, err := units.GetByID(ctx, unitID)
			if err != nil {
				return nil, err
			}
			if u.PropertyID != propertyID {
				return nil, domain.NotFound("unit", unitID)
			}
			return u, nil
		},
		Mutate: func(u *domain.Unit) error {
			u.UnitNumber = strings.TrimSpace(in.UnitNumber)
			u.Bedrooms = in.Bedrooms
			u.Bathrooms = in.Bathrooms
			u.Rent = in.Rent
			u.Floor = in.Floor
			u.SquareFeet = in.SquareFeet
			u.Status = status
			return nil
		},
		Save: func(ctx context.Context, u *domain.Unit, expected int64) (bool, error) {
			return units.UpdateIfVersion(ctx, u, expected)
		},
	})
}

// ListUnits lists the units of a property the actor may see
func (s *PropertyService) ListUnits(ctx context.Context, actor *domain.User, propertyID string) ([]*domain.Unit, error) {
	if _, err := s.Get(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	units, err := s.store.Units().ListByProperty(ctx, propertyID)
	if err != nil {
		s.logger.Error("failed to list units", slog.String("property_id", propertyID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}
