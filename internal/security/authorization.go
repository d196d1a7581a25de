package security

import (
	"context"
	"log/slog"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/security/audit"
)

// Action names a role-gated operation
type Action string

const (
	ActionCreateProperty  Action = "property.create"
	ActionEditProperty    Action = "property.edit"
	ActionAssignEvaluator Action = "property.assign_evaluator"
	ActionRejectProperty  Action = "property.reject"
	ActionApproveProperty Action = "property.approve"
	ActionPublishProperty Action = "property.publish"
	ActionManageUnits     Action = "property.manage_units"
	ActionListProperties  Action = "property.list_all"
	ActionListAssignments Action = "property.list_assignments"
	ActionListOwned       Action = "property.list_owned"

	ActionCreateBooking   Action = "booking.create"
	ActionConfirmBooking  Action = "booking.confirm"
	ActionCompleteBooking Action = "booking.complete"
	ActionCancelBooking   Action = "booking.cancel"
	ActionConvertBooking  Action = "booking.convert"

	ActionCreateAgreement Action = "agreement.create"
	ActionSignAgreement   Action = "agreement.sign"

	ActionCreateMaintenance   Action = "maintenance.create"
	ActionStartMaintenance    Action = "maintenance.start"
	ActionCompleteMaintenance Action = "maintenance.complete"

	ActionManageUsers Action = "users.manage"
	ActionViewStats   Action = "admin.stats"
)

// AccessControl gates every lifecycle operation by role and by the actor's
// recorded relationship to the entity. It is checked before any state check,
// so a wrong actor always sees Forbidden rather than InvalidTransition.
type AccessControl struct {
	logger *slog.Logger
	audit  *audit.Logger
}

// NewAccessControl creates a new access control layer
func NewAccessControl(logger *slog.Logger, auditLogger *audit.Logger) *AccessControl {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(logger)
	}
	return &AccessControl{logger: logger, audit: auditLogger}
}

// Require checks an action that is gated by role alone.
func (ac *AccessControl) Require(ctx context.Context, actor *domain.User, action Action) error {
	if actor == nil {
		return ac.deny(ctx, actor, action, "", "")
	}
	ok := false
	switch actor.Role {
	case domain.RoleAdmin:
		ok = action == ActionManageUsers || action == ActionViewStats || action == ActionListProperties
	case domain.RoleLandlord:
		ok = action == ActionCreateProperty || action == ActionListOwned
	case domain.RoleEvaluator:
		ok = action == ActionListProperties || action == ActionListAssignments
	case domain.RoleTenant:
		ok = action == ActionCreateBooking || action == ActionCreateMaintenance
	}
	if !ok {
		return ac.deny(ctx, actor, action, "", "")
	}
	return nil
}

// AuthorizeProperty checks a property transition.
func (ac *AccessControl) AuthorizeProperty(ctx context.Context, actor *domain.User, action Action, p *domain.Property) error {
	if actor == nil {
		return ac.deny(ctx, actor, action, "property", p.ID)
	}
	ok := false
	switch actor.Role {
	case domain.RoleAdmin:
		switch action {
		case ActionAssignEvaluator, ActionPublishProperty:
			ok = true
		case ActionRejectProperty:
			// once under evaluation only the assigned evaluator may reject
			ok = p.Status != domain.PropertyAwaitingEvaluation
		}
	case domain.RoleLandlord:
		switch action {
		case ActionEditProperty, ActionManageUnits, ActionCreateAgreement:
			ok = p.LandlordID == actor.ID
		}
	case domain.RoleEvaluator:
		switch action {
		case ActionApproveProperty, ActionRejectProperty:
			ok = p.AssignedTo(actor.ID)
		}
	case domain.RoleTenant:
	}
	if !ok {
		return ac.deny(ctx, actor, action, "property", p.ID)
	}
	return nil
}

// AuthorizeBooking checks a booking transition.
func (ac *AccessControl) AuthorizeBooking(ctx context.Context, actor *domain.User, action Action, b *domain.Booking) error {
	if actor == nil {
		return ac.deny(ctx, actor, action, "booking", b.ID)
	}
	ok := false
	switch actor.Role {
	case domain.RoleLandlord:
		switch action {
		case ActionConfirmBooking, ActionCompleteBooking, ActionCancelBooking, ActionConvertBooking:
			ok = b.LandlordID == actor.ID
		}
	case domain.RoleTenant:
		ok = action == ActionCancelBooking && b.TenantID == actor.ID
	case domain.RoleAdmin, domain.RoleEvaluator:
	}
	if !ok {
		return ac.deny(ctx, actor, action, "booking", b.ID)
	}
	return nil
}

// AuthorizeAgreement checks an agreement transition.
func (ac *AccessControl) AuthorizeAgreement(ctx context.Context, actor *domain.User, action Action, a *domain.Agreement) error {
	if actor == nil {
		return ac.deny(ctx, actor, action, "agreement", a.ID)
	}
	ok := false
	switch actor.Role {
	case domain.RoleTenant:
		ok = action == ActionSignAgreement && a.TenantID == actor.ID
	case domain.RoleAdmin, domain.RoleLandlord, domain.RoleEvaluator:
	}
	if !ok {
		return ac.deny(ctx, actor, action, "agreement", a.ID)
	}
	return nil
}

// AuthorizeMaintenance checks a maintenance transition.
func (ac *AccessControl) AuthorizeMaintenance(ctx context.Context, actor *domain.User, action Action, m *domain.MaintenanceRequest) error {
	if actor == nil {
		return ac.deny(ctx, actor, action, "maintenance_request", m.ID)
	}
	ok := false
	switch actor.Role {
	case domain.RoleLandlord:
		switch action {
		case ActionStartMaintenance, ActionCompleteMaintenance:
			ok = m.LandlordID == actor.ID
		}
	case domain.RoleAdmin, domain.RoleEvaluator, domain.RoleTenant:
	}
	if !ok {
		return ac.deny(ctx, actor, action, "maintenance_request", m.ID)
	}
	return nil
}

// CanReadProperty reports read visibility. Evaluators may read every property,
// including ones reassigned away from them; listed properties are public.
func (ac *AccessControl) CanReadProperty(actor *domain.User, p *domain.Property) bool {
	if p.Status.Listed() {
		return true
	}
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleEvaluator:
		return true
	case domain.RoleLandlord:
		return p.LandlordID == actor.ID
	case domain.RoleTenant:
		return false
	}
	return false
}

// CanReadParties reports read visibility of a record shared between a tenant and a landlord.
func (ac *AccessControl) CanReadParties(actor *domain.User, tenantID, landlordID string) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleLandlord:
		return actor.ID == landlordID
	case domain.RoleTenant:
		return actor.ID == tenantID
	case domain.RoleEvaluator:
		return false
	}
	return false
}

func (ac *AccessControl) deny(ctx context.Context, actor *domain.User, action Action, resource, id string) error {
	err := &domain.ForbiddenError{Action: string(action), Resource: resource, ID: id}
	if actor != nil {
		err.ActorID = actor.ID
		err.Role = actor.Role
	}
	ac.logger.Warn("permission denied",
		slog.String("actor_id", err.ActorID),
		slog.String("role", string(err.Role)),
		slog.String("action", string(action)),
		slog.String("resource", resource),
		slog.String("resource_id", id),
	)
	ac.audit.LogDenied(ctx, err.ActorID, string(err.Role), string(action), resource, id, err.Error())
	return err
}
