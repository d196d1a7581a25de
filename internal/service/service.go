package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/notify"
	"github.com/Rotichtonny/TenaRentals/internal/observability/metrics"
	"github.com/Rotichtonny/TenaRentals/internal/observability/tracing"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
	"github.com/Rotichtonny/TenaRentals/internal/security/audit"
)

// Notifier receives an event for every successful transition
type Notifier interface {
	Publish(ctx context.Context, n notify.Notification)
}

// Dependencies are shared by every lifecycle service
type Dependencies struct {
	Store    domain.Store
	Access   *security.AccessControl
	Audit    *audit.Logger
	Notifier Notifier
	Logger   *slog.Logger
	// Now defaults to time.Now
	Now func() time.Time
	// MaxAttempts bounds the compare-and-set retry loop
	MaxAttempts int
}

// lifecycle holds the plumbing common to all state machines
type lifecycle struct {
	store    domain.Store
	access   *security.AccessControl
	audit    *audit.Logger
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	attempts int
}

func newLifecycle(d Dependencies) lifecycle {
	l := lifecycle{
		store:    d.Store,
		access:   d.Access,
		audit:    d.Audit,
		notifier: d.Notifier,
		logger:   d.Logger,
		now:      d.Now,
		attempts: d.MaxAttempts,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.audit == nil {
		l.audit = audit.NewLogger(l.logger)
	}
	if l.access == nil {
		l.access = security.NewAccessControl(l.logger, l.audit)
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.attempts < 1 {
		l.attempts = 3
	}
	return l
}

// transition runs one read, authorize, verify, mutate, conditional-write cycle
// and records its outcome in metrics, traces and the audit log.
func transition[T retry.Versioned](ctx context.Context, l *lifecycle, actor *domain.User, entity, action, id string, c retry.CAS[T]) (T, error) {
	ctx, span := tracing.Start(ctx, entity+"."+action, trace.WithAttributes(
		attribute.String("entity.id", id),
		attribute.String("actor.id", actorID(actor)),
	))
	out, conflicts, err := retry.UpdateWithRetry(ctx, l.attempts, c)
	metrics.ObserveConflicts(entity, conflicts)
	if errors.Is(err, retry.ErrContention) {
		err = fmt.Errorf("%w: %s %s %s: %v", domain.ErrConflict, action, entity, id, err)
	}
	l.record(ctx, actor, entity, action, id, err)
	tracing.End(span, err)
	return out, err
}

// record writes the metric and audit entry of a finished operation.
// Denials are audited by the access control layer itself.
func (l *lifecycle) record(ctx context.Context, actor *domain.User, entity, action, id string, err error) {
	metrics.ObserveTransition(entity, action, resultLabel(err))
	if errors.Is(err, domain.ErrForbidden) {
		return
	}
	l.audit.LogTransition(ctx, actorID(actor), actorRole(actor), action, entity, id, err)
	if err == nil {
		l.logger.Info("transition applied",
			slog.String("entity", entity),
			slog.String("action", action),
			slog.String("id", id),
			slog.String("actor_id", actorID(actor)),
		)
	}
}

func (l *lifecycle) notify(ctx context.Context, userID, kind, entity, entityID, message string) {
	if l.notifier == nil || userID == "" {
		return
	}
	l.notifier.Publish(ctx, notify.Notification{
		UserID:    userID,
		Kind:      kind,
		Entity:    entity,
		EntityID:  entityID,
		Message:   message,
		CreatedAt: l.now(),
	})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrChecklistIncomplete):
		return "checklist_incomplete"
	case errors.Is(err, domain.ErrAlreadySigned):
		return "already_signed"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func actorID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

func actorRole(u *domain.User) string {
	return string(roleOf(u))
}

func roleOf(u *domain.User) domain.Role {
	if u == nil {
		return ""
	}
	return u.Role
}

func forbiddenRead(actor *domain.User, resource, id string) error {
	return &domain.ForbiddenError{ActorID: actorID(actor), Role: roleOf(actor), Action: "read", Resource: resource, ID: id}
}

// systemActor identifies work done by the scheduler rather than a user
func systemActor() *domain.User {
	return &domain.User{ID: "system", FullName: "system"}
}
