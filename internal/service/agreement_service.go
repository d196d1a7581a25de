package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/observability/metrics"
	"github.com/Rotichtonny/TenaRentals/internal/observability/tracing"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
)

var errNothingDue = errors.New("nothing due")

// AgreementService drafts, signs and ages rental agreements
type AgreementService struct {
	lifecycle
}

// NewAgreementService creates a new agreement service
func NewAgreementService(deps Dependencies) *AgreementService {
	return &AgreementService{lifecycle: newLifecycle(deps)}
}

// ReconcileResult summarizes one time-driven sweep
type ReconcileResult struct {
	Due       int `json:"due"`
	Activated int `json:"activated"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Create lets a landlord draft an agreement with a tenant directly
func (s *AgreementService) Create(ctx context.Context, actor *domain.User, propertyID, tenantID string, in AgreementInput) (*domain.Agreement, error) {
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeProperty(ctx, actor, security.ActionCreateAgreement, p); err != nil {
		return nil, err
	}
	if !p.Status.Listed() {
		return nil, &domain.TransitionError{Entity: "property", ID: p.ID, From: string(p.Status), Action: "draft an agreement for"}
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	tenant, err := s.store.Users().GetByID(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("tenantId", "no such user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if tenant.Role != domain.RoleTenant {
		return nil, domain.NewValidationError("tenantId", "user is not a tenant")
	}

	var agreement *domain.Agreement
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		if err := ensureNoLiveAgreement(ctx, tx, p.ID, tenant.ID); err != nil {
			return err
		}
		agreement = newAgreement(p.ID, tenant.ID, p.LandlordID, in, s.now())
		return tx.Agreements().Create(ctx, agreement)
	})
	if err != nil {
		s.record(ctx, actor, "agreement", "create", "", err)
		return nil, err
	}
	s.record(ctx, actor, "agreement", "create", agreement.ID, nil)
	s.notify(ctx, tenant.ID, "agreement.drafted", "agreement", agreement.ID, "A rental agreement for "+p.Title+" is ready for your signature")
	return agreement, nil
}

// Sign records the tenant's signature on a pending agreement
func (s *AgreementService) Sign(ctx context.Context, actor *domain.User, id string) (*domain.Agreement, error) {
	agreements := s.store.Agreements()
	a, err := transition(ctx, &s.lifecycle, actor, "agreement", "sign", id, retry.CAS[*domain.Agreement]{
		Load: func(ctx context.Context) (*domain.Agreement, error) { return agreements.GetByID(ctx, id) },
		Mutate: func(a *domain.Agreement) error {
			if err := s.access.AuthorizeAgreement(ctx, actor, security.ActionSignAgreement, a); err != nil {
				return err
			}
			return a.Sign()
		},
		Save: func(ctx context.Context, a *domain.Agreement, expected int64) (bool, error) {
			return agreements.UpdateIfVersion(ctx, a, expected)
		},
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, a.LandlordID, "agreement.signed", "agreement", a.ID, "The tenant signed the agreement")
	return a, nil
}

// Reconcile applies every time-driven transition due at now. Each agreement
// moves by compare-and-set, so running it twice or alongside user actions
// never double-applies or overwrites a change.
func (s *AgreementService) Reconcile(ctx context.Context, now time.Time) (ReconcileResult, error) {
	ctx, span := tracing.Start(ctx, "agreement.reconcile")
	var res ReconcileResult
	due, err := s.store.Agreements().ListDue(ctx, now)
	if err != nil {
		err = fmt.Errorf("failed to list due agreements: %w", err)
		metrics.ObserveReconcile("error")
		tracing.End(span, err)
		return res, err
	}
	res.Due = len(due)

	agreements := s.store.Agreements()
	for _, d := range due {
		id := d.ID
		var from domain.AgreementStatus
		a, conflicts, err := retry.UpdateWithRetry(ctx, s.attempts, retry.CAS[*domain.Agreement]{
			Load: func(ctx context.Context) (*domain.Agreement, error) { return agreements.GetByID(ctx, id) },
			Mutate: func(a *domain.Agreement) error {
				from = a.Status
				if !a.Advance(now) {
					return errNothingDue
				}
				return nil
			},
			Save: func(ctx context.Context, a *domain.Agreement, expected int64) (bool, error) {
				return agreements.UpdateIfVersion(ctx, a, expected)
			},
		})
		metrics.ObserveConflicts("agreement", conflicts)
		switch {
		case err == nil:
		case errors.Is(err, errNothingDue), errors.Is(err, domain.ErrNotFound):
			res.Skipped++
			continue
		case errors.Is(err, retry.ErrContention):
			res.Failed++
			s.logger.Warn("agreement kept changing during reconcile", slog.String("agreement_id", id))
			continue
		case ctx.Err() != nil:
			metrics.ObserveReconcile("error")
			tracing.End(span, ctx.Err())
			return res, ctx.Err()
		default:
			res.Failed++
			s.logger.Error("failed to reconcile agreement",
				slog.String("agreement_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}

		if from == domain.AgreementSigned {
			res.Activated++
		}
		if a.Status == domain.AgreementExpired {
			res.Expired++
		}
		s.record(ctx, systemActor(), "agreement", "advance", a.ID, nil)
		msg := "Your agreement is now " + string(a.Status)
		s.notify(ctx, a.TenantID, "agreement."+string(a.Status), "agreement", a.ID, msg)
		s.notify(ctx, a.LandlordID, "agreement."+string(a.Status), "agreement", a.ID, msg)
	}

	metrics.ObserveReconciled(string(domain.AgreementActive), res.Activated)
	metrics.ObserveReconciled(string(domain.AgreementExpired), res.Expired)
	result := "ok"
	if res.Failed > 0 {
		result = "partial"
	}
	metrics.ObserveReconcile(result)
	tracing.End(span, nil)
	s.logger.Info("reconcile finished",
		slog.Int("due", res.Due),
		slog.Int("activated", res.Activated),
		slog.Int("expired", res.Expired),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

// Get returns an agreement the actor is a party to
func (s *AgreementService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Agreement, error) {
	a, err := s.store.Agreements().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanReadParties(actor, a.TenantID, a.LandlordID) {
		return nil, forbiddenRead(actor, "agreement", id)
	}
	return a, nil
}

// ListForActor lists the agreements visible to the actor
func (s *AgreementService) ListForActor(ctx context.Context, actor *domain.User) ([]*domain.Agreement, error) {
	var f domain.AgreementFilter
	switch roleOf(actor) {
	case domain.RoleAdmin:
	case domain.RoleLandlord:
		f.LandlordID = actor.ID
	case domain.RoleTenant:
		f.TenantID = actor.ID
	default:
		return nil, forbiddenRead(actor, "agreement", "")
	}
	return s.store.Agreements().List(ctx, f)
}
