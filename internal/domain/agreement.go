package domain

import (
	"context"
	"fmt"
	"time"
)

// AgreementStatus is the lifecycle state of a rental agreement.
type AgreementStatus string

const (
	AgreementPending AgreementStatus = "pending"
	AgreementSigned  AgreementStatus = "signed"
	AgreementActive  AgreementStatus = "active"
	AgreementExpired AgreementStatus = "expired"
)

// Agreement binds a tenant to a property for a fixed term.
type Agreement struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"propertyId"`
	TenantID   string          `json:"tenantId"`
	LandlordID string          `json:"landlordId"`
	Terms      string          `json:"terms"`
	Rent       int             `json:"rent"`
	Deposit    int             `json:"deposit"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	Status     AgreementStatus `json:"status"`
	Signed     bool            `json:"signed"`
	CreatedAt  time.Time       `json:"createdAt"`
	Versioned
}

// Sign records the tenant's signature. Signed never flips back to false.
func (a *Agreement) Sign() error {
	if a.Signed {
		return fmt.Errorf("%w: agreement %s", ErrAlreadySigned, a.ID)
	}
	if a.Status != AgreementPending {
		return a.invalid("sign")
	}
	a.Signed = true
	a.Status = AgreementSigned
	return nil
}

// Advance applies every time-driven transition due at now and reports whether anything changed.
// A signed agreement whose whole term has already passed goes through active to expired.
func (a *Agreement) Advance(now time.Time) bool {
	changed := false
	if a.Status == AgreementSigned && !now.Before(a.StartDate) {
		a.Status = AgreementActive
		changed = true
	}
	if a.Status == AgreementActive && now.After(a.EndDate) {
		a.Status = AgreementExpired
		changed = true
	}
	return changed
}

// Live reports whether the agreement still grants or is about to grant tenancy.
func (a *Agreement) Live() bool {
	return a.Status != AgreementExpired
}

func (a *Agreement) invalid(action string) error {
	return invalidTransition("agreement", a.ID, string(a.Status), action)
}

// AgreementFilter narrows agreement listings. Zero values match everything.
type AgreementFilter struct {
	TenantID   string
	LandlordID string
	PropertyID string
	Statuses   []AgreementStatus
}

// AgreementRepository defines data access for agreements
type AgreementRepository interface {
	Create(ctx context.Context, agreement *Agreement) error
	GetByID(ctx context.Context, id string) (*Agreement, error)
	UpdateIfVersion(ctx context.Context, agreement *Agreement, expectedVersion int64) (bool, error)
	List(ctx context.Context, filter AgreementFilter) ([]*Agreement, error)
	// ListDue returns signed agreements whose start has arrived and active agreements past their end.
	ListDue(ctx context.Context, now time.Time) ([]*Agreement, error)
}
