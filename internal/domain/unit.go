package domain

import (
	"context"
	"fmt"
	"time"
)

// UnitStatus is the occupancy state of a unit.
type UnitStatus string

const (
	UnitAvailable   UnitStatus = "available"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

// ParseUnitStatus converts raw input into a UnitStatus. Empty input means available.
func ParseUnitStatus(s string) (UnitStatus, error) {
	switch st := UnitStatus(s); st {
	case "":
		return UnitAvailable, nil
	case UnitAvailable, UnitOccupied, UnitMaintenance:
		return st, nil
	default:
		return "", NewValidationError("status", fmt.Sprintf("unknown unit status %q", s))
	}
}

// Unit is a rentable sub-record of a property. UnitNumber is unique within its property.
type Unit struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"propertyId"`
	UnitNumber string     `json:"unitNumber"`
	Bedrooms   int        `json:"bedrooms"`
	Bathrooms  int        `json:"bathrooms"`
	Rent       int        `json:"rent"`
	Floor      int        `json:"floor"`
	SquareFeet *int       `json:"squareFeet,omitempty"`
	Status     UnitStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	Versioned
}

// UnitRepository defines data access for property units.
// Create and UpdateIfVersion fail with a ValidationError on a duplicate unit number.
type UnitRepository interface {
	Create(ctx context.Context, unit *Unit) error
	GetByID(ctx context.Context, id string) (*Unit, error)
	UpdateIfVersion(ctx context.Context, unit *Unit, expectedVersion int64) (bool, error)
	ListByProperty(ctx context.Context, propertyID string) ([]*Unit, error)
}

// DuplicateUnitNumber is the error reported for a reused unit number.
func DuplicateUnitNumber(number string) error {
	return NewValidationError("unitNumber", fmt.Sprintf("unit %q already exists on this property", number))
}
