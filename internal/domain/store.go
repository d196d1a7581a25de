package domain

import "context"

// Versioned carries the optimistic locking counter of a mutable row.
// UpdateIfVersion implementations bump it on success.
type Versioned struct {
	RowVersion int64 `json:"rowVersion"`
}

func (v *Versioned) GetRowVersion() int64 { return v.RowVersion }

// Store groups the repositories of the lifecycle engine behind one transaction boundary.
type Store interface {
	Users() UserRepository
	Properties() PropertyRepository
	Units() UnitRepository
	Bookings() BookingRepository
	Agreements() AgreementRepository
	Maintenance() MaintenanceRepository

	// WithinTx runs fn against a Store whose writes commit together or not at all.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
