// Package memory keeps the lifecycle engine's entities in process memory.
// It backs tests and the STORAGE=memory demo mode with the same
// compare-and-set and transaction semantics as the Postgres store.
package memory

import (
	"context"
	"sync"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

type dataset struct {
	users       map[string]domain.User
	properties  map[string]domain.Property
	units       map[string]domain.Unit
	bookings    map[string]domain.Booking
	agreements  map[string]domain.Agreement
	maintenance map[string]domain.MaintenanceRequest
}

func newDataset() *dataset {
	return &dataset{
		users:       map[string]domain.User{},
		properties:  map[string]domain.Property{},
		units:       map[string]domain.Unit{},
		bookings:    map[string]domain.Booking{},
		agreements:  map[string]domain.Agreement{},
		maintenance: map[string]domain.MaintenanceRequest{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.properties {
		c.properties[k] = cloneProperty(v)
	}
	for k, v := range d.units {
		c.units[k] = cloneUnit(v)
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.agreements {
		c.agreements[k] = v
	}
	for k, v := range d.maintenance {
		c.maintenance[k] = v
	}
	return c
}

// Store implements domain.Store
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// view runs repository calls either against the live dataset under the store
// lock, or against a staged copy owned by a running transaction.
type view struct {
	store  *Store
	staged *dataset
}

func (v view) read(fn func(d *dataset) error) error {
	if v.staged != nil {
		return fn(v.staged)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (s *Store) root() view { return view{store: s} }

func (s *Store) Users() domain.UserRepository              { return &userRepo{v: s.root()} }
func (s *Store) Properties() domain.PropertyRepository     { return &propertyRepo{v: s.root()} }
func (s *Store) Units() domain.UnitRepository              { return &unitRepo{v: s.root()} }
func (s *Store) Bookings() domain.BookingRepository        { return &bookingRepo{v: s.root()} }
func (s *Store) Agreements() domain.AgreementRepository    { return &agreementRepo{v: s.root()} }
func (s *Store) Maintenance() domain.MaintenanceRepository { return &maintenanceRepo{v: s.root()} }

// WithinTx holds the store lock for the whole of fn, stages writes on a copy
// and swaps it in only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.data.clone()
	if err := fn(ctx, &txStore{v: view{store: s, staged: staged}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = staged
	return nil
}

type txStore struct {
	v view
}

func (t *txStore) Users() domain.UserRepository              { return &userRepo{v: t.v} }
func (t *txStore) Properties() domain.PropertyRepository     { return &propertyRepo{v: t.v} }
func (t *txStore) Units() domain.UnitRepository              { return &unitRepo{v: t.v} }
func (t *txStore) Bookings() domain.BookingRepository        { return &bookingRepo{v: t.v} }
func (t *txStore) Agreements() domain.AgreementRepository    { return &agreementRepo{v: t.v} }
func (t *txStore) Maintenance() domain.MaintenanceRepository { return &maintenanceRepo{v: t.v} }

// WithinTx on a running transaction joins it.
func (t *txStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	return fn(ctx, t)
}

func cloneProperty(p domain.Property) domain.Property {
	p.Images = append([]string(nil), p.Images...)
	if p.EvaluatorID != nil {
		id := *p.EvaluatorID
		p.EvaluatorID = &id
	}
	if p.Checklist != nil {
		c := *p.Checklist
		p.Checklist = &c
	}
	return p
}

func cloneUnit(u domain.Unit) domain.Unit {
	if u.SquareFeet != nil {
		sq := *u.SquareFeet
		u.SquareFeet = &sq
	}
	return u
}
