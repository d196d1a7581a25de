package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// Every repository hands out copies, so callers may mutate what they read
// without touching stored state until UpdateIfVersion succeeds.

type userRepo struct{ v view }

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	return r.v.read(func(d *dataset) error {
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return domain.NewValidationError("email", "email already registered")
			}
		}
		u.RowVersion = 1
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.read(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NotFound("user", id)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.read(func(d *dataset) error {
		for _, u := range d.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return domain.NotFound("user", email)
	})
	return out, err
}

func (r *userRepo) UpdateIfVersion(ctx context.Context, u *domain.User, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.users[u.ID]
		if !found {
			return domain.NotFound("user", u.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		u.RowVersion = expected + 1
		d.users[u.ID] = *u
		ok = true
		return nil
	})
	return ok, err
}

func (r *userRepo) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	err := r.v.read(func(d *dataset) error {
		for _, u := range d.users {
			if role == "" || u.Role == role {
				u := u
				out = append(out, &u)
			}
		}
		return nil
	})
	sortNewestFirst(out, func(u *domain.User) time.Time { return u.CreatedAt }, func(u *domain.User) string { return u.ID })
	return out, err
}

func (r *userRepo) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	counts := map[domain.Role]int{}
	err := r.v.read(func(d *dataset) error {
		for _, u := range d.users {
			counts[u.Role]++
		}
		return nil
	})
	return counts, err
}

type propertyRepo struct{ v view }

func (r *propertyRepo) Create(ctx context.Context, p *domain.Property) error {
	return r.v.read(func(d *dataset) error {
		p.RowVersion = 1
		d.properties[p.ID] = cloneProperty(*p)
		return nil
	})
}

func (r *propertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	var out *domain.Property
	err := r.v.read(func(d *dataset) error {
		p, ok := d.properties[id]
		if !ok {
			return domain.NotFound("property", id)
		}
		cp := cloneProperty(p)
		out = &cp
		return nil
	})
	return out, err
}

func (r *propertyRepo) UpdateIfVersion(ctx context.Context, p *domain.Property, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.properties[p.ID]
		if !found {
			return domain.NotFound("property", p.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		p.RowVersion = expected + 1
		d.properties[p.ID] = cloneProperty(*p)
		ok = true
		return nil
	})
	return ok, err
}

func (r *propertyRepo) List(ctx context.Context, f domain.PropertyFilter) ([]*domain.Property, error) {
	var out []*domain.Property
	err := r.v.read(func(d *dataset) error {
		for _, p := range d.properties {
			if f.Matches(&p) {
				cp := cloneProperty(p)
				out = append(out, &cp)
			}
		}
		return nil
	})
	sortNewestFirst(out, func(p *domain.Property) time.Time { return p.CreatedAt }, func(p *domain.Property) string { return p.ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func (r *propertyRepo) CountByStatus(ctx context.Context) (map[domain.PropertyStatus]int, error) {
	counts := map[domain.PropertyStatus]int{}
	err := r.v.read(func(d *dataset) error {
		for _, p := range d.properties {
			counts[p.Status]++
		}
		return nil
	})
	return counts, err
}

type unitRepo struct{ v view }

func duplicateUnit(d *dataset, u *domain.Unit) bool {
	for _, existing := range d.units {
		if existing.ID != u.ID && existing.PropertyID == u.PropertyID && existing.UnitNumber == u.UnitNumber {
			return true
		}
	}
	return false
}

func (r *unitRepo) Create(ctx context.Context, u *domain.Unit) error {
	return r.v.read(func(d *dataset) error {
		if duplicateUnit(d, u) {
			return domain.DuplicateUnitNumber(u.UnitNumber)
		}
		u.RowVersion = 1
		d.units[u.ID] = cloneUnit(*u)
		return nil
	})
}

func (r *unitRepo) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	var out *domain.Unit
	err := r.v.read(func(d *dataset) error {
		u, ok := d.units[id]
		if !ok {
			return domain.NotFound("unit", id)
		}
		cp := cloneUnit(u)
		out = &cp
		return nil
	})
	return out, err
}

func (r *unitRepo) UpdateIfVersion(ctx context.Context, u *domain.Unit, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.units[u.ID]
		if !found {
			return domain.NotFound("unit", u.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		if duplicateUnit(d, u) {
			return domain.DuplicateUnitNumber(u.UnitNumber)
		}
		u.RowVersion = expected + 1
		d.units[u.ID] = cloneUnit(*u)
		ok = true
		return nil
	})
	return ok, err
}

func (r *unitRepo) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Unit, error) {
	var out []*domain.Unit
	err := r.v.read(func(d *dataset) error {
		for _, u := range d.units {
			if u.PropertyID == propertyID {
				cp := cloneUnit(u)
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UnitNumber < out[j].UnitNumber })
	return out, err
}

type bookingRepo struct{ v view }

func (r *bookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	return r.v.read(func(d *dataset) error {
		b.RowVersion = 1
		d.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.v.read(func(d *dataset) error {
		b, ok := d.bookings[id]
		if !ok {
			return domain.NotFound("booking", id)
		}
		out = &b
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: a transaction already holds the store lock.
func (r *bookingRepo) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) UpdateIfVersion(ctx context.Context, b *domain.Booking, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.bookings[b.ID]
		if !found {
			return domain.NotFound("booking", b.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		b.RowVersion = expected + 1
		d.bookings[b.ID] = *b
		ok = true
		return nil
	})
	return ok, err
}

func (r *bookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, error) {
	var out []*domain.Booking
	err := r.v.read(func(d *dataset) error {
		for _, b := range d.bookings {
			if f.TenantID != "" && b.TenantID != f.TenantID ||
				f.LandlordID != "" && b.LandlordID != f.LandlordID ||
				f.PropertyID != "" && b.PropertyID != f.PropertyID ||
				!contains(f.Statuses, b.Status) {
				continue
			}
			b := b
			out = append(out, &b)
		}
		return nil
	})
	sortNewestFirst(out, func(b *domain.Booking) time.Time { return b.CreatedAt }, func(b *domain.Booking) string { return b.ID })
	return out, err
}

type agreementRepo struct{ v view }

func (r *agreementRepo) Create(ctx context.Context, a *domain.Agreement) error {
	return r.v.read(func(d *dataset) error {
		a.RowVersion = 1
		d.agreements[a.ID] = *a
		return nil
	})
}

func (r *agreementRepo) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := r.v.read(func(d *dataset) error {
		a, ok := d.agreements[id]
		if !ok {
			return domain.NotFound("agreement", id)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *agreementRepo) UpdateIfVersion(ctx context.Context, a *domain.Agreement, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.agreements[a.ID]
		if !found {
			return domain.NotFound("agreement", a.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		a.RowVersion = expected + 1
		d.agreements[a.ID] = *a
		ok = true
		return nil
	})
	return ok, err
}

func (r *agreementRepo) List(ctx context.Context, f domain.AgreementFilter) ([]*domain.Agreement, error) {
	var out []*domain.Agreement
	err := r.v.read(func(d *dataset) error {
		for _, a := range d.agreements {
			if f.TenantID != "" && a.TenantID != f.TenantID ||
				f.LandlordID != "" && a.LandlordID != f.LandlordID ||
				f.PropertyID != "" && a.PropertyID != f.PropertyID ||
				!contains(f.Statuses, a.Status) {
				continue
			}
			a := a
			out = append(out, &a)
		}
		return nil
	})
	sortNewestFirst(out, func(a *domain.Agreement) time.Time { return a.CreatedAt }, func(a *domain.Agreement) string { return a.ID })
	return out, err
}

func (r *agreementRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Agreement, error) {
	var out []*domain.Agreement
	err := r.v.read(func(d *dataset) error {
		for _, a := range d.agreements {
			due := a.Status == domain.AgreementSigned && !now.Before(a.StartDate) ||
				a.Status == domain.AgreementActive && now.After(a.EndDate)
			if due {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type maintenanceRepo struct{ v view }

func (r *maintenanceRepo) Create(ctx context.Context, m *domain.MaintenanceRequest) error {
	return r.v.read(func(d *dataset) error {
		m.RowVersion = 1
		d.maintenance[m.ID] = *m
		return nil
	})
}

func (r *maintenanceRepo) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	var out *domain.MaintenanceRequest
	err := r.v.read(func(d *dataset) error {
		m, ok := d.maintenance[id]
		if !ok {
			return domain.NotFound("maintenance request", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *maintenanceRepo) UpdateIfVersion(ctx context.Context, m *domain.MaintenanceRequest, expected int64) (bool, error) {
	ok := false
	err := r.v.read(func(d *dataset) error {
		cur, found := d.maintenance[m.ID]
		if !found {
			return domain.NotFound("maintenance request", m.ID)
		}
		if cur.RowVersion != expected {
			return nil
		}
		m.RowVersion = expected + 1
		d.maintenance[m.ID] = *m
		ok = true
		return nil
	})
	return ok, err
}

func (r *maintenanceRepo) List(ctx context.Context, f domain.MaintenanceFilter) ([]*domain.MaintenanceRequest, error) {
	var out []*domain.MaintenanceRequest
	err := r.v.read(func(d *dataset) error {
		for _, m := range d.maintenance {
			if f.TenantID != "" && m.TenantID != f.TenantID ||
				f.LandlordID != "" && m.LandlordID != f.LandlordID ||
				f.PropertyID != "" && m.PropertyID != f.PropertyID ||
				!contains(f.Statuses, m.Status) {
				continue
			}
			m := m
			out = append(out, &m)
		}
		return nil
	})
	sortNewestFirst(out, func(m *domain.MaintenanceRequest) time.Time { return m.CreatedAt }, func(m *domain.MaintenanceRequest) string { return m.ID })
	return out, err
}

func contains[S ~string](set []S, v S) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortNewestFirst[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]) < id(items[j])
	})
}
