package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresBookingRepository implements domain.BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	q      querier
	logger *slog.Logger
}

const bookingColumns = `id, property_id, tenant_id, landlord_id, viewing_date, status, created_at, row_version`

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.PropertyID, &b.TenantID, &b.LandlordID, &b.ViewingDate, &b.Status, &b.CreatedAt, &b.RowVersion)
	return b, err
}

// Create stores a new booking
func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, property_id, tenant_id, landlord_id, viewing_date, status, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
	`
	if _, err := r.q.ExecContext(ctx, query, b.ID, b.PropertyID, b.TenantID, b.LandlordID, b.ViewingDate, b.Status, b.CreatedAt); err != nil {
		r.logger.Error("failed to create booking",
			slog.String("property_id", b.PropertyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create booking: %w", err)
	}
	b.RowVersion = 1
	return nil
}

// GetByID retrieves a booking by ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate reads the booking and holds a row lock until the surrounding transaction ends
func (r *PostgresBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresBookingRepository) get(ctx context.Context, query, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("booking", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateIfVersion writes the booking only if its stored version still equals expected
func (r *PostgresBookingRepository) UpdateIfVersion(ctx context.Context, b *domain.Booking, expected int64) (bool, error) {
	query := `
		UPDATE bookings
		SET viewing_date = $1, status = $2, row_version = row_version + 1
		WHERE id = $3 AND row_version = $4
	`
	res, err := r.q.ExecContext(ctx, query, b.ViewingDate, b.Status, b.ID, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update booking: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		b.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "bookings", "booking", b.ID)
}

// List returns bookings matching the filter, newest first
func (r *PostgresBookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, error) {
	w := &where{}
	if f.TenantID != "" {
		w.add("tenant_id = $%d", f.TenantID)
	}
	if f.LandlordID != "" {
		w.add("landlord_id = $%d", f.LandlordID)
	}
	if f.PropertyID != "" {
		w.add("property_id = $%d", f.PropertyID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", pq.Array(stringsOf(f.Statuses)))
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
