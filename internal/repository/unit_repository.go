package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresUnitRepository implements domain.UnitRepository using PostgreSQL
type PostgresUnitRepository struct {
	q      querier
	logger *slog.Logger
}

const (
	unitColumns         = `id, property_id, unit_number, bedrooms, bathrooms, rent, floor, square_feet, status, created_at, row_version`
	unitNumberUniqueKey = "property_units_number_unique"
)

func scanUnit(row interface{ Scan(...any) error }) (*domain.Unit, error) {
	u := &domain.Unit{}
	var sqft sql.NullInt64
	err := row.Scan(
		&u.ID,
		&u.PropertyID,
		&u.UnitNumber,
		&u.Bedrooms,
		&u.Bathrooms,
		&u.Rent,
		&u.Floor,
		&sqft,
		&u.Status,
		&u.CreatedAt,
		&u.RowVersion,
	)
	if err != nil {
		return nil, err
	}
	if sqft.Valid {
		n := int(sqft.Int64)
		u.SquareFeet = &n
	}
	return u, nil
}

func squareFeetArg(u *domain.Unit) sql.NullInt64 {
	if u.SquareFeet == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*u.SquareFeet), Valid: true}
}

// Create stores a unit. A reused unit number fails with a validation error.
func (r *PostgresUnitRepository) Create(ctx context.Context, u *domain.Unit) error {
	query := `
		INSERT INTO property_units (id, property_id, unit_number, bedrooms, bathrooms, rent, floor, square_feet, status, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`

	_, err := r.q.ExecContext(ctx, query,
		u.ID, u.PropertyID, u.UnitNumber, u.Bedrooms, u.Bathrooms, u.Rent, u.Floor, squareFeetArg(u), u.Status, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, unitNumberUniqueKey) {
			return domain.DuplicateUnitNumber(u.UnitNumber)
		}
		r.logger.Error("failed to create unit",
			slog.String("property_id", u.PropertyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create unit: %w", err)
	}
	u.RowVersion = 1
	return nil
}

// GetByID retrieves a unit by ID
func (r *PostgresUnitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	u, err := scanUnit(r.q.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM property_units WHERE id = $1`, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("unit", id)
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return u, nil
}

// UpdateIfVersion writes the unit only if its stored version still equals expected
func (r *PostgresUnitRepository) UpdateIfVersion(ctx context.Context, u *domain.Unit, expected int64) (bool, error) {
	query := `
		UPDATE property_units
		SET unit_number = $1, bedrooms = $2, bathrooms = $3, rent = $4, floor = $5, square_feet = $6, status = $7,
			row_version = row_version + 1
		WHERE id = $8 AND row_version = $9
	`

	res, err := r.q.ExecContext(ctx, query,
		u.UnitNumber, u.Bedrooms, u.Bathrooms, u.Rent, u.Floor, squareFeetArg(u), u.Status, u.ID, expected,
	)
	if err != nil {
		if isUniqueViolation(err, unitNumberUniqueKey) {
			return false, domain.DuplicateUnitNumber(u.UnitNumber)
		}
		return false, fmt.Errorf("failed to update unit: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		u.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "property_units", "unit", u.ID)
}

// ListByProperty returns the units of one property ordered by unit number
func (r *PostgresUnitRepository) ListByProperty(ctx context.Context, propertyID string) ([]*domain.Unit, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM property_units WHERE property_id = $1 ORDER BY unit_number`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
