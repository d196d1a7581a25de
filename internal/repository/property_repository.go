package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresPropertyRepository implements domain.PropertyRepository using PostgreSQL
type PostgresPropertyRepository struct {
	q      querier
	logger *slog.Logger
}

const propertyColumns = `id, landlord_id, title, description, address, city, bedrooms, bathrooms, rent, images,
	status, evaluator_id, evaluation_notes, checklist, created_at, updated_at, row_version`

func scanProperty(row interface{ Scan(...any) error }) (*domain.Property, error) {
	p := &domain.Property{}
	var (
		images    pq.StringArray
		evaluator sql.NullString
		checklist pq.BoolArray
	)
	err := row.Scan(
		&p.ID,
		&p.LandlordID,
		&p.Title,
		&p.Description,
		&p.Address,
		&p.City,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.Rent,
		&images,
		&p.Status,
		&evaluator,
		&p.EvaluationNotes,
		&checklist,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.RowVersion,
	)
	if err != nil {
		return nil, err
	}
	p.Images = []string(images)
	if evaluator.Valid {
		id := evaluator.String
		p.EvaluatorID = &id
	}
	if checklist != nil {
		if len(checklist) != domain.ChecklistSize {
			return nil, fmt.Errorf("property %s has a checklist of %d items", p.ID, len(checklist))
		}
		var c domain.Checklist
		copy(c[:], checklist)
		p.Checklist = &c
	}
	return p, nil
}

func propertyArgs(p *domain.Property) (pq.StringArray, sql.NullString, pq.BoolArray) {
	images := pq.StringArray(append([]string{}, p.Images...))
	var evaluator sql.NullString
	if p.EvaluatorID != nil {
		evaluator = sql.NullString{String: *p.EvaluatorID, Valid: true}
	}
	var checklist pq.BoolArray
	if p.Checklist != nil {
		checklist = pq.BoolArray(p.Checklist[:])
	}
	return images, evaluator, checklist
}

// Create stores a new property
func (r *PostgresPropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	query := `
		INSERT INTO properties (id, landlord_id, title, description, address, city, bedrooms, bathrooms, rent, images,
			status, evaluator_id, evaluation_notes, checklist, created_at, updated_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
	`

	images, evaluator, checklist := propertyArgs(p)
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.LandlordID, p.Title, p.Description, p.Address, p.City, p.Bedrooms, p.Bathrooms, p.Rent, images,
		p.Status, evaluator, p.EvaluationNotes, checklist, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create property",
			slog.String("landlord_id", p.LandlordID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create property: %w", err)
	}
	p.RowVersion = 1
	return nil
}

// GetByID retrieves a property by ID
func (r *PostgresPropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	p, err := scanProperty(r.q.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("property", id)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// UpdateIfVersion writes the property only if its stored version still equals expected
func (r *PostgresPropertyRepository) UpdateIfVersion(ctx context.Context, p *domain.Property, expected int64) (bool, error) {
	query := `
		UPDATE properties
		SET title = $1, description = $2, address = $3, city = $4, bedrooms = $5, bathrooms = $6, rent = $7,
			images = $8, status = $9, evaluator_id = $10, evaluation_notes = $11, checklist = $12, updated_at = $13,
			row_version = row_version + 1
		WHERE id = $14 AND row_version = $15
	`

	images, evaluator, checklist := propertyArgs(p)
	res, err := r.q.ExecContext(ctx, query,
		p.Title, p.Description, p.Address, p.City, p.Bedrooms, p.Bathrooms, p.Rent,
		images, p.Status, evaluator, p.EvaluationNotes, checklist, p.UpdatedAt,
		p.ID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update property: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		p.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "properties", "property", p.ID)
}

// List returns properties matching the filter, newest first
func (r *PostgresPropertyRepository) List(ctx context.Context, f domain.PropertyFilter) ([]*domain.Property, error) {
	w := &where{}
	if f.LandlordID != "" {
		w.add("landlord_id = $%d", f.LandlordID)
	}
	if f.EvaluatorID != "" {
		w.add("evaluator_id = $%d", f.EvaluatorID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", pq.Array(stringsOf(f.Statuses)))
	}
	if f.City != "" {
		w.add("LOWER(city) = LOWER($%d)", f.City)
	}
	if f.MinRent > 0 {
		w.add("rent >= $%d", f.MinRent)
	}
	if f.MaxRent > 0 {
		w.add("rent <= $%d", f.MaxRent)
	}
	if f.MinBedrooms > 0 {
		w.add("bedrooms >= $%d", f.MinBedrooms)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties` + w.sql() + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("failed to list properties", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// CountByStatus reports how many properties sit in each state
func (r *PostgresPropertyRepository) CountByStatus(ctx context.Context) (map[domain.PropertyStatus]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM properties GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}
	defer rows.Close()

	counts := map[domain.PropertyStatus]int{}
	for rows.Next() {
		var status domain.PropertyStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan property count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
