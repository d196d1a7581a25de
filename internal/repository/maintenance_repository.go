package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresMaintenanceRepository implements domain.MaintenanceRepository using PostgreSQL
type PostgresMaintenanceRepository struct {
	q      querier
	logger *slog.Logger
}

const maintenanceColumns = `id, property_id, tenant_id, landlord_id, title, description, status, priority, created_at, row_version`

func scanMaintenance(row interface{ Scan(...any) error }) (*domain.MaintenanceRequest, error) {
	m := &domain.MaintenanceRequest{}
	err := row.Scan(&m.ID, &m.PropertyID, &m.TenantID, &m.LandlordID, &m.Title, &m.Description, &m.Status, &m.Priority, &m.CreatedAt, &m.RowVersion)
	return m, err
}

// Create stores a new maintenance request
func (r *PostgresMaintenanceRepository) Create(ctx context.Context, m *domain.MaintenanceRequest) error {
	query := `
		INSERT INTO maintenance_requests (id, property_id, tenant_id, landlord_id, title, description, status, priority, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`
	_, err := r.q.ExecContext(ctx, query, m.ID, m.PropertyID, m.TenantID, m.LandlordID, m.Title, m.Description, m.Status, m.Priority, m.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create maintenance request",
			slog.String("property_id", m.PropertyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	m.RowVersion = 1
	return nil
}

// GetByID retrieves a maintenance request by ID
func (r *PostgresMaintenanceRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	m, err := scanMaintenance(r.q.QueryRowContext(ctx, `SELECT `+maintenanceColumns+` FROM maintenance_requests WHERE id = $1`, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("maintenance request", id)
		}
		return nil, fmt.Errorf("failed to get maintenance request: %w", err)
	}
	return m, nil
}

// UpdateIfVersion writes the request only if its stored version still equals expected
func (r *PostgresMaintenanceRepository) UpdateIfVersion(ctx context.Context, m *domain.MaintenanceRequest, expected int64) (bool, error) {
	query := `
		UPDATE maintenance_requests
		SET title = $1, description = $2, status = $3, row_version = row_version + 1
		WHERE id = $4 AND row_version = $5
	`
	res, err := r.q.ExecContext(ctx, query, m.Title, m.Description, m.Status, m.ID, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update maintenance request: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		m.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "maintenance_requests", "maintenance request", m.ID)
}

// List returns maintenance requests matching the filter, newest first
func (r *PostgresMaintenanceRepository) List(ctx context.Context, f domain.MaintenanceFilter) ([]*domain.MaintenanceRequest, error) {
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

	rows, err := r.q.QueryContext(ctx, `SELECT `+maintenanceColumns+` FROM maintenance_requests`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.MaintenanceRequest
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance request: %w", err)
		}
		requests = append(requests, m)
	}
	return requests, rows.Err()
}
