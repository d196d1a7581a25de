package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresAgreementRepository implements domain.AgreementRepository using PostgreSQL
type PostgresAgreementRepository struct {
	q      querier
	logger *slog.Logger
}

const liveAgreementKey = "agreements_live_unique"

const agreementColumns = `id, property_id, tenant_id, landlord_id, terms, rent, deposit, start_date, end_date, status, signed, created_at, row_version`

func scanAgreement(row interface{ Scan(...any) error }) (*domain.Agreement, error) {
	a := &domain.Agreement{}
	err := row.Scan(
		&a.ID,
		&a.PropertyID,
		&a.TenantID,
		&a.LandlordID,
		&a.Terms,
		&a.Rent,
		&a.Deposit,
		&a.StartDate,
		&a.EndDate,
		&a.Status,
		&a.Signed,
		&a.CreatedAt,
		&a.RowVersion,
	)
	return a, err
}

// Create stores a new agreement
func (r *PostgresAgreementRepository) Create(ctx context.Context, a *domain.Agreement) error {
	query := `
		INSERT INTO agreements (id, property_id, tenant_id, landlord_id, terms, rent, deposit, start_date, end_date, status, signed, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
	`
	_, err := r.q.ExecContext(ctx, query,
		a.ID, a.PropertyID, a.TenantID, a.LandlordID, a.Terms, a.Rent, a.Deposit, a.StartDate, a.EndDate, a.Status, a.Signed, a.CreatedAt,
	)
	if isUniqueViolation(err, liveAgreementKey) {
		return &domain.TransitionError{Entity: "property", ID: a.PropertyID, From: "under a live agreement for tenant " + a.TenantID, Action: "draft a second agreement on"}
	}
	if err != nil {
		r.logger.Error("failed to create agreement",
			slog.String("property_id", a.PropertyID),
			slog.String("tenant_id", a.TenantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create agreement: %w", err)
	}
	a.RowVersion = 1
	return nil
}

// GetByID retrieves an agreement by ID
func (r *PostgresAgreementRepository) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	a, err := scanAgreement(r.q.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("agreement", id)
		}
		return nil, fmt.Errorf("failed to get agreement: %w", err)
	}
	return a, nil
}

// UpdateIfVersion writes the agreement only if its stored version still equals expected.
// The signed flag can only be raised here, never cleared.
func (r *PostgresAgreementRepository) UpdateIfVersion(ctx context.Context, a *domain.Agreement, expected int64) (bool, error) {
	query := `
		UPDATE agreements
		SET terms = $1, rent = $2, deposit = $3, start_date = $4, end_date = $5, status = $6, signed = signed OR $7,
			row_version = row_version + 1
		WHERE id = $8 AND row_version = $9
	`
	res, err := r.q.ExecContext(ctx, query, a.Terms, a.Rent, a.Deposit, a.StartDate, a.EndDate, a.Status, a.Signed, a.ID, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update agreement: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		a.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "agreements", "agreement", a.ID)
}

// List returns agreements matching the filter, newest first
func (r *PostgresAgreementRepository) List(ctx context.Context, f domain.AgreementFilter) ([]*domain.Agreement, error) {
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
	return r.query(ctx, `SELECT `+agreementColumns+` FROM agreements`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
}

// ListDue returns agreements with a time-driven transition pending at now
func (r *PostgresAgreementRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements
		WHERE (status = 'signed' AND start_date <= $1) OR (status = 'active' AND end_date < $1)
		ORDER BY id`
	return r.query(ctx, query, now)
}

func (r *PostgresAgreementRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Agreement, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list agreements", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	defer rows.Close()

	var agreements []*domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		agreements = append(agreements, a)
	}
	return agreements, rows.Err()
}
