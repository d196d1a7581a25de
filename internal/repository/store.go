package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements domain.Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	q      querier
	inTx   bool
	logger *slog.Logger
}

// NewPostgresStore creates a store over an open connection pool
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, q: db, logger: logger}
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Users() domain.UserRepository {
	return &PostgresUserRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Properties() domain.PropertyRepository {
	return &PostgresPropertyRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Units() domain.UnitRepository {
	return &PostgresUnitRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Bookings() domain.BookingRepository {
	return &PostgresBookingRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Agreements() domain.AgreementRepository {
	return &PostgresAgreementRepository{q: s.q, logger: s.logger}
}

func (s *PostgresStore) Maintenance() domain.MaintenanceRepository {
	return &PostgresMaintenanceRepository{q: s.q, logger: s.logger}
}

// WithinTx runs fn in a database transaction. Calls made on a transactional
// store join the running transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to roll back transaction", slog.String("error", rbErr.Error()))
		}
	}()

	if err = fn(ctx, &PostgresStore{db: s.db, q: tx, inTx: true, logger: s.logger}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const (
	uniqueViolation      = "23505"
	invalidTextRepresent = "22P02"
)

// noRow reports whether a lookup matched nothing. An id that cannot be cast to
// the column type (schemas created with UUID ids) cannot match a row either.
func noRow(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresent
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// casResult turns the outcome of a version-guarded UPDATE into the
// UpdateIfVersion contract: (true, nil) when exactly one row changed.
func casResult(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n == 1, nil
}

// existsOrNotFound distinguishes a lost race from a missing row after an UPDATE touched nothing.
func existsOrNotFound(ctx context.Context, q querier, table, entity, id string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = $1", id).Scan(&one)
	if noRow(err) {
		return domain.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", entity, err)
	}
	return nil
}

// where accumulates positional predicates for list queries
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	out := " WHERE " + w.clauses[0]
	for _, c := range w.clauses[1:] {
		out += " AND " + c
	}
	return out
}

func stringsOf[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
