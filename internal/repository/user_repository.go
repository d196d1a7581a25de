package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	q      querier
	logger *slog.Logger
}

const userColumns = `id, email, password_hash, full_name, phone, role, created_at, row_version`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
		&user.RowVersion,
	)
	return user, err
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
	`

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Phone,
		user.Role,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return domain.NewValidationError("email", "email already registered")
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.RowVersion = 1
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("user", id)
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if noRow(err) {
			return nil, domain.NotFound("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UpdateIfVersion writes the user only if nobody else changed it since it was read
func (r *PostgresUserRepository) UpdateIfVersion(ctx context.Context, user *domain.User, expected int64) (bool, error) {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, phone = $4, role = $5, row_version = row_version + 1
		WHERE id = $6 AND row_version = $7
	`

	res, err := r.q.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Phone,
		user.Role,
		user.ID,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	ok, err := casResult(res)
	if err != nil {
		return false, err
	}
	if ok {
		user.RowVersion = expected + 1
		return true, nil
	}
	return false, existsOrNotFound(ctx, r.q, "users", "user", user.ID)
}

// List lists users, optionally restricted to one role
func (r *PostgresUserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	w := &where{}
	if role != "" {
		w.add("role = $%d", role)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		r.logger.Error("failed to list users",
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountByRole reports how many accounts hold each role
func (r *PostgresUserRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Role]int{}
	for rows.Next() {
		var role domain.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
