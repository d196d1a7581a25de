package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLandlord  Role = "landlord"
	RoleEvaluator Role = "evaluator"
	RoleTenant    Role = "tenant"
)

// AllRoles returns every role in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleLandlord, RoleEvaluator, RoleTenant}
}

// ParseRole converts raw input into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleLandlord, RoleEvaluator, RoleTenant:
		return r, nil
	default:
		return "", NewValidationError("role", fmt.Sprintf("unknown role %q", s))
	}
}

// User represents an account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	Versioned
}

// ChangeRole moves the user to a new role. Re-applying the current role is rejected.
func (u *User) ChangeRole(role Role) error {
	if u.Role == role {
		return invalidTransition("user", u.ID, string(u.Role), "change role to "+string(role))
	}
	u.Role = role
	return nil
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateIfVersion(ctx context.Context, user *User, expectedVersion int64) (bool, error)
	List(ctx context.Context, role Role) ([]*User, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
}
