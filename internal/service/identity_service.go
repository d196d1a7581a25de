package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/retry"
	"github.com/Rotichtonny/TenaRentals/internal/security"
	"github.com/Rotichtonny/TenaRentals/internal/security/auth"
)

// IdentityService resolves who is acting and with which role
type IdentityService struct {
	lifecycle
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewIdentityService creates a new identity service
func NewIdentityService(deps Dependencies, tokens *auth.TokenManager) *IdentityService {
	return &IdentityService{lifecycle: newLifecycle(deps), tokens: tokens, bcryptCost: bcrypt.DefaultCost}
}

// LoginResult represents login response
type LoginResult struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"` // seconds
	TokenType string       `json:"tokenType"`
}

// Authenticate checks an email and password pair. Emails match exactly.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email", slog.String("email", email))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and returns a signed bearer token
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}

// Register creates a tenant or landlord account for an anonymous caller
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = string(domain.RoleTenant)
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleTenant && role != domain.RoleLandlord {
		return nil, domain.NewValidationError("role", "self-registration is limited to tenant and landlord accounts")
	}
	return s.createUser(ctx, nil, in, role)
}

// CreateUser lets an admin open an account with any role
func (s *IdentityService) CreateUser(ctx context.Context, actor *domain.User, in RegisterInput) (*domain.User, error) {
	if err := s.access.Require(ctx, actor, security.ActionManageUsers); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	return s.createUser(ctx, actor, in, role)
}

func (s *IdentityService) createUser(ctx context.Context, actor *domain.User, in RegisterInput, role domain.Role) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.NewValidationError("email", "email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         role,
		CreatedAt:    s.now(),
	}
	err = s.store.Users().Create(ctx, user)
	s.record(ctx, actor, "user", "create", user.ID, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeRole moves a user to a different role. Admins cannot demote themselves.
func (s *IdentityService) ChangeRole(ctx context.Context, actor *domain.User, userID, role string) (*domain.User, error) {
	if err := s.access.Require(ctx, actor, security.ActionManageUsers); err != nil {
		return nil, err
	}
	if actor.ID == userID {
		return nil, &domain.ForbiddenError{ActorID: actor.ID, Role: actor.Role, Action: "change own role", Resource: "user", ID: userID}
	}
	newRole, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	users := s.store.Users()
	user, err := transition(ctx, &s.lifecycle, actor, "user", "change_role", userID, retry.CAS[*domain.User]{
		Load:   func(ctx context.Context) (*domain.User, error) { return users.GetByID(ctx, userID) },
		Mutate: func(u *domain.User) error { return u.ChangeRole(newRole) },
		Save: func(ctx context.Context, u *domain.User, expected int64) (bool, error) {
			return users.UpdateIfVersion(ctx, u, expected)
		},
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, user.ID, "user.role_changed", "user", user.ID, "Your role is now "+string(user.Role))
	return user, nil
}

// ChangePassword replaces the actor's password after checking the current one
func (s *IdentityService) ChangePassword(ctx context.Context, actor *domain.User, oldPassword, newPassword string) error {
	if actor == nil {
		return domain.ErrInvalidCredentials
	}
	if len(newPassword) < 8 {
		return domain.NewValidationError("newPassword", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := s.store.Users()
	_, err = transition(ctx, &s.lifecycle, actor, "user", "change_password", actor.ID, retry.CAS[*domain.User]{
		Load: func(ctx context.Context) (*domain.User, error) { return users.GetByID(ctx, actor.ID) },
		Mutate: func(u *domain.User) error {
			if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
				return domain.ErrInvalidCredentials
			}
			u.PasswordHash = string(hash)
			return nil
		},
		Save: func(ctx context.Context, u *domain.User, expected int64) (bool, error) {
			return users.UpdateIfVersion(ctx, u, expected)
		},
	})
	return err
}

// Resolve loads the user a verified token names. Roles are read fresh so a
// role change applies to the very next request.
func (s *IdentityService) Resolve(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, err
}

// VerifyToken validates a bearer token and resolves its user
func (s *IdentityService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	return s.Resolve(ctx, claims.UserID)
}

// ListUsers lists accounts, optionally of one role. Admin only.
func (s *IdentityService) ListUsers(ctx context.Context, actor *domain.User, role string) ([]*domain.User, error) {
	if err := s.access.Require(ctx, actor, security.ActionManageUsers); err != nil {
		return nil, err
	}
	var filter domain.Role
	if role != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		filter = r
	}
	return s.store.Users().List(ctx, filter)
}
