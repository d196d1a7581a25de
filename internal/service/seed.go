package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "tenarentals-demo"

type demoUser struct {
	name, email, phone string
	role               domain.Role
}

var demoUsers = []demoUser{
	{"Sarah Wanjiru", "sarah.w@email.com", "+254 723 456 789", domain.RoleAdmin},
	{"John Kamau", "john.kamau@email.com", "+254 712 345 678", domain.RoleEvaluator},
	{"David Mwangi", "david.m@email.com", "+254 734 567 890", domain.RoleEvaluator},
	{"Daniel Kipchoge", "daniel.kipchoge@email.com", "+254 790 123 456", domain.RoleLandlord},
	{"Grace Akinyi", "grace.akinyi@email.com", "+254 745 678 901", domain.RoleTenant},
	{"Peter Otieno", "peter.otieno@email.com", "+254 756 789 012", domain.RoleTenant},
}

type demoProperty struct {
	title, address      string
	bedrooms, bathrooms int
	rent                int
	image               string
	status              domain.PropertyStatus
}

var demoProperties = []demoProperty{
	{"Modern 2BR Apartment in Westlands", "Riverside Drive", 2, 2, 85000, "https://images.unsplash.com/photo-1522708323590-d24dbb6b0267", domain.PropertyActive},
	{"Spacious 3BR House in Karen", "Karen Road", 3, 3, 150000, "https://images.unsplash.com/photo-1600596542815-ffad4c1539a9", domain.PropertyActive},
	{"Cozy 1BR Apartment in Kilimani", "Argwings Kodhek Road", 1, 1, 55000, "https://images.unsplash.com/photo-1502672260266-1c1ef2d93688", domain.PropertyApproved},
	{"Luxury 3BR Penthouse", "Westlands", 3, 3, 200000, "https://images.unsplash.com/photo-1600596542815-ffad4c1539a9", domain.PropertyPending},
	{"Modern Studio Apartment", "Kilimani", 1, 1, 35000, "https://images.unsplash.com/photo-1502672260266-1c1ef2d93688", domain.PropertyAwaitingEvaluation},
}

// SeedResult reports what Seed created
type SeedResult struct {
	Users      int  `json:"users"`
	Properties int  `json:"properties"`
	Skipped    bool `json:"skipped"`
}

// Seed loads demo accounts and listings in one transaction. It does nothing
// when the demo admin already exists.
func Seed(ctx context.Context, store domain.Store, now time.Time, logger *slog.Logger) (SeedResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res SeedResult
	if _, err := store.Users().GetByEmail(ctx, demoUsers[0].email); err == nil {
		res.Skipped = true
		return res, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return res, fmt.Errorf("failed to check seed state: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return res, fmt.Errorf("failed to hash password: %w", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		res = SeedResult{}
		byRole := map[domain.Role]*domain.User{}
		for _, d := range demoUsers {
			u := &domain.User{
				ID:           uuid.NewString(),
				Email:        d.email,
				PasswordHash: string(hash),
				FullName:     d.name,
				Phone:        d.phone,
				Role:         d.role,
				CreatedAt:    now,
			}
			if err := tx.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", d.email, err)
			}
			if byRole[d.role] == nil {
				byRole[d.role] = u
			}
			res.Users++
		}

		landlord, evaluator := byRole[domain.RoleLandlord], byRole[domain.RoleEvaluator]
		full := domain.Checklist{true, true, true, true, true, true, true}
		for i, d := range demoProperties {
			p := &domain.Property{
				ID:          uuid.NewString(),
				LandlordID:  landlord.ID,
				Title:       d.title,
				Description: d.title + " close to shops and transport.",
				Address:     d.address,
				City:        "Nairobi",
				Bedrooms:    d.bedrooms,
				Bathrooms:   d.bathrooms,
				Rent:        d.rent,
				Images:      []string{d.image},
				Status:      d.status,
				CreatedAt:   now.Add(time.Duration(i) * time.Minute),
				UpdatedAt:   now.Add(time.Duration(i) * time.Minute),
			}
			if d.status != domain.PropertyPending {
				id := evaluator.ID
				p.EvaluatorID = &id
			}
			if d.status.Listed() {
				c := full
				p.Checklist = &c
				p.EvaluationNotes = "All inspection items verified."
			}
			if err := tx.Properties().Create(ctx, p); err != nil {
				return fmt.Errorf("failed to seed property %q: %w", d.title, err)
			}
			res.Properties++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	logger.Info("demo data seeded", slog.Int("users", res.Users), slog.Int("properties", res.Properties))
	return res, nil
}
