package service

import (
	"fmt"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

// RegisterInput creates an account
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=32"`
	Role     string `json:"role"`
}

// PropertyInput carries the landlord-editable fields of a listing
type PropertyInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Address     string   `json:"address" validate:"required,max=500"`
	City        string   `json:"city" validate:"required,max=100"`
	Bedrooms    int      `json:"bedrooms" validate:"gt=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gt=0"`
	Rent        int      `json:"rent" validate:"gt=0"`
	Images      []string `json:"images" validate:"max=20,dive,uri"`
}

func (in PropertyInput) details() domain.PropertyDetails {
	return domain.PropertyDetails{
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		City:        in.City,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		Rent:        in.Rent,
		Images:      in.Images,
	}
}

// UnitInput describes one rentable unit of a property
type UnitInput struct {
	UnitNumber string `json:"unitNumber" validate:"required,max=20"`
	Bedrooms   int    `json:"bedrooms" validate:"gt=0"`
	Bathrooms  int    `json:"bathrooms" validate:"gt=0"`
	Rent       int    `json:"rent" validate:"gt=0"`
	Floor      int    `json:"floor" validate:"gte=0"`
	SquareFeet *int   `json:"squareFeet" validate:"omitempty,gt=0"`
	Status     string `json:"status" validate:"omitempty,oneof=available occupied maintenance"`
}

// ApprovalInput is an evaluator's passed inspection
type ApprovalInput struct {
	Checklist []bool `json:"checklist"`
	Notes     string `json:"notes" validate:"max=5000"`
}

// checklist requires exactly one answer per inspection item
func (in ApprovalInput) checklist() (domain.Checklist, error) {
	var c domain.Checklist
	if len(in.Checklist) != domain.ChecklistSize {
		return c, domain.NewValidationError("checklist", fmt.Sprintf("must have %d items, got %d", domain.ChecklistSize, len(in.Checklist)))
	}
	copy(c[:], in.Checklist)
	return c, nil
}

// AgreementInput carries the terms of a tenancy
type AgreementInput struct {
	Terms     string    `json:"terms" validate:"max=20000"`
	Rent      int       `json:"rent" validate:"gt=0"`
	Deposit   int       `json:"deposit" validate:"gt=0"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

// MaintenanceInput opens a repair ticket
type MaintenanceInput struct {
	PropertyID  string `json:"propertyId" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}
