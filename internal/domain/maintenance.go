package domain

import (
	"context"
	"fmt"
	"time"
)

// MaintenanceStatus is the progress of a repair ticket.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

// Priority is fixed when the tenant files the request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority converts raw input into a Priority. Empty input means medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", NewValidationError("priority", fmt.Sprintf("unknown priority %q", s))
	}
}

// MaintenanceRequest is a repair ticket raised by a tenant.
type MaintenanceRequest struct {
	ID          string            `json:"id"`
	PropertyID  string            `json:"propertyId"`
	TenantID    string            `json:"tenantId"`
	LandlordID  string            `json:"landlordId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      MaintenanceStatus `json:"status"`
	Priority    Priority          `json:"priority"`
	CreatedAt   time.Time         `json:"createdAt"`
	Versioned
}

// Start moves a pending ticket into progress.
func (m *MaintenanceRequest) Start() error {
	if m.Status != MaintenancePending {
		return m.invalid("start")
	}
	m.Status = MaintenanceInProgress
	return nil
}

// Complete closes a ticket that is in progress.
func (m *MaintenanceRequest) Complete() error {
	if m.Status != MaintenanceInProgress {
		return m.invalid("complete")
	}
	m.Status = MaintenanceCompleted
	return nil
}

func (m *MaintenanceRequest) invalid(action string) error {
	return invalidTransition("maintenance request", m.ID, string(m.Status), action)
}

// MaintenanceFilter narrows maintenance listings. Zero values match everything.
type MaintenanceFilter struct {
	TenantID   string
	LandlordID string
	PropertyID string
	Statuses   []MaintenanceStatus
}

// MaintenanceRepository defines data access for maintenance requests
type MaintenanceRepository interface {
	Create(ctx context.Context, request *MaintenanceRequest) error
	GetByID(ctx context.Context, id string) (*MaintenanceRequest, error)
	UpdateIfVersion(ctx context.Context, request *MaintenanceRequest, expectedVersion int64) (bool, error)
	List(ctx context.Context, filter MaintenanceFilter) ([]*MaintenanceRequest, error)
}
