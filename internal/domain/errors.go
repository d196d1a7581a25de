package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the lifecycle engine. Callers match them with errors.Is.
var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrChecklistIncomplete = errors.New("checklist incomplete")
	ErrAlreadySigned       = errors.New("agreement already signed")
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrConflict            = errors.New("concurrent update conflict")
)

// FieldError describes one rejected payload field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransitionError is returned when an action is not reachable from the entity's current status.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s %s %s while %s", e.Action, e.Entity, e.ID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ForbiddenError is returned when the actor's role or relationship does not permit the action.
type ForbiddenError struct {
	ActorID  string
	Role     Role
	Action   string
	Resource string
	ID       string
}

func (e *ForbiddenError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("forbidden: %s %s may not %s", e.Role, e.ActorID, e.Action)
	}
	return fmt.Sprintf("forbidden: %s %s may not %s %s %s", e.Role, e.ActorID, e.Action, e.Resource, e.ID)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func invalidTransition(entity, id, from, action string) error {
	return &TransitionError{Entity: entity, ID: id, From: from, Action: action}
}
