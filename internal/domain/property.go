package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PropertyStatus is the lifecycle state of a listing.
type PropertyStatus string

const (
	PropertyPending            PropertyStatus = "pending"
	PropertyAwaitingEvaluation PropertyStatus = "awaiting_evaluation"
	PropertyApproved           PropertyStatus = "approved"
	PropertyActive             PropertyStatus = "active"
	PropertyRejected           PropertyStatus = "rejected"
)

// ParsePropertyStatus converts raw input into a PropertyStatus.
func ParsePropertyStatus(s string) (PropertyStatus, error) {
	switch st := PropertyStatus(s); st {
	case PropertyPending, PropertyAwaitingEvaluation, PropertyApproved, PropertyActive, PropertyRejected:
		return st, nil
	default:
		return "", NewValidationError("status", fmt.Sprintf("unknown property status %q", s))
	}
}

// Terminal reports whether no further transition may leave this status.
func (s PropertyStatus) Terminal() bool {
	return s == PropertyActive || s == PropertyRejected
}

// Listed reports whether the property is externally live.
func (s PropertyStatus) Listed() bool {
	return s == PropertyApproved || s == PropertyActive
}

// ChecklistSize is the number of inspection items gating approval.
const ChecklistSize = 7

// Checklist is the fixed inspection form submitted with an approval.
type Checklist [ChecklistSize]bool

// ChecklistItems returns the inspection item labels, indexed like Checklist.
func ChecklistItems() [ChecklistSize]string {
	return [ChecklistSize]string{
		"Property matches listing description",
		"All rooms are in good condition",
		"Plumbing and electrical systems functional",
		"Safety measures in place (fire extinguisher, emergency exits)",
		"Property is clean and well-maintained",
		"Location verified and accessible",
		"Landlord documents verified",
	}
}

// Missing returns the indexes of unchecked items.
func (c Checklist) Missing() []int {
	var missing []int
	for i, ok := range c {
		if !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Complete reports whether every item is checked.
func (c Checklist) Complete() bool {
	return len(c.Missing()) == 0
}

// Property is a listing owned by exactly one landlord.
type Property struct {
	ID              string         `json:"id"`
	LandlordID      string         `json:"landlordId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Address         string         `json:"address"`
	City            string         `json:"city"`
	Bedrooms        int            `json:"bedrooms"`
	Bathrooms       int            `json:"bathrooms"`
	Rent            int            `json:"rent"`
	Images          []string       `json:"images"`
	Status          PropertyStatus `json:"status"`
	EvaluatorID     *string        `json:"evaluatorId,omitempty"`
	EvaluationNotes string         `json:"evaluationNotes,omitempty"`
	Checklist       *Checklist     `json:"checklist,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Versioned
}

// PropertyDetails holds the landlord-editable fields of a listing.
type PropertyDetails struct {
	Title       string
	Description string
	Address     string
	City        string
	Bedrooms    int
	Bathrooms   int
	Rent        int
	Images      []string
}

// AssignedTo reports whether evaluatorID is the currently recorded evaluator.
func (p *Property) AssignedTo(evaluatorID string) bool {
	return p.EvaluatorID != nil && *p.EvaluatorID == evaluatorID
}

// Edit replaces the listing details. Only pending listings may be edited.
func (p *Property) Edit(d PropertyDetails, now time.Time) error {
	if p.Status != PropertyPending {
		return p.invalid("edit")
	}
	p.Title = d.Title
	p.Description = d.Description
	p.Address = d.Address
	p.City = d.City
	p.Bedrooms = d.Bedrooms
	p.Bathrooms = d.Bathrooms
	p.Rent = d.Rent
	p.Images = append([]string(nil), d.Images...)
	p.UpdatedAt = now
	return nil
}

// AssignEvaluator moves a pending property into evaluation, or hands an
// awaiting_evaluation property to a different evaluator.
func (p *Property) AssignEvaluator(evaluatorID string, now time.Time) error {
	switch p.Status {
	case PropertyPending:
	case PropertyAwaitingEvaluation:
		if p.AssignedTo(evaluatorID) {
			return p.invalid("reassign to the same evaluator")
		}
	default:
		return p.invalid("assign evaluator")
	}
	id := evaluatorID
	p.EvaluatorID = &id
	p.Status = PropertyAwaitingEvaluation
	p.UpdatedAt = now
	return nil
}

// RejectSubmission is the admin rejection of a listing that never entered evaluation.
func (p *Property) RejectSubmission(reason string, now time.Time) error {
	if p.Status != PropertyPending {
		return p.invalid("reject")
	}
	return p.reject(reason, now)
}

// RejectEvaluation is the assigned evaluator's rejection after inspection.
func (p *Property) RejectEvaluation(reason string, now time.Time) error {
	if p.Status != PropertyAwaitingEvaluation {
		return p.invalid("reject")
	}
	return p.reject(reason, now)
}

func (p *Property) reject(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}
	p.Status = PropertyRejected
	p.EvaluationNotes = reason
	p.UpdatedAt = now
	return nil
}

// Approve records a passed inspection. Every checklist item must be checked.
func (p *Property) Approve(checklist Checklist, notes string, now time.Time) error {
	if err := p.CheckApprovable(); err != nil {
		return err
	}
	if missing := checklist.Missing(); len(missing) > 0 {
		labels := ChecklistItems()
		names := make([]string, 0, len(missing))
		for _, i := range missing {
			names = append(names, fmt.Sprintf("[%d] %s", i, labels[i]))
		}
		return fmt.Errorf("%w: unchecked %s", ErrChecklistIncomplete, strings.Join(names, ", "))
	}
	c := checklist
	p.Checklist = &c
	p.EvaluationNotes = strings.TrimSpace(notes)
	p.Status = PropertyApproved
	p.UpdatedAt = now
	return nil
}

// CheckApprovable reports whether the property is waiting on an inspection.
func (p *Property) CheckApprovable() error {
	if p.Status != PropertyAwaitingEvaluation {
		return p.invalid("approve")
	}
	return nil
}

// Publish lists an approved property in search results.
func (p *Property) Publish(now time.Time) error {
	if p.Status != PropertyApproved {
		return p.invalid("publish")
	}
	p.Status = PropertyActive
	p.UpdatedAt = now
	return nil
}

func (p *Property) invalid(action string) error {
	return invalidTransition("property", p.ID, string(p.Status), action)
}

// PropertyFilter narrows property listings. Zero values match everything.
type PropertyFilter struct {
	LandlordID  string
	EvaluatorID string
	Statuses    []PropertyStatus
	City        string
	MinRent     int
	MaxRent     int
	MinBedrooms int
	Limit       int
}

// CacheKey identifies the listing a filter selects.
func (f PropertyFilter) CacheKey() string {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d|%d",
		f.LandlordID, f.EvaluatorID, strings.Join(statuses, ","), strings.ToLower(f.City),
		f.MinRent, f.MaxRent, f.MinBedrooms, f.Limit)
}

// Matches reports whether p satisfies the filter.
func (f PropertyFilter) Matches(p *Property) bool {
	if f.LandlordID != "" && p.LandlordID != f.LandlordID {
		return false
	}
	if f.EvaluatorID != "" && !p.AssignedTo(f.EvaluatorID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.City != "" && !strings.EqualFold(p.City, f.City) {
		return false
	}
	if f.MinRent > 0 && p.Rent < f.MinRent {
		return false
	}
	if f.MaxRent > 0 && p.Rent > f.MaxRent {
		return false
	}
	if f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms {
		return false
	}
	return true
}

// PropertyRepository defines data access for properties
type PropertyRepository interface {
	Create(ctx context.Context, property *Property) error
	GetByID(ctx context.Context, id string) (*Property, error)
	UpdateIfVersion(ctx context.Context, property *Property, expectedVersion int64) (bool, error)
	List(ctx context.Context, filter PropertyFilter) ([]*Property, error)
	CountByStatus(ctx context.Context) (map[PropertyStatus]int, error)
}

// ListingCache holds public search results between publications.
// Get also reports the cache generation it read; Set stores under that
// generation only, so a result computed before an Invalidate is never served after it.
type ListingCache interface {
	Get(ctx context.Context, key string) (properties []*Property, generation string, ok bool)
	Set(ctx context.Context, generation, key string, properties []*Property)
	Invalidate(ctx context.Context)
}
