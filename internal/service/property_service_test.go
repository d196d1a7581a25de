package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
)

func TestChecklistGatesApproval(t *testing.T) {
	h := newHarness(t)
	admin, landlord, e1 := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)

	p := h.pending(t, landlord)
	assert.Equal(t, domain.PropertyPending, p.Status)
	assert.Nil(t, p.EvaluatorID)

	p, err := h.properties.AssignEvaluator(h.ctx, admin, p.ID, e1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyAwaitingEvaluation, p.Status)

	checklist := fullChecklist
	checklist[3] = false
	_, err = h.properties.Approve(h.ctx, e1, p.ID, ApprovalInput{Checklist: checklist[:]})
	assert.ErrorIs(t, err, domain.ErrChecklistIncomplete)
	assert.Equal(t, domain.PropertyAwaitingEvaluation, h.propertyStatus(t, p.ID))

	checklist[3] = true
	p, err = h.properties.Approve(h.ctx, e1, p.ID, ApprovalInput{Checklist: checklist[:], Notes: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyApproved, p.Status)
	require.NotNil(t, p.Checklist)
	assert.True(t, p.Checklist.Complete())
	assert.Equal(t, "looks good", p.EvaluationNotes)
}

func TestEachMissingChecklistItemBlocksApproval(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	p := h.awaiting(t, admin, landlord, ev)

	for i := 0; i < domain.ChecklistSize; i++ {
		checklist := fullChecklist
		checklist[i] = false
		_, err := h.properties.Approve(h.ctx, ev, p.ID, ApprovalInput{Checklist: checklist[:]})
		assert.ErrorIs(t, err, domain.ErrChecklistIncomplete, "item %d", i)
	}
	assert.Equal(t, domain.PropertyAwaitingEvaluation, h.propertyStatus(t, p.ID))
}

func TestChecklistMustAnswerEveryItem(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	p := h.awaiting(t, admin, landlord, ev)

	for _, items := range [][]bool{nil, fullChecklist[:3], append(fullChecklist[:], false)} {
		_, err := h.properties.Approve(h.ctx, ev, p.ID, ApprovalInput{Checklist: items})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "%d items", len(items))
		assert.Equal(t, "checklist", verr.Fields[0].Field)
	}
	assert.Equal(t, domain.PropertyAwaitingEvaluation, h.propertyStatus(t, p.ID))

	// state is checked before the payload
	approved := h.approved(t, admin, landlord, ev)
	_, err := h.properties.Approve(h.ctx, ev, approved.ID, ApprovalInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReassignedEvaluatorLosesTransitionRights(t *testing.T) {
	h := newHarness(t)
	admin, landlord := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord)
	a, b := h.user(t, domain.RoleEvaluator), h.user(t, domain.RoleEvaluator)

	p := h.awaiting(t, admin, landlord, a)
	p, err := h.properties.AssignEvaluator(h.ctx, admin, p.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, p.AssignedTo(b.ID))

	_, err = h.properties.Approve(h.ctx, a, p.ID, ApprovalInput{Checklist: fullChecklist[:]})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.Reject(h.ctx, a, p.ID, "not suitable")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.PropertyAwaitingEvaluation, h.propertyStatus(t, p.ID))

	// read access is kept for history
	got, err := h.properties.Get(h.ctx, a, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	assignments, err := h.properties.ListAssignments(h.ctx, a)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assignments, err = h.properties.ListAssignments(h.ctx, b)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestAssignEvaluatorRules(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	tenant := h.user(t, domain.RoleTenant)
	p := h.pending(t, landlord)

	_, err := h.properties.AssignEvaluator(h.ctx, landlord, p.ID, ev.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.properties.AssignEvaluator(h.ctx, admin, p.ID, tenant.ID)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "evaluatorId", verr.Fields[0].Field)

	_, err = h.properties.AssignEvaluator(h.ctx, admin, p.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.PropertyPending, h.propertyStatus(t, p.ID))

	_, err = h.properties.AssignEvaluator(h.ctx, admin, p.ID, ev.ID)
	require.NoError(t, err)
	_, err = h.properties.AssignEvaluator(h.ctx, admin, p.ID, ev.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRejectRules(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)

	t.Run("admin rejects pending", func(t *testing.T) {
		p := h.pending(t, landlord)
		_, err := h.properties.Reject(h.ctx, admin, p.ID, "  ")
		assert.ErrorIs(t, err, domain.ErrValidation)

		p, err = h.properties.Reject(h.ctx, admin, p.ID, "duplicate listing")
		require.NoError(t, err)
		assert.Equal(t, domain.PropertyRejected, p.Status)
		assert.Equal(t, "duplicate listing", p.EvaluationNotes)
		assert.Nil(t, p.EvaluatorID)
	})

	t.Run("admin cannot reject under evaluation", func(t *testing.T) {
		p := h.awaiting(t, admin, landlord, ev)
		_, err := h.properties.Reject(h.ctx, admin, p.ID, "changed my mind")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("evaluator rejects assigned", func(t *testing.T) {
		p := h.awaiting(t, admin, landlord, ev)
		p, err := h.properties.Reject(h.ctx, ev, p.ID, "failed safety inspection")
		require.NoError(t, err)
		assert.Equal(t, domain.PropertyRejected, p.Status)
		assert.True(t, p.AssignedTo(ev.ID))
	})

	t.Run("evaluator cannot reject pending", func(t *testing.T) {
		p := h.pending(t, landlord)
		_, err := h.properties.Reject(h.ctx, ev, p.ID, "no")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestInvalidPropertyTransitionsLeaveStatusUnchanged(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	other := h.user(t, domain.RoleEvaluator)

	build := map[domain.PropertyStatus]func() *domain.Property{
		domain.PropertyPending:            func() *domain.Property { return h.pending(t, landlord) },
		domain.PropertyAwaitingEvaluation: func() *domain.Property { return h.awaiting(t, admin, landlord, ev) },
		domain.PropertyApproved:           func() *domain.Property { return h.approved(t, admin, landlord, ev) },
		domain.PropertyActive:             func() *domain.Property { return h.active(t, admin, landlord, ev) },
		domain.PropertyRejected: func() *domain.Property {
			p := h.pending(t, landlord)
			p, err := h.properties.Reject(h.ctx, admin, p.ID, "incomplete listing")
			require.NoError(t, err)
			return p
		},
	}
	ops := map[string]struct {
		allowed []domain.PropertyStatus
		run     func(p *domain.Property) error
	}{
		"edit": {[]domain.PropertyStatus{domain.PropertyPending}, func(p *domain.Property) error {
			_, err := h.properties.Update(h.ctx, landlord, p.ID, listingInput())
			return err
		}},
		"assign": {[]domain.PropertyStatus{domain.PropertyPending, domain.PropertyAwaitingEvaluation}, func(p *domain.Property) error {
			_, err := h.properties.AssignEvaluator(h.ctx, admin, p.ID, other.ID)
			return err
		}},
		"approve": {[]domain.PropertyStatus{domain.PropertyAwaitingEvaluation}, func(p *domain.Property) error {
			_, err := h.properties.Approve(h.ctx, ev, p.ID, ApprovalInput{Checklist: fullChecklist[:]})
			return err
		}},
		"publish": {[]domain.PropertyStatus{domain.PropertyApproved}, func(p *domain.Property) error {
			_, err := h.properties.Publish(h.ctx, admin, p.ID)
			return err
		}},
	}

	for status, mk := range build {
		for name, op := range ops {
			allowed := false
			for _, s := range op.allowed {
				allowed = allowed || s == status
			}
			if allowed {
				continue
			}
			t.Run(name+" from "+string(status), func(t *testing.T) {
				p := mk()
				err := op.run(p)
				// approve by a no-longer-assigned evaluator is a permission failure, not a state one
				if name == "approve" && !p.AssignedTo(ev.ID) {
					assert.ErrorIs(t, err, domain.ErrForbidden)
				} else {
					assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				}
				assert.Equal(t, status, h.propertyStatus(t, p.ID))
			})
		}
	}
}

func TestTerminalTransitionsAreNotReapplied(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)

	p := h.active(t, admin, landlord, ev)
	before, err := h.store.Properties().GetByID(h.ctx, p.ID)
	require.NoError(t, err)
	_, err = h.properties.Publish(h.ctx, admin, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	after, err := h.store.Properties().GetByID(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, before.RowVersion, after.RowVersion)

	r := h.awaiting(t, admin, landlord, ev)
	_, err = h.properties.Reject(h.ctx, ev, r.ID, "water damage")
	require.NoError(t, err)
	_, err = h.properties.Reject(h.ctx, ev, r.ID, "water damage")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestNonOwnersAreForbidden(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	stranger, tenant := h.user(t, domain.RoleLandlord), h.user(t, domain.RoleTenant)

	p := h.pending(t, landlord)
	_, err := h.properties.Update(h.ctx, stranger, p.ID, listingInput())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.Create(h.ctx, tenant, listingInput())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.AddUnit(h.ctx, stranger, p.ID, UnitInput{UnitNumber: "A1", Bedrooms: 1, Bathrooms: 1, Rent: 1000})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.Get(h.ctx, tenant, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	a := h.approved(t, admin, landlord, ev)
	_, err = h.properties.Publish(h.ctx, landlord, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.Publish(h.ctx, ev, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.PropertyApproved, h.propertyStatus(t, a.ID))

	// approved listings are public
	_, err = h.properties.Get(h.ctx, tenant, a.ID)
	assert.NoError(t, err)
}

func TestUpdateValidatesAfterState(t *testing.T) {
	h := newHarness(t)
	landlord := h.user(t, domain.RoleLandlord)
	p := h.pending(t, landlord)

	in := listingInput()
	in.Rent = 0
	_, err := h.properties.Update(h.ctx, landlord, p.ID, in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rent", verr.Fields[0].Field)

	in = listingInput()
	in.Title = "Renovated 2BR"
	p, err = h.properties.Update(h.ctx, landlord, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renovated 2BR", p.Title)
}

func TestSearchServesActiveListingsAndRefreshesOnPublish(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)

	first := h.active(t, admin, landlord, ev)
	h.approved(t, admin, landlord, ev)
	h.pending(t, landlord)

	got, err := h.properties.Search(h.ctx, SearchQuery{City: "nairobi"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	second := h.approved(t, admin, landlord, ev)
	_, err = h.properties.Publish(h.ctx, admin, second.ID)
	require.NoError(t, err)

	got, err = h.properties.Search(h.ctx, SearchQuery{City: "nairobi"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = h.properties.Search(h.ctx, SearchQuery{MinBedrooms: 3})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = h.properties.Search(h.ctx, SearchQuery{MinRent: 500, MaxRent: 100})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAutoPublishPromotesApprovedListings(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	a := h.approved(t, admin, landlord, ev)
	b := h.approved(t, admin, landlord, ev)
	pending := h.pending(t, landlord)

	n, err := h.properties.AutoPublish(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.PropertyActive, h.propertyStatus(t, a.ID))
	assert.Equal(t, domain.PropertyActive, h.propertyStatus(t, b.ID))
	assert.Equal(t, domain.PropertyPending, h.propertyStatus(t, pending.ID))

	n, err = h.properties.AutoPublish(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEvaluatorListings(t *testing.T) {
	h := newHarness(t)
	admin, landlord, ev := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord), h.user(t, domain.RoleEvaluator)
	h.awaiting(t, admin, landlord, ev)
	h.approved(t, admin, landlord, ev)
	r := h.awaiting(t, admin, landlord, ev)
	_, err := h.properties.Reject(h.ctx, ev, r.ID, "unsafe wiring")
	require.NoError(t, err)

	assignments, err := h.properties.ListAssignments(h.ctx, ev)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)

	inspected, err := h.properties.ListInspected(h.ctx, ev)
	require.NoError(t, err)
	assert.Len(t, inspected, 2)

	all, err := h.properties.ListAll(h.ctx, ev, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := h.properties.ListMine(h.ctx, landlord)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = h.properties.ListAll(h.ctx, landlord, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.properties.ListAll(h.ctx, admin, "bogus")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUnitNumbersAreUniquePerProperty(t *testing.T) {
	h := newHarness(t)
	landlord := h.user(t, domain.RoleLandlord)
	p := h.pending(t, landlord)
	q := h.pending(t, landlord)

	in := UnitInput{UnitNumber: "A1", Bedrooms: 1, Bathrooms: 1, Rent: 30000}
	u, err := h.properties.AddUnit(h.ctx, landlord, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, u.Status)

	_, err = h.properties.AddUnit(h.ctx, landlord, p.ID, in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unitNumber", verr.Fields[0].Field)

	_, err = h.properties.AddUnit(h.ctx, landlord, q.ID, in)
	require.NoError(t, err)

	b, err := h.properties.AddUnit(h.ctx, landlord, p.ID, UnitInput{UnitNumber: "B2", Bedrooms: 2, Bathrooms: 1, Rent: 45000})
	require.NoError(t, err)
	_, err = h.properties.UpdateUnit(h.ctx, landlord, p.ID, b.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in.UnitNumber = "B3"
	in.Status = string(domain.UnitOccupied)
	updated, err := h.properties.UpdateUnit(h.ctx, landlord, p.ID, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitOccupied, updated.Status)

	_, err = h.properties.UpdateUnit(h.ctx, landlord, q.ID, b.ID, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	units, err := h.properties.ListUnits(h.ctx, landlord, p.ID)
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestConcurrentAssignmentHasOneWinnerPerVersion(t *testing.T) {
	h := newHarness(t)
	admin, landlord := h.user(t, domain.RoleAdmin), h.user(t, domain.RoleLandlord)
	p := h.pending(t, landlord)

	evaluators := make([]*domain.User, 8)
	for i := range evaluators {
		evaluators[i] = h.user(t, domain.RoleEvaluator)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(evaluators))
	for i, ev := range evaluators {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = h.properties.AssignEvaluator(h.ctx, admin, p.ID, id)
		}(i, ev.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	require.GreaterOrEqual(t, succeeded, 1)

	final, err := h.store.Properties().GetByID(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyAwaitingEvaluation, final.Status)
	// every successful write bumped the version exactly once
	assert.Equal(t, int64(1+succeeded), final.RowVersion)
}
