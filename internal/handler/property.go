package handler

import (
	"log/slog"
	"net/http"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/service"
)

// PropertyHandler serves listings, evaluations and units
type PropertyHandler struct {
	properties *service.PropertyService
	logger     *slog.Logger
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(properties *service.PropertyService, logger *slog.Logger) *PropertyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyHandler{properties: properties, logger: logger}
}

// AssignRequest names the evaluator to inspect a property
type AssignRequest struct {
	EvaluatorID string `json:"evaluatorId"`
}

// RejectRequest carries the rejection reason
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (h *PropertyHandler) reply(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, v)
}

// Create handles POST /api/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.PropertyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.properties.Create(r.Context(), actor(r), in)
	h.reply(w, r, http.StatusCreated, p, err)
}

// List handles GET /api/properties. Admins and evaluators see every property,
// optionally filtered by ?status=; landlords see their own.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	u := actor(r)
	var (
		list []*domain.Property
		err  error
	)
	if u.Role == domain.RoleAdmin || u.Role == domain.RoleEvaluator {
		list, err = h.properties.ListAll(r.Context(), u, r.URL.Query().Get("status"))
	} else {
		list, err = h.properties.ListMine(r.Context(), u)
	}
	h.reply(w, r, http.StatusOK, list, err)
}

// Get handles GET /api/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.properties.Get(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, p, err)
}

// Update handles PUT /api/properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.PropertyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.properties.Update(r.Context(), actor(r), r.PathValue("id"), in)
	h.reply(w, r, http.StatusOK, p, err)
}

// Assign handles POST /api/properties/{id}/assign
func (h *PropertyHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.properties.AssignEvaluator(r.Context(), actor(r), r.PathValue("id"), req.EvaluatorID)
	h.reply(w, r, http.StatusOK, p, err)
}

// Approve handles POST /api/properties/{id}/approve
func (h *PropertyHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var in service.ApprovalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.properties.Approve(r.Context(), actor(r), r.PathValue("id"), in)
	h.reply(w, r, http.StatusOK, p, err)
}

// Reject handles POST /api/properties/{id}/reject
func (h *PropertyHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.properties.Reject(r.Context(), actor(r), r.PathValue("id"), req.Reason)
	h.reply(w, r, http.StatusOK, p, err)
}

// Publish handles POST /api/properties/{id}/publish
func (h *PropertyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	p, err := h.properties.Publish(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, p, err)
}

// Assignments handles GET /api/evaluations/assignments
func (h *PropertyHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	list, err := h.properties.ListAssignments(r.Context(), actor(r))
	h.reply(w, r, http.StatusOK, list, err)
}

// Inspected handles GET /api/evaluations/inspected
func (h *PropertyHandler) Inspected(w http.ResponseWriter, r *http.Request) {
	list, err := h.properties.ListInspected(r.Context(), actor(r))
	h.reply(w, r, http.StatusOK, list, err)
}

// Search handles the public GET /api/properties/search
func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := service.SearchQuery{City: r.URL.Query().Get("city")}
	var err error
	for key, dst := range map[string]*int{
		"minRent":     &q.MinRent,
		"maxRent":     &q.MaxRent,
		"minBedrooms": &q.MinBedrooms,
		"limit":       &q.Limit,
	} {
		if *dst, err = queryInt(r, key); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	list, err := h.properties.Search(r.Context(), q)
	h.reply(w, r, http.StatusOK, list, err)
}

// ListUnits handles GET /api/properties/{id}/units
func (h *PropertyHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.properties.ListUnits(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, units, err)
}

// AddUnit handles POST /api/properties/{id}/units
func (h *PropertyHandler) AddUnit(w http.ResponseWriter, r *http.Request) {
	var in service.UnitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.properties.AddUnit(r.Context(), actor(r), r.PathValue("id"), in)
	h.reply(w, r, http.StatusCreated, u, err)
}

// UpdateUnit handles PUT /api/properties/{id}/units/{unitId}
func (h *PropertyHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	var in service.UnitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.properties.UpdateUnit(r.Context(), actor(r), r.PathValue("id"), r.PathValue("unitId"), in)
	h.reply(w, r, http.StatusOK, u, err)
}
