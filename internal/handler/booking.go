package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/service"
)

// LeaseHandler serves bookings, agreements and maintenance tickets
type LeaseHandler struct {
	bookings    *service.BookingService
	agreements  *service.AgreementService
	maintenance *service.MaintenanceService
	logger      *slog.Logger
}

// NewLeaseHandler creates a new lease handler
func NewLeaseHandler(
	bookings *service.BookingService,
	agreements *service.AgreementService,
	maintenance *service.MaintenanceService,
	logger *slog.Logger,
) *LeaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaseHandler{bookings: bookings, agreements: agreements, maintenance: maintenance, logger: logger}
}

// BookingRequest asks for a viewing
type BookingRequest struct {
	PropertyID  string    `json:"propertyId"`
	ViewingDate time.Time `json:"viewingDate"`
}

// AgreementRequest drafts an agreement directly with a tenant
type AgreementRequest struct {
	PropertyID string `json:"propertyId"`
	TenantID   string `json:"tenantId"`
	service.AgreementInput
}

func (h *LeaseHandler) reply(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, v)
}

// CreateBooking handles POST /api/bookings
func (h *LeaseHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.PropertyID == "" {
		writeError(w, r, h.logger, domain.NewValidationError("propertyId", "is required"))
		return
	}
	b, err := h.bookings.Create(r.Context(), actor(r), req.PropertyID, req.ViewingDate)
	h.reply(w, r, http.StatusCreated, b, err)
}

// ListBookings handles GET /api/bookings
func (h *LeaseHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListForActor(r.Context(), actor(r))
	h.reply(w, r, http.StatusOK, list, err)
}

// GetBooking handles GET /api/bookings/{id}
func (h *LeaseHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, b, err)
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm
func (h *LeaseHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Confirm(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, b, err)
}

// CompleteBooking handles POST /api/bookings/{id}/complete
func (h *LeaseHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Complete(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, b, err)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *LeaseHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Cancel(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, b, err)
}

// ConvertBooking handles POST /api/bookings/{id}/convert
func (h *LeaseHandler) ConvertBooking(w http.ResponseWriter, r *http.Request) {
	var in service.AgreementInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.bookings.ConvertToAgreement(r.Context(), actor(r), r.PathValue("id"), in)
	h.reply(w, r, http.StatusCreated, a, err)
}

// CreateAgreement handles POST /api/agreements
func (h *LeaseHandler) CreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req AgreementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	a, err := h.agreements.Create(r.Context(), actor(r), req.PropertyID, req.TenantID, req.AgreementInput)
	h.reply(w, r, http.StatusCreated, a, err)
}

// ListAgreements handles GET /api/agreements
func (h *LeaseHandler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	list, err := h.agreements.ListForActor(r.Context(), actor(r))
	h.reply(w, r, http.StatusOK, list, err)
}

// GetAgreement handles GET /api/agreements/{id}
func (h *LeaseHandler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.Get(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, a, err)
}

// SignAgreement handles POST /api/agreements/{id}/sign
func (h *LeaseHandler) SignAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := h.agreements.Sign(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, a, err)
}

// CreateMaintenance handles POST /api/maintenance
func (h *LeaseHandler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var in service.MaintenanceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m, err := h.maintenance.Create(r.Context(), actor(r), in)
	h.reply(w, r, http.StatusCreated, m, err)
}

// ListMaintenance handles GET /api/maintenance
func (h *LeaseHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	list, err := h.maintenance.ListForActor(r.Context(), actor(r))
	h.reply(w, r, http.StatusOK, list, err)
}

// GetMaintenance handles GET /api/maintenance/{id}
func (h *LeaseHandler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.maintenance.Get(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, m, err)
}

// StartMaintenance handles POST /api/maintenance/{id}/start
func (h *LeaseHandler) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.maintenance.Start(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, m, err)
}

// CompleteMaintenance handles POST /api/maintenance/{id}/complete
func (h *LeaseHandler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.maintenance.Complete(r.Context(), actor(r), r.PathValue("id"))
	h.reply(w, r, http.StatusOK, m, err)
}
