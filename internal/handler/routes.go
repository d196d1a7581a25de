package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router bundles the endpoint handlers and the per-route middleware
type Router struct {
	Auth          *AuthHandler
	Properties    *PropertyHandler
	Leases        *LeaseHandler
	Notifications *NotificationHandler
	Health        *HealthHandler

	// Authenticate resolves the bearer token to a user
	Authenticate func(http.Handler) http.Handler
	// Limit throttles callers; nil disables rate limiting
	Limit func(http.Handler) http.Handler
}

// Mux registers every route on a new ServeMux
func (rt Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	limit := rt.Limit
	if limit == nil {
		limit = func(h http.Handler) http.Handler { return h }
	}
	public := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, limit(fn))
	}
	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, rt.Authenticate(limit(fn)))
	}

	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("GET /readyz", rt.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	public("POST /api/auth/register", rt.Auth.Register)
	public("POST /api/auth/login", rt.Auth.Login)
	public("GET /api/properties/search", rt.Properties.Search)

	private("POST /api/auth/change-password", rt.Auth.ChangePassword)
	private("GET /api/me", rt.Auth.Me)
	private("GET /api/users", rt.Auth.ListUsers)
	private("POST /api/users", rt.Auth.CreateUser)
	private("PUT /api/users/{id}/role", rt.Auth.ChangeRole)
	private("GET /api/admin/stats", rt.Auth.Stats)
	private("GET /api/dashboard", rt.Auth.Dashboard)

	private("POST /api/properties", rt.Properties.Create)
	private("GET /api/properties", rt.Properties.List)
	private("GET /api/properties/{id}", rt.Properties.Get)
	private("PUT /api/properties/{id}", rt.Properties.Update)
	private("POST /api/properties/{id}/assign", rt.Properties.Assign)
	private("POST /api/properties/{id}/approve", rt.Properties.Approve)
	private("POST /api/properties/{id}/reject", rt.Properties.Reject)
	private("POST /api/properties/{id}/publish", rt.Properties.Publish)
	private("GET /api/properties/{id}/units", rt.Properties.ListUnits)
	private("POST /api/properties/{id}/units", rt.Properties.AddUnit)
	private("PUT /api/properties/{id}/units/{unitId}", rt.Properties.UpdateUnit)
	private("GET /api/evaluations/assignments", rt.Properties.Assignments)
	private("GET /api/evaluations/inspected", rt.Properties.Inspected)

	private("POST /api/bookings", rt.Leases.CreateBooking)
	private("GET /api/bookings", rt.Leases.ListBookings)
	private("GET /api/bookings/{id}", rt.Leases.GetBooking)
	private("POST /api/bookings/{id}/confirm", rt.Leases.ConfirmBooking)
	private("POST /api/bookings/{id}/complete", rt.Leases.CompleteBooking)
	private("POST /api/bookings/{id}/cancel", rt.Leases.CancelBooking)
	private("POST /api/bookings/{id}/convert", rt.Leases.ConvertBooking)

	private("POST /api/agreements", rt.Leases.CreateAgreement)
	private("GET /api/agreements", rt.Leases.ListAgreements)
	private("GET /api/agreements/{id}", rt.Leases.GetAgreement)
	private("POST /api/agreements/{id}/sign", rt.Leases.SignAgreement)

	private("POST /api/maintenance", rt.Leases.CreateMaintenance)
	private("GET /api/maintenance", rt.Leases.ListMaintenance)
	private("GET /api/maintenance/{id}", rt.Leases.GetMaintenance)
	private("POST /api/maintenance/{id}/start", rt.Leases.StartMaintenance)
	private("POST /api/maintenance/{id}/complete", rt.Leases.CompleteMaintenance)

	private("GET /api/notifications", rt.Notifications.Recent)
	private("GET /ws/notifications", rt.Notifications.Stream)
	return mux
}
