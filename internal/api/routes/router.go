package routes

import (
	"net/http"

	"github.com/careloop/appointment-engine/internal/api/handlers"
	"github.com/careloop/appointment-engine/internal/api/middleware"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	availabilityHandler *handlers.AvailabilityHandler
	appointmentHandler  *handlers.AppointmentHandler
	cartHandler         *handlers.CartHandler

	verifier providers.TokenVerifier
	metrics  *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	availabilityHandler *handlers.AvailabilityHandler,
	appointmentHandler *handlers.AppointmentHandler,
	cartHandler *handlers.CartHandler,
	verifier providers.TokenVerifier,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		availabilityHandler: availabilityHandler,
		appointmentHandler:  appointmentHandler,
		cartHandler:         cartHandler,
		verifier:            verifier,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint, outside the authenticated surface
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Everything under /api/ requires a bearer token.
	api := http.NewServeMux()

	// Provider calendar endpoints
	api.HandleFunc("POST /api/providers/{id}/availability", r.availabilityHandler.CreateSlots)
	api.HandleFunc("GET /api/providers/{id}/availability", r.availabilityHandler.ListSlots)
	api.HandleFunc("GET /api/providers/{id}/slots", r.availabilityHandler.GetSlotCandidates)
	api.HandleFunc("DELETE /api/availability/{id}", r.availabilityHandler.DeleteSlot)

	// Appointment endpoints
	api.HandleFunc("POST /api/appointments", r.appointmentHandler.BookAppointment)
	api.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	api.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	api.HandleFunc("POST /api/appointments/{id}/reschedule", r.appointmentHandler.RescheduleAppointment)
	api.HandleFunc("POST /api/appointments/{id}/cancel", r.appointmentHandler.CancelAppointment)

	// Reservation cart endpoints
	api.HandleFunc("GET /api/cart", r.cartHandler.GetCart)
	api.HandleFunc("POST /api/cart", r.cartHandler.AddLine)
	api.HandleFunc("POST /api/cart/checkout", r.cartHandler.Checkout)
	api.HandleFunc("DELETE /api/cart", r.cartHandler.ClearCart)
	api.HandleFunc("DELETE /api/cart/{availabilityId}", r.cartHandler.RemoveLine)

	r.mux.Handle("/api/", middleware.AuthMiddleware(r.verifier)(api))

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
