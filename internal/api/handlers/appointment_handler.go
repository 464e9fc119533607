package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careloop/appointment-engine/internal/api/middleware"
	"github.com/careloop/appointment-engine/internal/api/pagination"
	"github.com/careloop/appointment-engine/internal/application/services"
	"github.com/careloop/appointment-engine/internal/domain/entities"
)

// AppointmentHandler handles appointment lifecycle HTTP requests
type AppointmentHandler struct {
	bookingService      *services.BookingService
	rescheduleService   *services.RescheduleService
	cancellationService *services.CancellationService
	queryService        *services.ScheduleQueryService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(
	bookingService *services.BookingService,
	rescheduleService *services.RescheduleService,
	cancellationService *services.CancellationService,
	queryService *services.ScheduleQueryService,
) *AppointmentHandler {
	return &AppointmentHandler{
		bookingService:      bookingService,
		rescheduleService:   rescheduleService,
		cancellationService: cancellationService,
		queryService:        queryService,
	}
}

type bookAppointmentRequest struct {
	Availability string `json:"availability"`
	Note         string `json:"note"`
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil || caller.Role != entities.RolePatient {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Availability == "" {
		respondWithError(w, http.StatusBadRequest, "availability is required")
		return
	}

	appointment, err := h.bookingService.Commit(r.Context(), caller.ID, caller.ID, req.Availability, req.Note)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, err := pagination.FromRequest(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.queryService.ListAppointments(r.Context(), caller, page)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, pagination.Wrap(r, page, result.Total, result.Items))
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointmentID := r.PathValue("id")
	if appointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	appointment, err := h.queryService.GetAppointment(r.Context(), caller, appointmentID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

type rescheduleRequest struct {
	NewAvailabilityID string `json:"new_availability_id"`
}

// RescheduleAppointment handles POST /api/appointments/{id}/reschedule
func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointmentID := r.PathValue("id")
	if appointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewAvailabilityID == "" {
		respondWithError(w, http.StatusBadRequest, "new_availability_id is required")
		return
	}

	// Visibility check first: patients can only act on their own
	// appointments, and must not learn whether others exist.
	if _, err := h.queryService.GetAppointment(r.Context(), caller, appointmentID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	successor, err := h.rescheduleService.Reschedule(r.Context(), appointmentID, req.NewAvailabilityID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, successor)
}

// CancelAppointment handles POST /api/appointments/{id}/cancel
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	appointmentID := r.PathValue("id")
	if appointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	if _, err := h.queryService.GetAppointment(r.Context(), caller, appointmentID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointment, err := h.cancellationService.Cancel(r.Context(), appointmentID, caller)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}
