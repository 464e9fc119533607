package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/careloop/appointment-engine/internal/api/middleware"
	"github.com/careloop/appointment-engine/internal/api/pagination"
	"github.com/careloop/appointment-engine/internal/application/services"
	"github.com/careloop/appointment-engine/internal/domain/entities"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// AvailabilityHandler handles provider calendar HTTP requests
type AvailabilityHandler struct {
	availabilityService *services.AvailabilityService
	queryService        *services.ScheduleQueryService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availabilityService *services.AvailabilityService, queryService *services.ScheduleQueryService) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityService: availabilityService,
		queryService:        queryService,
	}
}

type createSlotsRequest struct {
	Date       string   `json:"date"`
	StartTimes []string `json:"start_times"`
	SlotType   string   `json:"slot_type"`
}

// CreateSlots handles POST /api/providers/{id}/availability
func (h *AvailabilityHandler) CreateSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil || caller.Role != entities.RoleProvider || caller.ID != providerID {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slots, problems, err := h.availabilityService.CreateSlots(r.Context(), providerID, req.Date, req.StartTimes, entities.SlotType(req.SlotType))
	if err != nil {
		if len(problems) > 0 {
			status := http.StatusBadRequest
			message := "some requested start times are not offerable"
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				status = http.StatusConflict
				message = "some requested slots overlap the provider's calendar"
			}
			respondWithJSON(w, status, map[string]interface{}{
				"created": false,
				"message": message,
				"errors":  problems,
			})
			return
		}
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"created": true,
		"message": fmt.Sprintf("created %d slots", len(slots)),
		"results": slots,
	})
}

// ListSlots handles GET /api/providers/{id}/availability
func (h *AvailabilityHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	page, err := pagination.FromRequest(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.queryService.ListProviderAvailability(r.Context(), providerID, page)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, pagination.Wrap(r, page, result.Total, result.Items))
}

// DeleteSlot handles DELETE /api/availability/{id}
func (h *AvailabilityHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("id")
	if slotID == "" {
		respondWithError(w, http.StatusBadRequest, "availability ID is required")
		return
	}

	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil || caller.Role != entities.RoleProvider {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.availabilityService.DeleteSlot(r.Context(), slotID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "availability deleted"})
}

// GetSlotCandidates handles GET /api/providers/{id}/slots
func (h *AvailabilityHandler) GetSlotCandidates(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		respondWithError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	candidates, err := h.availabilityService.Candidates(date)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []services.SlotCandidate{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"slots": candidates,
	})
}
