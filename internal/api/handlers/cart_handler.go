package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careloop/appointment-engine/internal/api/middleware"
	"github.com/careloop/appointment-engine/internal/application/services"
	"github.com/careloop/appointment-engine/internal/domain/entities"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// CartHandler handles reservation cart HTTP requests. The cart is
// keyed by the authenticated principal, one cart per session.
type CartHandler struct {
	cartService    *services.CartService
	bookingService *services.BookingService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *services.CartService, bookingService *services.BookingService) *CartHandler {
	return &CartHandler{
		cartService:    cartService,
		bookingService: bookingService,
	}
}

type addCartLineRequest struct {
	AvailabilityID string `json:"availability_id"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.patient(w, r)
	if !ok {
		return
	}

	lines := h.cartService.Lines(caller.ID)
	if lines == nil {
		lines = []entities.CartLine{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// AddLine handles POST /api/cart
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.patient(w, r)
	if !ok {
		return
	}

	var req addCartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AvailabilityID == "" {
		respondWithError(w, http.StatusBadRequest, "availability_id is required")
		return
	}

	if err := h.cartService.Add(r.Context(), caller.ID, req.AvailabilityID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "slot staged"})
}

// RemoveLine handles DELETE /api/cart/{availabilityId}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.patient(w, r)
	if !ok {
		return
	}

	availabilityID := r.PathValue("availabilityId")
	if availabilityID == "" {
		respondWithError(w, http.StatusBadRequest, "availability ID is required")
		return
	}

	h.cartService.Remove(caller.ID, availabilityID)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "slot removed"})
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.patient(w, r)
	if !ok {
		return
	}

	h.cartService.Clear(caller.ID)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// Checkout handles POST /api/cart/checkout. Each staged line is
// committed independently; the response reports per-line outcomes so a
// partially successful checkout is visible to the client.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.patient(w, r)
	if !ok {
		return
	}

	results := h.bookingService.Checkout(r.Context(), caller.ID, caller.ID)
	if len(results) == 0 {
		respondWithError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	booked := make([]interface{}, 0, len(results))
	failed := make([]interface{}, 0)
	for _, result := range results {
		if result.Err != nil {
			entry := map[string]interface{}{
				"availability_id": result.AvailabilityID,
				"error":           result.Err.Error(),
			}
			if appErr, ok := result.Err.(*apperrors.AppError); ok {
				entry["error"] = appErr.Message
				entry["type"] = appErr.Type
			}
			failed = append(failed, entry)
			continue
		}
		booked = append(booked, result.Appointment)
	}

	status := http.StatusCreated
	if len(booked) == 0 {
		status = http.StatusConflict
	} else if len(failed) > 0 {
		status = http.StatusMultiStatus
	}

	respondWithJSON(w, status, map[string]interface{}{
		"booked": booked,
		"failed": failed,
	})
}

func (h *CartHandler) patient(w http.ResponseWriter, r *http.Request) (*entities.Principal, bool) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil || caller.Role != entities.RolePatient {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return caller, true
}
