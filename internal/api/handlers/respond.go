package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP statuses and
// forwards structured details so the UI can explain conflicts without
// another round trip.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeAlreadyBooked, apperrors.ErrorTypeInvalidState:
		status = http.StatusConflict
	case apperrors.ErrorTypePolicyViolation:
		status = http.StatusUnprocessableEntity
	case apperrors.ErrorTypeExternal:
		status = http.StatusBadGateway
	case apperrors.ErrorTypeTransientIO:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(appErr).Str("error_type", string(appErr.Type)).Msg("request failed")
	}

	body := map[string]interface{}{
		"error": appErr.Message,
		"type":  appErr.Type,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	respondWithJSON(w, status, body)
}
