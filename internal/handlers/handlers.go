package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"invest/internal/db"
	"invest/internal/money"
	"invest/internal/services"
	"invest/internal/walletlock"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the three service error classes onto HTTP
// responses: validation failures carry every reason, conflicts tell the
// client to refresh, infrastructure faults get a generic retry-later.
func respondServiceError(w http.ResponseWriter, err error) {
	if ve, ok := services.AsValidation(err); ok {
		respondJSON(w, http.StatusBadRequest, map[string]any{"errors": ve.Reasons})
		return
	}
	switch {
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, money.ErrTooManyDecimals),
		errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrRejectReasonRequired),
		errors.Is(err, services.ErrAmountMismatch), errors.Is(err, services.ErrPlanInactive):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOTPNotFound), errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrOTPExpired), errors.Is(err, services.ErrOTPExhausted):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrRequestNotFound), errors.Is(err, services.ErrBatchNotFound),
		errors.Is(err, services.ErrPlanNotFound), errors.Is(err, services.ErrPositionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrStaleStatus):
		respondError(w, http.StatusConflict, services.ErrStaleStatus.Error())
	case db.IsUniqueViolation(err):
		respondError(w, http.StatusConflict, "already processed, refresh")
	case errors.Is(err, walletlock.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, "wallet is busy, please retry")
	default:
		respondError(w, http.StatusInternalServerError, "temporary error, please try again later")
	}
}
