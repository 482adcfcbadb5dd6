package handlers

import (
	"encoding/json"
	"net/http"

	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/services"
	"invest/internal/validator"
)

func (h *Handler) RequestWithdrawalOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r, models.OTPPurposeWithdrawal)
}

func (h *Handler) RequestDepositOTP(w http.ResponseWriter, r *http.Request) {
	h.issueOTP(w, r, models.OTPPurposeMobileDeposit)
}

func (h *Handler) issueOTP(w http.ResponseWriter, r *http.Request, purpose string) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.otp.Issue(r.Context(), userID, purpose); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type createWithdrawalRequest struct {
	Method  string `json:"method"`
	Amount  string `json:"amount"`
	OTPCode string `json:"otp_code"`
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateOTPCode(req.OTPCode); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	request, err := h.withdrawalSvc.Create(r.Context(), services.CreateWithdrawalRequest{
		UserID:  userID,
		Method:  req.Method,
		Amount:  req.Amount,
		OTPCode: req.OTPCode,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, request)
}

type createDepositRequest struct {
	Method            string  `json:"method"`
	Amount            string  `json:"amount"`
	OTPCode           string  `json:"otp_code"`
	ExternalReference *string `json:"external_reference"`
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	request, err := h.depositSvc.Create(r.Context(), services.CreateDepositRequest{
		UserID:            userID,
		Method:            req.Method,
		Amount:            req.Amount,
		OTPCode:           req.OTPCode,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, request)
}
