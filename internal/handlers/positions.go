package handlers

import (
	"encoding/json"
	"net/http"

	"invest/internal/middleware"
	"invest/internal/money"
	"invest/internal/services"
)

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load plans")
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	positions, err := h.positions.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load positions")
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

type subscribeRequest struct {
	PlanID string `json:"plan_id"`
	Amount string `json:"amount"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	position, err := h.investmentSvc.Subscribe(r.Context(), services.SubscribeRequest{
		UserID: userID,
		PlanID: req.PlanID,
		Amount: req.Amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, position)
}

func (h *Handler) ReferralEarnings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := paginate(r)
	total, err := h.referrals.SumEarnings(r.Context(), h.db, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load earnings")
		return
	}
	rows, err := h.referrals.ListEarnings(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load earnings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":    money.Format(total),
		"earnings": rows,
	})
}
