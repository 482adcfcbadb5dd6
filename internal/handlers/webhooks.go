package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"invest/internal/money"
)

type depositWebhookRequest struct {
	ExternalReference string `json:"external_reference"`
	Amount            string `json:"amount"`
}

// DepositWebhook settles a deposit confirmed by the payment provider.
// Provider-confirmed deposits skip the two-stage review queue.
func (h *Handler) DepositWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.WebhookSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req depositWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExternalReference == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if err := h.depositSvc.HandleProviderEvent(r.Context(), req.ExternalReference, amount); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}
