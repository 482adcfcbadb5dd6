package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/services"
)

func staffID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

func requestStatusFilter(r *http.Request, fallback models.RequestStatus) models.RequestStatus {
	if raw := r.URL.Query().Get("status"); raw != "" {
		return models.RequestStatus(raw)
	}
	return fallback
}

func (h *Handler) ListWithdrawalRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	rows, err := h.withdrawals.ListByStatus(r.Context(), requestStatusFilter(r, models.RequestPendingAccountant), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load requests")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AccountantApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	if err := h.withdrawalSvc.AccountantApprove(r.Context(), chi.URLParam(r, "id"), reviewerID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestPendingAdminFinal)})
}

func (h *Handler) AdminApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	if err := h.withdrawalSvc.AdminApprove(r.Context(), chi.URLParam(r, "id"), reviewerID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestPaid)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.withdrawalSvc.Reject(r.Context(), chi.URLParam(r, "id"), reviewerID, req.Reason); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestRejected)})
}

func (h *Handler) ListDepositRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	rows, err := h.deposits.ListByStatus(r.Context(), requestStatusFilter(r, models.RequestPendingAccountant), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load requests")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AccountantApproveDeposit(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	if err := h.depositSvc.AccountantApprove(r.Context(), chi.URLParam(r, "id"), reviewerID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestPendingAdminFinal)})
}

func (h *Handler) AdminApproveDeposit(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	if err := h.depositSvc.AdminApprove(r.Context(), chi.URLParam(r, "id"), reviewerID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestApproved)})
}

func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.depositSvc.Reject(r.Context(), chi.URLParam(r, "id"), reviewerID, req.Reason); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.RequestRejected)})
}

type submitBatchRequest struct {
	PeriodType  string  `json:"period_type"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	TotalProfit string  `json:"total_profit"`
	EvidenceURL *string `json:"evidence_url"`
	Comments    *string `json:"comments"`
}

func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	accountantID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	periodStart, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid period_start")
		return
	}
	periodEnd, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid period_end")
		return
	}
	if periodEnd.Before(periodStart) {
		respondError(w, http.StatusBadRequest, "period_end before period_start")
		return
	}
	batch, err := h.profitSvc.SubmitBatch(r.Context(), services.SubmitBatchRequest{
		AccountantID: accountantID,
		PeriodType:   req.PeriodType,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		TotalProfit:  req.TotalProfit,
		EvidenceURL:  req.EvidenceURL,
		Comments:     req.Comments,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, batch)
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	status := models.BatchPendingAdminFinal
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = models.BatchStatus(raw)
	}
	rows, err := h.batches.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load batches")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	batch, err := h.batches.GetByID(r.Context(), h.db, batchID)
	if err != nil {
		respondError(w, http.StatusNotFound, "batch not found")
		return
	}
	allocations, err := h.batches.ListAllocations(r.Context(), batchID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load allocations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"batch":       batch,
		"allocations": allocations,
	})
}

func (h *Handler) FinalizeBatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := staffID(w, r)
	if !ok {
		return
	}
	if err := h.profitSvc.FinalizeBatch(r.Context(), chi.URLParam(r, "id"), adminID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.BatchFinalized)})
}

func (h *Handler) RejectBatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.profitSvc.RejectBatch(r.Context(), chi.URLParam(r, "id"), adminID, req.Reason); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.BatchRejected)})
}

type referralRatesRequest struct {
	Rates []struct {
		Level int    `json:"level"`
		Rate  string `json:"rate"`
	} `json:"rates"`
}

func (h *Handler) SetReferralRates(w http.ResponseWriter, r *http.Request) {
	adminID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req referralRatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Rates) == 0 {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	parsed := make(map[int]decimal.Decimal, len(req.Rates))
	for _, entry := range req.Rates {
		rate, err := decimal.NewFromString(entry.Rate)
		if err != nil || rate.IsNegative() || entry.Level < 1 {
			respondError(w, http.StatusBadRequest, "invalid rate entry")
			return
		}
		parsed[entry.Level] = rate
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		for level, rate := range parsed {
			if err := h.referrals.UpsertRate(r.Context(), tx, level, rate, adminID); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]int{"levels": len(parsed)})
		return h.audit.Log(r.Context(), tx, adminID, "referral_rates_updated", "referral_rates", adminID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update rates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) ListReferralRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.referrals.Rates(r.Context(), h.db)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load rates")
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

type reviewKYCRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := staffID(w, r)
	if !ok {
		return
	}
	targetUserID := chi.URLParam(r, "userID")
	var req reviewKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Status != models.KYCStatusApproved && req.Status != models.KYCStatusRejected {
		respondError(w, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.kyc.Create(r.Context(), tx, models.KYCRecord{
			ID:         uuid.NewString(),
			UserID:     targetUserID,
			Status:     req.Status,
			ReviewedBy: &reviewerID,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"status": req.Status})
		return h.audit.Log(r.Context(), tx, reviewerID, "kyc_reviewed", "user", targetUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record review")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type createPlanRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ROIValue string `json:"roi_value"`
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	adminID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Type != models.PlanTypeFixed && req.Type != models.PlanTypeVariable && req.Type != models.PlanTypeAdminManual {
		respondError(w, http.StatusBadRequest, "unknown plan type")
		return
	}
	roi, err := decimal.NewFromString(req.ROIValue)
	if err != nil || roi.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid roi_value")
		return
	}
	plan := models.InvestmentPlan{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Type:     req.Type,
		ROIValue: roi,
		IsActive: true,
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.plans.Create(r.Context(), tx, plan); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": plan.Name, "type": plan.Type})
		return h.audit.Log(r.Context(), tx, adminID, "plan_created", "investment_plan", plan.ID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create plan")
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

type grantRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	adminID, ok := staffID(w, r)
	if !ok {
		return
	}
	var req grantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Role != models.RoleAccountant && req.Role != models.RoleAdmin {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.staff.GrantRole(r.Context(), tx, req.UserID, req.Role, &adminID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"role": req.Role})
		return h.audit.Log(r.Context(), tx, adminID, "role_granted", "user", req.UserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// Reconcile runs the weekly audit on demand.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	found, err := h.profitSvc.RunWeeklyAudit(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"discrepancies": found})
}

func (h *Handler) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	rows, err := h.audit.ListDiscrepancies(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load discrepancies")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
