package store

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

type BatchStore struct {
	db DB
}

func NewBatchStore(db DB) *BatchStore {
	return &BatchStore{db: db}
}

func (s *BatchStore) Create(ctx context.Context, tx Execer, batch models.ProfitBatch) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profit_batches (id, period_type, period_start, period_end, total_profit, status, submitted_by, evidence_url, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, batch.ID, batch.PeriodType, batch.PeriodStart, batch.PeriodEnd, batch.TotalProfit, batch.Status, batch.SubmittedBy, batch.EvidenceURL, batch.Comments)
	return err
}

func (s *BatchStore) GetByID(ctx context.Context, q Getter, batchID string) (models.ProfitBatch, error) {
	var row models.ProfitBatch
	err := q.GetContext(ctx, &row, `
		SELECT id, period_type, period_start, period_end, total_profit, status, submitted_by, finalized_by,
		       evidence_url, comments, reject_reason, total_investment_amount, recipient_count, created_at, updated_at
		FROM profit_batches
		WHERE id = $1
	`, batchID)
	return row, err
}

// Finalize flips a pending batch to FINALIZED and freezes the recipient and
// investment snapshots in the same statement. The snapshots are written once
// here and never recomputed. Zero rows affected is a conflict.
func (s *BatchStore) Finalize(ctx context.Context, tx Execer, batchID, adminID string, totalInvestment decimal.Decimal, recipientCount int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE profit_batches
		SET status = $1,
		    finalized_by = $2,
		    total_investment_amount = $3,
		    recipient_count = $4,
		    updated_at = now()
		WHERE id = $5 AND status = $6
	`, models.BatchFinalized, adminID, totalInvestment, recipientCount, batchID, models.BatchPendingAdminFinal)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BatchStore) Reject(ctx context.Context, tx Execer, batchID, adminID, reason string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE profit_batches
		SET status = $1, finalized_by = $2, reject_reason = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`, models.BatchRejected, adminID, reason, batchID, models.BatchPendingAdminFinal)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BatchStore) InsertAllocation(ctx context.Context, tx Execer, allocation models.ProfitAllocation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO profit_allocations (id, batch_id, user_id, amount)
		VALUES ($1, $2, $3, $4)
	`, allocation.ID, allocation.BatchID, allocation.UserID, allocation.Amount)
	return err
}

func (s *BatchStore) ListAllocations(ctx context.Context, batchID string) ([]models.ProfitAllocation, error) {
	var rows []models.ProfitAllocation
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, batch_id, user_id, amount, created_at
		FROM profit_allocations
		WHERE batch_id = $1
		ORDER BY user_id
	`, batchID)
	return rows, err
}

func (s *BatchStore) ListByStatus(ctx context.Context, status models.BatchStatus, limit, offset int) ([]models.ProfitBatch, error) {
	var rows []models.ProfitBatch
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, period_type, period_start, period_end, total_profit, status, submitted_by, finalized_by,
		       evidence_url, comments, reject_reason, total_investment_amount, recipient_count, created_at, updated_at
		FROM profit_batches
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return rows, err
}
