package store

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

type WithdrawalStore struct {
	db DB
}

func NewWithdrawalStore(db DB) *WithdrawalStore {
	return &WithdrawalStore{db: db}
}

func (s *WithdrawalStore) Create(ctx context.Context, tx Execer, request models.WithdrawalRequest) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, method, amount, status)
		VALUES ($1, $2, $3, $4, $5)
	`, request.ID, request.UserID, request.Method, request.Amount, request.Status)
	return err
}

func (s *WithdrawalStore) GetByID(ctx context.Context, q Getter, requestID string) (models.WithdrawalRequest, error) {
	var row models.WithdrawalRequest
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, method, amount, status, accountant_id, admin_id, reject_reason, created_at, updated_at
		FROM withdrawal_requests
		WHERE id = $1
	`, requestID)
	return row, err
}

// Transition advances a request from an expected status to the next one. The
// WHERE clause re-checks the current status so a concurrent reviewer loses
// cleanly: zero rows affected means someone else already acted.
func (s *WithdrawalStore) Transition(ctx context.Context, tx Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1,
		    accountant_id = COALESCE($2, accountant_id),
		    admin_id = COALESCE($3, admin_id),
		    reject_reason = COALESCE($4, reject_reason),
		    updated_at = now()
		WHERE id = $5 AND status = $6
	`, to, accountantID, adminID, rejectReason, requestID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumForDay totals a user's withdrawal requests created on the given UTC day,
// excluding rejected ones, for the daily-limit check.
func (s *WithdrawalStore) SumForDay(ctx context.Context, q Getter, userID string, day string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE user_id = $1
		  AND status <> 'REJECTED'
		  AND date_trunc('day', created_at AT TIME ZONE 'UTC') = $2::date
	`, userID, day)
	return sum, err
}

func (s *WithdrawalStore) ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.WithdrawalRequest, error) {
	var rows []models.WithdrawalRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, method, amount, status, accountant_id, admin_id, reject_reason, created_at, updated_at
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return rows, err
}
