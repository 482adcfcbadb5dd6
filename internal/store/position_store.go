package store

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

type PositionStore struct {
	db DB
}

func NewPositionStore(db DB) *PositionStore {
	return &PositionStore{db: db}
}

func (s *PositionStore) Create(ctx context.Context, tx Execer, position models.InvestmentPosition) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO investment_positions (id, user_id, plan_id, invested_amount, status, total_profit_paid)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, position.ID, position.UserID, position.PlanID, position.InvestedAmount, position.Status, position.TotalProfitPaid)
	return err
}

func (s *PositionStore) GetByID(ctx context.Context, q Getter, positionID string) (models.InvestmentPosition, error) {
	var row models.InvestmentPosition
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, plan_id, invested_amount, status, total_profit_paid, created_at, updated_at
		FROM investment_positions
		WHERE id = $1
	`, positionID)
	return row, err
}

func (s *PositionStore) ListByUser(ctx context.Context, userID string) ([]models.InvestmentPosition, error) {
	var rows []models.InvestmentPosition
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, plan_id, invested_amount, status, total_profit_paid, created_at, updated_at
		FROM investment_positions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return rows, err
}

// ListActiveChunk pages through ACTIVE positions in stable id order so the
// daily job can process them in fixed-size chunks.
func (s *PositionStore) ListActiveChunk(ctx context.Context, afterID string, limit int) ([]models.InvestmentPosition, error) {
	var rows []models.InvestmentPosition
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, plan_id, invested_amount, status, total_profit_paid, created_at, updated_at
		FROM investment_positions
		WHERE status = 'ACTIVE' AND id > $1
		ORDER BY id
		LIMIT $2
	`, afterID, limit)
	return rows, err
}

// AddProfitPaid increments the monotonic total_profit_paid counter. The
// guard keeps it from ever going backwards.
func (s *PositionStore) AddProfitPaid(ctx context.Context, tx Execer, positionID string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE investment_positions
		SET total_profit_paid = total_profit_paid + $1, updated_at = now()
		WHERE id = $2 AND $1 >= 0
	`, amount, positionID)
	return err
}

func (s *PositionStore) UpdateStatus(ctx context.Context, tx Execer, positionID, from, to string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE investment_positions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, positionID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UserInvestmentSum struct {
	UserID string          `db:"user_id"`
	Total  decimal.Decimal `db:"total"`
}

// SumActiveByUser returns, for every user with a positive ACTIVE investment
// sum, that sum. Batch finalization allocates pro rata over this set.
func (s *PositionStore) SumActiveByUser(ctx context.Context, q Selecter) ([]UserInvestmentSum, error) {
	var rows []UserInvestmentSum
	err := q.SelectContext(ctx, &rows, `
		SELECT user_id, SUM(invested_amount) AS total
		FROM investment_positions
		WHERE status = 'ACTIVE'
		GROUP BY user_id
		HAVING SUM(invested_amount) > 0
		ORDER BY user_id
	`)
	return rows, err
}
