package store

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID        string
	UserID    string
	WalletID  *string
	Currency  string
	Type      string
	Status    string
	Amount    decimal.Decimal
	Reference *string
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, wallet_id, currency, type, status, amount, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.UserID, input.WalletID, input.Currency, input.Type, input.Status, input.Amount, input.Reference)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, q Getter, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_id, currency, type, status, amount, reference, created_at
		FROM transactions
		WHERE id = $1
	`, transactionID)
	return row, err
}

// GetByReference looks up a transaction by its idempotency reference.
func (s *TransactionStore) GetByReference(ctx context.Context, q Getter, reference string) (models.Transaction, error) {
	var row models.Transaction
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_id, currency, type, status, amount, reference, created_at
		FROM transactions
		WHERE reference = $1
	`, reference)
	return row, err
}

func (s *TransactionStore) UpdateStatus(ctx context.Context, tx Execer, transactionID, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, transactionID)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	query := `
		SELECT id, user_id, wallet_id, currency, type, status, amount, reference, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	if txType != "" {
		query += ` AND type = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, txType, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// SumSettledByWallet computes the expected post-settlement balance of a
// wallet from SUCCESS transactions: inflow types add, outflow types subtract.
// The weekly audit compares this figure against the derived ledger sum.
func (s *TransactionStore) SumSettledByWallet(ctx context.Context, q Getter, walletID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE
			WHEN type IN ('DEPOSIT', 'DIVIDEND', 'TRANSFER') THEN amount
			ELSE -amount
		END), 0)
		FROM transactions
		WHERE wallet_id = $1 AND status = 'SUCCESS'
	`, walletID)
	return sum, err
}
