package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerStore appends double-entry rows and derives balances by summation.
// There is no stored balance anywhere; a wallet's balance is always
// Σ(DEBIT) − Σ(CREDIT) over its accounts' entries.
type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID            string
	AccountID     string
	UserID        *string
	TransactionID string
	Direction     string
	Amount        decimal.Decimal
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, user_id, transaction_id, direction, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.ID, entry.AccountID, entry.UserID, entry.TransactionID, entry.Direction, entry.Amount); err != nil {
			return err
		}
	}
	return nil
}

// SumByAccount returns Σ(DEBIT) − Σ(CREDIT) for one account.
func (s *LedgerStore) SumByAccount(ctx context.Context, q Getter, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'DEBIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND deleted_at IS NULL
	`, accountID)
	return sum, err
}

// SumByUserWallet derives the balance across all non-deleted accounts under a
// user's non-deleted wallets of the given type.
func (s *LedgerStore) SumByUserWallet(ctx context.Context, q Getter, userID, walletType string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN e.direction = 'DEBIT' THEN e.amount ELSE -e.amount END), 0)
		FROM ledger_entries e
		JOIN ledger_accounts a ON a.id = e.account_id AND a.deleted_at IS NULL
		JOIN wallets w ON w.id = a.wallet_id AND w.deleted_at IS NULL
		WHERE w.user_id = $1 AND w.type = $2 AND e.deleted_at IS NULL
	`, userID, walletType)
	return sum, err
}

// SumByWallet derives one wallet's balance, used by the weekly audit.
func (s *LedgerStore) SumByWallet(ctx context.Context, q Getter, walletID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN e.direction = 'DEBIT' THEN e.amount ELSE -e.amount END), 0)
		FROM ledger_entries e
		JOIN ledger_accounts a ON a.id = e.account_id AND a.deleted_at IS NULL
		WHERE a.wallet_id = $1 AND e.deleted_at IS NULL
	`, walletID)
	return sum, err
}

// DirectionsByTransaction lists the directions already posted for a
// transaction. An idempotent retry uses this to complete a posting that
// crashed after writing only one side.
func (s *LedgerStore) DirectionsByTransaction(ctx context.Context, q Selecter, transactionID string) ([]string, error) {
	var directions []string
	err := q.SelectContext(ctx, &directions, `
		SELECT direction
		FROM ledger_entries
		WHERE transaction_id = $1 AND deleted_at IS NULL
	`, transactionID)
	return directions, err
}

// CountByTransaction reports how many entries reference a transaction, used
// to detect crash-interrupted postings during idempotent retries.
func (s *LedgerStore) CountByTransaction(ctx context.Context, q Getter, transactionID string) (int, error) {
	var count int
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM ledger_entries
		WHERE transaction_id = $1 AND deleted_at IS NULL
	`, transactionID)
	return count, err
}
