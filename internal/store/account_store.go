package store

import (
	"context"

	"invest/internal/models"
)

// AccountStore manages ledger accounts. Accounts are immutable once created;
// the only permitted update is a soft delete.
type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, account models.LedgerAccount) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (id, user_id, wallet_id, account_no, name)
		VALUES ($1, $2, $3, $4, $5)
	`, account.ID, account.UserID, account.WalletID, account.AccountNo, account.Name)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, q Getter, accountID string) (models.LedgerAccount, error) {
	var row models.LedgerAccount
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_id, account_no, name, created_at, deleted_at
		FROM ledger_accounts
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID)
	return row, err
}

func (s *AccountStore) GetByAccountNo(ctx context.Context, q Getter, accountNo string) (models.LedgerAccount, error) {
	var row models.LedgerAccount
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_id, account_no, name, created_at, deleted_at
		FROM ledger_accounts
		WHERE account_no = $1 AND deleted_at IS NULL
	`, accountNo)
	return row, err
}

// GetByWallet returns the single ledger account backing a wallet.
func (s *AccountStore) GetByWallet(ctx context.Context, q Getter, walletID string) (models.LedgerAccount, error) {
	var row models.LedgerAccount
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, wallet_id, account_no, name, created_at, deleted_at
		FROM ledger_accounts
		WHERE wallet_id = $1 AND deleted_at IS NULL
	`, walletID)
	return row, err
}

func (s *AccountStore) SoftDelete(ctx context.Context, tx Execer, accountID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_accounts SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, accountID)
	return err
}
