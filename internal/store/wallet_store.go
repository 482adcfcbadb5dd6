package store

import (
	"context"

	"invest/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, wallet models.Wallet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, type, currency)
		VALUES ($1, $2, $3, $4)
	`, wallet.ID, wallet.UserID, wallet.Type, wallet.Currency)
	return err
}

func (s *WalletStore) GetByUserAndType(ctx context.Context, q Getter, userID, walletType string) (models.Wallet, error) {
	var row models.Wallet
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, type, currency, created_at, deleted_at
		FROM wallets
		WHERE user_id = $1 AND type = $2 AND deleted_at IS NULL
	`, userID, walletType)
	return row, err
}

func (s *WalletStore) ListAll(ctx context.Context) ([]models.Wallet, error) {
	var rows []models.Wallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, currency, created_at, deleted_at
		FROM wallets
		WHERE deleted_at IS NULL
		ORDER BY created_at
	`)
	return rows, err
}

func (s *WalletStore) SoftDelete(ctx context.Context, tx Execer, walletID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, walletID)
	return err
}
