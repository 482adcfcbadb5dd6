package store

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

type ReferralStore struct {
	db DB
}

func NewReferralStore(db DB) *ReferralStore {
	return &ReferralStore{db: db}
}

type ReferralLink struct {
	UserID     string `db:"user_id"`
	AncestorID string `db:"ancestor_id"`
	Level      int    `db:"level"`
}

// InsertLinks records a new user's full ancestor chain at registration:
// level 1 for the direct referrer, plus the referrer's own chain shifted one
// level down.
func (s *ReferralStore) InsertLinks(ctx context.Context, tx Execer, links []ReferralLink) error {
	query := `
		INSERT INTO referral_links (user_id, ancestor_id, level)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	for _, link := range links {
		if _, err := tx.ExecContext(ctx, query, link.UserID, link.AncestorID, link.Level); err != nil {
			return err
		}
	}
	return nil
}

// Ancestors returns a user's referral chain ordered by ascending level.
func (s *ReferralStore) Ancestors(ctx context.Context, q Selecter, userID string) ([]ReferralLink, error) {
	var rows []ReferralLink
	err := q.SelectContext(ctx, &rows, `
		SELECT user_id, ancestor_id, level
		FROM referral_links
		WHERE user_id = $1
		ORDER BY level
	`, userID)
	return rows, err
}

type ReferralRate struct {
	Level int             `db:"level"`
	Rate  decimal.Decimal `db:"rate"`
}

func (s *ReferralStore) Rates(ctx context.Context, q Selecter) ([]ReferralRate, error) {
	var rows []ReferralRate
	err := q.SelectContext(ctx, &rows, `
		SELECT level, rate
		FROM referral_rates
		ORDER BY level
	`)
	return rows, err
}

func (s *ReferralStore) UpsertRate(ctx context.Context, tx Execer, level int, rate decimal.Decimal, updatedBy string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO referral_rates (level, rate, updated_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (level) DO UPDATE SET rate = EXCLUDED.rate, updated_by = EXCLUDED.updated_by, updated_at = now()
	`, level, rate, updatedBy)
	return err
}

func (s *ReferralStore) InsertCommission(ctx context.Context, tx Execer, commission models.ReferralCommission) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO referral_commissions (id, upline_user_id, downline_user_id, level, amount, source_reference, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_reference, level, upline_user_id) DO NOTHING
	`, commission.ID, commission.UplineUserID, commission.DownlineUserID, commission.Level, commission.Amount, commission.SourceReference, commission.TransactionID)
	return err
}

// SumEarnings totals the commissions a user has received, for the earnings
// report.
func (s *ReferralStore) SumEarnings(ctx context.Context, q Getter, uplineUserID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM referral_commissions
		WHERE upline_user_id = $1
	`, uplineUserID)
	return sum, err
}

func (s *ReferralStore) ListEarnings(ctx context.Context, uplineUserID string, limit, offset int) ([]models.ReferralCommission, error) {
	var rows []models.ReferralCommission
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, upline_user_id, downline_user_id, level, amount, source_reference, transaction_id, created_at
		FROM referral_commissions
		WHERE upline_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, uplineUserID, limit, offset)
	return rows, err
}
