package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invest/internal/models"
	"invest/internal/referral"
	"invest/internal/store"
)

// ReferralService pays commissions up a user's referral chain. Every level's
// payout is keyed by a deterministic reference, so replays of any triggering
// job produce exactly one transaction and one entry pair per ancestor.
type ReferralService struct {
	ledger    *LedgerService
	referrals ReferralStore
}

func NewReferralService(ledger *LedgerService, referrals ReferralStore) *ReferralService {
	return &ReferralService{ledger: ledger, referrals: referrals}
}

func commissionReference(sourceRef string, level int, ancestorID string) string {
	return fmt.Sprintf("referral_payout:%s:%d:%s", sourceRef, level, ancestorID)
}

// LoadRates reads the configured rate table.
func (s *ReferralService) LoadRates(ctx context.Context, q store.Selecter) (referral.RateTable, error) {
	rows, err := s.referrals.Rates(ctx, q)
	if err != nil {
		return nil, err
	}
	rates := referral.NewRateTable()
	for _, row := range rows {
		rates[row.Level] = row.Rate
	}
	return rates, nil
}

// PayCascade walks the earning user's ancestor chain in ascending level
// order and posts each non-zero commission in the caller's transaction.
// Ancestors whose level has no configured rate are skipped.
func (s *ReferralService) PayCascade(ctx context.Context, tx TxQuerier, downlineUserID string, baseAmount decimal.Decimal, sourceRef string, rates referral.RateTable) error {
	ancestors, err := s.referrals.Ancestors(ctx, tx, downlineUserID)
	if err != nil {
		return err
	}
	commissionAccount, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoCommission)
	if err != nil {
		return err
	}
	for _, ancestor := range ancestors {
		amount := referral.Commission(baseAmount, ancestor.Level, rates)
		if amount.IsZero() {
			continue
		}
		wallet, account, err := s.ledger.UserAccount(ctx, tx, ancestor.AncestorID, models.WalletTypeMain)
		if err != nil {
			return err
		}
		reference := commissionReference(sourceRef, ancestor.Level, ancestor.AncestorID)
		uid := ancestor.AncestorID
		wid := wallet.ID
		created, err := s.ledger.PostIdempotent(ctx, tx, Posting{
			UserID:          ancestor.AncestorID,
			WalletID:        &wid,
			Currency:        wallet.Currency,
			Type:            models.TxTypeDividend,
			Reference:       &reference,
			Amount:          amount,
			DebitAccountID:  account.ID,
			DebitUserID:     &uid,
			CreditAccountID: commissionAccount.ID,
		})
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		posted, err := s.ledger.txStore.GetByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if err := s.referrals.InsertCommission(ctx, tx, models.ReferralCommission{
			ID:              uuid.NewString(),
			UplineUserID:    ancestor.AncestorID,
			DownlineUserID:  downlineUserID,
			Level:           ancestor.Level,
			Amount:          amount,
			SourceReference: sourceRef,
			TransactionID:   posted.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}
