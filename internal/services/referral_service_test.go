package services

import (
	"context"
	"database/sql"
	"testing"

	"invest/internal/models"
	"invest/internal/referral"
	"invest/internal/store"
)

func testRates() referral.RateTable {
	rates := referral.NewRateTable()
	rates[1] = dec("0.10")
	rates[2] = dec("0.05")
	return rates
}

func TestPayCascadePaysConfiguredLevels(t *testing.T) {
	var postedRefs []string
	var commissions []models.ReferralCommission
	ledger := newLedgerService(stubWalletStore{}, stubAccountStore{}, stubLedgerStore{}, stubTransactionStore{
		createFn: func(_ context.Context, _ store.Execer, input store.TransactionInput) error {
			postedRefs = append(postedRefs, *input.Reference)
			return nil
		},
		getByReferenceFn: func(_ context.Context, _ store.Getter, reference string) (models.Transaction, error) {
			for _, ref := range postedRefs {
				if ref == reference {
					return models.Transaction{ID: "tx-" + reference, Status: models.TxStatusSuccess}, nil
				}
			}
			return models.Transaction{}, sql.ErrNoRows
		},
	}, stubAuditStore{})
	service := NewReferralService(ledger, stubReferralStore{
		ancestorsFn: func(context.Context, store.Selecter, string) ([]store.ReferralLink, error) {
			return []store.ReferralLink{
				{UserID: "user-1", AncestorID: "parent", Level: 1},
				{UserID: "user-1", AncestorID: "grandparent", Level: 2},
				{UserID: "user-1", AncestorID: "greatgrand", Level: 3},
			}, nil
		},
		insertCommissionFn: func(_ context.Context, _ store.Execer, commission models.ReferralCommission) error {
			commissions = append(commissions, commission)
			return nil
		},
	})

	err := service.PayCascade(context.Background(), nil, "user-1", dec("100"), "source-1", testRates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(commissions) != 2 {
		t.Fatalf("level 3 has no rate and must be skipped, got %d commissions", len(commissions))
	}
	if !commissions[0].Amount.Equal(dec("10")) || !commissions[1].Amount.Equal(dec("5")) {
		t.Fatalf("unexpected commission amounts: %s, %s", commissions[0].Amount, commissions[1].Amount)
	}
	if commissions[0].UplineUserID != "parent" || commissions[1].UplineUserID != "grandparent" {
		t.Fatalf("unexpected recipients: %#v", commissions)
	}
	if commissions[0].SourceReference != "source-1" {
		t.Fatalf("unexpected source reference: %s", commissions[0].SourceReference)
	}
	if postedRefs[0] != "referral_payout:source-1:1:parent" {
		t.Fatalf("unexpected payout reference: %s", postedRefs[0])
	}
}

func TestPayCascadeReplaySkipsPaidLevels(t *testing.T) {
	ledger := newLedgerService(stubWalletStore{}, stubAccountStore{}, stubLedgerStore{
		directionsFn: func(context.Context, store.Selecter, string) ([]string, error) {
			return []string{models.DirectionDebit, models.DirectionCredit}, nil
		},
	}, stubTransactionStore{
		getByReferenceFn: func(_ context.Context, _ store.Getter, reference string) (models.Transaction, error) {
			return models.Transaction{ID: "tx-1", Status: models.TxStatusSuccess}, nil
		},
	}, stubAuditStore{})
	service := NewReferralService(ledger, stubReferralStore{
		ancestorsFn: func(context.Context, store.Selecter, string) ([]store.ReferralLink, error) {
			return []store.ReferralLink{{UserID: "user-1", AncestorID: "parent", Level: 1}}, nil
		},
		insertCommissionFn: func(context.Context, store.Execer, models.ReferralCommission) error {
			t.Fatalf("replay must not insert a duplicate commission")
			return nil
		},
	})

	if err := service.PayCascade(context.Background(), nil, "user-1", dec("100"), "source-1", testRates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPayCascadeNoAncestors(t *testing.T) {
	ledger := newLedgerService(stubWalletStore{}, stubAccountStore{}, stubLedgerStore{}, stubTransactionStore{
		createFn: func(context.Context, store.Execer, store.TransactionInput) error {
			t.Fatalf("no ancestors means no postings")
			return nil
		},
	}, stubAuditStore{})
	service := NewReferralService(ledger, stubReferralStore{})

	if err := service.PayCascade(context.Background(), nil, "user-1", dec("100"), "source-1", testRates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
