package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invest/internal/models"
	"invest/internal/money"
	"invest/internal/store"
)

// LedgerService owns double-entry posting and derived balances. Balances are
// never stored: every read recomputes Σ(DEBIT) − Σ(CREDIT) over the ledger.
type LedgerService struct {
	db       store.DB
	wallets  WalletStore
	accounts AccountStore
	ledger   LedgerStore
	txStore  TransactionStore
	audit    AuditStore
}

func NewLedgerService(db store.DB, wallets WalletStore, accounts AccountStore, ledger LedgerStore, txStore TransactionStore, audit AuditStore) *LedgerService {
	return &LedgerService{
		db:       db,
		wallets:  wallets,
		accounts: accounts,
		ledger:   ledger,
		txStore:  txStore,
		audit:    audit,
	}
}

// Posting describes one balanced double-entry transaction: a single debit
// and a single credit of the same amount.
type Posting struct {
	TransactionID   string
	UserID          string
	WalletID        *string
	Currency        string
	Type            string
	Reference       *string
	Amount          decimal.Decimal
	DebitAccountID  string
	DebitUserID     *string
	CreditAccountID string
	CreditUserID    *string
}

func (p Posting) validate() error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if p.DebitAccountID == "" || p.CreditAccountID == "" || p.DebitAccountID == p.CreditAccountID {
		return errors.New("posting requires distinct debit and credit accounts")
	}
	return nil
}

// UserAccountNo derives the deterministic account number backing a user's
// wallet of the given type, e.g. U-<uid>-MAIN.
func UserAccountNo(userID, walletType string) string {
	return fmt.Sprintf("U-%s-%s", userID, walletType)
}

// ProvisionUserWallets creates a user's MAIN and PROFIT wallets, each backed
// by one ledger account, inside the caller's transaction. Called once at
// registration. Account numbers are derived from the user id so they can be
// reconstructed without a lookup.
func (s *LedgerService) ProvisionUserWallets(ctx context.Context, tx store.Execer, userID, currency string) error {
	for _, walletType := range []string{models.WalletTypeMain, models.WalletTypeProfit} {
		walletID := uuid.NewString()
		if err := s.wallets.Create(ctx, tx, models.Wallet{
			ID:       walletID,
			UserID:   userID,
			Type:     walletType,
			Currency: currency,
		}); err != nil {
			return err
		}
		uid := userID
		wid := walletID
		if err := s.accounts.Create(ctx, tx, models.LedgerAccount{
			ID:        uuid.NewString(),
			UserID:    &uid,
			WalletID:  &wid,
			AccountNo: UserAccountNo(userID, walletType),
			Name:      walletType + " wallet",
		}); err != nil {
			return err
		}
	}
	return nil
}

// SystemAccount resolves a seeded system account by its account number. A
// missing row is a configuration fault, not a user error.
func (s *LedgerService) SystemAccount(ctx context.Context, q store.Getter, accountNo string) (models.LedgerAccount, error) {
	account, err := s.accounts.GetByAccountNo(ctx, q, accountNo)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerAccount{}, ErrSystemAccountMissing
	}
	return account, err
}

// UserAccount resolves the ledger account backing a user's wallet of the
// given type.
func (s *LedgerService) UserAccount(ctx context.Context, q store.Getter, userID, walletType string) (models.Wallet, models.LedgerAccount, error) {
	wallet, err := s.wallets.GetByUserAndType(ctx, q, userID, walletType)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, models.LedgerAccount{}, ErrWalletNotFound
	}
	if err != nil {
		return models.Wallet{}, models.LedgerAccount{}, err
	}
	account, err := s.accounts.GetByWallet(ctx, q, wallet.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, models.LedgerAccount{}, ErrWalletNotFound
	}
	return wallet, account, err
}

// Balance derives a user's wallet balance. A negative sum is clamped to zero
// for the caller and recorded as a discrepancy for investigation.
func (s *LedgerService) Balance(ctx context.Context, userID, walletType string) (decimal.Decimal, error) {
	sum, err := s.ledger.SumByUserWallet(ctx, s.db, userID, walletType)
	if err != nil {
		return decimal.Zero, err
	}
	if sum.IsNegative() {
		uid := userID
		if recErr := s.audit.RecordDiscrepancy(ctx, s.db, models.FinancialDiscrepancy{
			ID:       uuid.NewString(),
			UserID:   &uid,
			Kind:     "NEGATIVE_BALANCE",
			Expected: decimal.Zero,
			Actual:   sum,
			Variance: sum,
		}); recErr != nil {
			log.Printf("discrepancy record failed user=%s wallet=%s: %v", userID, walletType, recErr)
		}
	}
	return money.Clamp(sum), nil
}

// Post writes the transaction record and its balanced entry pair in the
// caller's database transaction. The transaction is created in SUCCESS.
func (s *LedgerService) Post(ctx context.Context, tx store.Execer, p Posting) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	transactionID := p.TransactionID
	if transactionID == "" {
		transactionID = uuid.NewString()
	}
	if err := s.txStore.Create(ctx, tx, store.TransactionInput{
		ID:        transactionID,
		UserID:    p.UserID,
		WalletID:  p.WalletID,
		Currency:  p.Currency,
		Type:      p.Type,
		Status:    models.TxStatusSuccess,
		Amount:    p.Amount,
		Reference: p.Reference,
	}); err != nil {
		return "", err
	}
	if err := s.postEntries(ctx, tx, transactionID, p, nil); err != nil {
		return "", err
	}
	return transactionID, nil
}

// Settle posts the entry pair for an already-recorded PENDING transaction
// and flips it to SUCCESS. Used by the deposit paths, where the transaction
// row is created when the request is, and settled on approval.
func (s *LedgerService) Settle(ctx context.Context, tx store.Tx, transactionID string, p Posting) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := s.postEntries(ctx, tx, transactionID, p, nil); err != nil {
		return err
	}
	return s.txStore.UpdateStatus(ctx, tx, transactionID, models.TxStatusSuccess)
}

// PostIdempotent posts keyed by p.Reference. A transaction with that exact
// reference already holding both entries is a no-op; one that crashed after
// writing a single entry gets the missing side completed. Returns whether a
// new transaction was created.
func (s *LedgerService) PostIdempotent(ctx context.Context, tx TxQuerier, p Posting) (bool, error) {
	if p.Reference == nil || *p.Reference == "" {
		return false, errors.New("idempotent posting requires a reference")
	}
	existing, err := s.txStore.GetByReference(ctx, tx, *p.Reference)
	if errors.Is(err, sql.ErrNoRows) {
		p.TransactionID = ""
		if _, err := s.Post(ctx, tx, p); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	directions, err := s.ledger.DirectionsByTransaction(ctx, tx, existing.ID)
	if err != nil {
		return false, err
	}
	if len(directions) >= 2 {
		return false, nil
	}
	if err := p.validate(); err != nil {
		return false, err
	}
	skip := make(map[string]bool, len(directions))
	for _, d := range directions {
		skip[d] = true
	}
	if err := s.postEntries(ctx, tx, existing.ID, p, skip); err != nil {
		return false, err
	}
	if existing.Status != models.TxStatusSuccess {
		if err := s.txStore.UpdateStatus(ctx, tx, existing.ID, models.TxStatusSuccess); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *LedgerService) postEntries(ctx context.Context, tx store.Execer, transactionID string, p Posting, skip map[string]bool) error {
	entries := make([]store.LedgerEntryInput, 0, 2)
	if !skip[models.DirectionDebit] {
		entries = append(entries, store.LedgerEntryInput{
			ID:            uuid.NewString(),
			AccountID:     p.DebitAccountID,
			UserID:        p.DebitUserID,
			TransactionID: transactionID,
			Direction:     models.DirectionDebit,
			Amount:        p.Amount,
		})
	}
	if !skip[models.DirectionCredit] {
		entries = append(entries, store.LedgerEntryInput{
			ID:            uuid.NewString(),
			AccountID:     p.CreditAccountID,
			UserID:        p.CreditUserID,
			TransactionID: transactionID,
			Direction:     models.DirectionCredit,
			Amount:        p.Amount,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return s.ledger.InsertEntries(ctx, tx, entries)
}
