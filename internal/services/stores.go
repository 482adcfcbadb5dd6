package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"
)

// Narrow store interfaces consumed by the services in this package. Each
// names only the methods the services actually call so tests can stub them.

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, wallet models.Wallet) error
	GetByUserAndType(ctx context.Context, q store.Getter, userID, walletType string) (models.Wallet, error)
	ListAll(ctx context.Context) ([]models.Wallet, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, account models.LedgerAccount) error
	GetByAccountNo(ctx context.Context, q store.Getter, accountNo string) (models.LedgerAccount, error)
	GetByWallet(ctx context.Context, q store.Getter, walletID string) (models.LedgerAccount, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	SumByUserWallet(ctx context.Context, q store.Getter, userID, walletType string) (decimal.Decimal, error)
	SumByWallet(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error)
	DirectionsByTransaction(ctx context.Context, q store.Selecter, transactionID string) ([]string, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByID(ctx context.Context, q store.Getter, transactionID string) (models.Transaction, error)
	GetByReference(ctx context.Context, q store.Getter, reference string) (models.Transaction, error)
	UpdateStatus(ctx context.Context, tx store.Execer, transactionID, status string) error
	SumSettledByWallet(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error)
}

type WithdrawalStore interface {
	Create(ctx context.Context, tx store.Execer, request models.WithdrawalRequest) error
	GetByID(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error)
	Transition(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error)
	SumForDay(ctx context.Context, q store.Getter, userID string, day string) (decimal.Decimal, error)
}

type DepositStore interface {
	Create(ctx context.Context, tx store.Execer, request models.DepositRequest) error
	GetByID(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error)
	GetByExternalReference(ctx context.Context, q store.Getter, externalRef string) (models.DepositRequest, error)
	Transition(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error)
}

type OTPStore interface {
	Create(ctx context.Context, tx store.Execer, challenge models.OTPChallenge) error
	GetActive(ctx context.Context, q store.Getter, userID, purpose string) (models.OTPChallenge, error)
	ExpireActive(ctx context.Context, tx store.Execer, userID, purpose string) error
	IncrementAttempts(ctx context.Context, tx store.Execer, challengeID string) error
	Consume(ctx context.Context, tx store.Execer, challengeID string) (int64, error)
	Expire(ctx context.Context, tx store.Execer, challengeID string) error
	DeleteExpiredBefore(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}

type KYCStore interface {
	LatestStatus(ctx context.Context, userID string) (string, error)
}

type PlanStore interface {
	GetByID(ctx context.Context, q store.Getter, planID string) (models.InvestmentPlan, error)
}

type PositionStore interface {
	Create(ctx context.Context, tx store.Execer, position models.InvestmentPosition) error
	GetByID(ctx context.Context, q store.Getter, positionID string) (models.InvestmentPosition, error)
	ListActiveChunk(ctx context.Context, afterID string, limit int) ([]models.InvestmentPosition, error)
	AddProfitPaid(ctx context.Context, tx store.Execer, positionID string, amount decimal.Decimal) error
	SumActiveByUser(ctx context.Context, q store.Selecter) ([]store.UserInvestmentSum, error)
}

type BatchStore interface {
	Create(ctx context.Context, tx store.Execer, batch models.ProfitBatch) error
	GetByID(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error)
	Finalize(ctx context.Context, tx store.Execer, batchID, adminID string, totalInvestment decimal.Decimal, recipientCount int) (int64, error)
	Reject(ctx context.Context, tx store.Execer, batchID, adminID, reason string) (int64, error)
	InsertAllocation(ctx context.Context, tx store.Execer, allocation models.ProfitAllocation) error
}

type ReferralStore interface {
	Ancestors(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error)
	Rates(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error)
	InsertCommission(ctx context.Context, tx store.Execer, commission models.ReferralCommission) error
}

// StaffDirectory resolves which users hold a staff role, for fanning
// operational alerts out to them.
type StaffDirectory interface {
	ListByRole(ctx context.Context, role string) ([]string, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	RecordDiscrepancy(ctx context.Context, exec store.Execer, d models.FinancialDiscrepancy) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// Notifier is the best-effort outbound sink pair. Implementations log
// failures and never return them.
type NotifierSink interface {
	SendEmail(to, subject, text string)
	SendNotification(ctx context.Context, userID, notifType, title, message string)
}

// TxQuerier is what an open *sqlx.Tx offers the posting paths.
type TxQuerier interface {
	store.Execer
	store.Getter
	store.Selecter
}

// Locker serializes check-then-act wallet flows.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

func walletLockKey(userID, walletType string) string {
	return "wallet:" + walletType + ":" + userID
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
