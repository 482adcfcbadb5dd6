package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// rollbackTxRunner applies the real runner's rollback rule to stub state: it
// snapshots before the closure runs and restores the snapshot when the
// closure returns an error.
type rollbackTxRunner struct {
	snapshot func() (restore func())
}

func (r rollbackTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	restore := r.snapshot()
	if err := fn(nil); err != nil {
		restore()
		return err
	}
	return nil
}

type fakeLocker struct {
	err  error
	keys []string
}

func (f *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return fn(ctx)
}

type stubUserStore struct {
	getByIDFn func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, IsActive: true}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubWalletStore struct {
	createFn           func(ctx context.Context, tx store.Execer, wallet models.Wallet) error
	getByUserAndTypeFn func(ctx context.Context, q store.Getter, userID, walletType string) (models.Wallet, error)
	listAllFn          func(ctx context.Context) ([]models.Wallet, error)
}

func (s stubWalletStore) Create(ctx context.Context, tx store.Execer, wallet models.Wallet) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, wallet)
}

func (s stubWalletStore) GetByUserAndType(ctx context.Context, q store.Getter, userID, walletType string) (models.Wallet, error) {
	if s.getByUserAndTypeFn == nil {
		return models.Wallet{ID: "wallet-" + walletType, UserID: userID, Type: walletType, Currency: "USD"}, nil
	}
	return s.getByUserAndTypeFn(ctx, q, userID, walletType)
}

func (s stubWalletStore) ListAll(ctx context.Context) ([]models.Wallet, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx)
}

type stubAccountStore struct {
	createFn         func(ctx context.Context, tx store.Execer, account models.LedgerAccount) error
	getByAccountNoFn func(ctx context.Context, q store.Getter, accountNo string) (models.LedgerAccount, error)
	getByWalletFn    func(ctx context.Context, q store.Getter, walletID string) (models.LedgerAccount, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, account models.LedgerAccount) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, account)
}

func (s stubAccountStore) GetByAccountNo(ctx context.Context, q store.Getter, accountNo string) (models.LedgerAccount, error) {
	if s.getByAccountNoFn == nil {
		return models.LedgerAccount{ID: "sys-" + accountNo, AccountNo: accountNo}, nil
	}
	return s.getByAccountNoFn(ctx, q, accountNo)
}

func (s stubAccountStore) GetByWallet(ctx context.Context, q store.Getter, walletID string) (models.LedgerAccount, error) {
	if s.getByWalletFn == nil {
		return models.LedgerAccount{ID: "acct-" + walletID, WalletID: &walletID}, nil
	}
	return s.getByWalletFn(ctx, q, walletID)
}

type stubLedgerStore struct {
	insertFn          func(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	sumByUserWalletFn func(ctx context.Context, q store.Getter, userID, walletType string) (decimal.Decimal, error)
	sumByWalletFn     func(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error)
	directionsFn      func(ctx context.Context, q store.Selecter, transactionID string) ([]string, error)
}

func (s stubLedgerStore) InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entries)
}

func (s stubLedgerStore) SumByUserWallet(ctx context.Context, q store.Getter, userID, walletType string) (decimal.Decimal, error) {
	if s.sumByUserWalletFn == nil {
		return decimal.Zero, nil
	}
	return s.sumByUserWalletFn(ctx, q, userID, walletType)
}

func (s stubLedgerStore) SumByWallet(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error) {
	if s.sumByWalletFn == nil {
		return decimal.Zero, nil
	}
	return s.sumByWalletFn(ctx, q, walletID)
}

func (s stubLedgerStore) DirectionsByTransaction(ctx context.Context, q store.Selecter, transactionID string) ([]string, error) {
	if s.directionsFn == nil {
		return nil, nil
	}
	return s.directionsFn(ctx, q, transactionID)
}

type stubTransactionStore struct {
	createFn             func(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	getByIDFn            func(ctx context.Context, q store.Getter, transactionID string) (models.Transaction, error)
	getByReferenceFn     func(ctx context.Context, q store.Getter, reference string) (models.Transaction, error)
	updateStatusFn       func(ctx context.Context, tx store.Execer, transactionID, status string) error
	sumSettledByWalletFn func(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error)
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubTransactionStore) GetByID(ctx context.Context, q store.Getter, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{ID: transactionID}, nil
	}
	return s.getByIDFn(ctx, q, transactionID)
}

func (s stubTransactionStore) GetByReference(ctx context.Context, q store.Getter, reference string) (models.Transaction, error) {
	return s.getByReferenceFn(ctx, q, reference)
}

func (s stubTransactionStore) UpdateStatus(ctx context.Context, tx store.Execer, transactionID, status string) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, transactionID, status)
}

func (s stubTransactionStore) SumSettledByWallet(ctx context.Context, q store.Getter, walletID string) (decimal.Decimal, error) {
	if s.sumSettledByWalletFn == nil {
		return decimal.Zero, nil
	}
	return s.sumSettledByWalletFn(ctx, q, walletID)
}

type stubWithdrawalStore struct {
	createFn     func(ctx context.Context, tx store.Execer, request models.WithdrawalRequest) error
	getByIDFn    func(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error)
	transitionFn func(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error)
	sumForDayFn  func(ctx context.Context, q store.Getter, userID string, day string) (decimal.Decimal, error)
}

func (s stubWithdrawalStore) Create(ctx context.Context, tx store.Execer, request models.WithdrawalRequest) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, request)
}

func (s stubWithdrawalStore) GetByID(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error) {
	return s.getByIDFn(ctx, q, requestID)
}

func (s stubWithdrawalStore) Transition(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error) {
	if s.transitionFn == nil {
		return 1, nil
	}
	return s.transitionFn(ctx, tx, requestID, from, to, accountantID, adminID, rejectReason)
}

func (s stubWithdrawalStore) SumForDay(ctx context.Context, q store.Getter, userID string, day string) (decimal.Decimal, error) {
	if s.sumForDayFn == nil {
		return decimal.Zero, nil
	}
	return s.sumForDayFn(ctx, q, userID, day)
}

type stubDepositStore struct {
	createFn        func(ctx context.Context, tx store.Execer, request models.DepositRequest) error
	getByIDFn       func(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error)
	getByExternalFn func(ctx context.Context, q store.Getter, externalRef string) (models.DepositRequest, error)
	transitionFn    func(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error)
}

func (s stubDepositStore) Create(ctx context.Context, tx store.Execer, request models.DepositRequest) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, request)
}

func (s stubDepositStore) GetByID(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error) {
	return s.getByIDFn(ctx, q, requestID)
}

func (s stubDepositStore) GetByExternalReference(ctx context.Context, q store.Getter, externalRef string) (models.DepositRequest, error) {
	return s.getByExternalFn(ctx, q, externalRef)
}

func (s stubDepositStore) Transition(ctx context.Context, tx store.Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error) {
	if s.transitionFn == nil {
		return 1, nil
	}
	return s.transitionFn(ctx, tx, requestID, from, to, accountantID, adminID, rejectReason)
}

type stubOTPStore struct {
	createFn            func(ctx context.Context, tx store.Execer, challenge models.OTPChallenge) error
	getActiveFn         func(ctx context.Context, q store.Getter, userID, purpose string) (models.OTPChallenge, error)
	expireActiveFn      func(ctx context.Context, tx store.Execer, userID, purpose string) error
	incrementAttemptsFn func(ctx context.Context, tx store.Execer, challengeID string) error
	consumeFn           func(ctx context.Context, tx store.Execer, challengeID string) (int64, error)
	expireFn            func(ctx context.Context, tx store.Execer, challengeID string) error
	deleteExpiredFn     func(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}

func (s stubOTPStore) Create(ctx context.Context, tx store.Execer, challenge models.OTPChallenge) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, challenge)
}

func (s stubOTPStore) GetActive(ctx context.Context, q store.Getter, userID, purpose string) (models.OTPChallenge, error) {
	return s.getActiveFn(ctx, q, userID, purpose)
}

func (s stubOTPStore) ExpireActive(ctx context.Context, tx store.Execer, userID, purpose string) error {
	if s.expireActiveFn == nil {
		return nil
	}
	return s.expireActiveFn(ctx, tx, userID, purpose)
}

func (s stubOTPStore) IncrementAttempts(ctx context.Context, tx store.Execer, challengeID string) error {
	if s.incrementAttemptsFn == nil {
		return nil
	}
	return s.incrementAttemptsFn(ctx, tx, challengeID)
}

func (s stubOTPStore) Consume(ctx context.Context, tx store.Execer, challengeID string) (int64, error) {
	if s.consumeFn == nil {
		return 1, nil
	}
	return s.consumeFn(ctx, tx, challengeID)
}

func (s stubOTPStore) Expire(ctx context.Context, tx store.Execer, challengeID string) error {
	if s.expireFn == nil {
		return nil
	}
	return s.expireFn(ctx, tx, challengeID)
}

func (s stubOTPStore) DeleteExpiredBefore(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error) {
	if s.deleteExpiredFn == nil {
		return 0, nil
	}
	return s.deleteExpiredFn(ctx, tx, cutoff)
}

type stubKYCStore struct {
	latestStatusFn func(ctx context.Context, userID string) (string, error)
}

func (s stubKYCStore) LatestStatus(ctx context.Context, userID string) (string, error) {
	if s.latestStatusFn == nil {
		return models.KYCStatusApproved, nil
	}
	return s.latestStatusFn(ctx, userID)
}

type stubPlanStore struct {
	getByIDFn func(ctx context.Context, q store.Getter, planID string) (models.InvestmentPlan, error)
}

func (s stubPlanStore) GetByID(ctx context.Context, q store.Getter, planID string) (models.InvestmentPlan, error) {
	return s.getByIDFn(ctx, q, planID)
}

type stubPositionStore struct {
	createFn          func(ctx context.Context, tx store.Execer, position models.InvestmentPosition) error
	getByIDFn         func(ctx context.Context, q store.Getter, positionID string) (models.InvestmentPosition, error)
	listActiveChunkFn func(ctx context.Context, afterID string, limit int) ([]models.InvestmentPosition, error)
	addProfitPaidFn   func(ctx context.Context, tx store.Execer, positionID string, amount decimal.Decimal) error
	sumActiveByUserFn func(ctx context.Context, q store.Selecter) ([]store.UserInvestmentSum, error)
}

func (s stubPositionStore) Create(ctx context.Context, tx store.Execer, position models.InvestmentPosition) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, position)
}

func (s stubPositionStore) GetByID(ctx context.Context, q store.Getter, positionID string) (models.InvestmentPosition, error) {
	return s.getByIDFn(ctx, q, positionID)
}

func (s stubPositionStore) ListActiveChunk(ctx context.Context, afterID string, limit int) ([]models.InvestmentPosition, error) {
	if s.listActiveChunkFn == nil {
		return nil, nil
	}
	return s.listActiveChunkFn(ctx, afterID, limit)
}

func (s stubPositionStore) AddProfitPaid(ctx context.Context, tx store.Execer, positionID string, amount decimal.Decimal) error {
	if s.addProfitPaidFn == nil {
		return nil
	}
	return s.addProfitPaidFn(ctx, tx, positionID, amount)
}

func (s stubPositionStore) SumActiveByUser(ctx context.Context, q store.Selecter) ([]store.UserInvestmentSum, error) {
	if s.sumActiveByUserFn == nil {
		return nil, nil
	}
	return s.sumActiveByUserFn(ctx, q)
}

type stubBatchStore struct {
	createFn           func(ctx context.Context, tx store.Execer, batch models.ProfitBatch) error
	getByIDFn          func(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error)
	finalizeFn         func(ctx context.Context, tx store.Execer, batchID, adminID string, totalInvestment decimal.Decimal, recipientCount int) (int64, error)
	rejectFn           func(ctx context.Context, tx store.Execer, batchID, adminID, reason string) (int64, error)
	insertAllocationFn func(ctx context.Context, tx store.Execer, allocation models.ProfitAllocation) error
}

func (s stubBatchStore) Create(ctx context.Context, tx store.Execer, batch models.ProfitBatch) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, batch)
}

func (s stubBatchStore) GetByID(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error) {
	return s.getByIDFn(ctx, q, batchID)
}

func (s stubBatchStore) Finalize(ctx context.Context, tx store.Execer, batchID, adminID string, totalInvestment decimal.Decimal, recipientCount int) (int64, error) {
	if s.finalizeFn == nil {
		return 1, nil
	}
	return s.finalizeFn(ctx, tx, batchID, adminID, totalInvestment, recipientCount)
}

func (s stubBatchStore) Reject(ctx context.Context, tx store.Execer, batchID, adminID, reason string) (int64, error) {
	if s.rejectFn == nil {
		return 1, nil
	}
	return s.rejectFn(ctx, tx, batchID, adminID, reason)
}

func (s stubBatchStore) InsertAllocation(ctx context.Context, tx store.Execer, allocation models.ProfitAllocation) error {
	if s.insertAllocationFn == nil {
		return nil
	}
	return s.insertAllocationFn(ctx, tx, allocation)
}

type stubReferralStore struct {
	ancestorsFn        func(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error)
	ratesFn            func(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error)
	insertCommissionFn func(ctx context.Context, tx store.Execer, commission models.ReferralCommission) error
}

func (s stubReferralStore) Ancestors(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error) {
	if s.ancestorsFn == nil {
		return nil, nil
	}
	return s.ancestorsFn(ctx, q, userID)
}

func (s stubReferralStore) Rates(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error) {
	if s.ratesFn == nil {
		return nil, nil
	}
	return s.ratesFn(ctx, q)
}

func (s stubReferralStore) InsertCommission(ctx context.Context, tx store.Execer, commission models.ReferralCommission) error {
	if s.insertCommissionFn == nil {
		return nil
	}
	return s.insertCommissionFn(ctx, tx, commission)
}

type stubStaffDirectory struct {
	listByRoleFn func(ctx context.Context, role string) ([]string, error)
}

func (s stubStaffDirectory) ListByRole(ctx context.Context, role string) ([]string, error) {
	if s.listByRoleFn == nil {
		return nil, nil
	}
	return s.listByRoleFn(ctx, role)
}

type stubAuditStore struct {
	logFn               func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	recordDiscrepancyFn func(ctx context.Context, exec store.Execer, d models.FinancialDiscrepancy) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) RecordDiscrepancy(ctx context.Context, exec store.Execer, d models.FinancialDiscrepancy) error {
	if s.recordDiscrepancyFn == nil {
		return nil
	}
	return s.recordDiscrepancyFn(ctx, exec, d)
}

type stubNotifier struct {
	emails        []string
	notifications []string
}

func (s *stubNotifier) SendEmail(to, subject, text string) {
	s.emails = append(s.emails, subject)
}

func (s *stubNotifier) SendNotification(_ context.Context, _ string, _ string, title, _ string) {
	s.notifications = append(s.notifications, title)
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

func strPtr(value string) *string {
	return &value
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
