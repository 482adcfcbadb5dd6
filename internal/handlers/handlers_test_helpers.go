package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/auth"
	"invest/internal/config"
	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/services"
	"invest/internal/store"
	"invest/internal/websocket"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubDB struct{}

func (stubDB) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (stubDB) GetContext(context.Context, any, string, ...any) error           { return nil }
func (stubDB) SelectContext(context.Context, any, string, ...any) error        { return nil }

type stubUserStore struct {
	createFn            func(ctx context.Context, tx store.Execer, user models.User) error
	getByIDFn           func(ctx context.Context, userID string) (models.User, error)
	getByEmailFn        func(ctx context.Context, email string) (models.User, error)
	getByReferralCodeFn func(ctx context.Context, code string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, IsActive: true}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByReferralCode(ctx context.Context, code string) (models.User, error) {
	if s.getByReferralCodeFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByReferralCodeFn(ctx, code)
}

type stubStaffStore struct {
	hasRoleFn     func(ctx context.Context, userID, role string) (bool, error)
	grantRoleFn   func(ctx context.Context, tx store.Execer, userID, role string, grantedBy *string) error
	hasAnyStaffFn func(ctx context.Context) (bool, error)
}

func (s stubStaffStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubStaffStore) GrantRole(ctx context.Context, tx store.Execer, userID, role string, grantedBy *string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, userID, role, grantedBy)
}

func (s stubStaffStore) HasAnyStaff(ctx context.Context) (bool, error) {
	if s.hasAnyStaffFn == nil {
		return true, nil
	}
	return s.hasAnyStaffFn(ctx)
}

type stubKYCStore struct {
	createFn       func(ctx context.Context, tx store.Execer, record models.KYCRecord) error
	latestStatusFn func(ctx context.Context, userID string) (string, error)
}

func (s stubKYCStore) Create(ctx context.Context, tx store.Execer, record models.KYCRecord) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, record)
}

func (s stubKYCStore) LatestStatus(ctx context.Context, userID string) (string, error) {
	if s.latestStatusFn == nil {
		return models.KYCStatusPending, nil
	}
	return s.latestStatusFn(ctx, userID)
}

type stubTransactionStore struct {
	listByUserFn func(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, txType, limit, offset)
}

type stubWithdrawalStore struct {
	getByIDFn      func(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error)
	listByStatusFn func(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.WithdrawalRequest, error)
}

func (s stubWithdrawalStore) GetByID(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error) {
	if s.getByIDFn == nil {
		return models.WithdrawalRequest{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, requestID)
}

func (s stubWithdrawalStore) ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.WithdrawalRequest, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit, offset)
}

type stubDepositStore struct {
	getByIDFn      func(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error)
	listByStatusFn func(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.DepositRequest, error)
}

func (s stubDepositStore) GetByID(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error) {
	if s.getByIDFn == nil {
		return models.DepositRequest{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, requestID)
}

func (s stubDepositStore) ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.DepositRequest, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit, offset)
}

type stubPositionStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]models.InvestmentPosition, error)
}

func (s stubPositionStore) ListByUser(ctx context.Context, userID string) ([]models.InvestmentPosition, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubPlanStore struct {
	createFn     func(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error
	listActiveFn func(ctx context.Context) ([]models.InvestmentPlan, error)
}

func (s stubPlanStore) Create(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, plan)
}

func (s stubPlanStore) ListActive(ctx context.Context) ([]models.InvestmentPlan, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx)
}

type stubBatchStore struct {
	getByIDFn         func(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error)
	listByStatusFn    func(ctx context.Context, status models.BatchStatus, limit, offset int) ([]models.ProfitBatch, error)
	listAllocationsFn func(ctx context.Context, batchID string) ([]models.ProfitAllocation, error)
}

func (s stubBatchStore) GetByID(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error) {
	if s.getByIDFn == nil {
		return models.ProfitBatch{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, batchID)
}

func (s stubBatchStore) ListByStatus(ctx context.Context, status models.BatchStatus, limit, offset int) ([]models.ProfitBatch, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit, offset)
}

func (s stubBatchStore) ListAllocations(ctx context.Context, batchID string) ([]models.ProfitAllocation, error) {
	if s.listAllocationsFn == nil {
		return nil, nil
	}
	return s.listAllocationsFn(ctx, batchID)
}

type stubReferralStore struct {
	insertLinksFn  func(ctx context.Context, tx store.Execer, links []store.ReferralLink) error
	ancestorsFn    func(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error)
	upsertRateFn   func(ctx context.Context, tx store.Execer, level int, rate decimal.Decimal, updatedBy string) error
	ratesFn        func(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error)
	sumEarningsFn  func(ctx context.Context, q store.Getter, uplineUserID string) (decimal.Decimal, error)
	listEarningsFn func(ctx context.Context, uplineUserID string, limit, offset int) ([]models.ReferralCommission, error)
}

func (s stubReferralStore) InsertLinks(ctx context.Context, tx store.Execer, links []store.ReferralLink) error {
	if s.insertLinksFn == nil {
		return nil
	}
	return s.insertLinksFn(ctx, tx, links)
}

func (s stubReferralStore) Ancestors(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error) {
	if s.ancestorsFn == nil {
		return nil, nil
	}
	return s.ancestorsFn(ctx, q, userID)
}

func (s stubReferralStore) UpsertRate(ctx context.Context, tx store.Execer, level int, rate decimal.Decimal, updatedBy string) error {
	if s.upsertRateFn == nil {
		return nil
	}
	return s.upsertRateFn(ctx, tx, level, rate, updatedBy)
}

func (s stubReferralStore) Rates(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error) {
	if s.ratesFn == nil {
		return nil, nil
	}
	return s.ratesFn(ctx, q)
}

func (s stubReferralStore) SumEarnings(ctx context.Context, q store.Getter, uplineUserID string) (decimal.Decimal, error) {
	if s.sumEarningsFn == nil {
		return decimal.Zero, nil
	}
	return s.sumEarningsFn(ctx, q, uplineUserID)
}

func (s stubReferralStore) ListEarnings(ctx context.Context, uplineUserID string, limit, offset int) ([]models.ReferralCommission, error) {
	if s.listEarningsFn == nil {
		return nil, nil
	}
	return s.listEarningsFn(ctx, uplineUserID, limit, offset)
}

type stubAuditStore struct {
	logFn               func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn              func(ctx context.Context, limit, offset int) ([]map[string]any, error)
	listDiscrepanciesFn func(ctx context.Context, limit, offset int) ([]models.FinancialDiscrepancy, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func (s stubAuditStore) ListDiscrepancies(ctx context.Context, limit, offset int) ([]models.FinancialDiscrepancy, error) {
	if s.listDiscrepanciesFn == nil {
		return nil, nil
	}
	return s.listDiscrepanciesFn(ctx, limit, offset)
}

type stubLedgerService struct {
	provisionFn func(ctx context.Context, tx store.Execer, userID, currency string) error
	balanceFn   func(ctx context.Context, userID, walletType string) (decimal.Decimal, error)
}

func (s stubLedgerService) ProvisionUserWallets(ctx context.Context, tx store.Execer, userID, currency string) error {
	if s.provisionFn == nil {
		return nil
	}
	return s.provisionFn(ctx, tx, userID, currency)
}

func (s stubLedgerService) Balance(ctx context.Context, userID, walletType string) (decimal.Decimal, error) {
	if s.balanceFn == nil {
		return decimal.Zero, nil
	}
	return s.balanceFn(ctx, userID, walletType)
}

type stubOTPService struct {
	issueFn func(ctx context.Context, userID, purpose string) error
}

func (s stubOTPService) Issue(ctx context.Context, userID, purpose string) error {
	if s.issueFn == nil {
		return nil
	}
	return s.issueFn(ctx, userID, purpose)
}

type stubWithdrawalService struct {
	createFn            func(ctx context.Context, req services.CreateWithdrawalRequest) (models.WithdrawalRequest, error)
	accountantApproveFn func(ctx context.Context, requestID, accountantID string) error
	adminApproveFn      func(ctx context.Context, requestID, adminID string) error
	rejectFn            func(ctx context.Context, requestID, reviewerID, reason string) error
}

func (s stubWithdrawalService) Create(ctx context.Context, req services.CreateWithdrawalRequest) (models.WithdrawalRequest, error) {
	if s.createFn == nil {
		return models.WithdrawalRequest{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubWithdrawalService) AccountantApprove(ctx context.Context, requestID, accountantID string) error {
	if s.accountantApproveFn == nil {
		return nil
	}
	return s.accountantApproveFn(ctx, requestID, accountantID)
}

func (s stubWithdrawalService) AdminApprove(ctx context.Context, requestID, adminID string) error {
	if s.adminApproveFn == nil {
		return nil
	}
	return s.adminApproveFn(ctx, requestID, adminID)
}

func (s stubWithdrawalService) Reject(ctx context.Context, requestID, reviewerID, reason string) error {
	if s.rejectFn == nil {
		return nil
	}
	return s.rejectFn(ctx, requestID, reviewerID, reason)
}

type stubDepositService struct {
	createFn            func(ctx context.Context, req services.CreateDepositRequest) (models.DepositRequest, error)
	accountantApproveFn func(ctx context.Context, requestID, accountantID string) error
	adminApproveFn      func(ctx context.Context, requestID, adminID string) error
	rejectFn            func(ctx context.Context, requestID, reviewerID, reason string) error
	providerEventFn     func(ctx context.Context, externalRef string, amount decimal.Decimal) error
}

func (s stubDepositService) Create(ctx context.Context, req services.CreateDepositRequest) (models.DepositRequest, error) {
	if s.createFn == nil {
		return models.DepositRequest{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubDepositService) AccountantApprove(ctx context.Context, requestID, accountantID string) error {
	if s.accountantApproveFn == nil {
		return nil
	}
	return s.accountantApproveFn(ctx, requestID, accountantID)
}

func (s stubDepositService) AdminApprove(ctx context.Context, requestID, adminID string) error {
	if s.adminApproveFn == nil {
		return nil
	}
	return s.adminApproveFn(ctx, requestID, adminID)
}

func (s stubDepositService) Reject(ctx context.Context, requestID, reviewerID, reason string) error {
	if s.rejectFn == nil {
		return nil
	}
	return s.rejectFn(ctx, requestID, reviewerID, reason)
}

func (s stubDepositService) HandleProviderEvent(ctx context.Context, externalRef string, amount decimal.Decimal) error {
	if s.providerEventFn == nil {
		return nil
	}
	return s.providerEventFn(ctx, externalRef, amount)
}

type stubInvestmentService struct {
	subscribeFn func(ctx context.Context, req services.SubscribeRequest) (models.InvestmentPosition, error)
}

func (s stubInvestmentService) Subscribe(ctx context.Context, req services.SubscribeRequest) (models.InvestmentPosition, error) {
	if s.subscribeFn == nil {
		return models.InvestmentPosition{}, nil
	}
	return s.subscribeFn(ctx, req)
}

type stubProfitService struct {
	submitBatchFn   func(ctx context.Context, req services.SubmitBatchRequest) (models.ProfitBatch, error)
	finalizeBatchFn func(ctx context.Context, batchID, adminID string) error
	rejectBatchFn   func(ctx context.Context, batchID, adminID, reason string) error
	weeklyAuditFn   func(ctx context.Context) (int, error)
}

func (s stubProfitService) SubmitBatch(ctx context.Context, req services.SubmitBatchRequest) (models.ProfitBatch, error) {
	if s.submitBatchFn == nil {
		return models.ProfitBatch{}, nil
	}
	return s.submitBatchFn(ctx, req)
}

func (s stubProfitService) FinalizeBatch(ctx context.Context, batchID, adminID string) error {
	if s.finalizeBatchFn == nil {
		return nil
	}
	return s.finalizeBatchFn(ctx, batchID, adminID)
}

func (s stubProfitService) RejectBatch(ctx context.Context, batchID, adminID, reason string) error {
	if s.rejectBatchFn == nil {
		return nil
	}
	return s.rejectBatchFn(ctx, batchID, adminID, reason)
}

func (s stubProfitService) RunWeeklyAudit(ctx context.Context) (int, error) {
	if s.weeklyAuditFn == nil {
		return 0, nil
	}
	return s.weeklyAuditFn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		WebhookSecret:  "hook-secret",
	}
}

// newTestHandler builds a Handler over no-op stubs; mutate overrides any of
// them for the case under test.
func newTestHandler(mutate func(*Deps)) *Handler {
	deps := Deps{
		Cfg:          testConfig(),
		DB:           stubDB{},
		TxRunner:     fakeTxRunner{},
		Users:        stubUserStore{},
		Staff:        stubStaffStore{},
		KYC:          stubKYCStore{},
		Transactions: stubTransactionStore{},
		Withdrawals:  stubWithdrawalStore{},
		Deposits:     stubDepositStore{},
		Positions:    stubPositionStore{},
		Plans:        stubPlanStore{},
		Batches:      stubBatchStore{},
		Referrals:    stubReferralStore{},
		Audit:        stubAuditStore{},

		Ledger:        stubLedgerService{},
		OTP:           stubOTPService{},
		WithdrawalSvc: stubWithdrawalService{},
		DepositSvc:    stubDepositService{},
		InvestmentSvc: stubInvestmentService{},
		ProfitSvc:     stubProfitService{},

		Hub: websocket.NewHub(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}
