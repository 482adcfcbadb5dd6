package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"invest/internal/models"
	"invest/internal/services"
	"invest/internal/store"
)

// Narrow interfaces over the stores and services the HTTP layer touches.

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByReferralCode(ctx context.Context, code string) (models.User, error)
}

type StaffStore interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
	GrantRole(ctx context.Context, tx store.Execer, userID, role string, grantedBy *string) error
	HasAnyStaff(ctx context.Context) (bool, error)
}

type KYCStore interface {
	Create(ctx context.Context, tx store.Execer, record models.KYCRecord) error
	LatestStatus(ctx context.Context, userID string) (string, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
}

type WithdrawalStore interface {
	GetByID(ctx context.Context, q store.Getter, requestID string) (models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.WithdrawalRequest, error)
}

type DepositStore interface {
	GetByID(ctx context.Context, q store.Getter, requestID string) (models.DepositRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.DepositRequest, error)
}

type PositionStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.InvestmentPosition, error)
}

type PlanStore interface {
	Create(ctx context.Context, tx store.Execer, plan models.InvestmentPlan) error
	ListActive(ctx context.Context) ([]models.InvestmentPlan, error)
}

type BatchStore interface {
	GetByID(ctx context.Context, q store.Getter, batchID string) (models.ProfitBatch, error)
	ListByStatus(ctx context.Context, status models.BatchStatus, limit, offset int) ([]models.ProfitBatch, error)
	ListAllocations(ctx context.Context, batchID string) ([]models.ProfitAllocation, error)
}

type ReferralStore interface {
	InsertLinks(ctx context.Context, tx store.Execer, links []store.ReferralLink) error
	Ancestors(ctx context.Context, q store.Selecter, userID string) ([]store.ReferralLink, error)
	UpsertRate(ctx context.Context, tx store.Execer, level int, rate decimal.Decimal, updatedBy string) error
	Rates(ctx context.Context, q store.Selecter) ([]store.ReferralRate, error)
	SumEarnings(ctx context.Context, q store.Getter, uplineUserID string) (decimal.Decimal, error)
	ListEarnings(ctx context.Context, uplineUserID string, limit, offset int) ([]models.ReferralCommission, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
	ListDiscrepancies(ctx context.Context, limit, offset int) ([]models.FinancialDiscrepancy, error)
}

type LedgerService interface {
	ProvisionUserWallets(ctx context.Context, tx store.Execer, userID, currency string) error
	Balance(ctx context.Context, userID, walletType string) (decimal.Decimal, error)
}

type OTPService interface {
	Issue(ctx context.Context, userID, purpose string) error
}

type WithdrawalService interface {
	Create(ctx context.Context, req services.CreateWithdrawalRequest) (models.WithdrawalRequest, error)
	AccountantApprove(ctx context.Context, requestID, accountantID string) error
	AdminApprove(ctx context.Context, requestID, adminID string) error
	Reject(ctx context.Context, requestID, reviewerID, reason string) error
}

type DepositService interface {
	Create(ctx context.Context, req services.CreateDepositRequest) (models.DepositRequest, error)
	AccountantApprove(ctx context.Context, requestID, accountantID string) error
	AdminApprove(ctx context.Context, requestID, adminID string) error
	Reject(ctx context.Context, requestID, reviewerID, reason string) error
	HandleProviderEvent(ctx context.Context, externalRef string, amount decimal.Decimal) error
}

type InvestmentService interface {
	Subscribe(ctx context.Context, req services.SubscribeRequest) (models.InvestmentPosition, error)
}

type ProfitService interface {
	SubmitBatch(ctx context.Context, req services.SubmitBatchRequest) (models.ProfitBatch, error)
	FinalizeBatch(ctx context.Context, batchID, adminID string) error
	RejectBatch(ctx context.Context, batchID, adminID, reason string) error
	RunWeeklyAudit(ctx context.Context) (int, error)
}
