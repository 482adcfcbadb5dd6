package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ReferralCode string    `db:"referral_code" json:"referral_code"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	WalletTypeMain   = "MAIN"
	WalletTypeProfit = "PROFIT"
)

type Wallet struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Currency  string     `db:"currency" json:"currency"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// System account numbers seeded by migration. System accounts carry no
// user_id or wallet_id.
const (
	AccountNoCash       = "1000"
	AccountNoReward     = "4000"
	AccountNoCommission = "4100"
)

type LedgerAccount struct {
	ID        string     `db:"id" json:"id"`
	UserID    *string    `db:"user_id" json:"user_id,omitempty"`
	WalletID  *string    `db:"wallet_id" json:"wallet_id,omitempty"`
	AccountNo string     `db:"account_no" json:"account_no"`
	Name      string     `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

const (
	DirectionDebit  = "DEBIT"
	DirectionCredit = "CREDIT"
)

type LedgerEntry struct {
	ID            string          `db:"id" json:"id"`
	AccountID     string          `db:"account_id" json:"account_id"`
	UserID        *string         `db:"user_id" json:"user_id,omitempty"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	Direction     string          `db:"direction" json:"direction"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	DeletedAt     *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

const (
	TxTypeDeposit    = "DEPOSIT"
	TxTypeWithdrawal = "WITHDRAWAL"
	TxTypeTransfer   = "TRANSFER"
	TxTypeDividend   = "DIVIDEND"
	TxTypeInvestment = "INVESTMENT"
	TxTypeFee        = "FEE"
	TxTypeReversal   = "REVERSAL"
)

const (
	TxStatusPending = "PENDING"
	TxStatusSuccess = "SUCCESS"
	TxStatusFailed  = "FAILED"
)

type Transaction struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	WalletID  *string         `db:"wallet_id" json:"wallet_id,omitempty"`
	Currency  string          `db:"currency" json:"currency"`
	Type      string          `db:"type" json:"type"`
	Status    string          `db:"status" json:"status"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reference *string         `db:"reference" json:"reference,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type WithdrawalRequest struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Method       string          `db:"method" json:"method"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Status       RequestStatus   `db:"status" json:"status"`
	AccountantID *string         `db:"accountant_id" json:"accountant_id,omitempty"`
	AdminID      *string         `db:"admin_id" json:"admin_id,omitempty"`
	RejectReason *string         `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type DepositRequest struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	Method            string          `db:"method" json:"method"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Status            RequestStatus   `db:"status" json:"status"`
	AccountantID      *string         `db:"accountant_id" json:"accountant_id,omitempty"`
	AdminID           *string         `db:"admin_id" json:"admin_id,omitempty"`
	RejectReason      *string         `db:"reject_reason" json:"reject_reason,omitempty"`
	ExternalReference *string         `db:"external_reference" json:"external_reference,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	OTPPurposeWithdrawal    = "withdrawal"
	OTPPurposeMobileDeposit = "mobile_deposit"
)

const (
	OTPStatusActive   = "ACTIVE"
	OTPStatusConsumed = "CONSUMED"
	OTPStatusExpired  = "EXPIRED"
)

type OTPChallenge struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Purpose   string    `db:"purpose" json:"purpose"`
	CodeHash  string    `db:"code_hash" json:"-"`
	Status    string    `db:"status" json:"status"`
	Attempts  int       `db:"attempts" json:"attempts"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PlanTypeFixed       = "FIXED"
	PlanTypeVariable    = "VARIABLE"
	PlanTypeAdminManual = "ADMIN_MANUAL"
)

type InvestmentPlan struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Type      string          `db:"type" json:"type"`
	ROIValue  decimal.Decimal `db:"roi_value" json:"roi_value"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

const (
	PositionStatusActive    = "ACTIVE"
	PositionStatusCompleted = "COMPLETED"
	PositionStatusCancelled = "CANCELLED"
)

type InvestmentPosition struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	PlanID          string          `db:"plan_id" json:"plan_id"`
	InvestedAmount  decimal.Decimal `db:"invested_amount" json:"invested_amount"`
	Status          string          `db:"status" json:"status"`
	TotalProfitPaid decimal.Decimal `db:"total_profit_paid" json:"total_profit_paid"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

type ProfitBatch struct {
	ID                    string           `db:"id" json:"id"`
	PeriodType            string           `db:"period_type" json:"period_type"`
	PeriodStart           time.Time        `db:"period_start" json:"period_start"`
	PeriodEnd             time.Time        `db:"period_end" json:"period_end"`
	TotalProfit           decimal.Decimal  `db:"total_profit" json:"total_profit"`
	Status                BatchStatus      `db:"status" json:"status"`
	SubmittedBy           string           `db:"submitted_by" json:"submitted_by"`
	FinalizedBy           *string          `db:"finalized_by" json:"finalized_by,omitempty"`
	EvidenceURL           *string          `db:"evidence_url" json:"evidence_url,omitempty"`
	Comments              *string          `db:"comments" json:"comments,omitempty"`
	RejectReason          *string          `db:"reject_reason" json:"reject_reason,omitempty"`
	TotalInvestmentAmount *decimal.Decimal `db:"total_investment_amount" json:"total_investment_amount,omitempty"`
	RecipientCount        *int             `db:"recipient_count" json:"recipient_count,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

type ProfitAllocation struct {
	ID        string          `db:"id" json:"id"`
	BatchID   string          `db:"batch_id" json:"batch_id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type ReferralCommission struct {
	ID              string          `db:"id" json:"id"`
	UplineUserID    string          `db:"upline_user_id" json:"upline_user_id"`
	DownlineUserID  string          `db:"downline_user_id" json:"downline_user_id"`
	Level           int             `db:"level" json:"level"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	SourceReference string          `db:"source_reference" json:"source_reference"`
	TransactionID   string          `db:"transaction_id" json:"transaction_id"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

const (
	KYCStatusPending  = "PENDING"
	KYCStatusApproved = "APPROVED"
	KYCStatusRejected = "REJECTED"
)

type KYCRecord struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Status     string    `db:"status" json:"status"`
	ReviewedBy *string   `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const (
	RoleAccountant = "accountant"
	RoleAdmin      = "admin"
)

type FinancialDiscrepancy struct {
	ID         string          `db:"id" json:"id"`
	WalletID   *string         `db:"wallet_id" json:"wallet_id,omitempty"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Kind       string          `db:"kind" json:"kind"`
	Expected   decimal.Decimal `db:"expected" json:"expected"`
	Actual     decimal.Decimal `db:"actual" json:"actual"`
	Variance   decimal.Decimal `db:"variance" json:"variance"`
	DetectedAt time.Time       `db:"detected_at" json:"detected_at"`
}
