package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/db"
	"invest/internal/models"
	"invest/internal/money"
	"invest/internal/websocket"
)

// WithdrawalService runs the withdrawal pipeline: validated, OTP-gated
// request creation under the wallet lock, two-stage review, and the terminal
// payout posting.
type WithdrawalService struct {
	txRunner    db.TxRunner
	locker      Locker
	ledger      *LedgerService
	withdrawals WithdrawalStore
	users       UserStore
	kyc         KYCStore
	otp         *OTPService
	audit       AuditStore
	notifier    NotifierSink
	hub         BalanceHub
	dailyLimit  decimal.Decimal
}

func NewWithdrawalService(txRunner db.TxRunner, locker Locker, ledger *LedgerService, withdrawals WithdrawalStore, users UserStore, kyc KYCStore, otp *OTPService, audit AuditStore, notifier NotifierSink, hub BalanceHub, dailyLimit decimal.Decimal) *WithdrawalService {
	return &WithdrawalService{
		txRunner:    txRunner,
		locker:      locker,
		ledger:      ledger,
		withdrawals: withdrawals,
		users:       users,
		kyc:         kyc,
		otp:         otp,
		audit:       audit,
		notifier:    notifier,
		hub:         hub,
		dailyLimit:  dailyLimit,
	}
}

type CreateWithdrawalRequest struct {
	UserID  string
	Method  string
	Amount  string
	OTPCode string
}

// Validate evaluates every creation precondition and returns all failing
// reasons together. An empty slice means the request may proceed.
func (s *WithdrawalService) Validate(ctx context.Context, userID string, amount decimal.Decimal) ([]string, error) {
	var reasons []string
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		reasons = append(reasons, ReasonAccountFrozen)
	}
	kycStatus, err := s.kyc.LatestStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if kycStatus != models.KYCStatusApproved {
		reasons = append(reasons, ReasonKYCNotApproved)
	}
	balance, err := s.ledger.Balance(ctx, userID, models.WalletTypeMain)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		reasons = append(reasons, ReasonInsufficient)
	}
	todayTotal, err := s.withdrawals.SumForDay(ctx, s.ledger.db, userID, utcDay(nowUTC()))
	if err != nil {
		return nil, err
	}
	if todayTotal.Add(amount).GreaterThan(s.dailyLimit) {
		reasons = append(reasons, ReasonDailyLimit)
	}
	return reasons, nil
}

// Create verifies the withdrawal OTP, then re-validates and inserts the
// request under the user's wallet lock so the balance check cannot race a
// concurrent spend.
func (s *WithdrawalService) Create(ctx context.Context, req CreateWithdrawalRequest) (models.WithdrawalRequest, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if err := s.otp.Verify(ctx, req.UserID, models.OTPPurposeWithdrawal, req.OTPCode); err != nil {
		return models.WithdrawalRequest{}, err
	}
	request := models.WithdrawalRequest{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Method: req.Method,
		Amount: amount,
		Status: models.RequestPendingAccountant,
	}
	err = s.locker.WithLock(ctx, walletLockKey(req.UserID, models.WalletTypeMain), func(ctx context.Context) error {
		reasons, err := s.Validate(ctx, req.UserID, amount)
		if err != nil {
			return err
		}
		if len(reasons) > 0 {
			return &ValidationError{Reasons: reasons}
		}
		return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.withdrawals.Create(ctx, tx, request); err != nil {
				return err
			}
			data, _ := json.Marshal(map[string]string{"amount": amount.String(), "method": req.Method})
			return s.audit.Log(ctx, tx, req.UserID, "withdrawal_request_created", "withdrawal_request", request.ID, string(data))
		})
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	s.notifier.SendNotification(ctx, req.UserID, "withdrawal", "Withdrawal requested",
		fmt.Sprintf("Your withdrawal of %s is awaiting review.", money.Format(amount)))
	return request, nil
}

// AccountantApprove advances a pending request to admin review. No ledger
// effect at this stage.
func (s *WithdrawalService) AccountantApprove(ctx context.Context, requestID, accountantID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.withdrawals.Transition(ctx, tx, requestID,
			models.RequestPendingAccountant, models.RequestPendingAdminFinal, &accountantID, nil, nil)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		return s.audit.Log(ctx, tx, accountantID, "withdrawal_accountant_approved", "withdrawal_request", requestID, "{}")
	})
}

// AdminApprove posts the payout double entry and flips the request to PAID
// in one database transaction, under the wallet lock so the balance still
// covers the amount at posting time. The payout posting is keyed by the
// request id, so a retried approval cannot pay twice.
func (s *WithdrawalService) AdminApprove(ctx context.Context, requestID, adminID string) error {
	var request models.WithdrawalRequest
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.withdrawals.GetByID(ctx, tx, requestID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	var currency string
	return s.locker.WithLock(ctx, walletLockKey(request.UserID, models.WalletTypeMain), func(ctx context.Context) error {
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			current, err := s.withdrawals.GetByID(ctx, tx, requestID)
			if err != nil {
				return err
			}
			if current.Status != models.RequestPendingAdminFinal {
				return ErrStaleStatus
			}
			wallet, userAccount, err := s.ledger.UserAccount(ctx, tx, current.UserID, models.WalletTypeMain)
			if err != nil {
				return err
			}
			cash, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoCash)
			if err != nil {
				return err
			}
			reference := "withdrawal_payout:" + requestID
			// The balance can shrink between request creation and payout, so
			// it is re-checked here under the lock. Skipped when the payout
			// already posted: the sum would already reflect the debit and a
			// retried approval must still land the status flip.
			if _, err := s.ledger.txStore.GetByReference(ctx, tx, reference); errors.Is(err, sql.ErrNoRows) {
				balance, err := s.ledger.ledger.SumByUserWallet(ctx, tx, current.UserID, models.WalletTypeMain)
				if err != nil {
					return err
				}
				if balance.LessThan(current.Amount) {
					return &ValidationError{Reasons: []string{ReasonInsufficient}}
				}
			} else if err != nil {
				return err
			}
			uid := current.UserID
			wid := wallet.ID
			currency = wallet.Currency
			if _, err := s.ledger.PostIdempotent(ctx, tx, Posting{
				UserID:          current.UserID,
				WalletID:        &wid,
				Currency:        wallet.Currency,
				Type:            models.TxTypeWithdrawal,
				Reference:       &reference,
				Amount:          current.Amount,
				DebitAccountID:  cash.ID,
				CreditAccountID: userAccount.ID,
				CreditUserID:    &uid,
			}); err != nil {
				return err
			}
			moved, err := s.withdrawals.Transition(ctx, tx, requestID,
				models.RequestPendingAdminFinal, models.RequestPaid, nil, &adminID, nil)
			if err != nil {
				return err
			}
			if moved == 0 {
				return ErrStaleStatus
			}
			return s.audit.Log(ctx, tx, adminID, "withdrawal_paid", "withdrawal_request", requestID, "{}")
		})
		if err != nil {
			return err
		}
		s.afterPayout(ctx, request, currency)
		return nil
	})
}

// Reject terminates a request at either review stage. A reason is required.
// Rejection after accountant approval also notifies that accountant.
func (s *WithdrawalService) Reject(ctx context.Context, requestID, reviewerID, reason string) error {
	if reason == "" {
		return ErrRejectReasonRequired
	}
	var request models.WithdrawalRequest
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.withdrawals.GetByID(ctx, tx, requestID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if !request.Status.CanTransitionTo(models.RequestRejected) {
			return ErrStaleStatus
		}
		from := request.Status
		var accountantID, adminID *string
		if from == models.RequestPendingAccountant {
			accountantID = &reviewerID
		} else {
			adminID = &reviewerID
		}
		moved, err := s.withdrawals.Transition(ctx, tx, requestID, from, models.RequestRejected, accountantID, adminID, &reason)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		data, _ := json.Marshal(map[string]string{"reason": reason})
		return s.audit.Log(ctx, tx, reviewerID, "withdrawal_rejected", "withdrawal_request", requestID, string(data))
	})
	if err != nil {
		return err
	}
	s.notifier.SendNotification(ctx, request.UserID, "withdrawal", "Withdrawal rejected", reason)
	if request.Status == models.RequestPendingAdminFinal && request.AccountantID != nil {
		if accountant, err := s.users.GetByID(ctx, *request.AccountantID); err == nil {
			s.notifier.SendEmail(accountant.Email, "Withdrawal request rejected at final review",
				fmt.Sprintf("Request %s you approved was rejected: %s", requestID, reason))
		}
	}
	return nil
}

func (s *WithdrawalService) afterPayout(ctx context.Context, request models.WithdrawalRequest, currency string) {
	if user, err := s.users.GetByID(ctx, request.UserID); err == nil {
		s.notifier.SendEmail(user.Email, "Withdrawal paid",
			fmt.Sprintf("Your withdrawal of %s has been paid out.", money.Format(request.Amount)))
	}
	s.notifier.SendNotification(ctx, request.UserID, "withdrawal", "Withdrawal paid",
		fmt.Sprintf("Your withdrawal of %s has been paid out.", money.Format(request.Amount)))
	if balance, err := s.ledger.Balance(ctx, request.UserID, models.WalletTypeMain); err == nil {
		s.hub.BroadcastBalance(request.UserID, websocket.BalanceUpdate{
			WalletType: models.WalletTypeMain,
			Balance:    money.Format(balance),
			Currency:   currency,
		})
	}
}
