package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/db"
	"invest/internal/models"
	"invest/internal/money"
	"invest/internal/store"
	"invest/internal/websocket"
)

const depositMethodMobile = "mobile"

// DepositService runs the deposit pipeline. A deposit's Transaction record is
// created PENDING together with the request and settled later, either by the
// two-stage review or by a payment-provider webhook. The webhook is the one
// path allowed to bypass review; everything else moves through both stages.
type DepositService struct {
	txRunner db.TxRunner
	ledger   *LedgerService
	deposits DepositStore
	users    UserStore
	otp      *OTPService
	audit    AuditStore
	notifier NotifierSink
	hub      BalanceHub
}

func NewDepositService(txRunner db.TxRunner, ledger *LedgerService, deposits DepositStore, users UserStore, otp *OTPService, audit AuditStore, notifier NotifierSink, hub BalanceHub) *DepositService {
	return &DepositService{
		txRunner: txRunner,
		ledger:   ledger,
		deposits: deposits,
		users:    users,
		otp:      otp,
		audit:    audit,
		notifier: notifier,
		hub:      hub,
	}
}

type CreateDepositRequest struct {
	UserID            string
	Method            string
	Amount            string
	OTPCode           string
	ExternalReference *string
}

func depositReference(requestID string) string {
	return "deposit:" + requestID
}

// Create records the request and its PENDING transaction in one database
// transaction. Mobile deposits are OTP-gated.
func (s *DepositService) Create(ctx context.Context, req CreateDepositRequest) (models.DepositRequest, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return models.DepositRequest{}, err
	}
	if req.Method == depositMethodMobile {
		if err := s.otp.Verify(ctx, req.UserID, models.OTPPurposeMobileDeposit, req.OTPCode); err != nil {
			return models.DepositRequest{}, err
		}
	}
	request := models.DepositRequest{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		Method:            req.Method,
		Amount:            amount,
		Status:            models.RequestPendingAccountant,
		ExternalReference: req.ExternalReference,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, _, err := s.ledger.UserAccount(ctx, tx, req.UserID, models.WalletTypeMain)
		if err != nil {
			return err
		}
		if err := s.deposits.Create(ctx, tx, request); err != nil {
			return err
		}
		reference := depositReference(request.ID)
		wid := wallet.ID
		if err := s.ledger.txStore.Create(ctx, tx, store.TransactionInput{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			WalletID:  &wid,
			Currency:  wallet.Currency,
			Type:      models.TxTypeDeposit,
			Status:    models.TxStatusPending,
			Amount:    amount,
			Reference: &reference,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"amount": amount.String(), "method": req.Method})
		return s.audit.Log(ctx, tx, req.UserID, "deposit_request_created", "deposit_request", request.ID, string(data))
	})
	if err != nil {
		return models.DepositRequest{}, err
	}
	s.notifier.SendNotification(ctx, req.UserID, "deposit", "Deposit requested",
		fmt.Sprintf("Your deposit of %s is awaiting review.", money.Format(amount)))
	return request, nil
}

// AccountantApprove advances a pending deposit to admin review with no
// ledger effect.
func (s *DepositService) AccountantApprove(ctx context.Context, requestID, accountantID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.deposits.Transition(ctx, tx, requestID,
			models.RequestPendingAccountant, models.RequestPendingAdminFinal, &accountantID, nil, nil)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		return s.audit.Log(ctx, tx, accountantID, "deposit_accountant_approved", "deposit_request", requestID, "{}")
	})
}

// AdminApprove settles the deposit: posts the double entry against the
// PENDING transaction, flips it to SUCCESS, and terminates the request in
// APPROVED, all in one database transaction.
func (s *DepositService) AdminApprove(ctx context.Context, requestID, adminID string) error {
	var request models.DepositRequest
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.deposits.GetByID(ctx, tx, requestID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if request.Status != models.RequestPendingAdminFinal {
			return ErrStaleStatus
		}
		if err := s.settle(ctx, tx, request); err != nil {
			return err
		}
		moved, err := s.deposits.Transition(ctx, tx, requestID,
			models.RequestPendingAdminFinal, models.RequestApproved, nil, &adminID, nil)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		return s.audit.Log(ctx, tx, adminID, "deposit_approved", "deposit_request", requestID, "{}")
	})
	if err != nil {
		s.failPendingOnInfra(ctx, requestID, err)
		return err
	}
	s.afterSettle(ctx, request)
	return nil
}

// Reject terminates the request at either stage and fails its PENDING
// transaction so nothing is left half-open.
func (s *DepositService) Reject(ctx context.Context, requestID, reviewerID, reason string) error {
	if reason == "" {
		return ErrRejectReasonRequired
	}
	var request models.DepositRequest
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.deposits.GetByID(ctx, tx, requestID)
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
		moved, err := s.deposits.Transition(ctx, tx, requestID, from, models.RequestRejected, accountantID, adminID, &reason)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		if pending, err := s.ledger.txStore.GetByReference(ctx, tx, depositReference(requestID)); err == nil && pending.Status == models.TxStatusPending {
			if err := s.ledger.txStore.UpdateStatus(ctx, tx, pending.ID, models.TxStatusFailed); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{"reason": reason})
		return s.audit.Log(ctx, tx, reviewerID, "deposit_rejected", "deposit_request", requestID, string(data))
	})
	if err != nil {
		return err
	}
	s.notifier.SendNotification(ctx, request.UserID, "deposit", "Deposit rejected", reason)
	if request.Status == models.RequestPendingAdminFinal && request.AccountantID != nil {
		if accountant, err := s.users.GetByID(ctx, *request.AccountantID); err == nil {
			s.notifier.SendEmail(accountant.Email, "Deposit request rejected at final review",
				fmt.Sprintf("Request %s you approved was rejected: %s", requestID, reason))
		}
	}
	return nil
}

// HandleProviderEvent settles a deposit confirmed by the payment provider,
// bypassing manual review. Replays are idempotent: an already settled
// deposit returns nil without touching the ledger.
func (s *DepositService) HandleProviderEvent(ctx context.Context, externalRef string, amount decimal.Decimal) error {
	var request models.DepositRequest
	var requestID string
	var settledNow bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		request, err = s.deposits.GetByExternalReference(ctx, tx, externalRef)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		requestID = request.ID
		pending, err := s.ledger.txStore.GetByReference(ctx, tx, depositReference(request.ID))
		if err != nil {
			return err
		}
		if pending.Status == models.TxStatusSuccess {
			return nil
		}
		// A rejected request has a FAILED transaction; a late provider event
		// must not resurrect it.
		if !request.Status.CanTransitionTo(models.RequestApproved) || pending.Status != models.TxStatusPending {
			return ErrStaleStatus
		}
		if !amount.Equal(request.Amount) {
			return ErrAmountMismatch
		}
		if err := s.settle(ctx, tx, request); err != nil {
			return err
		}
		moved, err := s.deposits.Transition(ctx, tx, request.ID,
			request.Status, models.RequestApproved, nil, nil, nil)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		settledNow = true
		return s.audit.Log(ctx, tx, request.UserID, "deposit_webhook_settled", "deposit_request", request.ID, "{}")
	})
	if err != nil {
		s.failPendingOnInfra(ctx, requestID, err)
		return err
	}
	if settledNow {
		s.afterSettle(ctx, request)
	}
	return nil
}

// settle posts DEBIT user MAIN / CREDIT system cash against the deposit's
// existing PENDING transaction and marks it SUCCESS.
func (s *DepositService) settle(ctx context.Context, tx TxQuerier, request models.DepositRequest) error {
	pending, err := s.ledger.txStore.GetByReference(ctx, tx, depositReference(request.ID))
	if err != nil {
		return err
	}
	wallet, userAccount, err := s.ledger.UserAccount(ctx, tx, request.UserID, models.WalletTypeMain)
	if err != nil {
		return err
	}
	cash, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoCash)
	if err != nil {
		return err
	}
	uid := request.UserID
	return s.ledger.Settle(ctx, tx, pending.ID, Posting{
		UserID:          request.UserID,
		Currency:        wallet.Currency,
		Type:            models.TxTypeDeposit,
		Amount:          request.Amount,
		DebitAccountID:  userAccount.ID,
		DebitUserID:     &uid,
		CreditAccountID: cash.ID,
	})
}

// failPendingOnInfra marks the deposit's PENDING transaction FAILED when
// settlement hit an infrastructure fault, so it is never left open.
func (s *DepositService) failPendingOnInfra(ctx context.Context, requestID string, cause error) {
	if requestID == "" {
		return
	}
	if !errors.Is(cause, ErrSystemAccountMissing) && !errors.Is(cause, ErrWalletNotFound) {
		return
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		pending, err := s.ledger.txStore.GetByReference(ctx, tx, depositReference(requestID))
		if err != nil {
			return err
		}
		if pending.Status != models.TxStatusPending {
			return nil
		}
		return s.ledger.txStore.UpdateStatus(ctx, tx, pending.ID, models.TxStatusFailed)
	})
	if err != nil {
		log.Printf("failed to mark deposit transaction FAILED request=%s: %v", requestID, err)
	}
}

func (s *DepositService) afterSettle(ctx context.Context, request models.DepositRequest) {
	if user, err := s.users.GetByID(ctx, request.UserID); err == nil {
		s.notifier.SendEmail(user.Email, "Deposit confirmed",
			fmt.Sprintf("Your deposit of %s has been credited.", money.Format(request.Amount)))
	}
	s.notifier.SendNotification(ctx, request.UserID, "deposit", "Deposit confirmed",
		fmt.Sprintf("Your deposit of %s has been credited.", money.Format(request.Amount)))
	currency := "USD"
	if wallet, _, err := s.ledger.UserAccount(ctx, s.ledger.db, request.UserID, models.WalletTypeMain); err == nil {
		currency = wallet.Currency
	}
	if balance, err := s.ledger.Balance(ctx, request.UserID, models.WalletTypeMain); err == nil {
		s.hub.BroadcastBalance(request.UserID, websocket.BalanceUpdate{
			WalletType: models.WalletTypeMain,
			Balance:    money.Format(balance),
			Currency:   currency,
		})
	}
}
