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

// InvestmentService opens positions against active plans. Subscribing spends
// from the MAIN wallet under the wallet lock and triggers the referral
// cascade on the invested amount.
type InvestmentService struct {
	txRunner  db.TxRunner
	locker    Locker
	ledger    *LedgerService
	referrals *ReferralService
	plans     PlanStore
	positions PositionStore
	audit     AuditStore
	notifier  NotifierSink
	hub       BalanceHub
}

func NewInvestmentService(txRunner db.TxRunner, locker Locker, ledger *LedgerService, referrals *ReferralService, plans PlanStore, positions PositionStore, audit AuditStore, notifier NotifierSink, hub BalanceHub) *InvestmentService {
	return &InvestmentService{
		txRunner:  txRunner,
		locker:    locker,
		ledger:    ledger,
		referrals: referrals,
		plans:     plans,
		positions: positions,
		audit:     audit,
		notifier:  notifier,
		hub:       hub,
	}
}

type SubscribeRequest struct {
	UserID string
	PlanID string
	Amount string
}

// Subscribe opens an ACTIVE position: balance check, the INVESTMENT posting,
// and the commission cascade all run under the wallet lock, with the
// financial writes in one database transaction.
func (s *InvestmentService) Subscribe(ctx context.Context, req SubscribeRequest) (models.InvestmentPosition, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return models.InvestmentPosition{}, err
	}
	plan, err := s.plans.GetByID(ctx, s.ledger.db, req.PlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InvestmentPosition{}, ErrPlanNotFound
	}
	if err != nil {
		return models.InvestmentPosition{}, err
	}
	if !plan.IsActive {
		return models.InvestmentPosition{}, ErrPlanInactive
	}

	position := models.InvestmentPosition{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		PlanID:          plan.ID,
		InvestedAmount:  amount,
		Status:          models.PositionStatusActive,
		TotalProfitPaid: decimal.Zero,
	}
	var currency string
	err = s.locker.WithLock(ctx, walletLockKey(req.UserID, models.WalletTypeMain), func(ctx context.Context) error {
		balance, err := s.ledger.Balance(ctx, req.UserID, models.WalletTypeMain)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return &ValidationError{Reasons: []string{ReasonInsufficient}}
		}
		return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			wallet, userAccount, err := s.ledger.UserAccount(ctx, tx, req.UserID, models.WalletTypeMain)
			if err != nil {
				return err
			}
			cash, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoCash)
			if err != nil {
				return err
			}
			currency = wallet.Currency
			if err := s.positions.Create(ctx, tx, position); err != nil {
				return err
			}
			reference := "investment:" + position.ID
			uid := req.UserID
			wid := wallet.ID
			if _, err := s.ledger.PostIdempotent(ctx, tx, Posting{
				UserID:          req.UserID,
				WalletID:        &wid,
				Currency:        wallet.Currency,
				Type:            models.TxTypeInvestment,
				Reference:       &reference,
				Amount:          amount,
				DebitAccountID:  cash.ID,
				CreditAccountID: userAccount.ID,
				CreditUserID:    &uid,
			}); err != nil {
				return err
			}
			rates, err := s.referrals.LoadRates(ctx, tx)
			if err != nil {
				return err
			}
			if err := s.referrals.PayCascade(ctx, tx, req.UserID, amount, position.ID, rates); err != nil {
				return err
			}
			data, _ := json.Marshal(map[string]string{"plan_id": plan.ID, "amount": amount.String()})
			return s.audit.Log(ctx, tx, req.UserID, "investment_subscribed", "investment_position", position.ID, string(data))
		})
	})
	if err != nil {
		return models.InvestmentPosition{}, err
	}
	s.notifier.SendNotification(ctx, req.UserID, "investment", "Investment opened",
		fmt.Sprintf("You invested %s in %s.", money.Format(amount), plan.Name))
	if balance, err := s.ledger.Balance(ctx, req.UserID, models.WalletTypeMain); err == nil {
		s.hub.BroadcastBalance(req.UserID, websocket.BalanceUpdate{
			WalletType: models.WalletTypeMain,
			Balance:    money.Format(balance),
			Currency:   currency,
		})
	}
	return position, nil
}
