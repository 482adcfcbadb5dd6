package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"invest/internal/db"
	"invest/internal/models"
	"invest/internal/money"
)

// ProfitService distributes investment profit: the daily automatic reward
// job, accountant-submitted manual batches with admin finalization, and the
// weekly ledger-versus-transactions reconciliation.
type ProfitService struct {
	txRunner  db.TxRunner
	ledger    *LedgerService
	referrals *ReferralService
	positions PositionStore
	plans     PlanStore
	batches   BatchStore
	users     UserStore
	staff     StaffDirectory
	audit     AuditStore
	notifier  NotifierSink
	chunkSize int
}

func NewProfitService(txRunner db.TxRunner, ledger *LedgerService, referrals *ReferralService, positions PositionStore, plans PlanStore, batches BatchStore, users UserStore, staff StaffDirectory, audit AuditStore, notifier NotifierSink, chunkSize int) *ProfitService {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &ProfitService{
		txRunner:  txRunner,
		ledger:    ledger,
		referrals: referrals,
		positions: positions,
		plans:     plans,
		batches:   batches,
		users:     users,
		staff:     staff,
		audit:     audit,
		notifier:  notifier,
		chunkSize: chunkSize,
	}
}

func dailyRewardReference(positionID string, day time.Time) string {
	return "daily_reward:" + positionID + ":" + utcDay(day)
}

// RunDailyInvestmentRewards pays every ACTIVE position its daily reward for
// the given day. Positions are processed in fixed-size chunks, each chunk in
// its own database transaction; a chunk failure rolls back that chunk only
// and the job moves on. The per-position daily reference makes the whole run
// re-runnable: positions already paid for the day are skipped, so retrying
// after a failed chunk pays exactly the positions that missed out.
func (s *ProfitService) RunDailyInvestmentRewards(ctx context.Context, day time.Time) (int, error) {
	var paid int
	var failedChunks int
	afterID := ""
	for {
		chunk, err := s.positions.ListActiveChunk(ctx, afterID, s.chunkSize)
		if err != nil {
			return paid, err
		}
		if len(chunk) == 0 {
			break
		}
		afterID = chunk[len(chunk)-1].ID

		paidInChunk, err := s.rewardChunk(ctx, chunk, day)
		if err != nil {
			failedChunks++
			log.Printf("daily reward chunk failed after=%s: %v", afterID, err)
			continue
		}
		paid += paidInChunk
	}
	if failedChunks > 0 {
		return paid, fmt.Errorf("daily rewards: %d chunk(s) failed, %d position(s) paid", failedChunks, paid)
	}
	return paid, nil
}

func (s *ProfitService) rewardChunk(ctx context.Context, chunk []models.InvestmentPosition, day time.Time) (int, error) {
	var paid int
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		paid = 0
		rates, err := s.referrals.LoadRates(ctx, tx)
		if err != nil {
			return err
		}
		rewardAccount, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoReward)
		if err != nil {
			return err
		}
		plans := make(map[string]models.InvestmentPlan)
		for _, position := range chunk {
			plan, ok := plans[position.PlanID]
			if !ok {
				plan, err = s.plans.GetByID(ctx, tx, position.PlanID)
				if err != nil {
					return err
				}
				plans[position.PlanID] = plan
			}
			reward := dailyReward(position, plan)
			if reward.IsZero() {
				continue
			}
			wallet, profitAccount, err := s.ledger.UserAccount(ctx, tx, position.UserID, models.WalletTypeProfit)
			if err != nil {
				return err
			}
			reference := dailyRewardReference(position.ID, day)
			uid := position.UserID
			wid := wallet.ID
			created, err := s.ledger.PostIdempotent(ctx, tx, Posting{
				UserID:          position.UserID,
				WalletID:        &wid,
				Currency:        wallet.Currency,
				Type:            models.TxTypeDividend,
				Reference:       &reference,
				Amount:          reward,
				DebitAccountID:  profitAccount.ID,
				DebitUserID:     &uid,
				CreditAccountID: rewardAccount.ID,
			})
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			if err := s.positions.AddProfitPaid(ctx, tx, position.ID, reward); err != nil {
				return err
			}
			if err := s.referrals.PayCascade(ctx, tx, position.UserID, reward, reference, rates); err != nil {
				return err
			}
			paid++
		}
		return nil
	})
	return paid, err
}

// dailyReward computes invested_amount × roi_value. FIXED and VARIABLE plans
// are currently computed identically; ADMIN_MANUAL plans pay nothing here
// and are serviced only by manual batches.
func dailyReward(position models.InvestmentPosition, plan models.InvestmentPlan) decimal.Decimal {
	if plan.Type == models.PlanTypeAdminManual {
		return decimal.Zero
	}
	return position.InvestedAmount.Mul(plan.ROIValue).Round(money.MaxScale)
}

type SubmitBatchRequest struct {
	AccountantID string
	PeriodType   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TotalProfit  string
	EvidenceURL  *string
	Comments     *string
}

// SubmitBatch records an accountant's manual profit batch awaiting admin
// finalization. Nothing is allocated or posted yet.
func (s *ProfitService) SubmitBatch(ctx context.Context, req SubmitBatchRequest) (models.ProfitBatch, error) {
	total, err := money.ParsePositive(req.TotalProfit)
	if err != nil {
		return models.ProfitBatch{}, err
	}
	batch := models.ProfitBatch{
		ID:          uuid.NewString(),
		PeriodType:  req.PeriodType,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		TotalProfit: total,
		Status:      models.BatchPendingAdminFinal,
		SubmittedBy: req.AccountantID,
		EvidenceURL: req.EvidenceURL,
		Comments:    req.Comments,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.batches.Create(ctx, tx, batch); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"total_profit": total.String(), "period_type": req.PeriodType})
		return s.audit.Log(ctx, tx, req.AccountantID, "profit_batch_submitted", "profit_batch", batch.ID, string(data))
	})
	if err != nil {
		return models.ProfitBatch{}, err
	}
	return batch, nil
}

func batchAllocationReference(batchID, userID string) string {
	return "batch_allocation:" + batchID + ":" + userID
}

// FinalizeBatch allocates the batch's total profit pro rata over every user
// with a positive ACTIVE investment sum, posts each allocation to the user's
// PROFIT wallet, runs the commission cascade, and freezes the recipient and
// investment snapshots on the batch. The whole finalization is one database
// transaction; the allocation references make a retried finalization safe.
func (s *ProfitService) FinalizeBatch(ctx context.Context, batchID, adminID string) error {
	var allocated []models.ProfitAllocation
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		allocated = allocated[:0]
		batch, err := s.batches.GetByID(ctx, tx, batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBatchNotFound
		}
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(models.BatchFinalized) {
			return ErrStaleStatus
		}
		sums, err := s.positions.SumActiveByUser(ctx, tx)
		if err != nil {
			return err
		}
		totalInvestment := decimal.Zero
		for _, row := range sums {
			totalInvestment = totalInvestment.Add(row.Total)
		}
		if totalInvestment.IsZero() {
			return errors.New("no active investments to allocate against")
		}
		rates, err := s.referrals.LoadRates(ctx, tx)
		if err != nil {
			return err
		}
		rewardAccount, err := s.ledger.SystemAccount(ctx, tx, models.AccountNoReward)
		if err != nil {
			return err
		}
		for _, row := range sums {
			share := batch.TotalProfit.Mul(row.Total).Div(totalInvestment).Round(money.MaxScale)
			if share.IsZero() {
				continue
			}
			wallet, profitAccount, err := s.ledger.UserAccount(ctx, tx, row.UserID, models.WalletTypeProfit)
			if err != nil {
				return err
			}
			reference := batchAllocationReference(batchID, row.UserID)
			uid := row.UserID
			wid := wallet.ID
			created, err := s.ledger.PostIdempotent(ctx, tx, Posting{
				UserID:          row.UserID,
				WalletID:        &wid,
				Currency:        wallet.Currency,
				Type:            models.TxTypeDividend,
				Reference:       &reference,
				Amount:          share,
				DebitAccountID:  profitAccount.ID,
				DebitUserID:     &uid,
				CreditAccountID: rewardAccount.ID,
			})
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			allocation := models.ProfitAllocation{
				ID:      uuid.NewString(),
				BatchID: batchID,
				UserID:  row.UserID,
				Amount:  share,
			}
			if err := s.batches.InsertAllocation(ctx, tx, allocation); err != nil {
				return err
			}
			if err := s.referrals.PayCascade(ctx, tx, row.UserID, share, reference, rates); err != nil {
				return err
			}
			allocated = append(allocated, allocation)
		}
		moved, err := s.batches.Finalize(ctx, tx, batchID, adminID, totalInvestment, len(sums))
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		data, _ := json.Marshal(map[string]any{
			"total_investment": totalInvestment.String(),
			"recipients":       len(sums),
		})
		return s.audit.Log(ctx, tx, adminID, "profit_batch_finalized", "profit_batch", batchID, string(data))
	})
	if err != nil {
		return err
	}
	for _, allocation := range allocated {
		s.notifier.SendNotification(ctx, allocation.UserID, "profit", "Profit distributed",
			fmt.Sprintf("You received %s from a profit distribution.", money.Format(allocation.Amount)))
	}
	return nil
}

// RejectBatch terminates a pending batch with a required reason and notifies
// the accountant who submitted it.
func (s *ProfitService) RejectBatch(ctx context.Context, batchID, adminID, reason string) error {
	if reason == "" {
		return ErrRejectReasonRequired
	}
	var submittedBy string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		batch, err := s.batches.GetByID(ctx, tx, batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBatchNotFound
		}
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(models.BatchRejected) {
			return ErrStaleStatus
		}
		submittedBy = batch.SubmittedBy
		moved, err := s.batches.Reject(ctx, tx, batchID, adminID, reason)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrStaleStatus
		}
		data, _ := json.Marshal(map[string]string{"reason": reason})
		return s.audit.Log(ctx, tx, adminID, "profit_batch_rejected", "profit_batch", batchID, string(data))
	})
	if err != nil {
		return err
	}
	if submitter, err := s.users.GetByID(ctx, submittedBy); err == nil {
		s.notifier.SendEmail(submitter.Email, "Profit batch rejected",
			fmt.Sprintf("Batch %s was rejected: %s", batchID, reason))
	}
	return nil
}

// RunWeeklyAudit reconciles every wallet's derived ledger balance against
// the balance implied by its settled transactions, recording a discrepancy
// row for each mismatch and each negative derived balance. Every admin is
// alerted when the run finds anything. Returns how many discrepancies were
// found.
func (s *ProfitService) RunWeeklyAudit(ctx context.Context) (int, error) {
	all, err := s.ledger.wallets.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	found := 0
	for _, wallet := range all {
		derived, err := s.ledger.ledger.SumByWallet(ctx, s.ledger.db, wallet.ID)
		if err != nil {
			return found, err
		}
		expected, err := s.ledger.txStore.SumSettledByWallet(ctx, s.ledger.db, wallet.ID)
		if err != nil {
			return found, err
		}
		wid := wallet.ID
		uid := wallet.UserID
		if !derived.Equal(expected) {
			found++
			if err := s.audit.RecordDiscrepancy(ctx, s.ledger.db, models.FinancialDiscrepancy{
				ID:       uuid.NewString(),
				WalletID: &wid,
				UserID:   &uid,
				Kind:     "WEEKLY_RECONCILIATION",
				Expected: expected,
				Actual:   derived,
				Variance: derived.Sub(expected),
			}); err != nil {
				return found, err
			}
		}
		if derived.IsNegative() {
			found++
			if err := s.audit.RecordDiscrepancy(ctx, s.ledger.db, models.FinancialDiscrepancy{
				ID:       uuid.NewString(),
				WalletID: &wid,
				UserID:   &uid,
				Kind:     "NEGATIVE_BALANCE",
				Expected: decimal.Zero,
				Actual:   derived,
				Variance: derived,
			}); err != nil {
				return found, err
			}
		}
	}
	if found > 0 {
		log.Printf("weekly audit found %d discrepancies", found)
		s.alertAdmins(ctx, found)
	}
	return found, nil
}

// alertAdmins fans a reconciliation alert out to every admin. Best effort: a
// directory failure is logged, not returned, so the audit result survives it.
func (s *ProfitService) alertAdmins(ctx context.Context, found int) {
	admins, err := s.staff.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Printf("weekly audit: listing admins failed: %v", err)
		return
	}
	message := fmt.Sprintf("The weekly reconciliation recorded %d discrepancies. Review the discrepancy log.", found)
	for _, adminID := range admins {
		s.notifier.SendNotification(ctx, adminID, "audit", "Reconciliation discrepancies found", message)
		if admin, err := s.users.GetByID(ctx, adminID); err == nil {
			s.notifier.SendEmail(admin.Email, "Reconciliation discrepancies found", message)
		}
	}
}
