package jobs

import (
	"context"
	"log"
	"time"
)

// JobRunner coordinates the scheduled financial jobs.
type JobRunner struct {
	profit ProfitRunner
	otps   OTPPruner
}

type ProfitRunner interface {
	RunDailyInvestmentRewards(ctx context.Context, day time.Time) (int, error)
	RunWeeklyAudit(ctx context.Context) (int, error)
}

type OTPPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewJobRunner(profit ProfitRunner, otps OTPPruner) *JobRunner {
	return &JobRunner{profit: profit, otps: otps}
}

// runWithRecovery wraps job execution with panic recovery so a panicking job
// cannot take the scheduler process down.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("job panicked job=%s panic=%v", jobName, r)
		}
	}()
	log.Printf("starting job job=%s", jobName)
	jobFunc()
	log.Printf("job completed job=%s", jobName)
}

// DistributeDailyRewards pays every ACTIVE position its reward for today.
func (jr *JobRunner) DistributeDailyRewards() {
	jr.runWithRecovery("DistributeDailyRewards", func() {
		paid, err := jr.profit.RunDailyInvestmentRewards(context.Background(), time.Now().UTC())
		if err != nil {
			log.Printf("daily rewards finished with errors paid=%d: %v", paid, err)
			return
		}
		log.Printf("daily rewards paid=%d", paid)
	})
}

// RunWeeklyAudit reconciles ledger balances against settled transactions.
func (jr *JobRunner) RunWeeklyAudit() {
	jr.runWithRecovery("RunWeeklyAudit", func() {
		found, err := jr.profit.RunWeeklyAudit(context.Background())
		if err != nil {
			log.Printf("weekly audit failed found=%d: %v", found, err)
			return
		}
		log.Printf("weekly audit complete discrepancies=%d", found)
	})
}

// PruneOTPChallenges deletes consumed and expired codes older than a day.
func (jr *JobRunner) PruneOTPChallenges() {
	jr.runWithRecovery("PruneOTPChallenges", func() {
		pruned, err := jr.otps.PruneBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			log.Printf("otp prune failed: %v", err)
			return
		}
		log.Printf("otp prune removed=%d", pruned)
	})
}
