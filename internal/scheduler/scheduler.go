// Package scheduler wires the financial jobs onto cron expressions with
// seconds precision, evaluated in UTC.
package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"invest/internal/config"
	"invest/internal/jobs"
)

type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

func New(cfg config.Config, jobRunner *jobs.JobRunner) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, jobs: jobRunner}
	s.register(cfg)
	return s
}

func (s *Scheduler) register(cfg config.Config) {
	if _, err := s.cron.AddFunc(cfg.DailyRewardCron, s.jobs.DistributeDailyRewards); err != nil {
		log.Printf("failed to register DistributeDailyRewards: %v", err)
	}
	if _, err := s.cron.AddFunc(cfg.WeeklyAuditCron, s.jobs.RunWeeklyAudit); err != nil {
		log.Printf("failed to register RunWeeklyAudit: %v", err)
	}
	// Hourly cleanup of dead OTP rows.
	if _, err := s.cron.AddFunc("0 0 * * * *", s.jobs.PruneOTPChallenges); err != nil {
		log.Printf("failed to register PruneOTPChallenges: %v", err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("scheduler stopped")
}
