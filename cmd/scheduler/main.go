package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/jobs"
	"invest/internal/notify"
	"invest/internal/scheduler"
	"invest/internal/services"
	"invest/internal/store"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	accounts := store.NewAccountStore(database)
	ledgerStore := store.NewLedgerStore(database)
	transactions := store.NewTransactionStore(database)
	otps := store.NewOTPStore(database)
	plans := store.NewPlanStore(database)
	positions := store.NewPositionStore(database)
	batches := store.NewBatchStore(database)
	referrals := store.NewReferralStore(database)
	notifications := store.NewNotificationStore(database)
	staff := store.NewStaffStore(database)
	audit := store.NewAuditStore(database)

	txRunner := db.NewTxRunner(database)

	var emailSender notify.EmailSender = notify.NoopSender{}
	if cfg.SendgridAPIKey != "" {
		emailSender = notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.EmailFrom)
	}
	notifier := notify.NewNotifier(emailSender, notifications, database)

	ledgerSvc := services.NewLedgerService(database, wallets, accounts, ledgerStore, transactions, audit)
	referralSvc := services.NewReferralService(ledgerSvc, referrals)
	otpSvc := services.NewOTPService(txRunner, otps, users, notifier, cfg.OTPTTL)
	profitSvc := services.NewProfitService(txRunner, ledgerSvc, referralSvc, positions, plans, batches, users, staff, audit, notifier, cfg.RewardChunkSize)

	jobRunner := jobs.NewJobRunner(profitSvc, otpSvc)
	sched := scheduler.New(cfg, jobRunner)
	sched.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	sched.Stop()
}
