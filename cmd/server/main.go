package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/handlers"
	"invest/internal/notify"
	"invest/internal/services"
	"invest/internal/store"
	"invest/internal/walletlock"
	"invest/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	dailyLimit, err := decimal.NewFromString(cfg.DailyWithdrawalLimit)
	if err != nil {
		log.Fatalf("invalid DAILY_WITHDRAWAL_LIMIT %q: %v", cfg.DailyWithdrawalLimit, err)
	}

	users := store.NewUserStore(database)
	staff := store.NewStaffStore(database)
	kyc := store.NewKYCStore(database)
	wallets := store.NewWalletStore(database)
	accounts := store.NewAccountStore(database)
	ledgerStore := store.NewLedgerStore(database)
	transactions := store.NewTransactionStore(database)
	withdrawals := store.NewWithdrawalStore(database)
	deposits := store.NewDepositStore(database)
	otps := store.NewOTPStore(database)
	plans := store.NewPlanStore(database)
	positions := store.NewPositionStore(database)
	batches := store.NewBatchStore(database)
	referrals := store.NewReferralStore(database)
	notifications := store.NewNotificationStore(database)
	audit := store.NewAuditStore(database)

	txRunner := db.NewTxRunner(database)
	locker := walletlock.New(database)
	hub := websocket.NewHub()

	var emailSender notify.EmailSender = notify.NoopSender{}
	if cfg.SendgridAPIKey != "" {
		emailSender = notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.EmailFrom)
	}
	notifier := notify.NewNotifier(emailSender, notifications, database)

	ledgerSvc := services.NewLedgerService(database, wallets, accounts, ledgerStore, transactions, audit)
	referralSvc := services.NewReferralService(ledgerSvc, referrals)
	otpSvc := services.NewOTPService(txRunner, otps, users, notifier, cfg.OTPTTL)
	withdrawalSvc := services.NewWithdrawalService(txRunner, locker, ledgerSvc, withdrawals, users, kyc, otpSvc, audit, notifier, hub, dailyLimit)
	depositSvc := services.NewDepositService(txRunner, ledgerSvc, deposits, users, otpSvc, audit, notifier, hub)
	investmentSvc := services.NewInvestmentService(txRunner, locker, ledgerSvc, referralSvc, plans, positions, audit, notifier, hub)
	profitSvc := services.NewProfitService(txRunner, ledgerSvc, referralSvc, positions, plans, batches, users, staff, audit, notifier, cfg.RewardChunkSize)

	handler := handlers.New(handlers.Deps{
		Cfg:          cfg,
		DB:           database,
		TxRunner:     txRunner,
		Users:        users,
		Staff:        staff,
		KYC:          kyc,
		Transactions: transactions,
		Withdrawals:  withdrawals,
		Deposits:     deposits,
		Positions:    positions,
		Plans:        plans,
		Batches:      batches,
		Referrals:    referrals,
		Audit:        audit,

		Ledger:        ledgerSvc,
		OTP:           otpSvc,
		WithdrawalSvc: withdrawalSvc,
		DepositSvc:    depositSvc,
		InvestmentSvc: investmentSvc,
		ProfitSvc:     profitSvc,

		Hub: hub,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("invest API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
