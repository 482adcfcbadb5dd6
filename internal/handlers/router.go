package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"
)

type Handler struct {
	cfg          config.Config
	db           store.DB
	txRunner     db.TxRunner
	users        UserStore
	staff        StaffStore
	kyc          KYCStore
	transactions TransactionStore
	withdrawals  WithdrawalStore
	deposits     DepositStore
	positions    PositionStore
	plans        PlanStore
	batches      BatchStore
	referrals    ReferralStore
	audit        AuditStore

	ledger        LedgerService
	otp           OTPService
	withdrawalSvc WithdrawalService
	depositSvc    DepositService
	investmentSvc InvestmentService
	profitSvc     ProfitService

	hub *websocket.Hub
}

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Cfg          config.Config
	DB           store.DB
	TxRunner     db.TxRunner
	Users        UserStore
	Staff        StaffStore
	KYC          KYCStore
	Transactions TransactionStore
	Withdrawals  WithdrawalStore
	Deposits     DepositStore
	Positions    PositionStore
	Plans        PlanStore
	Batches      BatchStore
	Referrals    ReferralStore
	Audit        AuditStore

	Ledger        LedgerService
	OTP           OTPService
	WithdrawalSvc WithdrawalService
	DepositSvc    DepositService
	InvestmentSvc InvestmentService
	ProfitSvc     ProfitService

	Hub *websocket.Hub
}

func New(deps Deps) *Handler {
	return &Handler{
		cfg:           deps.Cfg,
		db:            deps.DB,
		txRunner:      deps.TxRunner,
		users:         deps.Users,
		staff:         deps.Staff,
		kyc:           deps.KYC,
		transactions:  deps.Transactions,
		withdrawals:   deps.Withdrawals,
		deposits:      deps.Deposits,
		positions:     deps.Positions,
		plans:         deps.Plans,
		batches:       deps.Batches,
		referrals:     deps.Referrals,
		audit:         deps.Audit,
		ledger:        deps.Ledger,
		otp:           deps.OTP,
		withdrawalSvc: deps.WithdrawalSvc,
		depositSvc:    deps.DepositSvc,
		investmentSvc: deps.InvestmentSvc,
		profitSvc:     deps.ProfitSvc,
		hub:           deps.Hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authed).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(authed)
		r.Get("/wallets/balance", h.GetWalletBalance)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/withdrawals/otp", h.RequestWithdrawalOTP)
		r.Post("/withdrawals", h.CreateWithdrawal)
		r.Post("/deposits/otp", h.RequestDepositOTP)
		r.Post("/deposits", h.CreateDeposit)
		r.Get("/plans", h.ListPlans)
		r.Get("/positions", h.ListPositions)
		r.Post("/positions", h.Subscribe)
		r.Get("/referrals/earnings", h.ReferralEarnings)
	})

	router.Get("/ws/balances", h.WSBalances)

	router.Route("/staff", func(r chi.Router) {
		r.Use(authed)

		accountant := middleware.RequireRole(h.staff, models.RoleAccountant, models.RoleAdmin)
		admin := middleware.RequireRole(h.staff, models.RoleAdmin)

		r.With(accountant).Get("/withdrawals", h.ListWithdrawalRequests)
		r.With(accountant).Post("/withdrawals/{id}/approve", h.AccountantApproveWithdrawal)
		r.With(accountant).Post("/withdrawals/{id}/reject", h.RejectWithdrawal)
		r.With(admin).Post("/withdrawals/{id}/finalize", h.AdminApproveWithdrawal)
		r.With(admin).Post("/withdrawals/{id}/reject-final", h.RejectWithdrawal)

		r.With(accountant).Get("/deposits", h.ListDepositRequests)
		r.With(accountant).Post("/deposits/{id}/approve", h.AccountantApproveDeposit)
		r.With(accountant).Post("/deposits/{id}/reject", h.RejectDeposit)
		r.With(admin).Post("/deposits/{id}/finalize", h.AdminApproveDeposit)
		r.With(admin).Post("/deposits/{id}/reject-final", h.RejectDeposit)

		r.With(accountant).Post("/batches", h.SubmitBatch)
		r.With(accountant).Get("/batches", h.ListBatches)
		r.With(accountant).Get("/batches/{id}", h.GetBatch)
		r.With(admin).Post("/batches/{id}/finalize", h.FinalizeBatch)
		r.With(admin).Post("/batches/{id}/reject", h.RejectBatch)

		r.With(admin).Put("/referral-rates", h.SetReferralRates)
		r.With(accountant).Get("/referral-rates", h.ListReferralRates)
		r.With(accountant).Post("/kyc/{userID}", h.ReviewKYC)
		r.With(admin).Post("/plans", h.CreatePlan)
		r.With(admin).Post("/roles/grant", h.GrantRole)
		r.With(accountant).Get("/audit", h.ListAuditLogs)
		r.With(admin).Get("/reconcile", h.Reconcile)
		r.With(accountant).Get("/discrepancies", h.ListDiscrepancies)
	})

	router.Post("/webhooks/deposits", h.DepositWebhook)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
