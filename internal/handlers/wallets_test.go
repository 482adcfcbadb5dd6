package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

func TestGetWalletBalanceDefaultsToMain(t *testing.T) {
	var queriedType string
	handler := newTestHandler(func(deps *Deps) {
		deps.Ledger = stubLedgerService{
			balanceFn: func(_ context.Context, _, walletType string) (decimal.Decimal, error) {
				queriedType = walletType
				return decimal.RequireFromString("12.5"), nil
			},
		}
	})
	rr := serveWithAuth(t, handler.GetWalletBalance, http.MethodGet, "/api/wallets/balance", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if queriedType != models.WalletTypeMain {
		t.Fatalf("expected MAIN wallet by default, got %s", queriedType)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["balance"] != "12.50" {
		t.Fatalf("expected formatted balance 12.50, got %v", resp["balance"])
	}
}

func TestGetWalletBalanceRejectsUnknownType(t *testing.T) {
	handler := newTestHandler(nil)
	rr := serveWithAuth(t, handler.GetWalletBalance, http.MethodGet, "/api/wallets/balance?type=SAVINGS", "", "user-1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetWalletBalanceProfitWallet(t *testing.T) {
	var queriedType string
	handler := newTestHandler(func(deps *Deps) {
		deps.Ledger = stubLedgerService{
			balanceFn: func(_ context.Context, _, walletType string) (decimal.Decimal, error) {
				queriedType = walletType
				return decimal.Zero, nil
			},
		}
	})
	rr := serveWithAuth(t, handler.GetWalletBalance, http.MethodGet, "/api/wallets/balance?type=PROFIT", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if queriedType != models.WalletTypeProfit {
		t.Fatalf("expected PROFIT wallet, got %s", queriedType)
	}
}

func TestListTransactionsPassesFiltersAndPagination(t *testing.T) {
	var gotUser, gotType string
	var gotLimit, gotOffset int
	handler := newTestHandler(func(deps *Deps) {
		deps.Transactions = stubTransactionStore{
			listByUserFn: func(_ context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
				gotUser, gotType, gotLimit, gotOffset = userID, txType, limit, offset
				return []models.Transaction{{ID: "tx-1"}}, nil
			},
		}
	})
	rr := serveWithAuth(t, handler.ListTransactions, http.MethodGet, "/api/wallets/transactions?type=DEPOSIT&limit=10&offset=20", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotUser != "user-1" || gotType != "DEPOSIT" {
		t.Fatalf("unexpected filter: user=%s type=%s", gotUser, gotType)
	}
	if gotLimit != 10 || gotOffset != 20 {
		t.Fatalf("unexpected pagination: limit=%d offset=%d", gotLimit, gotOffset)
	}
}

func TestPaginateClampsOutOfRangeValues(t *testing.T) {
	var gotLimit, gotOffset int
	handler := newTestHandler(func(deps *Deps) {
		deps.Transactions = stubTransactionStore{
			listByUserFn: func(_ context.Context, _, _ string, limit, offset int) ([]models.Transaction, error) {
				gotLimit, gotOffset = limit, offset
				return nil, nil
			},
		}
	})
	rr := serveWithAuth(t, handler.ListTransactions, http.MethodGet, "/api/wallets/transactions?limit=9999&offset=-3", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotLimit != 50 || gotOffset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", gotLimit, gotOffset)
	}
}
