package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedgerStoreInsertEntries(t *testing.T) {
	ctx := context.Background()
	calls := 0
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO ledger_entries") {
				t.Fatalf("unexpected query: %s", query)
			}
			calls++
			return stubResult{rows: 1}, nil
		},
	}
	s := NewLedgerStore(stubDB{})
	amount := decimal.RequireFromString("100.50")
	entries := []LedgerEntryInput{
		{ID: "1", AccountID: "acct1", TransactionID: "tx", Direction: "DEBIT", Amount: amount},
		{ID: "2", AccountID: "acct2", TransactionID: "tx", Direction: "CREDIT", Amount: amount},
	}
	if err := s.InsertEntries(ctx, execer, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 inserts, got %d", calls)
	}
}

func TestLedgerStoreSumByUserWallet(t *testing.T) {
	ctx := context.Background()
	s := NewLedgerStore(stubDB{})
	getter := stubTx{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM ledger_entries") || !strings.Contains(query, "JOIN wallets") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "user-1" || args[1] != "MAIN" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*decimal.Decimal) = decimal.RequireFromString("250.75")
			return nil
		},
	}
	sum, err := s.SumByUserWallet(ctx, getter, "user-1", "MAIN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.String() != "250.75" {
		t.Fatalf("unexpected sum: %s", sum)
	}
}

func TestLedgerStoreCountByTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewLedgerStore(stubDB{})
	getter := stubTx{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "COUNT(1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*int) = 1
			return nil
		},
	}
	count, err := s.CountByTransaction(ctx, getter, "tx-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("unexpected count: %d", count)
	}
}
