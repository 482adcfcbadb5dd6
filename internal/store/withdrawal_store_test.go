package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"invest/internal/models"
)

func TestWithdrawalStoreTransitionGuardsStatus(t *testing.T) {
	ctx := context.Background()
	s := NewWithdrawalStore(stubDB{})
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "WHERE id = $5 AND status = $6") {
				t.Fatalf("transition must re-check current status: %s", query)
			}
			if args[5] != models.RequestPendingAccountant {
				t.Fatalf("unexpected expected-status arg: %#v", args[5])
			}
			return stubResult{rows: 0}, nil
		},
	}
	rows, err := s.Transition(ctx, execer, "req-1", models.RequestPendingAccountant, models.RequestPendingAdminFinal, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for stale status, got %d", rows)
	}
}

func TestWithdrawalStoreSumForDay(t *testing.T) {
	ctx := context.Background()
	s := NewWithdrawalStore(stubDB{})
	getter := stubTx{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "status <> 'REJECTED'") {
				t.Fatalf("rejected requests must not count toward the daily limit: %s", query)
			}
			if args[0] != "user-1" || args[1] != "2026-08-30" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*decimal.Decimal) = decimal.RequireFromString("50")
			return nil
		},
	}
	sum, err := s.SumForDay(ctx, getter, "user-1", "2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.String() != "50" {
		t.Fatalf("unexpected sum: %s", sum)
	}
}
