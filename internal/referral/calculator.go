// Package referral holds the pure commission calculator shared by the daily
// reward job, manual profit batches, and earnings reporting.
package referral

import "github.com/shopspring/decimal"

// RateTable maps referral level to commission rate. Levels absent from the
// table pay nothing.
type RateTable map[int]decimal.Decimal

func NewRateTable() RateTable {
	return make(RateTable)
}

func (t RateTable) Rate(level int) decimal.Decimal {
	rate, ok := t[level]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// Commission computes amount × rate(level). Deterministic and side-effect
// free; a zero rate yields a zero commission, which callers skip.
func Commission(amount decimal.Decimal, level int, rates RateTable) decimal.Decimal {
	rate := rates.Rate(level)
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(rate).Round(8)
}
