package services

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrRequestNotFound      = errors.New("request not found")
	ErrBatchNotFound        = errors.New("batch not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanInactive         = errors.New("plan is not active")
	ErrPositionNotFound     = errors.New("position not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrSystemAccountMissing = errors.New("system ledger account not configured")
	ErrRejectReasonRequired = errors.New("reject reason is required")
	ErrAmountMismatch       = errors.New("amount does not match request")

	// ErrStaleStatus means a guarded status transition matched zero rows:
	// another reviewer already acted. The caller should refresh and
	// re-decide rather than retry.
	ErrStaleStatus = errors.New("request already processed, refresh")

	ErrOTPNotFound  = errors.New("no active verification code")
	ErrOTPInvalid   = errors.New("invalid verification code")
	ErrOTPExpired   = errors.New("verification code expired")
	ErrOTPExhausted = errors.New("too many verification attempts")
)

// Failure reasons surfaced together by request validation. These are user
// messages, not error values; every failing reason is returned at once.
const (
	ReasonAccountFrozen  = "Account is frozen"
	ReasonKYCNotApproved = "KYC not approved"
	ReasonInsufficient   = "Insufficient balance"
	ReasonDailyLimit     = "Daily withdrawal limit exceeded"
)

// ValidationError carries the full list of failed preconditions for a
// request so the user can correct everything in one round trip.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
