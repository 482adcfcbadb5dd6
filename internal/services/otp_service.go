package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invest/internal/auth"
	"invest/internal/db"
	"invest/internal/models"
)

const otpMaxAttempts = 5

// OTPService issues and verifies short-lived numeric codes gating sensitive
// operations. Only the bcrypt hash of a code is stored; at most one code is
// active per (user, purpose) and a code is consumed exactly once.
type OTPService struct {
	txRunner db.TxRunner
	otps     OTPStore
	users    UserStore
	notifier NotifierSink
	ttl      time.Duration

	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(txRunner db.TxRunner, otps OTPStore, users UserStore, notifier NotifierSink, ttl time.Duration) *OTPService {
	return &OTPService{
		txRunner: txRunner,
		otps:     otps,
		users:    users,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
		generate: randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue expires any previously active code for (user, purpose), stores a new
// hashed one, and emails the plaintext code to the user.
func (s *OTPService) Issue(ctx context.Context, userID, purpose string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	code, err := s.generate()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.otps.ExpireActive(ctx, tx, userID, purpose); err != nil {
			return err
		}
		return s.otps.Create(ctx, tx, models.OTPChallenge{
			ID:        uuid.NewString(),
			UserID:    userID,
			Purpose:   purpose,
			CodeHash:  hash,
			Status:    models.OTPStatusActive,
			Attempts:  0,
			ExpiresAt: s.now().Add(s.ttl),
		})
	})
	if err != nil {
		return err
	}
	s.notifier.SendEmail(user.Email, "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())))
	return nil
}

// PruneBefore deletes consumed and expired challenges created before cutoff.
func (s *OTPService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		pruned, err = s.otps.DeleteExpiredBefore(ctx, tx, cutoff)
		return err
	})
	return pruned, err
}

// Verify checks a submitted code against the single active challenge and
// consumes it on success. Every failure mode has its own error so the caller
// can surface an exact reason. Failure verdicts are carried out of the
// transaction and returned only after it commits: the attempt counter and
// forced expiry must persist even when verification fails, and an error
// returned from the closure would roll them back.
func (s *OTPService) Verify(ctx context.Context, userID, purpose, code string) error {
	var verdict error
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		verdict = nil
		challenge, err := s.otps.GetActive(ctx, tx, userID, purpose)
		if errors.Is(err, sql.ErrNoRows) {
			verdict = ErrOTPNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if s.now().After(challenge.ExpiresAt) {
			if err := s.otps.Expire(ctx, tx, challenge.ID); err != nil {
				return err
			}
			verdict = ErrOTPExpired
			return nil
		}
		if challenge.Attempts >= otpMaxAttempts {
			if err := s.otps.Expire(ctx, tx, challenge.ID); err != nil {
				return err
			}
			verdict = ErrOTPExhausted
			return nil
		}
		if !auth.CheckPassword(challenge.CodeHash, code) {
			if err := s.otps.IncrementAttempts(ctx, tx, challenge.ID); err != nil {
				return err
			}
			verdict = ErrOTPInvalid
			return nil
		}
		consumed, err := s.otps.Consume(ctx, tx, challenge.ID)
		if err != nil {
			return err
		}
		if consumed == 0 {
			verdict = ErrOTPNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	return verdict
}
