package store

import (
	"context"
	"time"

	"invest/internal/models"
)

type OTPStore struct {
	db DB
}

func NewOTPStore(db DB) *OTPStore {
	return &OTPStore{db: db}
}

func (s *OTPStore) Create(ctx context.Context, tx Execer, challenge models.OTPChallenge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, user_id, purpose, code_hash, status, attempts, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, challenge.ID, challenge.UserID, challenge.Purpose, challenge.CodeHash, challenge.Status, challenge.Attempts, challenge.ExpiresAt)
	return err
}

func (s *OTPStore) GetActive(ctx context.Context, q Getter, userID, purpose string) (models.OTPChallenge, error) {
	var row models.OTPChallenge
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, purpose, code_hash, status, attempts, expires_at, created_at
		FROM otp_challenges
		WHERE user_id = $1 AND purpose = $2 AND status = 'ACTIVE'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, purpose)
	return row, err
}

// ExpireActive force-expires every unconsumed code for (user, purpose) so at
// most one code is live at a time.
func (s *OTPStore) ExpireActive(ctx context.Context, tx Execer, userID, purpose string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges
		SET status = 'EXPIRED'
		WHERE user_id = $1 AND purpose = $2 AND status = 'ACTIVE'
	`, userID, purpose)
	return err
}

func (s *OTPStore) IncrementAttempts(ctx context.Context, tx Execer, challengeID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1
	`, challengeID)
	return err
}

// Consume marks an active challenge used; zero rows affected means it was
// already consumed or expired by a concurrent verification.
func (s *OTPStore) Consume(ctx context.Context, tx Execer, challengeID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges SET status = 'CONSUMED' WHERE id = $1 AND status = 'ACTIVE'
	`, challengeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *OTPStore) Expire(ctx context.Context, tx Execer, challengeID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges SET status = 'EXPIRED' WHERE id = $1
	`, challengeID)
	return err
}

// DeleteExpiredBefore prunes stale challenges, invoked by the scheduler.
func (s *OTPStore) DeleteExpiredBefore(ctx context.Context, tx Execer, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM otp_challenges WHERE status <> 'ACTIVE' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
