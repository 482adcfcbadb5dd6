package store

import (
	"context"
	"database/sql"

	"invest/internal/models"
)

type KYCStore struct {
	db DB
}

func NewKYCStore(db DB) *KYCStore {
	return &KYCStore{db: db}
}

func (s *KYCStore) Create(ctx context.Context, tx Execer, record models.KYCRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kyc_records (id, user_id, status, reviewed_by)
		VALUES ($1, $2, $3, $4)
	`, record.ID, record.UserID, record.Status, record.ReviewedBy)
	return err
}

// LatestStatus returns the most recent KYC status for a user, or PENDING when
// no record exists yet.
func (s *KYCStore) LatestStatus(ctx context.Context, userID string) (string, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `
		SELECT status
		FROM kyc_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if err == sql.ErrNoRows {
		return models.KYCStatusPending, nil
	}
	return status, err
}
