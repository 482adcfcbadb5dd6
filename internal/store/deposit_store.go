package store

import (
	"context"

	"invest/internal/models"
)

type DepositStore struct {
	db DB
}

func NewDepositStore(db DB) *DepositStore {
	return &DepositStore{db: db}
}

func (s *DepositStore) Create(ctx context.Context, tx Execer, request models.DepositRequest) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO deposit_requests (id, user_id, method, amount, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, request.ID, request.UserID, request.Method, request.Amount, request.Status, request.ExternalReference)
	return err
}

func (s *DepositStore) GetByID(ctx context.Context, q Getter, requestID string) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, method, amount, status, accountant_id, admin_id, reject_reason, external_reference, created_at, updated_at
		FROM deposit_requests
		WHERE id = $1
	`, requestID)
	return row, err
}

func (s *DepositStore) GetByExternalReference(ctx context.Context, q Getter, externalRef string) (models.DepositRequest, error) {
	var row models.DepositRequest
	err := q.GetContext(ctx, &row, `
		SELECT id, user_id, method, amount, status, accountant_id, admin_id, reject_reason, external_reference, created_at, updated_at
		FROM deposit_requests
		WHERE external_reference = $1
	`, externalRef)
	return row, err
}

// Transition mirrors WithdrawalStore.Transition: zero rows affected means a
// concurrent reviewer already acted on the request.
func (s *DepositStore) Transition(ctx context.Context, tx Execer, requestID string, from, to models.RequestStatus, accountantID, adminID, rejectReason *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE deposit_requests
		SET status = $1,
		    accountant_id = COALESCE($2, accountant_id),
		    admin_id = COALESCE($3, admin_id),
		    reject_reason = COALESCE($4, reject_reason),
		    updated_at = now()
		WHERE id = $5 AND status = $6
	`, to, accountantID, adminID, rejectReason, requestID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DepositStore) ListByStatus(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.DepositRequest, error) {
	var rows []models.DepositRequest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, method, amount, status, accountant_id, admin_id, reject_reason, external_reference, created_at, updated_at
		FROM deposit_requests
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return rows, err
}
