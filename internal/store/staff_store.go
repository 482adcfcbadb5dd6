package store

import "context"

// StaffStore tracks accountant/admin role grants.
type StaffStore struct {
	db DB
}

func NewStaffStore(db DB) *StaffStore {
	return &StaffStore{db: db}
}

func (s *StaffStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM staff_roles
		WHERE user_id = $1 AND role = $2
	`, userID, role)
	return count > 0, err
}

func (s *StaffStore) GrantRole(ctx context.Context, tx Execer, userID, role string, grantedBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO staff_roles (user_id, role, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, userID, role, grantedBy)
	return err
}

func (s *StaffStore) HasAnyStaff(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM staff_roles`)
	return count > 0, err
}

// ListByRole returns the user ids holding a role, used to fan out admin
// notifications.
func (s *StaffStore) ListByRole(ctx context.Context, role string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT user_id
		FROM staff_roles
		WHERE role = $1
		ORDER BY user_id
	`, role)
	return ids, err
}
