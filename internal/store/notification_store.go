package store

import "context"

type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Insert(ctx context.Context, exec Execer, id, userID, notifType, title, message string) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, notifType, title, message)
	return err
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]map[string]any, error) {
	type row struct {
		ID        string `db:"id"`
		UserID    string `db:"user_id"`
		Type      string `db:"type"`
		Title     string `db:"title"`
		Message   string `db:"message"`
		CreatedAt any    `db:"created_at"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, title, message, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"id":         r.ID,
			"user_id":    r.UserID,
			"type":       r.Type,
			"title":      r.Title,
			"message":    r.Message,
			"created_at": r.CreatedAt,
		})
	}
	return out, nil
}
