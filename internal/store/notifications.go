package store

import (
	"context"
	"fmt"
	"strings"

	"theftalert/internal/domain"
)

// InsertWebNotification stores n unless a record with the same ID exists.
// It reports whether a new row was written.
func (s *Store) InsertWebNotification(ctx context.Context, n domain.WebNotification) (bool, error) {
	if strings.TrimSpace(n.ID) == "" {
		return false, fmt.Errorf("insert web notification: id is required")
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	res, err := s.execWithRetry(ctx, `
INSERT INTO web_notifications (id, user_id, report_id, type, title, message, link, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		n.ID, n.UserID, n.ReportID, n.Type, n.Title, n.Message, n.Link, boolToInt(n.IsRead), unixMillis(created))
	if err != nil {
		return false, fmt.Errorf("insert web notification %s: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert web notification %s: rows affected: %w", n.ID, err)
	}
	return affected == 1, nil
}

// NotificationFilter narrows ListWebNotifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

// ListWebNotifications returns a user's notifications, newest first.
func (s *Store) ListWebNotifications(ctx context.Context, filter NotificationFilter) ([]domain.WebNotification, error) {
	query := `SELECT id, user_id, report_id, type, title, message, link, is_read, created_at
  FROM web_notifications WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list web notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.WebNotification
	for rows.Next() {
		var (
			n       domain.WebNotification
			isRead  int
			created int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.ReportID, &n.Type, &n.Title, &n.Message, &n.Link, &isRead, &created); err != nil {
			return nil, fmt.Errorf("list web notifications: scan: %w", err)
		}
		n.IsRead = isRead != 0
		n.CreatedAt = fromUnixMillis(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkWebNotificationRead flags a notification as read. It reports whether a
// notification with that ID exists.
func (s *Store) MarkWebNotificationRead(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `UPDATE web_notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("mark web notification %s read: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountWebNotifications returns the total number of stored notifications for reportID.
func (s *Store) CountWebNotifications(ctx context.Context, reportID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM web_notifications WHERE report_id = ?`, reportID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count web notifications: %w", err)
	}
	return count, nil
}
