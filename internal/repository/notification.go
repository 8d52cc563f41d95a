package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// NotificationRepo persists per-user notification envelopes.
type NotificationRepo struct{ db *pgxpool.Pool }

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *pgxpool.Pool) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert - stores a notification and fills in its ID.
func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO notifications (user_id, type, title, content, delivery_id, action_url, send_push, send_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at
    `, n.UserID, n.Type, n.Title, n.Content, n.DeliveryID, n.ActionURL, n.SendPush, n.SendEmail,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns notifications newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, limit, offset *int) ([]domain.Notification, error) {
	q := `
        SELECT id, user_id, type, title, content, is_read, read_at, delivery_id,
               action_url, send_push, send_email, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC`
	args := []any{userID}
	if limit != nil {
		args = append(args, *limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset != nil {
		args = append(args, *offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.Read,
			&n.ReadAt, &n.DeliveryID, &n.ActionURL, &n.SendPush, &n.SendEmail, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets the read flag for the caller's own notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID int64, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE notifications SET is_read = TRUE, read_at = $3
        WHERE id = $1 AND user_id = $2 AND is_read = FALSE
    `, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// MarkAllRead flags every unread notification for the user.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE notifications SET is_read = TRUE, read_at = $2
        WHERE user_id = $1 AND is_read = FALSE
    `, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all read for user %d: %w", userID, err)
	}
	return ct.RowsAffected(), nil
}
