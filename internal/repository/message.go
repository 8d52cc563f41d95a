package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// MessageRepo persists per-delivery chat messages.
type MessageRepo struct{ db *pgxpool.Pool }

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *pgxpool.Pool) *MessageRepo { return &MessageRepo{db: db} }

// Insert - stores a message and fills in its ID.
func (r *MessageRepo) Insert(ctx context.Context, m *domain.Message) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO messages (delivery_id, sender_id, sender_label, recipient_id, content, attachment_url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at
    `, m.DeliveryID, m.SenderID, m.SenderLabel, m.RecipientID, m.Content, m.AttachmentURL,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Get - returns a message by ID.
func (r *MessageRepo) Get(ctx context.Context, id int64) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
        SELECT id, delivery_id, sender_id, sender_label, recipient_id, content,
               attachment_url, is_read, read_at, created_at
        FROM messages WHERE id=$1
    `, id).Scan(&m.ID, &m.DeliveryID, &m.SenderID, &m.SenderLabel, &m.RecipientID,
		&m.Content, &m.AttachmentURL, &m.Read, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &m, nil
}

// ListByDelivery returns the chat history oldest first.
func (r *MessageRepo) ListByDelivery(ctx context.Context, deliveryID int64) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, delivery_id, sender_id, sender_label, recipient_id, content,
               attachment_url, is_read, read_at, created_at
        FROM messages
        WHERE delivery_id = $1
        ORDER BY created_at, id
    `, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.DeliveryID, &m.SenderID, &m.SenderLabel, &m.RecipientID,
			&m.Content, &m.AttachmentURL, &m.Read, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead sets the read flag only when the caller is the message's recipient
// and the message is unread. Returns false when nothing changed.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, recipientID int64, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE messages SET is_read = TRUE, read_at = $3
        WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE
    `, messageID, recipientID, at)
	if err != nil {
		return false, fmt.Errorf("mark message %d read: %w", messageID, err)
	}
	return ct.RowsAffected() > 0, nil
}
