package domain

import "time"

// RecipientSender is the sender sentinel recorded for tracking-token writers.
const RecipientSender = "recipient"

// Message is a per-delivery chat entry. SenderID is nil when SenderLabel is
// the recipient sentinel.
type Message struct {
	ID            int64
	DeliveryID    int64
	SenderID      *int64
	SenderLabel   string
	RecipientID   int64
	Content       string
	AttachmentURL string
	Read          bool
	ReadAt        *time.Time
	CreatedAt     time.Time
}
