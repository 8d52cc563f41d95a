package domain

import "time"

// NotificationType represents the kind of a notification.
type NotificationType string

// List of possible notification types.
const (
	NotifyStatusUpdate NotificationType = "status_update"
	NotifyMessage      NotificationType = "message"
	NotifyRating       NotificationType = "rating"
	NotifyPayment      NotificationType = "payment"
	NotifyPromotional  NotificationType = "promotional"
	NotifySystem       NotificationType = "system"
)

// Notification is a per-user notification envelope.
type Notification struct {
	ID         int64
	UserID     int64
	Type       NotificationType
	Title      string
	Content    string
	Read       bool
	ReadAt     *time.Time
	DeliveryID *int64
	ActionURL  string
	SendPush   bool
	SendEmail  bool
	CreatedAt  time.Time
}
