package domain

import "time"

// TrackingTokenTTL is how long an issued tracking token stays valid.
const TrackingTokenTTL = 7 * 24 * time.Hour

// TrackingToken grants read-only access to a delivery plus chat-write scope.
type TrackingToken struct {
	ID             int64
	Token          string
	DeliveryID     int64
	IsRecipient    bool
	ExpiresAt      time.Time
	AccessCount    int
	LastAccessedAt *time.Time
	CreatedAt      time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t TrackingToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
