package domain

import "time"

// LocationSample is an append-only courier position report.
type LocationSample struct {
	ID           int64
	UserID       int64
	DeliveryID   *int64
	Lat          float64
	Lng          float64
	AccuracyM    *float64
	Heading      *float64
	SpeedMps     *float64
	BatteryLevel *int
	RecordedAt   time.Time
}
