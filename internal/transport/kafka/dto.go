package kafka

import (
	"time"

	"courier-dispatch/internal/service/location"
)

// LocationDTO is the courier position sample as published on the location
// topic by the mobile apps.
type LocationDTO struct {
	CourierID    int64     `json:"courier_id"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	AccuracyM    *float64  `json:"accuracy_m,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	SpeedMps     *float64  `json:"speed_mps,omitempty"`
	BatteryLevel *int      `json:"battery_level,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ToReport converts the wire sample into the ingest report.
func ToReport(dto LocationDTO) location.Report {
	return location.Report{
		CourierID:    dto.CourierID,
		Lat:          dto.Lat,
		Lng:          dto.Lng,
		AccuracyM:    dto.AccuracyM,
		Heading:      dto.Heading,
		SpeedMps:     dto.SpeedMps,
		BatteryLevel: dto.BatteryLevel,
		RecordedAt:   dto.RecordedAt,
	}
}
