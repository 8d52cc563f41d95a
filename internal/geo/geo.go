// Package geo contains pure geographic computation helpers. Distances are
// computed in meters; callers outside this package work in miles.
package geo

import "math"

const (
	earthRadiusM = 6371000.0

	// MetersPerMile converts metric distances into the miles used by
	// pricing, delivery records, and receipts.
	MetersPerMile = 1609.344

	// ApproachPickupMeters is the proximity threshold for the automatic
	// transition into approaching_pickup.
	ApproachPickupMeters = 200.0

	// ApproachDropoffMeters is the proximity threshold for the automatic
	// transition into approaching_dropoff.
	ApproachDropoffMeters = 500.0
)

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// DistanceMiles returns the great-circle distance between two points in miles.
func DistanceMiles(a, b Point) float64 {
	return DistanceMeters(a, b) / MetersPerMile
}

// WithinRadiusMiles reports whether b lies within radius miles of a.
func WithinRadiusMiles(a, b Point, radius float64) bool {
	return DistanceMiles(a, b) <= radius
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
