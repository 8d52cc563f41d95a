package geo

import (
	"math"
	"testing"
)

var (
	embarcadero = Point{Lat: 37.7897, Lng: -122.3972}
	missionBay  = Point{Lat: 37.7663, Lng: -122.4005}
)

func TestDistanceMeters_ZeroForSamePoint(t *testing.T) {
	if d := DistanceMeters(embarcadero, embarcadero); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	ab := DistanceMeters(embarcadero, missionBay)
	ba := DistanceMeters(missionBay, embarcadero)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("asymmetric distance: %v vs %v", ab, ba)
	}
}

func TestDistanceMiles_KnownPair(t *testing.T) {
	// The pair from the standard pricing scenario: ~2618 m ≈ 1.63 mi apart.
	d := DistanceMiles(embarcadero, missionBay)
	if d < 1.60 || d > 1.66 {
		t.Errorf("distance = %v miles, want ~1.63", d)
	}
}

func TestWithinRadiusMiles(t *testing.T) {
	if !WithinRadiusMiles(embarcadero, missionBay, 5) {
		t.Error("points should be within 5 miles")
	}
	if WithinRadiusMiles(embarcadero, missionBay, 1) {
		t.Error("points should not be within 1 mile")
	}
}

func TestProximityThresholds(t *testing.T) {
	// ~180 m offset in latitude: inside the pickup threshold, outside none.
	near := Point{Lat: embarcadero.Lat + 180.0/111320.0, Lng: embarcadero.Lng}
	d := DistanceMeters(embarcadero, near)
	if d >= ApproachPickupMeters {
		t.Errorf("distance = %v m, want < %v", d, ApproachPickupMeters)
	}
	if d >= ApproachDropoffMeters {
		t.Errorf("distance = %v m, want < %v", d, ApproachDropoffMeters)
	}
}
