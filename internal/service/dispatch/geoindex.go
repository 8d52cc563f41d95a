package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const geoKey = "dispatch:couriers"

// GeoIndex keeps courier positions in a Redis GEO set so dispatch can
// prefilter candidates by radius without scanning every profile. The SQL
// eligibility query stays authoritative; the index only narrows it.
type GeoIndex struct {
	rdb *redis.Client
}

// NewGeoIndex creates a GeoIndex.
func NewGeoIndex(rdb *redis.Client) *GeoIndex { return &GeoIndex{rdb: rdb} }

// Upsert stores the courier's latest position.
func (g *GeoIndex) Upsert(ctx context.Context, courierID int64, lat, lng float64) error {
	err := g.rdb.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      strconv.FormatInt(courierID, 10),
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geo add courier %d: %w", courierID, err)
	}
	return nil
}

// Remove drops the courier from the index, e.g. when they go offline.
func (g *GeoIndex) Remove(ctx context.Context, courierID int64) error {
	err := g.rdb.ZRem(ctx, geoKey, strconv.FormatInt(courierID, 10)).Err()
	if err != nil {
		return fmt.Errorf("geo remove courier %d: %w", courierID, err)
	}
	return nil
}

// Nearby returns courier IDs within radius miles of the point, closest first.
func (g *GeoIndex) Nearby(ctx context.Context, lat, lng, radiusMiles float64) ([]int64, error) {
	locs, err := g.rdb.GeoSearch(ctx, geoKey, &redis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusMiles,
		RadiusUnit: "mi",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	ids := make([]int64, 0, len(locs))
	for _, name := range locs {
		id, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
