package route

import (
	"fmt"
	"time"

	"walk-navigation/internal/geo"
)

// CacheKey is the coarse (origin, destination) pair a route is valid for.
// Origins in the same grid cell share a key.
type CacheKey struct {
	Origin      geo.Cell       `json:"origin_cell"`
	Destination geo.Coordinate `json:"destination"`
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s->%s", k.Origin, k.Destination)
}

// Geometry is an immutable fetched route. A refetch replaces it wholesale.
type Geometry struct {
	Path            []geo.Coordinate `json:"path"`
	Origin          geo.Coordinate   `json:"origin"`
	Destination     geo.Destination  `json:"destination"`
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	Key             CacheKey         `json:"key"`
	Version         uint64           `json:"version"`
	FetchedAt       time.Time        `json:"fetched_at"`
}

// OffRouteDistance is the distance in metres from c to the nearest point of the path.
func (g *Geometry) OffRouteDistance(c geo.Coordinate) float64 {
	return geo.DistanceToPolyline(c, g.Path)
}
