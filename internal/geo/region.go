package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is a static service boundary.
type Region interface {
	Contains(c Coordinate) bool
	// DistanceToBoundary is the distance in metres from c to the nearest edge.
	DistanceToBoundary(c Coordinate) float64
}

// Bounds is an axis-aligned lat/lng rectangle. Edges are inclusive.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

func (b Bounds) Validate() error {
	if err := (Coordinate{Lat: b.MinLat, Lng: b.MinLng}).Validate(); err != nil {
		return fmt.Errorf("bounds min corner: %w", err)
	}
	if err := (Coordinate{Lat: b.MaxLat, Lng: b.MaxLng}).Validate(); err != nil {
		return fmt.Errorf("bounds max corner: %w", err)
	}
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		return errors.New("bounds min corner must be south-west of max corner")
	}
	return nil
}

func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

func (b Bounds) DistanceToBoundary(c Coordinate) float64 {
	return DistanceToPolyline(c, b.ring())
}

func (b Bounds) ring() []Coordinate {
	return []Coordinate{
		{Lat: b.MinLat, Lng: b.MinLng},
		{Lat: b.MinLat, Lng: b.MaxLng},
		{Lat: b.MaxLat, Lng: b.MaxLng},
		{Lat: b.MaxLat, Lng: b.MinLng},
		{Lat: b.MinLat, Lng: b.MinLng},
	}
}

// Polygon is a (multi)polygon boundary; holes are excluded from the area.
type Polygon struct {
	shape orb.MultiPolygon
	rings [][]Coordinate
}

func NewPolygon(mp orb.MultiPolygon) (*Polygon, error) {
	if len(mp) == 0 {
		return nil, errors.New("polygon has no rings")
	}
	p := &Polygon{shape: mp}
	for _, poly := range mp {
		for _, ring := range poly {
			if len(ring) < 3 {
				return nil, fmt.Errorf("ring with %d vertices", len(ring))
			}
			coords := make([]Coordinate, 0, len(ring)+1)
			for _, pt := range ring {
				coords = append(coords, FromPoint(pt))
			}
			if !ring.Closed() {
				coords = append(coords, coords[0])
			}
			p.rings = append(p.rings, coords)
		}
	}
	return p, nil
}

func (p *Polygon) Contains(c Coordinate) bool {
	return planar.MultiPolygonContains(p.shape, c.Point())
}

func (p *Polygon) DistanceToBoundary(c Coordinate) float64 {
	best := math.Inf(1)
	for _, ring := range p.rings {
		if d := DistanceToPolyline(c, ring); d < best {
			best = d
		}
	}
	return best
}

// LoadPolygon reads a GeoJSON geometry, Feature or FeatureCollection and
// merges every Polygon/MultiPolygon it contains.
func LoadPolygon(path string) (*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary file: %w", err)
	}
	return ParsePolygon(data)
}

func ParsePolygon(data []byte) (*Polygon, error) {
	geometries, err := decodeGeometries(data)
	if err != nil {
		return nil, err
	}

	var mp orb.MultiPolygon
	for _, g := range geometries {
		switch v := g.(type) {
		case orb.Polygon:
			mp = append(mp, v)
		case orb.MultiPolygon:
			mp = append(mp, v...)
		}
	}
	if len(mp) == 0 {
		return nil, errors.New("boundary contains no polygon")
	}
	return NewPolygon(mp)
}

// decodeGeometries accepts a GeoJSON geometry, Feature or FeatureCollection.
func decodeGeometries(data []byte) ([]orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decoding feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decoding feature: %w", err)
		}
		geometries = append(geometries, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decoding geometry: %w", err)
		}
		geometries = append(geometries, g.Geometry())
	}
	return geometries, nil
}
