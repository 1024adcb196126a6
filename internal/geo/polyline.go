package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadius in meters, the sphere orb measures on.
const EarthRadius = orb.EarthRadius

// Degrees to radians conversion
const degToRad = math.Pi / 180

// Haversine distance between two coordinates in meters
func Haversine(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// Bearing returns the initial great-circle bearing from a to b in [0, 360).
func Bearing(from, to Coordinate) float64 {
	return NormalizeDegrees(orbgeo.Bearing(from.Point(), to.Point()))
}

// NormalizeDegrees wraps any finite angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// DistanceToPolyline is the minimum distance in metres from point to any segment of polyline.
func DistanceToPolyline(point Coordinate, polyline []Coordinate) float64 {
	switch len(polyline) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(point, polyline[0])
	}

	best := math.Inf(1)
	for i := 0; i < len(polyline)-1; i++ {
		if d := DistanceToSegment(point, polyline[i], polyline[i+1]); d < best {
			best = d
		}
	}
	return best
}

// DistanceToSegment calculates the minimum distance (in metres) from point P to the segment [A, B].
func DistanceToSegment(P, A, B Coordinate) float64 {
	lat1 := A.Lat * degToRad
	lng1 := A.Lng * degToRad
	lat2 := B.Lat * degToRad
	lng2 := B.Lng * degToRad
	latP := P.Lat * degToRad
	lngP := P.Lng * degToRad

	// Local equirectangular projection around the segment's mid latitude.
	// Good enough at the scale of a city boundary or a walking route.
	latRef := (lat1 + lat2) / 2
	cosLatRef := math.Cos(latRef)

	xA, yA := lng1*EarthRadius*cosLatRef, lat1*EarthRadius
	xB, yB := lng2*EarthRadius*cosLatRef, lat2*EarthRadius
	xP, yP := lngP*EarthRadius*cosLatRef, latP*EarthRadius

	dx, dy := xB-xA, yB-yA

	// Degenerate segment case (A == B)
	if dx == 0 && dy == 0 {
		return math.Hypot(xP-xA, yP-yA)
	}

	t := ((xP-xA)*dx + (yP-yA)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	xProj := xA + t*dx
	yProj := yA + t*dy

	return math.Hypot(xP-xProj, yP-yProj)
}

// PathLength sums the haversine length of consecutive segments.
func PathLength(path []Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Haversine(path[i-1], path[i])
	}
	return total
}
