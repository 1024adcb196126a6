package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sannomiya = Coordinate{Lat: 34.6913, Lng: 135.1955}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{name: "sannomiya", coord: sannomiya},
		{name: "poles and antimeridian", coord: Coordinate{Lat: 90, Lng: -180}},
		{name: "latitude too large", coord: Coordinate{Lat: 90.1, Lng: 0}, wantErr: true},
		{name: "longitude too small", coord: Coordinate{Lat: 0, Lng: -180.5}, wantErr: true},
		{name: "nan", coord: Coordinate{Lat: math.NaN(), Lng: 0}, wantErr: true},
		{name: "inf", coord: Coordinate{Lat: 0, Lng: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	kobeStation := Coordinate{Lat: 34.6795, Lng: 135.1780}
	d := Haversine(sannomiya, kobeStation)
	assert.InDelta(t, 2080, d, 60)
	assert.Zero(t, Haversine(sannomiya, sannomiya))
}

func TestBearingRange(t *testing.T) {
	north := Coordinate{Lat: sannomiya.Lat + 0.001, Lng: sannomiya.Lng}
	east := Coordinate{Lat: sannomiya.Lat, Lng: sannomiya.Lng + 0.001}
	south := Coordinate{Lat: sannomiya.Lat - 0.001, Lng: sannomiya.Lng}
	west := Coordinate{Lat: sannomiya.Lat, Lng: sannomiya.Lng - 0.001}

	assert.InDelta(t, 0, Bearing(sannomiya, north), 0.01)
	assert.InDelta(t, 90, Bearing(sannomiya, east), 0.01)
	assert.InDelta(t, 180, Bearing(sannomiya, south), 0.01)
	assert.InDelta(t, 270, Bearing(sannomiya, west), 0.01)
}

func TestNormalizeDegrees(t *testing.T) {
	for in, want := range map[float64]float64{
		0: 0, 360: 0, -90: 270, 725: 5, -720: 0, 359.5: 359.5,
	} {
		assert.InDelta(t, want, NormalizeDegrees(in), 1e-9, "input %v", in)
	}
	got := NormalizeDegrees(-1e-15)
	assert.True(t, got >= 0 && got < 360)
}

func TestDistanceToPolylineTolerance(t *testing.T) {
	line := []Coordinate{
		{Lat: 34.69, Lng: 135.19},
		{Lat: 34.69, Lng: 135.20},
	}
	assert.Less(t, DistanceToPolyline(Coordinate{Lat: 34.6901, Lng: 135.195}, line), 30.0)
	assert.Greater(t, DistanceToPolyline(Coordinate{Lat: 34.70, Lng: 135.195}, line), 30.0)
	assert.True(t, math.IsInf(DistanceToPolyline(sannomiya, nil), 1))
	assert.Zero(t, DistanceToPolyline(sannomiya, []Coordinate{sannomiya}))
}

func TestGridCell(t *testing.T) {
	g := Grid{CellMeters: 10}
	assert.Equal(t, g.Cell(sannomiya), g.Cell(Coordinate{Lat: sannomiya.Lat + 0.00001, Lng: sannomiya.Lng}))

	far := Coordinate{Lat: sannomiya.Lat + 0.001, Lng: sannomiya.Lng}
	assert.NotEqual(t, g.Cell(sannomiya), g.Cell(far))

	// Zero cell size falls back to the default instead of dividing by zero.
	assert.Equal(t, Grid{CellMeters: 10}.Cell(sannomiya), Grid{}.Cell(sannomiya))
}

func TestBounds(t *testing.T) {
	kobe := Bounds{MinLat: 34.62, MinLng: 135.12, MaxLat: 34.76, MaxLng: 135.35}
	require.NoError(t, kobe.Validate())

	assert.True(t, kobe.Contains(sannomiya))
	assert.True(t, kobe.Contains(Coordinate{Lat: 34.62, Lng: 135.12}))
	assert.False(t, kobe.Contains(Coordinate{Lat: 34.7025, Lng: 135.4960}))

	justOutside := Coordinate{Lat: 34.6913, Lng: 135.1195}
	assert.InDelta(t, 46, kobe.DistanceToBoundary(justOutside), 2)

	assert.Error(t, Bounds{MinLat: 1, MaxLat: 0, MinLng: 0, MaxLng: 1}.Validate())
}

func TestPolygon(t *testing.T) {
	square := orb.Polygon{
		orb.Ring{{135.0, 34.0}, {136.0, 34.0}, {136.0, 35.0}, {135.0, 35.0}, {135.0, 34.0}},
		orb.Ring{{135.4, 34.4}, {135.6, 34.4}, {135.6, 34.6}, {135.4, 34.6}, {135.4, 34.4}},
	}
	p, err := NewPolygon(orb.MultiPolygon{square})
	require.NoError(t, err)

	assert.True(t, p.Contains(Coordinate{Lat: 34.2, Lng: 135.2}))
	assert.False(t, p.Contains(Coordinate{Lat: 34.5, Lng: 135.5}), "inside the hole")
	assert.False(t, p.Contains(Coordinate{Lat: 36, Lng: 135.5}))
	assert.InDelta(t, 0, p.DistanceToBoundary(Coordinate{Lat: 34.0, Lng: 135.5}), 0.5)
}

func TestParsePolygon(t *testing.T) {
	fc := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"kobe"},
		"geometry":{"type":"Polygon","coordinates":[[[135.12,34.62],[135.35,34.62],[135.35,34.76],[135.12,34.76],[135.12,34.62]]]}}]}`)

	p, err := ParsePolygon(fc)
	require.NoError(t, err)
	assert.True(t, p.Contains(sannomiya))

	geometry := []byte(`{"type":"MultiPolygon","coordinates":[[[[135.12,34.62],[135.35,34.62],[135.35,34.76],[135.12,34.62]]]]}`)
	_, err = ParsePolygon(geometry)
	require.NoError(t, err)

	_, err = ParsePolygon([]byte(`{"type":"Point","coordinates":[135.1,34.6]}`))
	assert.Error(t, err)
}

func TestParseTrack(t *testing.T) {
	track, err := ParseTrack([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[135.1862,34.6896],[135.1900,34.6905]]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[135.1955,34.6913]}}
	]}`))
	require.NoError(t, err)
	require.Len(t, track, 3)
	assert.Equal(t, Coordinate{Lat: 34.6896, Lng: 135.1862}, track[0])
	assert.Equal(t, sannomiya, track[2])

	_, err = ParseTrack([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`))
	assert.Error(t, err)
	_, err = ParseTrack([]byte(`{"type":"LineString","coordinates":[[0,95],[1,1]]}`))
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
